// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package coordinator

import (
	"fmt"
	"strings"
	"time"

	"github.com/meshloom/orchestrator/internal/types"
)

var criticalKeywords = []string{"critical", "urgent", "error", "fix", "security"}
var mediumKeywords = []string{"implement", "create", "build", "develop"}

// derivePriority applies §4.5's keyword rule, overridden by
// complexity_level when it implies a higher priority.
func derivePriority(content, complexityLevel string) types.Priority {
	p := types.PriorityLow
	lower := strings.ToLower(content)
	switch {
	case containsAny(lower, criticalKeywords):
		p = types.PriorityCritical
	case containsAny(lower, mediumKeywords):
		p = types.PriorityMedium
	}
	if cp := complexityPriority(complexityLevel); cp > p {
		p = cp
	}
	return p
}

func complexityPriority(level string) types.Priority {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "critical":
		return types.PriorityCritical
	case "high":
		return types.PriorityHigh
	case "medium":
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}

func complexityScore(level string) float64 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "critical":
		return 1.0
	case "high":
		return 0.75
	case "medium":
		return 0.5
	default:
		return 0.25
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// roleKeywords drive §4.5's "role inferred from keywords" rule for the
// centralized worker-selection score.
var roleOrder = []types.Role{types.RoleAnalyst, types.RoleDataScientist, types.RoleArchitect, types.RoleDeveloper}
var roleKeywords = map[types.Role][]string{
	types.RoleAnalyst:       {"analyze", "research", "investigate", "review"},
	types.RoleDataScientist: {"dataset", "train", "predict", "data pipeline", "model accuracy"},
	types.RoleArchitect:     {"design", "architecture", "schema", "blueprint"},
	types.RoleDeveloper:     {"implement", "build", "code", "develop", "fix", "create"},
}

func inferRole(content string) types.Role {
	lower := strings.ToLower(content)
	for _, role := range roleOrder {
		for _, kw := range roleKeywords[role] {
			if strings.Contains(lower, kw) {
				return role
			}
		}
	}
	return types.RoleDeveloper
}

// buildNodes converts a DecompositionReport into the TaskNodes for one
// request's TaskGraph: sequential_steps induce a dependency chain;
// explicit dependency_rules override the chain-derived edge for their
// task index.
func buildNodes(requestID string, report types.DecompositionReport) []*types.TaskNode {
	subtasks := report.Subtasks.Subtasks
	if len(subtasks) == 0 {
		subtasks = []types.SubtaskSpec{{Content: "(decomposition produced no usable subtasks)"}}
	}

	skills := toSkillSet(report.Skills)
	perTask := estimatedDurationPerTask(report.Complexity, len(subtasks))
	score := complexityScore(report.Complexity.ComplexityLevel)
	now := time.Now()

	ids := make([]string, len(subtasks))
	nodes := make([]*types.TaskNode, len(subtasks))
	for i, st := range subtasks {
		ids[i] = fmt.Sprintf("%s-t%d", requestID, i+1)
		nodes[i] = &types.TaskNode{
			ID:                ids[i],
			Content:           st.Content,
			Priority:          derivePriority(st.Content, report.Complexity.ComplexityLevel),
			EstimatedDuration: perTask,
			RequiredSkills:    cloneSkillSet(skills),
			Dependencies:      make(map[string]struct{}),
			Status:            types.TaskPending,
			CreatedAt:         now,
			Metadata: types.TaskMetadata{
				ComplexityScore:    score,
				OriginatingRequest: requestID,
			},
		}
	}

	for i := 1; i < len(ids) && i < len(report.Dependency.SequentialSteps); i++ {
		nodes[i].Dependencies[ids[i-1]] = struct{}{}
	}

	for _, rule := range report.Dependency.Rules {
		if rule.TaskIndex < 0 || rule.TaskIndex >= len(ids) {
			continue
		}
		if rule.DependsOnIdx < 0 || rule.DependsOnIdx >= len(ids) {
			continue
		}
		if rule.TaskIndex == rule.DependsOnIdx {
			continue
		}
		nodes[rule.TaskIndex].Dependencies = map[string]struct{}{ids[rule.DependsOnIdx]: {}}
	}

	return nodes
}

func estimatedDurationPerTask(c types.ComplexityReport, n int) time.Duration {
	if n < 1 {
		n = 1
	}
	minutes := c.EstimatedMinutes / float64(n)
	if minutes <= 0 {
		minutes = 5
	}
	return time.Duration(minutes * float64(time.Minute))
}

func toSkillSet(s types.SkillsReport) map[string]struct{} {
	out := make(map[string]struct{}, len(s.PrimarySkills))
	for _, skill := range s.PrimarySkills {
		out[skill] = struct{}{}
	}
	return out
}

func cloneSkillSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
