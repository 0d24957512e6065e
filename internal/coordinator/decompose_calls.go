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
	"context"
	"sync"

	"github.com/meshloom/orchestrator/internal/decompose"
	"github.com/meshloom/orchestrator/internal/types"
)

// decompose runs the four logically parallel decomposition calls of
// §4.5 and normalizes their (possibly unparseable) output into a single
// DecompositionReport. Each call's failure degrades independently to
// that report section's zero value; subtasks alone always falls
// through to the safe single-node fallback (B1).
func (c *Coordinator) decompose(ctx context.Context, taskText string) types.DecompositionReport {
	var (
		wg                                                    sync.WaitGroup
		complexityRaw, dependencyRaw, skillsRaw, subtasksRaw string
	)
	wg.Add(4)
	go func() { defer wg.Done(); complexityRaw = c.callLLM(ctx, complexityPrompt(taskText)) }()
	go func() { defer wg.Done(); dependencyRaw = c.callLLM(ctx, dependencyPrompt(taskText)) }()
	go func() { defer wg.Done(); skillsRaw = c.callLLM(ctx, skillsPrompt(taskText)) }()
	go func() { defer wg.Done(); subtasksRaw = c.callLLM(ctx, subtasksPrompt(taskText)) }()
	wg.Wait()

	var report types.DecompositionReport
	if cr, err := decompose.ParseComplexity(complexityRaw); err == nil {
		report.Complexity = *cr
	}
	if dr, err := decompose.ParseDependency(dependencyRaw); err == nil {
		report.Dependency = *dr
	}
	if sr, err := decompose.ParseSkills(skillsRaw); err == nil {
		report.Skills = *sr
	}
	subtasks, err := decompose.ParseSubtasks(subtasksRaw)
	if err != nil || subtasks == nil {
		subtasks = decompose.Fallback(taskText)
	}
	report.Subtasks = *subtasks
	return report
}

func (c *Coordinator) callLLM(ctx context.Context, messages []types.ChatMessage) string {
	resp, err := c.gateway.Chat(ctx, messages, c.cfg.Model, "")
	if err != nil {
		c.logger.Warn("decomposition call failed, that report section will degrade to its fallback")
		return ""
	}
	return resp.Content
}

func complexityPrompt(task string) []types.ChatMessage {
	return []types.ChatMessage{
		{Role: types.ChatRoleSystem, Content: `Estimate task complexity. Reply with only JSON: {"complexity_level": "low|medium|high|critical", "estimated_minutes": <number>, "resource_needs": [<string>...]}`},
		{Role: types.ChatRoleUser, Content: task},
	}
}

func dependencyPrompt(task string) []types.ChatMessage {
	return []types.ChatMessage{
		{Role: types.ChatRoleSystem, Content: `Analyze task ordering and dependencies. Reply with only JSON: {"sequential_steps": [<string>...], "parallel_groups": [[<int>...]], "dependency_rules": [{"task_index": <int>, "depends_on_index": <int>}...]}`},
		{Role: types.ChatRoleUser, Content: task},
	}
}

func skillsPrompt(task string) []types.ChatMessage {
	return []types.ChatMessage{
		{Role: types.ChatRoleSystem, Content: `Identify the skills and tools this task needs. Reply with only JSON: {"primary_skills": [<string>...], "tools_required": [<string>...]}`},
		{Role: types.ChatRoleUser, Content: task},
	}
}

func subtasksPrompt(task string) []types.ChatMessage {
	return []types.ChatMessage{
		{Role: types.ChatRoleSystem, Content: `Break this task into an ordered list of subtasks bounded to what a small team of workers can execute independently. Reply with only JSON: {"subtasks": [{"content": <string>}...]}`},
		{Role: types.ChatRoleUser, Content: task},
	}
}
