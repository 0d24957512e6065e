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
package subcoordinator

import (
	"fmt"
	"strings"
	"time"

	"github.com/meshloom/orchestrator/internal/types"
)

// decomposeForGroup splits a single coordinator-assigned subtask into
// up to maxWorkers single-worker TaskNodes, one per line of the
// subtask content (the Coordinator's own decomposition pipeline has
// already done the heavier LLM-backed splitting; a group only needs to
// fan a already-scoped piece of work out across its own Workers).
// Content that doesn't split cleanly collapses to a single TaskNode
// equal to the original, mirroring the Coordinator's B1 fallback.
func decomposeForGroup(payload types.TaskPayload, maxWorkers int) []*types.TaskNode {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	parts := splitLines(payload.Content, maxWorkers)

	nodes := make([]*types.TaskNode, 0, len(parts))
	now := time.Now()
	for i, part := range parts {
		sub := types.TaskPayload{
			TaskID:            fmt.Sprintf("%s-%d", payload.TaskID, i+1),
			Content:           part,
			Priority:          payload.Priority,
			EstimatedDuration: payload.EstimatedDuration,
			RequiredSkills:    payload.RequiredSkills,
			Metadata:          payload.Metadata,
		}
		node := sub.ToTaskNode()
		node.CreatedAt = now
		nodes = append(nodes, node)
	}
	return nodes
}

// splitLines returns up to maxParts non-empty lines of text, folding
// any lines past maxParts-1 into the final part so a verbose subtask
// never exceeds the group's worker capacity.
func splitLines(text string, maxParts int) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) <= 1 {
		return []string{text}
	}
	if len(lines) <= maxParts {
		return lines
	}
	head := lines[:maxParts-1]
	tail := strings.Join(lines[maxParts-1:], "\n")
	return append(head, tail)
}
