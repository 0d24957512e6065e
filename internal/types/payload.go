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
package types

import (
	"sort"
	"time"
)

// TaskPayload is the wire-format encoding of a TaskNode carried as the
// JSON content of an assignment message (sub-task-to-subqueen,
// sub-task, enhanced-task). TaskNode itself isn't marshaled directly
// because its dependency/skill sets are maps kept for O(1) membership
// checks, not wire shapes.
type TaskPayload struct {
	TaskID            string        `json:"task_id"`
	Content           string        `json:"content"`
	Priority          Priority      `json:"priority"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	RequiredSkills    []string      `json:"required_skills,omitempty"`
	Dependencies      []string      `json:"dependencies,omitempty"`
	Metadata          TaskMetadata  `json:"metadata"`
}

// NewTaskPayload converts a TaskNode into its wire form.
func NewTaskPayload(t *TaskNode) TaskPayload {
	return TaskPayload{
		TaskID:            t.ID,
		Content:           t.Content,
		Priority:          t.Priority,
		EstimatedDuration: t.EstimatedDuration,
		RequiredSkills:    sortedKeys(t.RequiredSkills),
		Dependencies:      sortedKeys(t.Dependencies),
		Metadata:          t.Metadata,
	}
}

// ToTaskNode reconstructs a TaskNode from its wire form for a receiver
// that only tracks what it was handed (e.g. a Worker echoing task-id
// back in its response).
func (p TaskPayload) ToTaskNode() *TaskNode {
	return &TaskNode{
		ID:                p.TaskID,
		Content:           p.Content,
		Priority:          p.Priority,
		EstimatedDuration: p.EstimatedDuration,
		RequiredSkills:    toSet(p.RequiredSkills),
		Dependencies:      toSet(p.Dependencies),
		Status:            TaskPending,
		Metadata:          p.Metadata,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toSet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// WorkerOutcome is the wire-format content of a response/error message
// a Worker emits for a single TaskNode: the LLM's textual result plus
// whatever side effects it triggered.
type WorkerOutcome struct {
	TaskID      string          `json:"task_id"`
	Text        string          `json:"text"`
	Commands    []CommandResult `json:"commands,omitempty"`
	FileWritten string          `json:"file_written,omitempty"`
}
