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

import "time"

// Priority orders TaskNodes within the scheduler's READY set.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// TaskStatus is the TaskNode lifecycle. Monotonic except for one
// permitted FAILED -> PENDING transition on retry.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskAssigned   TaskStatus = "ASSIGNED"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// TaskMetadata carries provenance that doesn't affect scheduling but is
// useful in the final summary.
type TaskMetadata struct {
	ComplexityScore    float64
	OriginatingRequest string
	ParentAgent        string
}

// TaskNode is a single unit of scheduled work belonging to exactly one
// top-level request's TaskGraph.
type TaskNode struct {
	ID                 string
	Content            string
	Priority           Priority
	EstimatedDuration  time.Duration
	RequiredSkills     map[string]struct{}
	Dependencies       map[string]struct{}
	Status             TaskStatus
	AssignedWorker     string
	CreatedAt          time.Time
	StartedAt          time.Time
	CompletedAt        time.Time
	Metadata           TaskMetadata
	LastError          string
	RetryUsed          bool // tracks the single permitted FAILED->PENDING transition
}

// DependenciesSatisfied reports whether every dependency of t is in
// completed.
func (t *TaskNode) DependenciesSatisfied(completed map[string]struct{}) bool {
	for dep := range t.Dependencies {
		if _, ok := completed[dep]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a deep-enough copy for safe handoff across goroutines.
func (t *TaskNode) Clone() *TaskNode {
	cp := *t
	cp.RequiredSkills = cloneSet(t.RequiredSkills)
	cp.Dependencies = cloneSet(t.Dependencies)
	return &cp
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
