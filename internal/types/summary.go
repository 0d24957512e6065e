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

// FailedTask pairs a failed TaskNode id with its last error content, for
// the structured summary carried by final-error / group-response(error).
type FailedTask struct {
	TaskID    string `json:"task_id"`
	LastError string `json:"last_error"`
}

// WorkerSnapshot is a point-in-time copy of a WorkerPerformance record,
// embedded in a RequestSummary.
type WorkerSnapshot struct {
	AgentID          string        `json:"agent_id"`
	Role             Role          `json:"role"`
	CompletedTasks   int           `json:"completed_tasks"`
	FailedTasks      int           `json:"failed_tasks"`
	ReliabilityScore float64       `json:"reliability_score"`
	AverageDuration  time.Duration `json:"average_duration"`
}

// RequestSummary is the structured payload carried by final-response,
// final-error, and group-response messages.
type RequestSummary struct {
	RequestID          string           `json:"request_id"`
	TotalTasks         int              `json:"total_tasks"`
	CompletedTasks     int              `json:"completed_tasks"`
	FailedTasks        int              `json:"failed_tasks"`
	SuccessRate        float64          `json:"success_rate"`
	TotalExecutionTime time.Duration    `json:"total_execution_time"`
	WorkerSnapshots    []WorkerSnapshot `json:"worker_snapshots"`
	FailedTaskDetails  []FailedTask     `json:"failed_task_details,omitempty"`
	Content            string           `json:"content,omitempty"`
}

// CommandResult is the outcome of a single allow-listed command a
// Worker ran as a side effect.
type CommandResult struct {
	Command    string `json:"command"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	Truncated  bool   `json:"truncated"`
	Refused    bool   `json:"refused"`
	RefusedWhy string `json:"refused_why,omitempty"`
}
