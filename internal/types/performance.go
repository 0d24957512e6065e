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

// WorkerPerformance is the per-agent load/reliability/skill record the
// scheduler scores candidates against. One record per agent-id, shared
// between Workers and Sub-Coordinators.
type WorkerPerformance struct {
	AgentID          string
	Role             Role
	CompletedTasks   int
	FailedTasks      int
	CurrentLoad      int
	ReliabilityScore float64 // in [0,1], 1.0 initial
	AverageDuration  time.Duration
	Skills           map[string]struct{}

	// Sub-coordinators only.
	WorkerCount      int
	AvailableWorkers int
}

// NewWorkerPerformance returns a freshly initialized record.
func NewWorkerPerformance(agentID string, role Role, skills ...string) *WorkerPerformance {
	skillSet := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		skillSet[s] = struct{}{}
	}
	return &WorkerPerformance{
		AgentID:          agentID,
		Role:             role,
		ReliabilityScore: 1.0,
		Skills:           skillSet,
	}
}

// BackendStatus is the health state machine for an LLM backend.
type BackendStatus string

const (
	BackendHealthy     BackendStatus = "HEALTHY"
	BackendDegraded    BackendStatus = "DEGRADED"
	BackendFailed      BackendStatus = "FAILED"
	BackendCircuitOpen BackendStatus = "CIRCUIT_OPEN"
)

// BackendHealth tracks a single LLM backend's rolling reliability.
type BackendHealth struct {
	Name                string
	Status              BackendStatus
	TotalRequests       int64
	SuccessfulRequests  int64
	FailedRequests      int64
	AverageResponseTime time.Duration
	ConsecutiveFailures int
	CircuitOpenUntil    time.Time
}

// SuccessRate returns successful/total, or 1.0 (optimistic) with zero
// observed calls per the Gateway's ordering algorithm.
func (b *BackendHealth) SuccessRate() float64 {
	if b.TotalRequests == 0 {
		return 1.0
	}
	return float64(b.SuccessfulRequests) / float64(b.TotalRequests)
}

// HealthScore is success_rate * 1/(1+avg_response_time_seconds).
func (b *BackendHealth) HealthScore() float64 {
	secs := b.AverageResponseTime.Seconds()
	return b.SuccessRate() * (1.0 / (1.0 + secs))
}
