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

// Package performance owns the WorkerPerformance records a
// Sub-Coordinator scores candidates against: load, reliability, skills,
// and the assignment-scoring formula and availability cascade of §4.4.
package performance

import (
	"time"

	"github.com/meshloom/orchestrator/internal/csync"
	"github.com/meshloom/orchestrator/internal/types"
)

// Registry is a concurrent store of WorkerPerformance records, one per
// managed Worker, shared by a Sub-Coordinator across scheduling ticks.
type Registry struct {
	workers *csync.Map[string, *types.WorkerPerformance]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{workers: csync.NewMap[string, *types.WorkerPerformance]()}
}

// Register adds or replaces the performance record for agentID.
func (r *Registry) Register(p *types.WorkerPerformance) {
	r.workers.Set(p.AgentID, p)
}

// Get returns the performance record for agentID, if present.
func (r *Registry) Get(agentID string) (*types.WorkerPerformance, bool) {
	return r.workers.Get(agentID)
}

// All returns every registered worker's performance record.
func (r *Registry) All() []*types.WorkerPerformance {
	var out []*types.WorkerPerformance
	for w := range r.workers.Values() {
		out = append(out, w)
	}
	return out
}

// RecordCompletion updates load/reliability/duration bookkeeping after
// a task finishes, per §4.4's reliability decay model: success nudges
// reliability up, failure nudges it down, both bounded to [0,1].
func (r *Registry) RecordCompletion(agentID string, success bool, duration time.Duration) {
	p, ok := r.workers.Get(agentID)
	if !ok {
		return
	}
	if p.CurrentLoad > 0 {
		p.CurrentLoad--
	}
	if success {
		p.CompletedTasks++
		p.ReliabilityScore = minFloat(1.0, p.ReliabilityScore+reliabilityDelta)
	} else {
		p.FailedTasks++
		p.ReliabilityScore = maxFloat(0.0, p.ReliabilityScore-reliabilityDelta*2)
	}
	p.AverageDuration = emaDuration(p.AverageDuration, duration, p.CompletedTasks+p.FailedTasks)
}

// RecordAssignment increments load when a task is handed to agentID.
func (r *Registry) RecordAssignment(agentID string) {
	if p, ok := r.workers.Get(agentID); ok {
		p.CurrentLoad++
	}
}

// RecordCoordinatorCompletion applies the root Coordinator's own
// reliability-update rule (§4.5 step 4), distinct from the
// Sub-Coordinator's additive nudge: success leaves reliability
// untouched, failure multiplies it by decay (default 0.9). Used when
// the Coordinator tracks Sub-Coordinator or, in the centralized
// topology, Worker performance directly.
func (r *Registry) RecordCoordinatorCompletion(agentID string, success bool, duration time.Duration, decay float64) {
	p, ok := r.workers.Get(agentID)
	if !ok {
		return
	}
	if p.CurrentLoad > 0 {
		p.CurrentLoad--
	}
	if success {
		p.CompletedTasks++
	} else {
		p.FailedTasks++
		p.ReliabilityScore = maxFloat(0.0, p.ReliabilityScore*decay)
	}
	p.AverageDuration = emaDuration(p.AverageDuration, duration, p.CompletedTasks+p.FailedTasks)
}

// reliabilityDelta is the per-event reliability nudge; decay toward 0
// is twice as fast as recovery toward 1, so repeated failures pull a
// worker out of rotation faster than single successes restore it.
const reliabilityDelta = 0.05

func emaDuration(prev, sample time.Duration, n int) time.Duration {
	if n <= 1 {
		return sample
	}
	return prev + (sample-prev)/time.Duration(n)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
