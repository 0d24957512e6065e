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
package gateway

import (
	"sync"
	"time"

	"github.com/meshloom/orchestrator/internal/types"
)

// healthRegistry owns one BackendHealth record per backend name and
// serializes every read/update, per §4.2's health-score and circuit
// breaker algorithm.
type healthRegistry struct {
	mu               sync.Mutex
	records          map[string]*types.BackendHealth
	failureThreshold int
	openDuration     time.Duration
}

func newHealthRegistry(names []string, failureThreshold int, openDuration time.Duration) *healthRegistry {
	records := make(map[string]*types.BackendHealth, len(names))
	for _, n := range names {
		records[n] = &types.BackendHealth{Name: n, Status: types.BackendHealthy}
	}
	return &healthRegistry{records: records, failureThreshold: failureThreshold, openDuration: openDuration}
}

// snapshot returns a defensive copy of a backend's health record.
func (h *healthRegistry) snapshot(name string) types.BackendHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.records[name]
	if !ok {
		return types.BackendHealth{Name: name, Status: types.BackendHealthy}
	}
	return *r
}

// eligible reports whether the named backend may be tried: it is not
// CIRCUIT_OPEN, or its cool-down window has elapsed (half-open probe).
// Health-score ordering happens separately in the Gateway.
func (h *healthRegistry) eligible(name string, now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.records[name]
	if !ok {
		return true
	}
	if r.Status != types.BackendCircuitOpen {
		return true
	}
	return now.After(r.CircuitOpenUntil)
}

// recordSuccess updates rolling success rate and response-time EMA,
// resets the consecutive-failure counter, and closes a half-open
// circuit.
func (h *healthRegistry) recordSuccess(name string, elapsed time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.records[name]
	if r == nil {
		return
	}
	r.TotalRequests++
	r.SuccessfulRequests++
	r.ConsecutiveFailures = 0
	r.AverageResponseTime = ema(r.AverageResponseTime, elapsed, r.TotalRequests)
	if r.Status != types.BackendHealthy {
		r.Status = types.BackendHealthy
	}
}

// recordFailure updates rolling counters and trips the circuit after
// failureThreshold consecutive failures.
func (h *healthRegistry) recordFailure(name string, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.records[name]
	if r == nil {
		return
	}
	r.TotalRequests++
	r.FailedRequests++
	r.ConsecutiveFailures++
	if r.ConsecutiveFailures >= h.failureThreshold {
		r.Status = types.BackendCircuitOpen
		r.CircuitOpenUntil = now.Add(h.openDuration)
	} else {
		r.Status = types.BackendDegraded
	}
}

// ema folds elapsed into the existing average using a simple
// count-weighted running mean; exact for the first sample.
func ema(prev time.Duration, sample time.Duration, n int64) time.Duration {
	if n <= 1 {
		return sample
	}
	return prev + (sample-prev)/time.Duration(n)
}
