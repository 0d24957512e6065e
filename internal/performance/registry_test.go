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
package performance

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshloom/orchestrator/internal/types"
)

func TestRegisterAndGetRoundTrip(t *testing.T) {
	r := NewRegistry()
	p := types.NewWorkerPerformance("w1", types.RoleDeveloper, "go")
	r.Register(p)

	got, ok := r.Get("w1")
	require.True(t, ok)
	assert.Equal(t, "w1", got.AgentID)
}

func TestGetMissingReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("ghost")
	assert.False(t, ok)
}

func TestAllReturnsEveryRegisteredWorker(t *testing.T) {
	r := NewRegistry()
	r.Register(types.NewWorkerPerformance("a", types.RoleDeveloper))
	r.Register(types.NewWorkerPerformance("b", types.RoleDeveloper))

	all := r.All()
	assert.Len(t, all, 2)
}

func TestRecordAssignmentIncrementsCurrentLoad(t *testing.T) {
	r := NewRegistry()
	r.Register(types.NewWorkerPerformance("w1", types.RoleDeveloper))
	r.RecordAssignment("w1")
	r.RecordAssignment("w1")

	p, _ := r.Get("w1")
	assert.Equal(t, 2, p.CurrentLoad)
}

func TestRecordCompletionSuccessDecrementsLoadAndRaisesReliability(t *testing.T) {
	r := NewRegistry()
	p := types.NewWorkerPerformance("w1", types.RoleDeveloper)
	p.ReliabilityScore = 0.9
	r.Register(p)
	r.RecordAssignment("w1")

	r.RecordCompletion("w1", true, 10*time.Millisecond)

	assert.Equal(t, 0, p.CurrentLoad)
	assert.Equal(t, 1, p.CompletedTasks)
	assert.InDelta(t, 0.95, p.ReliabilityScore, 1e-9)
}

func TestRecordCompletionFailureDecaysReliabilityTwiceAsFast(t *testing.T) {
	r := NewRegistry()
	p := types.NewWorkerPerformance("w1", types.RoleDeveloper)
	r.Register(p)
	r.RecordAssignment("w1")

	r.RecordCompletion("w1", false, 10*time.Millisecond)

	assert.Equal(t, 1, p.FailedTasks)
	assert.InDelta(t, 0.9, p.ReliabilityScore, 1e-9)
}

func TestRecordCompletionReliabilityClampedToUnitInterval(t *testing.T) {
	r := NewRegistry()
	p := types.NewWorkerPerformance("w1", types.RoleDeveloper)
	p.ReliabilityScore = 1.0
	r.Register(p)

	r.RecordCompletion("w1", true, time.Millisecond)

	assert.LessOrEqual(t, p.ReliabilityScore, 1.0)
}

func TestRecordCompletionOnUnregisteredAgentIsNoop(t *testing.T) {
	r := NewRegistry()
	assert.NotPanics(t, func() {
		r.RecordCompletion("ghost", true, time.Millisecond)
	})
}

func TestRegistryConcurrentAccessIsRaceFree(t *testing.T) {
	r := NewRegistry()
	r.Register(types.NewWorkerPerformance("w1", types.RoleDeveloper))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.RecordAssignment("w1")
		}()
		go func() {
			defer wg.Done()
			r.RecordCompletion("w1", true, time.Microsecond)
		}()
	}
	wg.Wait()
}
