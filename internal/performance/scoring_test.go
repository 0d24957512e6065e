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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshloom/orchestrator/internal/types"
)

func skillSet(skills ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		out[s] = struct{}{}
	}
	return out
}

func TestScorePerfectMatchFullyIdleFullyReliable(t *testing.T) {
	w := types.NewWorkerPerformance("w1", types.RoleDeveloper, "python", "scraping")
	score := Score(w, skillSet("python", "scraping"))
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScoreNoSkillOverlapStillWeighsReliabilityAndLoad(t *testing.T) {
	w := types.NewWorkerPerformance("w1", types.RoleDeveloper, "go")
	score := Score(w, skillSet("python"))
	assert.InDelta(t, 0.6, score, 1e-9) // 0.4*0 + 0.3*1.0 + 0.3*1.0
}

func TestScoreLoadFactorDecreasesWithCurrentLoad(t *testing.T) {
	w := types.NewWorkerPerformance("w1", types.RoleDeveloper, "python")
	w.CurrentLoad = 3 // at L_max, load_factor floors at 0
	score := Score(w, skillSet("python"))
	assert.InDelta(t, 0.7, score, 1e-9) // 0.4*1 + 0.3*1 + 0.3*0
}

func TestSelectBestPicksHighestScore(t *testing.T) {
	strong := types.NewWorkerPerformance("b", types.RoleDeveloper, "python", "ml")
	weak := types.NewWorkerPerformance("a", types.RoleDeveloper)
	best := SelectBest([]*types.WorkerPerformance{weak, strong}, skillSet("python", "ml"))
	require.NotNil(t, best)
	assert.Equal(t, "b", best.AgentID)
}

func TestSelectBestBreaksTiesByLowestCurrentLoad(t *testing.T) {
	busy := types.NewWorkerPerformance("a", types.RoleDeveloper)
	idle := types.NewWorkerPerformance("b", types.RoleDeveloper)
	busy.CurrentLoad = 2
	best := SelectBest([]*types.WorkerPerformance{busy, idle}, skillSet())
	require.NotNil(t, best)
	assert.Equal(t, "b", best.AgentID)
}

func TestSelectBestBreaksRemainingTiesLexicographically(t *testing.T) {
	z := types.NewWorkerPerformance("worker-z", types.RoleDeveloper)
	a := types.NewWorkerPerformance("worker-a", types.RoleDeveloper)
	best := SelectBest([]*types.WorkerPerformance{z, a}, skillSet())
	require.NotNil(t, best)
	assert.Equal(t, "worker-a", best.AgentID)
}

func TestSelectBestOnEmptySetReturnsNil(t *testing.T) {
	assert.Nil(t, SelectBest(nil, skillSet("python")))
}

func TestAvailableFiltersByLoadAndReliabilityThresholds(t *testing.T) {
	ok := types.NewWorkerPerformance("ok", types.RoleDeveloper)
	overloaded := types.NewWorkerPerformance("overloaded", types.RoleDeveloper)
	overloaded.CurrentLoad = 3
	unreliable := types.NewWorkerPerformance("unreliable", types.RoleDeveloper)
	unreliable.ReliabilityScore = 0.1

	out := Available([]*types.WorkerPerformance{ok, overloaded, unreliable}, 3, 0.3)
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].AgentID)
}

func TestCascadeReturnsImmediatelyWhenWorkersAlreadyAvailable(t *testing.T) {
	w := types.NewWorkerPerformance("w1", types.RoleDeveloper)
	slept := false
	candidates, exhausted := Cascade([]*types.WorkerPerformance{w}, DefaultCascadeConfig(), func(time.Duration) { slept = true })
	require.False(t, exhausted)
	require.Len(t, candidates, 1)
	assert.False(t, slept)
}

func TestCascadeSleepsThenRecheckBeforeResetting(t *testing.T) {
	w := types.NewWorkerPerformance("w1", types.RoleDeveloper)
	w.CurrentLoad = 5 // overloaded past L_max, but not decayed

	var slept time.Duration
	cfg := DefaultCascadeConfig()
	called := 0
	candidates, exhausted := Cascade([]*types.WorkerPerformance{w}, cfg, func(d time.Duration) {
		called++
		slept = d
		w.CurrentLoad = 0 // recovers during the sleep+recheck window
	})
	require.False(t, exhausted)
	require.Len(t, candidates, 1)
	assert.Equal(t, 1, called)
	assert.Equal(t, cfg.WRetry, slept)
}

func TestCascadeResetsDecayedWorkersWhenStillUnavailableAfterSleep(t *testing.T) {
	w := types.NewWorkerPerformance("w1", types.RoleDeveloper)
	w.ReliabilityScore = 0.2 // below RReset, stays overloaded through the sleep step
	w.CurrentLoad = 3

	cfg := DefaultCascadeConfig()
	candidates, exhausted := Cascade([]*types.WorkerPerformance{w}, cfg, func(time.Duration) {})
	require.False(t, exhausted)
	require.Len(t, candidates, 1)
	assert.Equal(t, 0, w.CurrentLoad)
	assert.Greater(t, w.ReliabilityScore, 0.2)
}

func TestCascadeFallsBackToEmergencyThresholds(t *testing.T) {
	w := types.NewWorkerPerformance("w1", types.RoleDeveloper)
	w.ReliabilityScore = 0.6 // >= RReset so step (b) doesn't reset it
	w.CurrentLoad = 4        // above default L_max and above RReset reset bar too
	w.FailedTasks = 0

	cfg := DefaultCascadeConfig()
	candidates, exhausted := Cascade([]*types.WorkerPerformance{w}, cfg, func(time.Duration) {})
	require.False(t, exhausted)
	require.Len(t, candidates, 1) // admitted only once EmergencyLMax=5 is applied
}

func TestCascadeExhaustedEmitsEmptySetWhenNothingRecovers(t *testing.T) {
	w := types.NewWorkerPerformance("w1", types.RoleDeveloper)
	w.ReliabilityScore = 0.9 // not decayed, so step (b) leaves it alone
	w.CurrentLoad = 9        // above even EmergencyLMax

	candidates, exhausted := Cascade([]*types.WorkerPerformance{w}, DefaultCascadeConfig(), func(time.Duration) {})
	assert.True(t, exhausted)
	assert.Empty(t, candidates)
}
