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
	"sort"
	"time"

	"github.com/meshloom/orchestrator/internal/types"
)

// CascadeConfig tunes §4.4's availability check and cascade.
type CascadeConfig struct {
	LMax          int           // default 3
	RMin          float64       // default 0.3
	WRetry        time.Duration // default 2s
	RReset        float64       // default 0.6
	FMax          int           // default 5
	EmergencyLMax int           // default 5
	EmergencyRMin float64       // default 0.1
}

// DefaultCascadeConfig returns §4.4's defaults.
func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		LMax: 3, RMin: 0.3, WRetry: 2 * time.Second,
		RReset: 0.6, FMax: 5, EmergencyLMax: 5, EmergencyRMin: 0.1,
	}
}

// Score computes §4.4's assignment-scoring formula for worker w against
// task-required skills requiredSkills.
func Score(w *types.WorkerPerformance, requiredSkills map[string]struct{}) float64 {
	skillMatch := skillMatch(w.Skills, requiredSkills)
	loadFactor := 1.0 - minInt(w.CurrentLoad, defaultLMax)/float64(defaultLMax)
	return 0.4*skillMatch + 0.3*w.ReliabilityScore + 0.3*loadFactor
}

const defaultLMax = 3

// SkillMatch exposes the fraction-of-required-skills-present
// calculation for other packages (e.g. the Coordinator's centralized
// worker-selection score) that need the same formula.
func SkillMatch(have, required map[string]struct{}) float64 {
	return skillMatch(have, required)
}

func skillMatch(have, required map[string]struct{}) float64 {
	if len(required) == 0 {
		return 0
	}
	hits := 0
	for s := range required {
		if _, ok := have[s]; ok {
			hits++
		}
	}
	denom := len(required)
	if denom < 1 {
		denom = 1
	}
	return float64(hits) / float64(denom)
}

func minInt(a, lim int) float64 {
	if a > lim {
		return float64(lim)
	}
	return float64(a)
}

// SelectBest picks the highest-scoring candidate among workers for
// requiredSkills, breaking ties by lowest current_load then
// lexicographic agent id, per §4.4.
func SelectBest(workers []*types.WorkerPerformance, requiredSkills map[string]struct{}) *types.WorkerPerformance {
	if len(workers) == 0 {
		return nil
	}
	best := make([]*types.WorkerPerformance, len(workers))
	copy(best, workers)
	sort.SliceStable(best, func(i, j int) bool {
		si, sj := Score(best[i], requiredSkills), Score(best[j], requiredSkills)
		if si != sj {
			return si > sj
		}
		if best[i].CurrentLoad != best[j].CurrentLoad {
			return best[i].CurrentLoad < best[j].CurrentLoad
		}
		return best[i].AgentID < best[j].AgentID
	})
	return best[0]
}

// Available returns workers eligible under cfg's current_load/reliability
// thresholds.
func Available(workers []*types.WorkerPerformance, lMax int, rMin float64) []*types.WorkerPerformance {
	var out []*types.WorkerPerformance
	for _, w := range workers {
		if w.CurrentLoad < lMax && w.ReliabilityScore >= rMin {
			out = append(out, w)
		}
	}
	return out
}

// Cascade implements §4.4's four-step availability cascade, returning
// the candidate set after whichever step first produces a non-empty
// set, and whether the cascade was exhausted without success (step d).
//
// sleep is injected so tests don't pay the real W_retry wall-clock
// delay.
func Cascade(workers []*types.WorkerPerformance, cfg CascadeConfig, sleep func(time.Duration)) (candidates []*types.WorkerPerformance, exhausted bool) {
	if candidates = Available(workers, cfg.LMax, cfg.RMin); len(candidates) > 0 {
		return candidates, false
	}

	// (a) sleep then re-check.
	sleep(cfg.WRetry)
	if candidates = Available(workers, cfg.LMax, cfg.RMin); len(candidates) > 0 {
		return candidates, false
	}

	// (b) reset overloaded/decayed workers.
	for _, w := range workers {
		if w.ReliabilityScore < cfg.RReset || w.FailedTasks > cfg.FMax {
			w.CurrentLoad = 0
			w.ReliabilityScore = minFloat(1.0, w.ReliabilityScore+0.1)
		}
	}
	if candidates = Available(workers, cfg.LMax, cfg.RMin); len(candidates) > 0 {
		return candidates, false
	}

	// (c) lower thresholds to emergency levels for one pass.
	if candidates = Available(workers, cfg.EmergencyLMax, cfg.EmergencyRMin); len(candidates) > 0 {
		return candidates, false
	}

	// (d) still empty.
	return nil, true
}
