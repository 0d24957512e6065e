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

import "github.com/meshloom/orchestrator/internal/types"

// Group-selection weights: the root Coordinator's weighted score for
// picking a Sub-Coordinator in the HIERARCHICAL topology (§4.5 step 3).
const (
	groupCapacityWeight    = 0.30
	groupLoadBalanceWeight = 0.25
	groupReliabilityWeight = 0.20
	groupSpeedWeight       = 0.15
	groupSkillWeight       = 0.10

	// groupLoadPerWorker bounds the load-balance term; a group is treated
	// as fully loaded once its aggregate CurrentLoad reaches three tasks
	// per managed Worker.
	groupLoadPerWorker = 3
)

// GroupScore computes a Sub-Coordinator's selection score. Callers must
// skip any candidate reporting zero AvailableWorkers before calling
// this (§4.5: "skip sub-coordinators reporting zero available
// workers").
func GroupScore(g *types.WorkerPerformance, required map[string]struct{}) float64 {
	capacity := float64(g.AvailableWorkers) / float64(maxInt(g.WorkerCount, 1))
	ceiling := float64(maxInt(g.WorkerCount, 1) * groupLoadPerWorker)
	loadBalance := 1 - minFloat(float64(g.CurrentLoad)/ceiling, 1)
	speed := 1.0 / (1.0 + g.AverageDuration.Seconds())
	skill := skillMatch(g.Skills, required)

	return groupCapacityWeight*capacity +
		groupLoadBalanceWeight*loadBalance +
		groupReliabilityWeight*g.ReliabilityScore +
		groupSpeedWeight*speed +
		groupSkillWeight*skill
}

// SelectGroup picks the highest-scoring Sub-Coordinator with at least
// one available Worker, breaking ties by lowest CurrentLoad then
// lexicographic AgentID. Returns nil if every candidate has zero
// available workers.
func SelectGroup(groups []*types.WorkerPerformance, required map[string]struct{}) *types.WorkerPerformance {
	var best *types.WorkerPerformance
	var bestScore float64
	for _, g := range groups {
		if g.AvailableWorkers == 0 {
			continue
		}
		score := GroupScore(g, required)
		switch {
		case best == nil:
			best, bestScore = g, score
		case score > bestScore:
			best, bestScore = g, score
		case score == bestScore && (g.CurrentLoad < best.CurrentLoad ||
			(g.CurrentLoad == best.CurrentLoad && g.AgentID < best.AgentID)):
			best, bestScore = g, score
		}
	}
	return best
}

func maxInt(a, lim int) int {
	if a > lim {
		return a
	}
	return lim
}
