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
package coordinator

import (
	"sort"

	"github.com/meshloom/orchestrator/internal/performance"
	"github.com/meshloom/orchestrator/internal/types"
)

// Centralized worker-selection weights, §4.5 step 3's "otherwise" branch.
const (
	directReliabilityWeight = 0.3
	directSkillWeight       = 0.25
	directRoleWeight        = 0.3
	directLoadWeight        = 0.15
	directLoadCeiling       = 10.0
)

func directScore(w *types.WorkerPerformance, required map[string]struct{}, role types.Role) float64 {
	skill := performance.SkillMatch(w.Skills, required)
	roleMatch := 0.0
	if w.Role == role {
		roleMatch = 1.0
	}
	loadFactor := 1 - minFloat(float64(w.CurrentLoad)/directLoadCeiling, 1)
	return directReliabilityWeight*w.ReliabilityScore +
		directSkillWeight*skill +
		directRoleWeight*roleMatch +
		directLoadWeight*loadFactor
}

// selectWorker picks the best-scoring configured Worker for node,
// breaking ties by lowest current_load then lexicographic agent id.
func (c *Coordinator) selectWorker(node *types.TaskNode, role types.Role) *types.WorkerPerformance {
	candidates := make([]*types.WorkerPerformance, 0, len(c.cfg.Workers))
	for _, id := range c.cfg.Workers {
		if p, ok := c.registry.Get(id); ok {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := directScore(candidates[i], node.RequiredSkills, role), directScore(candidates[j], node.RequiredSkills, role)
		if si != sj {
			return si > sj
		}
		if candidates[i].CurrentLoad != candidates[j].CurrentLoad {
			return candidates[i].CurrentLoad < candidates[j].CurrentLoad
		}
		return candidates[i].AgentID < candidates[j].AgentID
	})
	return candidates[0]
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
