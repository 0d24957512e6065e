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

	"github.com/stretchr/testify/assert"

	"github.com/meshloom/orchestrator/internal/types"
)

func group(id string, workerCount, available, load int, reliability float64) *types.WorkerPerformance {
	g := types.NewWorkerPerformance(id, types.RoleSubCoordinator, "scraping")
	g.WorkerCount = workerCount
	g.AvailableWorkers = available
	g.CurrentLoad = load
	g.ReliabilityScore = reliability
	return g
}

func TestSelectGroupSkipsZeroAvailableWorkers(t *testing.T) {
	idle := group("g-full", 3, 3, 0, 0.9)
	empty := group("g-empty", 3, 0, 0, 1.0)

	best := SelectGroup([]*types.WorkerPerformance{empty, idle}, nil)
	assert.Equal(t, "g-full", best.AgentID)
}

func TestSelectGroupPrefersHigherCapacityAndReliability(t *testing.T) {
	strong := group("g-strong", 4, 4, 0, 1.0)
	weak := group("g-weak", 4, 1, 3, 0.3)

	best := SelectGroup([]*types.WorkerPerformance{weak, strong}, nil)
	assert.Equal(t, "g-strong", best.AgentID)
}

func TestSelectGroupReturnsNilWhenAllExhausted(t *testing.T) {
	a := group("g-a", 2, 0, 0, 1.0)
	b := group("g-b", 2, 0, 0, 1.0)

	assert.Nil(t, SelectGroup([]*types.WorkerPerformance{a, b}, nil))
}

func TestSelectGroupTiesBreakByLowestLoadThenID(t *testing.T) {
	same1 := group("g-z", 2, 2, 0, 0.5)
	same2 := group("g-a", 2, 2, 0, 0.5)

	best := SelectGroup([]*types.WorkerPerformance{same1, same2}, nil)
	assert.Equal(t, "g-a", best.AgentID)
}
