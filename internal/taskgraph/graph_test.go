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
package taskgraph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshloom/orchestrator/internal/errs"
	"github.com/meshloom/orchestrator/internal/types"
)

func node(id string, deps ...string) *types.TaskNode {
	depSet := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		depSet[d] = struct{}{}
	}
	return &types.TaskNode{
		ID:           id,
		Content:      "do " + id,
		Priority:     types.PriorityMedium,
		Dependencies: depSet,
		Status:       types.TaskPending,
		CreatedAt:    time.Now(),
	}
}

func TestReadyReturnsOnlyNodesWithSatisfiedDependencies(t *testing.T) {
	g := New("req-1")
	require.NoError(t, g.AddNode(node("a")))
	require.NoError(t, g.AddNode(node("b", "a")))

	ready := g.Ready()
	require.Len(t, ready, 1)
	assert.Equal(t, "a", ready[0].ID)

	require.NoError(t, g.Assign("a", "worker-1"))
	require.NoError(t, g.Start("a"))
	require.NoError(t, g.Complete("a"))

	ready = g.Ready()
	require.Len(t, ready, 1)
	assert.Equal(t, "b", ready[0].ID)
}

// P4: the dependency graph produced by decomposition is acyclic.
func TestP4_ValidateAcyclicDetectsCycle(t *testing.T) {
	g := New("req-1")
	require.NoError(t, g.AddNode(node("a", "b")))
	require.NoError(t, g.AddNode(node("b", "a")))

	err := g.ValidateAcyclic()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Validation))
}

func TestP4_ValidateAcyclicAcceptsDag(t *testing.T) {
	g := New("req-1")
	require.NoError(t, g.AddNode(node("a")))
	require.NoError(t, g.AddNode(node("b", "a")))
	require.NoError(t, g.AddNode(node("c", "a", "b")))
	assert.NoError(t, g.ValidateAcyclic())
}

// P3: a TaskNode's dependencies are all COMPLETED at the moment its
// status transitions from PENDING to ASSIGNED.
func TestP3_AssignRejectsUnsatisfiedDependencies(t *testing.T) {
	g := New("req-1")
	require.NoError(t, g.AddNode(node("a")))
	require.NoError(t, g.AddNode(node("b", "a")))

	err := g.Assign("b", "worker-1")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Validation))
}

// P2: every ASSIGNED node has exactly one assignee in active_tasks
// until it transitions to COMPLETED or FAILED.
func TestP2_ActiveAssigneeTrackedUntilTerminal(t *testing.T) {
	g := New("req-1")
	require.NoError(t, g.AddNode(node("a")))
	require.NoError(t, g.Assign("a", "worker-1"))

	assignee, ok := g.ActiveAssignee("a")
	require.True(t, ok)
	assert.Equal(t, "worker-1", assignee)

	require.NoError(t, g.Start("a"))
	require.NoError(t, g.Complete("a"))

	_, ok = g.ActiveAssignee("a")
	assert.False(t, ok)
}

func TestFailThenRetryOnceTransitionsBackToPending(t *testing.T) {
	g := New("req-1")
	require.NoError(t, g.AddNode(node("a")))
	require.NoError(t, g.Assign("a", "worker-1"))
	require.NoError(t, g.Fail("a", "boom"))

	require.NoError(t, g.RetryOnce("a"))
	assert.Equal(t, types.TaskPending, g.Node("a").Status)
	assert.True(t, g.Node("a").RetryUsed)

	require.NoError(t, g.Assign("a", "worker-2"))
	require.NoError(t, g.Fail("a", "boom again"))
	err := g.RetryOnce("a")
	assert.Error(t, err, "a second retry must be rejected")
}

func TestSummaryComputesSuccessRate(t *testing.T) {
	g := New("req-1")
	require.NoError(t, g.AddNode(node("a")))
	require.NoError(t, g.AddNode(node("b")))
	require.NoError(t, g.Assign("a", "w1"))
	require.NoError(t, g.Start("a"))
	require.NoError(t, g.Complete("a"))
	require.NoError(t, g.Assign("b", "w2"))
	require.NoError(t, g.Fail("b", "boom"))

	completed, failed, total, rate := g.Summary()
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, total)
	assert.InDelta(t, 0.5, rate, 0.0001)
}

func TestReadySortsByPriorityThenDuration(t *testing.T) {
	g := New("req-1")
	low := node("low")
	low.Priority = types.PriorityLow
	high := node("high")
	high.Priority = types.PriorityHigh
	require.NoError(t, g.AddNode(low))
	require.NoError(t, g.AddNode(high))

	ready := g.Ready()
	require.Len(t, ready, 2)
	assert.Equal(t, "high", ready[0].ID)
}
