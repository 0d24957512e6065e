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

// Package taskgraph implements the in-memory TaskGraph: a per-request
// DAG of TaskNode records owned by a single Coordinator or
// Sub-Coordinator, with READY-set computation, acyclic validation, and
// the status state machine PENDING -> ASSIGNED -> IN_PROGRESS ->
// COMPLETED|FAILED (with one permitted FAILED -> PENDING retry
// transition).
package taskgraph

import (
	"fmt"
	"sort"
	"time"

	"github.com/meshloom/orchestrator/internal/errs"
	"github.com/meshloom/orchestrator/internal/types"
)

// Graph is a single-writer DAG of TaskNodes for one top-level request.
// It is not safe for concurrent mutation; the owning Coordinator or
// Sub-Coordinator is the sole writer, per §4's ownership model.
type Graph struct {
	RequestID string
	nodes     map[string]*types.TaskNode
	// activeTasks maps task id to assignee, enforcing P2 (exactly one
	// assignee while ASSIGNED/IN_PROGRESS).
	activeTasks map[string]string
}

// New creates an empty Graph for requestID.
func New(requestID string) *Graph {
	return &Graph{
		RequestID:   requestID,
		nodes:       make(map[string]*types.TaskNode),
		activeTasks: make(map[string]string),
	}
}

// AddNode inserts node into the graph. Returns a Validation error if a
// node with the same id already exists.
func (g *Graph) AddNode(node *types.TaskNode) error {
	if _, exists := g.nodes[node.ID]; exists {
		return errs.New(errs.Validation, fmt.Errorf("task node %q already exists in graph", node.ID))
	}
	g.nodes[node.ID] = node
	return nil
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *types.TaskNode {
	return g.nodes[id]
}

// Nodes returns every node in the graph, sorted by id for
// deterministic iteration in tests.
func (g *Graph) Nodes() []*types.TaskNode {
	out := make([]*types.TaskNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ValidateAcyclic checks the P4 invariant: the dependency graph
// produced by decomposition must be acyclic. Returns a Validation error
// naming the first cycle found.
func (g *Graph) ValidateAcyclic() error {
	const (
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return errs.New(errs.Validation, fmt.Errorf("dependency cycle detected: %v -> %s", path, id))
		}
		color[id] = gray
		path = append(path, id)
		node := g.nodes[id]
		if node != nil {
			for dep := range node.Dependencies {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// completedSet returns the set of node ids currently COMPLETED.
func (g *Graph) completedSet() map[string]struct{} {
	out := make(map[string]struct{})
	for id, n := range g.nodes {
		if n.Status == types.TaskCompleted {
			out[id] = struct{}{}
		}
	}
	return out
}

// Ready returns nodes whose status is PENDING and whose dependencies
// are all COMPLETED, sorted by priority descending then estimated
// duration ascending (shorter jobs first within a priority tier), per
// §4's scheduling-loop ordering.
func (g *Graph) Ready() []*types.TaskNode {
	completed := g.completedSet()
	var ready []*types.TaskNode
	for _, n := range g.Nodes() {
		if n.Status != types.TaskPending {
			continue
		}
		if n.DependenciesSatisfied(completed) {
			ready = append(ready, n)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority > ready[j].Priority
		}
		return ready[i].EstimatedDuration < ready[j].EstimatedDuration
	})
	return ready
}

// Assign transitions a PENDING node to ASSIGNED, recording its sole
// assignee (P2), and checking that its dependencies are all COMPLETED
// at the moment of transition (P3).
func (g *Graph) Assign(id, assignee string) error {
	node := g.nodes[id]
	if node == nil {
		return errs.New(errs.Validation, fmt.Errorf("unknown task node %q", id))
	}
	if node.Status != types.TaskPending {
		return errs.New(errs.Validation, fmt.Errorf("task %q is not PENDING (status=%s)", id, node.Status))
	}
	if !node.DependenciesSatisfied(g.completedSet()) {
		return errs.New(errs.Validation, fmt.Errorf("task %q has unsatisfied dependencies", id))
	}
	node.Status = types.TaskAssigned
	node.AssignedWorker = assignee
	g.activeTasks[id] = assignee
	return nil
}

// Start transitions an ASSIGNED node to IN_PROGRESS.
func (g *Graph) Start(id string) error {
	node := g.nodes[id]
	if node == nil {
		return errs.New(errs.Validation, fmt.Errorf("unknown task node %q", id))
	}
	if node.Status != types.TaskAssigned {
		return errs.New(errs.Validation, fmt.Errorf("task %q is not ASSIGNED (status=%s)", id, node.Status))
	}
	node.Status = types.TaskInProgress
	node.StartedAt = time.Now()
	return nil
}

// Complete transitions an IN_PROGRESS node to COMPLETED and releases
// its active-task slot.
func (g *Graph) Complete(id string) error {
	node := g.nodes[id]
	if node == nil {
		return errs.New(errs.Validation, fmt.Errorf("unknown task node %q", id))
	}
	if node.Status != types.TaskInProgress {
		return errs.New(errs.Validation, fmt.Errorf("task %q is not IN_PROGRESS (status=%s)", id, node.Status))
	}
	node.Status = types.TaskCompleted
	node.CompletedAt = time.Now()
	delete(g.activeTasks, id)
	return nil
}

// Fail transitions an ASSIGNED or IN_PROGRESS node to FAILED, releasing
// its active-task slot and recording lastErr.
func (g *Graph) Fail(id string, lastErr string) error {
	node := g.nodes[id]
	if node == nil {
		return errs.New(errs.Validation, fmt.Errorf("unknown task node %q", id))
	}
	if node.Status != types.TaskAssigned && node.Status != types.TaskInProgress {
		return errs.New(errs.Validation, fmt.Errorf("task %q cannot fail from status=%s", id, node.Status))
	}
	node.Status = types.TaskFailed
	node.LastError = lastErr
	delete(g.activeTasks, id)
	return nil
}

// RetryOnce transitions a FAILED node back to PENDING, the single
// permitted FAILED -> PENDING transition. Returns a Validation error if
// the node has already consumed its retry.
func (g *Graph) RetryOnce(id string) error {
	node := g.nodes[id]
	if node == nil {
		return errs.New(errs.Validation, fmt.Errorf("unknown task node %q", id))
	}
	if node.Status != types.TaskFailed {
		return errs.New(errs.Validation, fmt.Errorf("task %q is not FAILED (status=%s)", id, node.Status))
	}
	if node.RetryUsed {
		return errs.New(errs.Validation, fmt.Errorf("task %q has already consumed its retry", id))
	}
	node.Status = types.TaskPending
	node.RetryUsed = true
	node.AssignedWorker = ""
	return nil
}

// ActiveAssignee returns the current assignee of id, if any.
func (g *Graph) ActiveAssignee(id string) (string, bool) {
	a, ok := g.activeTasks[id]
	return a, ok
}

// AllTerminal reports whether every node is COMPLETED or FAILED.
func (g *Graph) AllTerminal() bool {
	for _, n := range g.nodes {
		if n.Status != types.TaskCompleted && n.Status != types.TaskFailed {
			return false
		}
	}
	return true
}

// Summary computes completion counts and success rate across all
// nodes, used for the aggregation/termination decision and the final
// RequestSummary.
func (g *Graph) Summary() (completed, failed, total int, successRate float64) {
	total = len(g.nodes)
	for _, n := range g.nodes {
		switch n.Status {
		case types.TaskCompleted:
			completed++
		case types.TaskFailed:
			failed++
		}
	}
	if total == 0 {
		return 0, 0, 0, 0
	}
	successRate = float64(completed) / float64(total)
	return completed, failed, total, successRate
}
