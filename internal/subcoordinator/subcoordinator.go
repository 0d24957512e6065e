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

// Package subcoordinator implements the Sub-Coordinator: it decomposes
// a Coordinator-assigned subtask into up to N single-worker subtasks,
// assigns them to its managed Workers using the §4.4 scoring formula
// and availability cascade, collects their results, and emits a single
// aggregated group-response upward.
package subcoordinator

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/meshloom/orchestrator/internal/bus"
	"github.com/meshloom/orchestrator/internal/performance"
	"github.com/meshloom/orchestrator/internal/taskgraph"
	"github.com/meshloom/orchestrator/internal/types"
)

// SuccessThreshold is the group completion rule of §4.4: a success-rate
// at or above this emits a success group-response, else error.
const SuccessThreshold = 0.7

// Config tunes a Sub-Coordinator.
type Config struct {
	// Workers is the set of Worker ids this group manages.
	Workers  []string
	Cascade  performance.CascadeConfig
	Sleep    func(time.Duration) // injected for deterministic tests
	WBetween time.Duration       // sleep between sibling retries isn't used here; kept for symmetry with Coordinator
}

// SubCoordinator owns one group's TaskGraph and WorkerPerformance view.
type SubCoordinator struct {
	id       string
	store    *bus.Store
	registry *performance.Registry
	cfg      Config
	logger   *zap.Logger

	graph   *taskgraph.Graph
	parent  string // sender of the sub-task-to-subqueen message currently being served
	started time.Time
}

// New builds a SubCoordinator. registry should already hold a
// WorkerPerformance record for every id in cfg.Workers.
func New(id string, store *bus.Store, registry *performance.Registry, cfg Config, logger *zap.Logger) *SubCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Cascade == (performance.CascadeConfig{}) {
		cfg.Cascade = performance.DefaultCascadeConfig()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	return &SubCoordinator{id: id, store: store, registry: registry, cfg: cfg, logger: logger}
}

// ID returns the sub-coordinator's receiver-id.
func (s *SubCoordinator) ID() string { return s.id }

// Poll runs one get_pending/handle/mark_processed pass.
func (s *SubCoordinator) Poll(ctx context.Context) error {
	messages, err := s.store.GetPending(ctx, s.id)
	if err != nil {
		return err
	}
	for _, m := range messages {
		switch m.Type {
		case types.MsgSubTaskToSubqueen:
			s.acceptGroup(ctx, m)
		case types.MsgResponse, types.MsgError:
			s.handleWorkerResult(ctx, m)
		}
		if err := s.store.MarkProcessed(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// acceptGroup decomposes a coordinator-assigned subtask into up to
// len(cfg.Workers) single-worker TaskNodes and begins assigning them.
func (s *SubCoordinator) acceptGroup(ctx context.Context, m types.Message) {
	var payload types.TaskPayload
	if err := json.Unmarshal([]byte(m.Content), &payload); err != nil {
		s.emitGroupResponse(ctx, m, false, "unparseable group task payload")
		return
	}

	s.graph = taskgraph.New(m.RequestID)
	s.parent = m.SenderID
	s.started = time.Now()

	nodes := decomposeForGroup(payload, len(s.cfg.Workers))
	for _, n := range nodes {
		if err := s.graph.AddNode(n); err != nil {
			s.logger.Error("sub-coordinator failed to register task node", zap.Error(err))
		}
	}

	s.scheduleReady(ctx)
}

// scheduleReady assigns every currently-READY node to the best-scoring
// available Worker, applying the §4.4 availability cascade when no
// Worker qualifies under the normal thresholds.
func (s *SubCoordinator) scheduleReady(ctx context.Context) {
	if s.graph == nil {
		return
	}
	ready := s.graph.Ready()
	if len(ready) == 0 {
		s.maybeFinish(ctx)
		return
	}

	workers := s.managedWorkers()
	candidates, exhausted := performance.Cascade(workers, s.cfg.Cascade, s.cfg.Sleep)
	if exhausted {
		s.emitGroupResponse(ctx, types.Message{SenderID: s.parent, RequestID: s.graph.RequestID}, false, "no eligible worker found after availability cascade")
		s.graph = nil
		return
	}

	for _, node := range ready {
		best := performance.SelectBest(candidates, node.RequiredSkills)
		if best == nil {
			break
		}
		if err := s.graph.Assign(node.ID, best.AgentID); err != nil {
			continue
		}
		s.registry.RecordAssignment(best.AgentID)
		s.sendAssignment(ctx, node, best.AgentID)
		_ = s.graph.Start(node.ID)
	}
}

// managedWorkers returns the current WorkerPerformance record for
// every Worker this group manages.
func (s *SubCoordinator) managedWorkers() []*types.WorkerPerformance {
	out := make([]*types.WorkerPerformance, 0, len(s.cfg.Workers))
	for _, id := range s.cfg.Workers {
		if p, ok := s.registry.Get(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *SubCoordinator) sendAssignment(ctx context.Context, node *types.TaskNode, workerID string) {
	payload := types.NewTaskPayload(node)
	encoded, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("sub-coordinator failed to encode assignment", zap.Error(err))
		return
	}
	if _, err := s.store.Insert(ctx, s.id, workerID, types.MsgSubTask, string(encoded), s.graph.RequestID); err != nil {
		s.logger.Error("sub-coordinator failed to persist assignment", zap.Error(err))
	}
}

// handleWorkerResult applies a Worker's response/error to the active
// TaskNode, updates its WorkerPerformance record, and re-runs the
// scheduling loop.
func (s *SubCoordinator) handleWorkerResult(ctx context.Context, m types.Message) {
	if s.graph == nil || s.graph.RequestID != m.RequestID {
		return
	}

	var outcome types.WorkerOutcome
	_ = json.Unmarshal([]byte(m.Content), &outcome)
	if outcome.TaskID == "" {
		return
	}

	assignee, ok := s.graph.ActiveAssignee(outcome.TaskID)
	if !ok {
		// R2: a repeat result for an already-terminal task is a no-op.
		return
	}

	started := time.Now()
	if node := s.graph.Node(outcome.TaskID); node != nil && !node.StartedAt.IsZero() {
		started = node.StartedAt
	}
	duration := time.Since(started)

	if m.Type == types.MsgResponse {
		_ = s.graph.Complete(outcome.TaskID)
		s.registry.RecordCompletion(assignee, true, duration)
	} else {
		_ = s.graph.Fail(outcome.TaskID, outcome.Text)
		s.registry.RecordCompletion(assignee, false, duration)
	}

	s.scheduleReady(ctx)
}

// maybeFinish emits the group-response once every dispatched TaskNode
// has reached a terminal state.
func (s *SubCoordinator) maybeFinish(ctx context.Context) {
	if s.graph == nil || !s.graph.AllTerminal() {
		return
	}
	completed, failed, total, rate := s.graph.Summary()
	success := rate >= SuccessThreshold

	summary := types.RequestSummary{
		RequestID:          s.graph.RequestID,
		TotalTasks:         total,
		CompletedTasks:     completed,
		FailedTasks:        failed,
		SuccessRate:        rate,
		TotalExecutionTime: time.Since(s.started),
		WorkerSnapshots:    s.snapshots(),
	}
	if !success {
		summary.FailedTaskDetails = s.failedDetails()
	}

	encoded, _ := json.Marshal(summary)
	typ := types.MsgResponse
	if !success {
		typ = types.MsgError
	}
	if _, err := s.store.Insert(ctx, s.id, s.parent, types.MsgGroupResponse, wrapGroupEnvelope(typ, string(encoded)), s.graph.RequestID); err != nil {
		s.logger.Error("sub-coordinator failed to persist group-response", zap.Error(err))
	}
	s.graph = nil
}

// emitGroupResponse reports an immediate failure (unparseable payload,
// or an exhausted availability cascade per §4.4 step (d)).
func (s *SubCoordinator) emitGroupResponse(ctx context.Context, m types.Message, success bool, reason string) {
	summary := types.RequestSummary{RequestID: m.RequestID}
	if !success {
		summary.Content = reason
		summary.WorkerSnapshots = s.snapshots()
	}
	encoded, _ := json.Marshal(summary)
	typ := types.MsgResponse
	if !success {
		typ = types.MsgError
	}
	if _, err := s.store.Insert(ctx, s.id, m.SenderID, types.MsgGroupResponse, wrapGroupEnvelope(typ, string(encoded)), m.RequestID); err != nil {
		s.logger.Error("sub-coordinator failed to persist group-response", zap.Error(err))
	}
}

func (s *SubCoordinator) snapshots() []types.WorkerSnapshot {
	var out []types.WorkerSnapshot
	for _, id := range s.cfg.Workers {
		p, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		out = append(out, types.WorkerSnapshot{
			AgentID: p.AgentID, Role: p.Role, CompletedTasks: p.CompletedTasks,
			FailedTasks: p.FailedTasks, ReliabilityScore: p.ReliabilityScore, AverageDuration: p.AverageDuration,
		})
	}
	return out
}

func (s *SubCoordinator) failedDetails() []types.FailedTask {
	var out []types.FailedTask
	for _, n := range s.graph.Nodes() {
		if n.Status == types.TaskFailed {
			out = append(out, types.FailedTask{TaskID: n.ID, LastError: n.LastError})
		}
	}
	return out
}

// wrapGroupEnvelope embeds the inner response/error type tag alongside
// the structured summary so the Coordinator can distinguish a group
// success from a group failure without a second message type.
func wrapGroupEnvelope(innerType types.MessageType, encodedSummary string) string {
	envelope := struct {
		InnerType types.MessageType `json:"inner_type"`
		Summary   json.RawMessage   `json:"summary"`
	}{InnerType: innerType, Summary: json.RawMessage(encodedSummary)}
	out, err := json.Marshal(envelope)
	if err != nil {
		return encodedSummary
	}
	return string(out)
}
