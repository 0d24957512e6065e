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

// Package coordinator implements the root Coordinator: decomposition of
// the top-level task into a TaskGraph, the scheduling loop that assigns
// READY nodes to Sub-Coordinators or Workers, the Sub-Coordinator-only
// retry policy, and aggregation/termination back to the Dispatcher.
package coordinator

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/meshloom/orchestrator/internal/bus"
	"github.com/meshloom/orchestrator/internal/decompose"
	"github.com/meshloom/orchestrator/internal/dispatcher"
	"github.com/meshloom/orchestrator/internal/gateway"
	"github.com/meshloom/orchestrator/internal/performance"
	"github.com/meshloom/orchestrator/internal/taskgraph"
	"github.com/meshloom/orchestrator/internal/types"
)

// AggregationThreshold is the default success-rate a request must clear
// to emit final-response instead of final-error (§4.5).
const AggregationThreshold = 0.8

// ReliabilityDecay is δ: the multiplicative reliability penalty the
// Coordinator applies to an assignee on failure (§4.5 step 4). Success
// leaves reliability untouched.
const ReliabilityDecay = 0.9

// Config tunes a Coordinator.
type Config struct {
	// Topology selects the scheduling strategy: "hierarchical" routes
	// READY nodes to Sub-Coordinators in Groups; anything else
	// (including an empty Groups list, per B2) routes directly to
	// Workers in Workers.
	Topology string
	Groups   []string
	Workers  []string

	Model      string
	ProjectDir string

	// DispatcherID is the receiver-id the final-response/final-error is
	// addressed to.
	DispatcherID string

	// MaxRetries is M_retry, the Coordinator-level sibling-retry bound
	// on a Sub-Coordinator error (default min(3, len(Groups))). The
	// TaskGraph's single permitted FAILED->PENDING transition caps the
	// number of actual retries at one regardless of this value; see
	// effectiveMaxRetries.
	MaxRetries int
	WBetween   time.Duration
	Sleep      func(time.Duration)

	AggregationThreshold float64
}

// DefaultConfig returns §4.5/§6's defaults.
func DefaultConfig() Config {
	return Config{
		Topology:             "centralized",
		DispatcherID:         dispatcher.ID,
		WBetween:             750 * time.Millisecond,
		Sleep:                time.Sleep,
		AggregationThreshold: AggregationThreshold,
	}
}

// Coordinator owns one top-level request's TaskGraph at a time.
type Coordinator struct {
	id       string
	store    *bus.Store
	registry *performance.Registry
	gateway  *gateway.Gateway
	cfg      Config
	logger   *zap.Logger

	graph         *taskgraph.Graph
	requestID     string
	started       time.Time
	groupAttempts map[string]map[string]struct{} // task node id -> sub-coordinator ids already tried
}

// New builds a Coordinator. registry should hold a WorkerPerformance
// record for every id in cfg.Groups and cfg.Workers.
func New(id string, store *bus.Store, registry *performance.Registry, gw *gateway.Gateway, cfg Config, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DispatcherID == "" {
		cfg.DispatcherID = dispatcher.ID
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.WBetween <= 0 {
		cfg.WBetween = 750 * time.Millisecond
	}
	if cfg.AggregationThreshold <= 0 {
		cfg.AggregationThreshold = AggregationThreshold
	}
	return &Coordinator{id: id, store: store, registry: registry, gateway: gw, cfg: cfg, logger: logger}
}

// ID returns the coordinator's receiver-id.
func (c *Coordinator) ID() string { return c.id }

// Poll runs one get_pending/handle/mark_processed pass.
func (c *Coordinator) Poll(ctx context.Context) error {
	messages, err := c.store.GetPending(ctx, c.id)
	if err != nil {
		return err
	}
	for _, m := range messages {
		switch m.Type {
		case types.MsgTask:
			c.acceptTask(ctx, m)
		case types.MsgResponse, types.MsgError:
			c.handleDirectResult(ctx, m)
		case types.MsgGroupResponse:
			c.handleGroupResult(ctx, m)
		}
		if err := c.store.MarkProcessed(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// acceptTask runs the two fast-path checks, then the four-call
// decomposition pipeline, and begins scheduling.
func (c *Coordinator) acceptTask(ctx context.Context, m types.Message) {
	text := c.gateway.ChatWithTranslation(ctx, m.Content, c.cfg.Model, "")

	if filename, ok := matchSimpleFileCreation(text); ok {
		c.runSimpleFileCreation(ctx, m, filename, text)
		return
	}
	if kind, ok := matchComplexProject(text); ok {
		c.runComplexProjectTemplate(ctx, m, kind)
		return
	}

	report := c.decompose(ctx, text)
	g := taskgraph.New(m.RequestID)
	for _, n := range buildNodes(m.RequestID, report) {
		if err := g.AddNode(n); err != nil {
			c.logger.Error("coordinator failed to register task node", zap.Error(err))
		}
	}
	if err := g.ValidateAcyclic(); err != nil {
		c.logger.Warn("decomposition produced a cyclic dependency graph, falling back to a single task node", zap.Error(err))
		g = taskgraph.New(m.RequestID)
		fallback := types.DecompositionReport{Subtasks: *decompose.Fallback(text)}
		for _, n := range buildNodes(m.RequestID, fallback) {
			_ = g.AddNode(n)
		}
	}

	c.graph = g
	c.requestID = m.RequestID
	c.started = time.Now()
	c.groupAttempts = make(map[string]map[string]struct{})
	c.scheduleReady(ctx)
}

// scheduleReady implements the §4.5 scheduling loop: compute READY,
// assign each node to the best-scoring eligible Sub-Coordinator or
// Worker, or finish the request if nothing is left to schedule.
func (c *Coordinator) scheduleReady(ctx context.Context) {
	if c.graph == nil {
		return
	}
	ready := c.graph.Ready()
	if len(ready) == 0 {
		c.maybeFinish(ctx)
		return
	}

	for _, node := range ready {
		if c.hierarchical() {
			c.assignToGroup(ctx, node)
		} else {
			c.assignToWorker(ctx, node)
		}
	}
}

// hierarchical reports whether the configured topology and available
// Sub-Coordinators support the hierarchical path. B2: a configuration
// with no Sub-Coordinators degrades to centralized; a single configured
// Sub-Coordinator still takes the hierarchical path.
func (c *Coordinator) hierarchical() bool {
	return c.cfg.Topology == "hierarchical" && len(c.cfg.Groups) > 0
}

func (c *Coordinator) assignToGroup(ctx context.Context, node *types.TaskNode) {
	groups := c.eligibleGroups(node.ID)
	best := performance.SelectGroup(groups, node.RequiredSkills)
	if best == nil {
		return
	}
	if err := c.graph.Assign(node.ID, best.AgentID); err != nil {
		return
	}
	c.registry.RecordAssignment(best.AgentID)
	c.markAttempt(node.ID, best.AgentID)
	c.sendAssignment(ctx, node, best.AgentID, types.MsgSubTaskToSubqueen)
	_ = c.graph.Start(node.ID)
}

func (c *Coordinator) assignToWorker(ctx context.Context, node *types.TaskNode) {
	role := inferRole(node.Content)
	best := c.selectWorker(node, role)
	if best == nil {
		return
	}
	if err := c.graph.Assign(node.ID, best.AgentID); err != nil {
		return
	}
	c.registry.RecordAssignment(best.AgentID)
	c.sendAssignment(ctx, node, best.AgentID, types.MsgEnhancedTask)
	_ = c.graph.Start(node.ID)
}

// eligibleGroups returns the configured Sub-Coordinators not yet tried
// for nodeID.
func (c *Coordinator) eligibleGroups(nodeID string) []*types.WorkerPerformance {
	tried := c.groupAttempts[nodeID]
	out := make([]*types.WorkerPerformance, 0, len(c.cfg.Groups))
	for _, id := range c.cfg.Groups {
		if _, skip := tried[id]; skip {
			continue
		}
		if p, ok := c.registry.Get(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (c *Coordinator) markAttempt(nodeID, groupID string) {
	if c.groupAttempts[nodeID] == nil {
		c.groupAttempts[nodeID] = make(map[string]struct{})
	}
	c.groupAttempts[nodeID][groupID] = struct{}{}
}

func (c *Coordinator) sendAssignment(ctx context.Context, node *types.TaskNode, assigneeID string, msgType types.MessageType) {
	payload := types.NewTaskPayload(node)
	encoded, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("coordinator failed to encode assignment", zap.Error(err))
		return
	}
	if _, err := c.store.Insert(ctx, c.id, assigneeID, msgType, string(encoded), node.ID); err != nil {
		c.logger.Error("coordinator failed to persist assignment", zap.Error(err))
	}
}

// handleDirectResult applies a Worker's response/error in the
// centralized topology. No retry: §4.5's retry policy is scoped to
// Sub-Coordinator errors only.
func (c *Coordinator) handleDirectResult(ctx context.Context, m types.Message) {
	if c.graph == nil {
		return
	}
	node := c.graph.Node(m.RequestID)
	if node == nil {
		return
	}
	assignee, ok := c.graph.ActiveAssignee(node.ID)
	if !ok {
		return // R2: repeat result for an already-terminal task is a no-op.
	}

	var outcome types.WorkerOutcome
	_ = json.Unmarshal([]byte(m.Content), &outcome)
	duration := elapsedSince(node)

	if m.Type == types.MsgResponse {
		_ = c.graph.Complete(node.ID)
		c.registry.RecordCoordinatorCompletion(assignee, true, duration, ReliabilityDecay)
	} else {
		_ = c.graph.Fail(node.ID, outcome.Text)
		c.registry.RecordCoordinatorCompletion(assignee, false, duration, ReliabilityDecay)
	}
	c.scheduleReady(ctx)
}

// groupEnvelope mirrors the wire shape a Sub-Coordinator wraps its
// group-response in: an inner response/error type tag plus the
// RequestSummary.
type groupEnvelope struct {
	InnerType types.MessageType    `json:"inner_type"`
	Summary   types.RequestSummary `json:"summary"`
}

// handleGroupResult applies a Sub-Coordinator's group-response,
// retrying across up to M_retry siblings on error before giving up.
func (c *Coordinator) handleGroupResult(ctx context.Context, m types.Message) {
	if c.graph == nil {
		return
	}
	node := c.graph.Node(m.RequestID)
	if node == nil {
		return
	}
	assignee, ok := c.graph.ActiveAssignee(node.ID)
	if !ok {
		return // R2
	}

	var env groupEnvelope
	success := false
	if err := json.Unmarshal([]byte(m.Content), &env); err == nil {
		success = env.InnerType == types.MsgResponse
	}
	duration := elapsedSince(node)

	if success {
		_ = c.graph.Complete(node.ID)
		c.registry.RecordCoordinatorCompletion(assignee, true, duration, ReliabilityDecay)
		c.scheduleReady(ctx)
		return
	}

	c.registry.RecordCoordinatorCompletion(assignee, false, duration, ReliabilityDecay)

	if c.canRetryGroup(node) {
		_ = c.graph.Fail(node.ID, "sub-coordinator reported error")
		if err := c.graph.RetryOnce(node.ID); err == nil {
			c.cfg.Sleep(c.cfg.WBetween)
			c.scheduleReady(ctx)
			return
		}
	}

	_ = c.graph.Fail(node.ID, "sub-coordinator reported error; retries exhausted")
	c.scheduleReady(ctx)
}

// canRetryGroup reports whether node is eligible for one more
// Sub-Coordinator attempt: it hasn't already consumed its single
// FAILED->PENDING transition, the configured retry budget allows
// another attempt, and an untried Sub-Coordinator remains.
func (c *Coordinator) canRetryGroup(node *types.TaskNode) bool {
	if node.RetryUsed {
		return false
	}
	if len(c.eligibleGroups(node.ID)) == 0 {
		return false
	}
	return len(c.groupAttempts[node.ID]) < c.effectiveMaxRetries()
}

// effectiveMaxRetries computes M_retry, capped at 2: the TaskGraph's
// single permitted FAILED->PENDING transition can only ever fund one
// additional attempt beyond the first, regardless of a larger
// configured budget.
func (c *Coordinator) effectiveMaxRetries() int {
	m := c.cfg.MaxRetries
	if m <= 0 {
		m = len(c.cfg.Groups)
		if m > 3 {
			m = 3
		}
	}
	if m > 2 {
		m = 2
	}
	if m < 1 {
		m = 1
	}
	return m
}

// maybeFinish emits the final-response/final-error once every TaskNode
// has reached a terminal state.
func (c *Coordinator) maybeFinish(ctx context.Context) {
	if c.graph == nil || !c.graph.AllTerminal() {
		return
	}
	completed, failed, total, rate := c.graph.Summary()
	success := rate >= c.cfg.AggregationThreshold

	summary := types.RequestSummary{
		RequestID:          c.requestID,
		TotalTasks:         total,
		CompletedTasks:     completed,
		FailedTasks:        failed,
		SuccessRate:        rate,
		TotalExecutionTime: time.Since(c.started),
		WorkerSnapshots:    c.snapshots(),
	}
	if !success {
		summary.FailedTaskDetails = c.failedDetails()
	}
	c.emitFinal(ctx, c.requestID, success, summary)
	c.graph = nil
	c.groupAttempts = nil
}

func (c *Coordinator) emitFinal(ctx context.Context, requestID string, success bool, summary types.RequestSummary) {
	encoded, err := json.Marshal(summary)
	if err != nil {
		c.logger.Error("coordinator failed to encode final summary", zap.Error(err))
		return
	}
	typ := types.MsgFinalResponse
	if !success {
		typ = types.MsgFinalError
	}
	if _, err := c.store.Insert(ctx, c.id, c.cfg.DispatcherID, typ, string(encoded), requestID); err != nil {
		c.logger.Error("coordinator failed to persist final result", zap.Error(err))
	}
}

func (c *Coordinator) snapshots() []types.WorkerSnapshot {
	ids := append(append([]string{}, c.cfg.Groups...), c.cfg.Workers...)
	out := make([]types.WorkerSnapshot, 0, len(ids))
	for _, id := range ids {
		p, ok := c.registry.Get(id)
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

func (c *Coordinator) failedDetails() []types.FailedTask {
	var out []types.FailedTask
	for _, n := range c.graph.Nodes() {
		if n.Status == types.TaskFailed {
			out = append(out, types.FailedTask{TaskID: n.ID, LastError: n.LastError})
		}
	}
	return out
}

func elapsedSince(node *types.TaskNode) time.Duration {
	if node.StartedAt.IsZero() {
		return 0
	}
	return time.Since(node.StartedAt)
}
