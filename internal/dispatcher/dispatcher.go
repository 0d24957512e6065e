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

// Package dispatcher pairs an external request with an internal
// completion: it persists the initial task message to the root
// Coordinator, registers a pending future keyed by request-id, and
// resolves that future when a final-response or final-error addressed
// to the dispatcher arrives.
package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meshloom/orchestrator/internal/bus"
	"github.com/meshloom/orchestrator/internal/csync"
	"github.com/meshloom/orchestrator/internal/errs"
	"github.com/meshloom/orchestrator/internal/types"
)

// ID is the receiver-id the Message Store addresses terminal results
// to; there is exactly one Dispatcher per process.
const ID = "dispatcher"

// Result is what a future resolves to: the final content on success,
// or the underlying error on failure.
type Result struct {
	Content string
	Summary *types.RequestSummary
	Err     error
}

// future is a single pending request awaiting a terminal message.
type future struct {
	done chan Result
}

// Dispatcher owns request/response correlation for every in-flight
// top-level request in this process.
type Dispatcher struct {
	store       *bus.Store
	coordinator string
	pending     *csync.Map[string, *future]
	pollEvery   time.Duration
	logger      *zap.Logger
}

// Config tunes the Dispatcher's poll loop.
type Config struct {
	// CoordinatorID is the receiver-id of the root Coordinator that
	// accepts "task" messages.
	CoordinatorID string
	// PollInterval is how often the poll loop checks for pending
	// messages addressed to the dispatcher.
	PollInterval time.Duration
}

// DefaultConfig returns §6's default polling interval.
func DefaultConfig() Config {
	return Config{CoordinatorID: "coordinator", PollInterval: 100 * time.Millisecond}
}

// New builds a Dispatcher backed by store.
func New(store *bus.Store, cfg Config, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.CoordinatorID == "" {
		cfg.CoordinatorID = DefaultConfig().CoordinatorID
	}
	return &Dispatcher{
		store:       store,
		coordinator: cfg.CoordinatorID,
		pending:     csync.NewMap[string, *future](),
		pollEvery:   cfg.PollInterval,
		logger:      logger,
	}
}

// Run allocates a new request-id, persists the initial task message to
// the root Coordinator, and registers a pending future. The returned
// channel receives exactly one Result once a terminal message for this
// request-id is observed by the poll loop (P5/P1).
func (d *Dispatcher) Run(ctx context.Context, task string) (requestID string, result <-chan Result, err error) {
	requestID = uuid.NewString()
	f := &future{done: make(chan Result, 1)}
	d.pending.Set(requestID, f)

	if _, err := d.store.Insert(ctx, ID, d.coordinator, types.MsgTask, task, requestID); err != nil {
		d.pending.Delete(requestID)
		return "", nil, err
	}
	d.logger.Info("request dispatched", zap.String("request_id", requestID))
	return requestID, f.done, nil
}

// Poll runs a single get_pending/resolve/mark_processed pass. Exported
// so tests can drive the loop deterministically instead of racing a
// background goroutine.
func (d *Dispatcher) Poll(ctx context.Context) error {
	messages, err := d.store.GetPending(ctx, ID)
	if err != nil {
		return err
	}
	for _, m := range messages {
		d.resolve(m)
		if err := d.store.MarkProcessed(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// resolve completes the pending future for m.RequestID, if any is
// still registered. A message with no matching future (already
// resolved, or for a request this process doesn't own) is dropped.
func (d *Dispatcher) resolve(m types.Message) {
	f, ok := d.pending.Get(m.RequestID)
	if !ok {
		d.logger.Debug("dropping terminal message with no pending future",
			zap.String("request_id", m.RequestID), zap.String("type", string(m.Type)))
		return
	}

	var res Result
	switch m.Type {
	case types.MsgFinalResponse:
		res = Result{Content: m.Content, Summary: decodeSummary(m.Content)}
	case types.MsgFinalError:
		summary := decodeSummary(m.Content)
		res = Result{Summary: summary, Err: errs.Newf(errs.AssignmentFailure, "request %s failed: %s", m.RequestID, m.Content)}
	default:
		// Not a terminal message type; leave the future pending.
		return
	}

	d.pending.Delete(m.RequestID)
	f.done <- res
	close(f.done)
}

// Loop runs Poll on an interval until ctx is cancelled.
func (d *Dispatcher) Loop(ctx context.Context) {
	ticker := time.NewTicker(d.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Poll(ctx); err != nil {
				d.logger.Error("dispatcher poll failed", zap.Error(err))
			}
		}
	}
}

func decodeSummary(content string) *types.RequestSummary {
	var s types.RequestSummary
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return nil
	}
	return &s
}
