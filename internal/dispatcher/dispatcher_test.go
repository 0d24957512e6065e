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
package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/meshloom/orchestrator/internal/bus"
	"github.com/meshloom/orchestrator/internal/errs"
	"github.com/meshloom/orchestrator/internal/types"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *bus.Store) {
	t.Helper()
	store, err := bus.Open(":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	d := New(store, Config{CoordinatorID: "coordinator", PollInterval: 10 * time.Millisecond}, zaptest.NewLogger(t))
	return d, store
}

func TestRunPersistsTaskMessageAddressedToCoordinator(t *testing.T) {
	ctx := context.Background()
	d, store := newTestDispatcher(t)

	requestID, _, err := d.Run(ctx, "build a scraper")
	require.NoError(t, err)
	require.NotEmpty(t, requestID)

	pending, err := store.GetPending(ctx, "coordinator")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, types.MsgTask, pending[0].Type)
	assert.Equal(t, requestID, pending[0].RequestID)
	assert.Equal(t, "build a scraper", pending[0].Content)
}

// P5/P1: exactly one of final-response/final-error resolves the
// pending future, and the future completes even across polling.
func TestP5_FinalResponseResolvesPendingFuture(t *testing.T) {
	ctx := context.Background()
	d, store := newTestDispatcher(t)

	requestID, result, err := d.Run(ctx, "do something")
	require.NoError(t, err)

	summary := types.RequestSummary{RequestID: requestID, TotalTasks: 1, CompletedTasks: 1, SuccessRate: 1.0}
	encoded, err := json.Marshal(summary)
	require.NoError(t, err)
	_, err = store.Insert(ctx, "coordinator", ID, types.MsgFinalResponse, string(encoded), requestID)
	require.NoError(t, err)

	require.NoError(t, d.Poll(ctx))

	select {
	case res := <-result:
		require.NoError(t, res.Err)
		require.NotNil(t, res.Summary)
		assert.Equal(t, 1.0, res.Summary.SuccessRate)
	case <-time.After(time.Second):
		t.Fatal("future did not resolve")
	}
}

func TestFinalErrorResolvesPendingFutureWithError(t *testing.T) {
	ctx := context.Background()
	d, store := newTestDispatcher(t)

	requestID, result, err := d.Run(ctx, "do something")
	require.NoError(t, err)

	_, err = store.Insert(ctx, "coordinator", ID, types.MsgFinalError, "all backends unavailable", requestID)
	require.NoError(t, err)
	require.NoError(t, d.Poll(ctx))

	select {
	case res := <-result:
		require.Error(t, res.Err)
		assert.True(t, errs.Is(res.Err, errs.AssignmentFailure))
	case <-time.After(time.Second):
		t.Fatal("future did not resolve")
	}
}

func TestPollMarksTerminalMessagesProcessed(t *testing.T) {
	ctx := context.Background()
	d, store := newTestDispatcher(t)

	requestID, _, err := d.Run(ctx, "task")
	require.NoError(t, err)
	_, err = store.Insert(ctx, "coordinator", ID, types.MsgFinalResponse, "{}", requestID)
	require.NoError(t, err)

	require.NoError(t, d.Poll(ctx))

	pending, err := store.GetPending(ctx, ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPollIgnoresNonTerminalMessageTypes(t *testing.T) {
	ctx := context.Background()
	d, store := newTestDispatcher(t)

	requestID, result, err := d.Run(ctx, "task")
	require.NoError(t, err)
	_, err = store.Insert(ctx, "sub-coordinator-1", ID, types.MsgGroupResponse, "{}", requestID)
	require.NoError(t, err)

	require.NoError(t, d.Poll(ctx))

	select {
	case <-result:
		t.Fatal("future resolved on a non-terminal message type")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoopStopsOnContextCancellation(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		d.Loop(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Loop did not return after context cancellation")
	}
}
