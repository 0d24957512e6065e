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
package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/meshloom/orchestrator/internal/errs"
	"github.com/meshloom/orchestrator/internal/types"
)

// fakeBackend is a scriptable Backend for deterministic Gateway tests.
type fakeBackend struct {
	name      string
	available bool
	calls     int32
	fail      func(call int32) error
}

func (f *fakeBackend) Name() string            { return f.name }
func (f *fakeBackend) Models() []string        { return []string{"test-model"} }
func (f *fakeBackend) Available(context.Context) bool { return f.available }

func (f *fakeBackend) Chat(ctx context.Context, messages []types.ChatMessage, model string) (*types.LLMResponse, error) {
	call := atomic.AddInt32(&f.calls, 1)
	if f.fail != nil {
		if err := f.fail(call); err != nil {
			return nil, err
		}
	}
	return &types.LLMResponse{Content: "ok from " + f.name, Backend: f.name}, nil
}

func testConfig() Config {
	return Config{
		FailureThreshold:  3,
		OpenDuration:      50 * time.Millisecond,
		AttemptTimeout:    time.Second,
		MaxAttemptRetries: 1,
	}
}

func TestChatSucceedsOnHealthyBackend(t *testing.T) {
	b := &fakeBackend{name: "primary", available: true}
	gw := New([]Backend{b}, testConfig(), zaptest.NewLogger(t))

	resp, err := gw.Chat(context.Background(), []types.ChatMessage{{Role: types.ChatRoleUser, Content: "hi"}}, "test-model", "")
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.Backend)
}

func TestChatFallsBackToNextCandidateOnFailure(t *testing.T) {
	bad := &fakeBackend{name: "bad", available: true, fail: func(int32) error { return fmt.Errorf("boom") }}
	good := &fakeBackend{name: "good", available: true}
	gw := New([]Backend{bad, good}, testConfig(), zaptest.NewLogger(t))

	resp, err := gw.Chat(context.Background(), []types.ChatMessage{{Role: types.ChatRoleUser, Content: "hi"}}, "test-model", "bad")
	require.NoError(t, err)
	assert.Equal(t, "good", resp.Backend)
}

// S4: primary backend fails on every call; Gateway trips it to
// CIRCUIT_OPEN after K failures, routes to the next-best backend, and
// the overall request still succeeds.
func TestS4_CircuitOpensAfterKFailuresAndFallsBackSuccessfully(t *testing.T) {
	bad := &fakeBackend{name: "bad", available: true, fail: func(int32) error { return fmt.Errorf("boom") }}
	good := &fakeBackend{name: "good", available: true}
	cfg := testConfig()
	gw := New([]Backend{bad, good}, cfg, zaptest.NewLogger(t))

	for i := 0; i < cfg.FailureThreshold; i++ {
		resp, err := gw.Chat(context.Background(), []types.ChatMessage{{Role: types.ChatRoleUser, Content: "hi"}}, "test-model", "bad")
		require.NoError(t, err)
		assert.Equal(t, "good", resp.Backend)
	}

	health := gw.Health("bad")
	assert.Equal(t, types.BackendCircuitOpen, health.Status)
}

// P6: a backend in CIRCUIT_OPEN state is not selected until now >=
// circuit-open-until.
func TestP6_CircuitOpenNotSelectedBeforeCooldown(t *testing.T) {
	bad := &fakeBackend{name: "bad", available: true, fail: func(int32) error { return fmt.Errorf("boom") }}
	good := &fakeBackend{name: "good", available: true}
	cfg := testConfig()
	gw := New([]Backend{bad, good}, cfg, zaptest.NewLogger(t))

	for i := 0; i < cfg.FailureThreshold; i++ {
		_, err := gw.Chat(context.Background(), nil, "test-model", "bad")
		require.NoError(t, err)
	}
	require.Equal(t, types.BackendCircuitOpen, gw.Health("bad").Status)

	candidates := gw.orderedCandidates("bad")
	for _, c := range candidates {
		assert.NotEqual(t, "bad", c, "circuit-open backend must not appear in the candidate set before cooldown")
	}

	time.Sleep(cfg.OpenDuration + 10*time.Millisecond)
	candidates = gw.orderedCandidates("bad")
	assert.Contains(t, candidates, "bad", "backend must become a half-open candidate after cooldown")
}

func TestChatReturnsBackendUnavailableWhenAllFail(t *testing.T) {
	bad := &fakeBackend{name: "bad", available: true, fail: func(int32) error { return fmt.Errorf("boom") }}
	gw := New([]Backend{bad}, testConfig(), zaptest.NewLogger(t))

	_, err := gw.Chat(context.Background(), nil, "test-model", "")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.BackendUnavailable))
}

func TestChatReturnsBackendUnavailableWhenNoneAvailable(t *testing.T) {
	b := &fakeBackend{name: "down", available: false}
	gw := New([]Backend{b}, testConfig(), zaptest.NewLogger(t))

	_, err := gw.Chat(context.Background(), nil, "test-model", "")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.BackendUnavailable))
}

func TestHealthyHalfOpenProbeSuccessClosesCircuit(t *testing.T) {
	failing := int32(1)
	b := &fakeBackend{name: "flaky", available: true, fail: func(call int32) error {
		if atomic.LoadInt32(&failing) == 1 {
			return fmt.Errorf("boom")
		}
		return nil
	}}
	cfg := testConfig()
	gw := New([]Backend{b}, cfg, zaptest.NewLogger(t))

	for i := 0; i < cfg.FailureThreshold; i++ {
		_, _ = gw.Chat(context.Background(), nil, "test-model", "")
	}
	require.Equal(t, types.BackendCircuitOpen, gw.Health("flaky").Status)

	time.Sleep(cfg.OpenDuration + 10*time.Millisecond)
	atomic.StoreInt32(&failing, 0)

	resp, err := gw.Chat(context.Background(), nil, "test-model", "")
	require.NoError(t, err)
	assert.Equal(t, "flaky", resp.Backend)
	assert.Equal(t, types.BackendHealthy, gw.Health("flaky").Status)
}

func TestZeroObservedCallsScoreOptimistically(t *testing.T) {
	b := &fakeBackend{name: "fresh", available: true}
	gw := New([]Backend{b}, testConfig(), zaptest.NewLogger(t))
	assert.Equal(t, 1.0, gw.Health("fresh").HealthScore())
}

func TestLooksGermanHeuristic(t *testing.T) {
	assert.True(t, looksGerman("Bitte erstelle eine Datei für mich"))
	assert.False(t, looksGerman("Please create a file for me"))
}

func TestChatWithTranslationPassesThroughNonGermanText(t *testing.T) {
	b := &fakeBackend{name: "primary", available: true}
	gw := New([]Backend{b}, testConfig(), zaptest.NewLogger(t))
	out := gw.ChatWithTranslation(context.Background(), "Please create a file", "test-model", "")
	assert.Equal(t, "Please create a file", out)
}

func TestChatWithTranslationDegradesGracefullyOnFailure(t *testing.T) {
	b := &fakeBackend{name: "primary", available: true, fail: func(int32) error { return fmt.Errorf("boom") }}
	gw := New([]Backend{b}, testConfig(), zaptest.NewLogger(t))
	original := "Bitte erstelle eine Datei für mich"
	out := gw.ChatWithTranslation(context.Background(), original, "test-model", "")
	assert.Equal(t, original, out)
}

func TestHealthRegistryConcurrentUpdatesAreRaceFree(t *testing.T) {
	b := &fakeBackend{name: "primary", available: true}
	gw := New([]Backend{b}, testConfig(), zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = gw.Chat(context.Background(), nil, "test-model", "")
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(32), gw.Health("primary").TotalRequests)
}
