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
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/meshloom/orchestrator/internal/errs"
	"github.com/meshloom/orchestrator/internal/types"
)

// Config tunes the Gateway's circuit breaker and per-attempt retry.
type Config struct {
	// FailureThreshold is K: consecutive failures before a backend
	// trips to CIRCUIT_OPEN. Default 5.
	FailureThreshold int

	// OpenDuration is T: how long a backend stays quarantined. Default
	// 60s.
	OpenDuration time.Duration

	// AttemptTimeout bounds a single backend call. Default 30s.
	AttemptTimeout time.Duration

	// MaxAttemptRetries bounds exponential-backoff retries of transient
	// errors within a single backend before moving to the next
	// candidate. Default 1 (no intra-backend retry beyond the first
	// try), since the Gateway's own candidate fallback already covers
	// persistent failures.
	MaxAttemptRetries uint

	// MaxConcurrent is max-workers-per-agent-pool (§6, §5): the number
	// of Chat calls this Gateway instance lets run at once. Long-running
	// LLM calls are meant to run off the owning agent's inbox loop on a
	// bounded pool; this semaphore is that bound. Default 3.
	MaxConcurrent int64
}

// DefaultConfig returns §6's defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:  5,
		OpenDuration:      60 * time.Second,
		AttemptTimeout:    30 * time.Second,
		MaxAttemptRetries: 1,
		MaxConcurrent:     3,
	}
}

// Gateway is the single choke point in front of the configured LLM
// backends: health-scored candidate ordering, per-backend circuit
// breaker, and graceful fallback across candidates.
type Gateway struct {
	backends map[string]Backend
	order    []string // insertion order, used as a tiebreak
	health   *healthRegistry
	cfg      Config
	logger   *zap.Logger
	pool     *semaphore.Weighted
}

// New builds a Gateway over backends. Order of backends determines the
// tiebreak when health scores are equal.
func New(backends []Backend, cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	m := make(map[string]Backend, len(backends))
	names := make([]string, 0, len(backends))
	for _, b := range backends {
		m[b.Name()] = b
		names = append(names, b.Name())
	}
	return &Gateway{
		backends: m,
		order:    names,
		health:   newHealthRegistry(names, cfg.FailureThreshold, cfg.OpenDuration),
		cfg:      cfg,
		logger:   logger,
		pool:     semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

// Health returns a defensive copy of a backend's current health record.
func (g *Gateway) Health(name string) types.BackendHealth {
	return g.health.snapshot(name)
}

// Chat dispatches messages to model, trying preferred first (if
// healthy), then remaining candidates ordered by descending health
// score. Returns BackendUnavailable if every candidate fails.
func (g *Gateway) Chat(ctx context.Context, messages []types.ChatMessage, model, preferred string) (*types.LLMResponse, error) {
	if err := g.pool.Acquire(ctx, 1); err != nil {
		return nil, errs.New(errs.Timeout, fmt.Errorf("waiting for an LLM worker-pool slot: %w", err))
	}
	defer g.pool.Release(1)

	candidates := g.orderedCandidates(preferred)
	if len(candidates) == 0 {
		return nil, errs.New(errs.BackendUnavailable, fmt.Errorf("no LLM backend is available"))
	}

	var lastErr error
	for _, name := range candidates {
		backend := g.backends[name]
		resp, err := g.attempt(ctx, backend, messages, model)
		if err == nil {
			return resp, nil
		}
		g.logger.Warn("backend attempt failed, trying next candidate",
			zap.String("backend", name), zap.Error(err))
		lastErr = err
	}

	return nil, errs.New(errs.BackendUnavailable, fmt.Errorf("all backends exhausted: %w", lastErr))
}

// ChatWithTranslation applies §4.2's German-heuristic input translation
// before dispatching: if text looks German, it is translated to
// English via the same chat primitive first. Translation failure
// degrades gracefully to the original text.
func (g *Gateway) ChatWithTranslation(ctx context.Context, text, model, preferred string) string {
	if !looksGerman(text) {
		return text
	}
	prompt := []types.ChatMessage{
		{Role: types.ChatRoleSystem, Content: "Translate the following text to English. Reply with only the translation."},
		{Role: types.ChatRoleUser, Content: text},
	}
	resp, err := g.Chat(ctx, prompt, model, preferred)
	if err != nil || resp.Content == "" {
		g.logger.Warn("translation failed, falling back to original text", zap.Error(err))
		return text
	}
	return resp.Content
}

func (g *Gateway) attempt(ctx context.Context, backend Backend, messages []types.ChatMessage, model string) (*types.LLMResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.attemptTimeout())
	defer cancel()

	op := func() (*types.LLMResponse, error) {
		start := time.Now()
		resp, err := backend.Chat(attemptCtx, messages, model)
		if err != nil {
			g.health.recordFailure(backend.Name(), time.Now())
			return nil, err
		}
		g.health.recordSuccess(backend.Name(), time.Since(start))
		return resp, nil
	}

	resp, err := backoff.Retry(attemptCtx, op,
		backoff.WithMaxTries(maxTries(g.cfg.MaxAttemptRetries)),
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func maxTries(retries uint) uint {
	if retries == 0 {
		return 1
	}
	return retries
}

func (g *Gateway) attemptTimeout() time.Duration {
	if g.cfg.AttemptTimeout <= 0 {
		return 30 * time.Second
	}
	return g.cfg.AttemptTimeout
}

// orderedCandidates implements §4.2 step 1-2: filter out CIRCUIT_OPEN
// backends whose cool-down hasn't elapsed and whose availability probe
// fails, then order preferred-first, remaining sorted by health score
// descending.
func (g *Gateway) orderedCandidates(preferred string) []string {
	now := time.Now()
	var candidates []string
	for _, name := range g.order {
		if !g.health.eligible(name, now) {
			continue
		}
		if !g.backends[name].Available(context.Background()) {
			continue
		}
		candidates = append(candidates, name)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		hi := g.health.snapshot(candidates[i]).HealthScore()
		hj := g.health.snapshot(candidates[j]).HealthScore()
		return hi > hj
	})

	if preferred == "" {
		return candidates
	}
	for i, name := range candidates {
		if name == preferred {
			reordered := make([]string, 0, len(candidates))
			reordered = append(reordered, name)
			reordered = append(reordered, candidates[:i]...)
			reordered = append(reordered, candidates[i+1:]...)
			return reordered
		}
	}
	return candidates
}
