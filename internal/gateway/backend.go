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

// Package gateway implements the LLM Gateway: the single choke point in
// front of one or more LLM backends, with health-scored candidate
// ordering, a per-backend circuit breaker, and graceful fallback.
package gateway

import (
	"context"

	"github.com/meshloom/orchestrator/internal/types"
)

// Backend is the external interface every LLM provider implementation
// (Anthropic, Bedrock, Ollama, ...) must satisfy to be wired into the
// Gateway.
type Backend interface {
	// Name returns the backend's identifier, used for health-record
	// bookkeeping and the preferred-backend override.
	Name() string

	// Available runs a cheap liveness probe. A backend that fails its
	// probe is excluded from the candidate set even if its circuit is
	// closed.
	Available(ctx context.Context) bool

	// Models returns the model identifiers this backend can serve.
	Models() []string

	// Chat sends messages to model and returns the completion.
	Chat(ctx context.Context, messages []types.ChatMessage, model string) (*types.LLMResponse, error)
}
