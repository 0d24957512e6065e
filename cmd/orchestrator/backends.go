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
package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/meshloom/orchestrator/internal/gateway"
)

// buildBackends assembles every LLM backend this process has
// credentials for. Ollama is always included as a backend of last
// resort since it needs no credentials; Anthropic and Bedrock are
// added only when their environment is configured.
func buildBackends(ctx context.Context, model string, logger *zap.Logger) []gateway.Backend {
	var backends []gateway.Backend

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		backends = append(backends, gateway.NewAnthropicBackend(gateway.AnthropicConfig{
			APIKey:   key,
			ModelIDs: []string{model},
		}))
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		backend, err := gateway.NewBedrockBackend(ctx, gateway.BedrockConfig{
			Region:   region,
			ModelIDs: []string{model},
		})
		if err != nil {
			logger.Warn("bedrock backend unavailable, skipping", zap.Error(err))
		} else {
			backends = append(backends, backend)
		}
	}

	endpoint := os.Getenv("OLLAMA_ENDPOINT")
	backends = append(backends, gateway.NewOllamaBackend(gateway.OllamaConfig{
		Endpoint: endpoint,
		ModelIDs: []string{model},
	}))

	return backends
}
