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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meshloom/orchestrator/internal/types"
)

// OllamaConfig configures a local/self-hosted Ollama backend.
type OllamaConfig struct {
	Endpoint    string // default http://localhost:11434
	ModelIDs    []string
	Temperature float64
	Timeout     time.Duration
}

// OllamaBackend dispatches chat calls to Ollama's /api/chat endpoint.
type OllamaBackend struct {
	endpoint    string
	models      []string
	temperature float64
	httpClient  *http.Client
}

// NewOllamaBackend builds an OllamaBackend.
func NewOllamaBackend(cfg OllamaConfig) *OllamaBackend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	temp := cfg.Temperature
	if temp == 0 {
		temp = 0.8
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OllamaBackend{
		endpoint:    endpoint,
		models:      cfg.ModelIDs,
		temperature: temp,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (o *OllamaBackend) Name() string { return "ollama" }

func (o *OllamaBackend) Models() []string { return o.models }

// Available probes Ollama's /api/tags endpoint, which is cheap and
// requires no model load.
func (o *OllamaBackend) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, o.endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaOptions       `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

func (o *OllamaBackend) Chat(ctx context.Context, messages []types.ChatMessage, model string) (*types.LLMResponse, error) {
	reqMessages := make([]ollamaChatMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, ollamaChatMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: reqMessages,
		Stream:   false,
		Options:  ollamaOptions{Temperature: o.temperature},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama error: status %d: %s", httpResp.StatusCode, string(raw))
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}

	return &types.LLMResponse{
		Content: parsed.Message.Content,
		Backend: o.Name(),
		Usage:   types.ChatUsage{InputTokens: parsed.PromptEvalCount, OutputTokens: parsed.EvalCount},
	}, nil
}
