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

// AnthropicConfig configures the Anthropic Messages API backend.
type AnthropicConfig struct {
	APIKey      string
	Endpoint    string // default https://api.anthropic.com/v1/messages
	ModelIDs    []string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// AnthropicBackend dispatches chat calls over Anthropic's Messages API
// using a bare net/http client, matching the wire protocol directly
// rather than a vendored SDK.
type AnthropicBackend struct {
	apiKey      string
	endpoint    string
	models      []string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewAnthropicBackend builds an AnthropicBackend.
func NewAnthropicBackend(cfg AnthropicConfig) *AnthropicBackend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.anthropic.com/v1/messages"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	temp := cfg.Temperature
	if temp == 0 {
		temp = 1.0
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &AnthropicBackend{
		apiKey:      cfg.APIKey,
		endpoint:    endpoint,
		models:      cfg.ModelIDs,
		maxTokens:   maxTokens,
		temperature: temp,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (a *AnthropicBackend) Name() string { return "anthropic" }

func (a *AnthropicBackend) Models() []string { return a.models }

func (a *AnthropicBackend) Available(ctx context.Context) bool {
	return a.apiKey != ""
}

type anthropicRequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string                    `json:"model"`
	MaxTokens   int                       `json:"max_tokens"`
	Temperature float64                   `json:"temperature"`
	System      string                    `json:"system,omitempty"`
	Messages    []anthropicRequestMessage `json:"messages"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Usage   anthropicUsage          `json:"usage"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *AnthropicBackend) Chat(ctx context.Context, messages []types.ChatMessage, model string) (*types.LLMResponse, error) {
	var system string
	var reqMessages []anthropicRequestMessage
	for _, m := range messages {
		if m.Role == types.ChatRoleSystem {
			system = m.Content
			continue
		}
		reqMessages = append(reqMessages, anthropicRequestMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		System:      system,
		Messages:    reqMessages,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read anthropic response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("status %d", httpResp.StatusCode)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("anthropic error: %s", msg)
	}

	var content string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &types.LLMResponse{
		Content: content,
		Backend: a.Name(),
		Usage:   types.ChatUsage{InputTokens: parsed.Usage.InputTokens, OutputTokens: parsed.Usage.OutputTokens},
	}, nil
}
