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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/meshloom/orchestrator/internal/types"
)

// BedrockConfig configures the AWS Bedrock backend.
type BedrockConfig struct {
	Region      string
	ModelIDs    []string // models this backend is permitted to serve
	MaxTokens   int32
	Temperature float32
}

// BedrockBackend dispatches chat calls to AWS Bedrock's Converse API.
type BedrockBackend struct {
	client      *bedrockruntime.Client
	models      []string
	maxTokens   int32
	temperature float32
}

// NewBedrockBackend builds a BedrockBackend from an AWS config region.
func NewBedrockBackend(ctx context.Context, cfg BedrockConfig) (*BedrockBackend, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	temp := cfg.Temperature
	if temp == 0 {
		temp = 1.0
	}
	return &BedrockBackend{
		client:      bedrockruntime.NewFromConfig(awsCfg),
		models:      cfg.ModelIDs,
		maxTokens:   maxTokens,
		temperature: temp,
	}, nil
}

func (b *BedrockBackend) Name() string { return "bedrock" }

func (b *BedrockBackend) Models() []string { return b.models }

// Available probes liveness by checking the client was constructed; a
// real network probe would cost a Converse call per scheduling tick,
// which the candidate-selection loop cannot afford.
func (b *BedrockBackend) Available(ctx context.Context) bool {
	return b.client != nil
}

func (b *BedrockBackend) Chat(ctx context.Context, messages []types.ChatMessage, model string) (*types.LLMResponse, error) {
	var systemBlocks []bedrocktypes.SystemContentBlock
	var converseMessages []bedrocktypes.Message

	for _, m := range messages {
		if m.Role == types.ChatRoleSystem {
			systemBlocks = append(systemBlocks, &bedrocktypes.SystemContentBlockMemberText{Value: m.Content})
			continue
		}
		role := bedrocktypes.ConversationRoleUser
		if m.Role == types.ChatRoleAssistant {
			role = bedrocktypes.ConversationRoleAssistant
		}
		converseMessages = append(converseMessages, bedrocktypes.Message{
			Role:    role,
			Content: []bedrocktypes.ContentBlock{&bedrocktypes.ContentBlockMemberText{Value: m.Content}},
		})
	}
	if len(converseMessages) == 0 {
		return nil, fmt.Errorf("no valid messages to send")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: converseMessages,
		InferenceConfig: &bedrocktypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(b.maxTokens),
			Temperature: aws.Float32(b.temperature),
		},
	}
	if len(systemBlocks) > 0 {
		input.System = systemBlocks
	}

	output, err := b.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse: %w", err)
	}

	var content string
	if msg, ok := output.Output.(*bedrocktypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if text, ok := block.(*bedrocktypes.ContentBlockMemberText); ok {
				content += text.Value
			}
		}
	}

	resp := &types.LLMResponse{Content: content, Backend: b.Name()}
	if output.Usage != nil {
		resp.Usage = types.ChatUsage{
			InputTokens:  int(aws.ToInt32(output.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(output.Usage.OutputTokens)),
		}
	}
	return resp, nil
}
