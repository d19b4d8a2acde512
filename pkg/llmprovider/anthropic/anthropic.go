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

// Package anthropic adapts Anthropic's Messages streaming API to the
// llmprovider.Provider contract.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hollowmark/weave/internal/message"
	"github.com/hollowmark/weave/pkg/llmprovider"
	"github.com/hollowmark/weave/pkg/stream"
)

// maxEmptyStreamEvents bounds how many consecutive events may carry no
// observable delta before the stream is treated as malformed.
const maxEmptyStreamEvents = 50

// Provider implements llmprovider.Provider against the Anthropic Messages API.
type Provider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	tokensLimit int
}

// Config configures a Provider.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	TokensLimit int
}

// New constructs a Provider from cfg.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: APIKey is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}
	return &Provider{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		tokensLimit: cfg.TokensLimit,
	}, nil
}

// TokensLimit returns the configured context window size, or 0 if unknown.
func (p *Provider) TokensLimit() int { return p.tokensLimit }

// SendMessage implements llmprovider.Provider.
func (p *Provider) SendMessage(ctx context.Context, req llmprovider.Request, callback llmprovider.StreamingCallback) (llmprovider.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  toAnthropicMessages(req.Messages),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	for _, s := range req.StopSequences {
		params.StopSequences = append(params.StopSequences, s)
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: toInputSchema(t.Parameters),
			},
		})
	}

	apiStream := p.client.Messages.NewStreaming(ctx, params)
	return processStream(apiStream, callback)
}

func toInputSchema(parameters map[string]any) anthropic.ToolInputSchemaParam {
	props, _ := parameters["properties"].(map[string]any)
	var required []string
	if r, ok := parameters["required"].([]any); ok {
		for _, v := range r {
			if s, ok := v.(string); ok {
				required = append(required, s)
			}
		}
	}
	return anthropic.ToolInputSchemaParam{Properties: props, Required: required}
}

func toAnthropicMessages(msgs []message.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		var blocks []anthropic.ContentBlockParamUnion
		for _, part := range m.Parts() {
			switch v := part.(type) {
			case message.ContentText:
				if v.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(v.Text))
				}
			case message.ToolCall:
				var input any
				_ = json.Unmarshal([]byte(v.Input), &input)
				blocks = append(blocks, anthropic.NewToolUseBlock(v.ID, input, v.Name))
			case message.ToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(v.ToolCallID, v.Content, v.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		role := anthropic.MessageParamRoleUser
		if m.Role == message.Assistant {
			role = anthropic.MessageParamRoleAssistant
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return out
}

func processStream(apiStream *anthropic.MessageStream, callback llmprovider.StreamingCallback) (llmprovider.Response, error) {
	var content []message.ContentPart
	var text, toolInput string
	var toolID, toolName string
	inTool := false
	var usage message.Usage
	emptyEvents := 0

	emit := func(c stream.Chunk) {
		if callback != nil {
			callback(c)
		}
	}

	for apiStream.Next() {
		event := apiStream.Current()
		processed := false

		switch event.Type {
		case "message_start":
			ms := event.AsMessageStart()
			usage.InputTokens = int(ms.Message.Usage.InputTokens)
			processed = true

		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				tu := block.AsToolUse()
				toolID, toolName = tu.ID, tu.Name
				toolInput = ""
				inTool = true
				emit(stream.Chunk{Kind: stream.ChunkInputJSON, ToolID: toolID, ToolName: toolName})
			}
			processed = true

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					text += delta.Text
					emit(stream.Chunk{Kind: stream.ChunkText, Text: delta.Text})
					processed = true
				}
			case "thinking_delta":
				if delta.Thinking != "" {
					emit(stream.Chunk{Kind: stream.ChunkThinking, Text: delta.Thinking})
					processed = true
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					toolInput += delta.PartialJSON
					emit(stream.Chunk{Kind: stream.ChunkInputJSON, ToolID: toolID, JSONContent: delta.PartialJSON})
					processed = true
				}
			}

		case "content_block_stop":
			if inTool {
				content = append(content, message.ToolCall{ID: toolID, Name: toolName, Input: toolInput, Finished: true})
				inTool = false
			}
			processed = true

		case "message_delta":
			md := event.AsMessageDelta()
			usage.OutputTokens = int(md.Usage.OutputTokens)
			processed = true

		case "message_stop":
			if text != "" {
				content = append([]message.ContentPart{message.ContentText{Text: text}}, content...)
			}
			return llmprovider.Response{Content: content, Usage: usage}, nil

		case "error":
			return llmprovider.Response{}, errors.New("anthropic: stream error")
		}

		if processed {
			emptyEvents = 0
		} else if emptyEvents++; emptyEvents >= maxEmptyStreamEvents {
			return llmprovider.Response{}, errors.New("anthropic: stream appears malformed")
		}
	}

	if err := apiStream.Err(); err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
			return llmprovider.Response{}, &llmprovider.RateLimitError{Info: llmprovider.RateLimitInfo{RetryAfter: 30 * time.Second}}
		}
		return llmprovider.Response{}, err
	}
	if text != "" {
		content = append([]message.ContentPart{message.ContentText{Text: text}}, content...)
	}
	return llmprovider.Response{Content: content, Usage: usage}, nil
}
