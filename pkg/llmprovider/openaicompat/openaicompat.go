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

// Package openaicompat adapts any OpenAI Chat Completions-compatible HTTP
// API (OpenAI itself, Ollama's OpenAI shim, local gateways) to the
// llmprovider.Provider contract. Like the teacher's own pkg/llm/openai and
// pkg/llm/ollama clients, the wire encoding is hand-rolled against
// net/http rather than pulled from a generated SDK — there is no third
// party Go client in the pack for this wire format, so this is the
// justified stdlib path named in SPEC_FULL.md.
package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hollowmark/weave/internal/message"
	"github.com/hollowmark/weave/pkg/llmprovider"
	"github.com/hollowmark/weave/pkg/stream"
)

// Config configures a Provider.
type Config struct {
	APIKey      string
	BaseURL     string // e.g. https://api.openai.com/v1 or http://localhost:11434/v1
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	TokensLimit int
}

// Provider implements llmprovider.Provider against an OpenAI-compatible
// Chat Completions endpoint.
type Provider struct {
	cfg        Config
	httpClient *http.Client
}

// New constructs a Provider from cfg, filling in the same defaults the
// teacher's openai.Client uses.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4.1"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// TokensLimit implements llmprovider.Provider.
func (p *Provider) TokensLimit() int { return p.cfg.TokensLimit }

type chatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type toolDef struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []toolDef     `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// SendMessage implements llmprovider.Provider.
func (p *Provider) SendMessage(ctx context.Context, req llmprovider.Request, callback llmprovider.StreamingCallback) (llmprovider.Response, error) {
	body := chatRequest{
		Model:       p.cfg.Model,
		Messages:    toChatMessages(req),
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Stop:        req.StopSequences,
		Stream:      true,
	}
	for _, t := range req.Tools {
		var td toolDef
		td.Type = "function"
		td.Function.Name = t.Name
		td.Function.Description = t.Description
		td.Function.Parameters = t.Parameters
		body.Tools = append(body.Tools, td)
	}
	if len(body.Tools) > 0 {
		body.ToolChoice = "auto"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return llmprovider.Response{}, fmt.Errorf("openaicompat: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return llmprovider.Response{}, fmt.Errorf("openaicompat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return llmprovider.Response{}, fmt.Errorf("openaicompat: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retry := 30 * time.Second
		if h := resp.Header.Get("Retry-After"); h != "" {
			if secs, convErr := strconv.Atoi(h); convErr == nil {
				retry = time.Duration(secs) * time.Second
			}
		}
		return llmprovider.Response{}, &llmprovider.RateLimitError{Info: llmprovider.RateLimitInfo{RetryAfter: retry}}
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return llmprovider.Response{}, fmt.Errorf("openaicompat: api error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
	}

	return p.consumeStream(resp, callback)
}

func (p *Provider) consumeStream(resp *http.Response, callback llmprovider.StreamingCallback) (llmprovider.Response, error) {
	emit := func(c stream.Chunk) {
		if callback != nil {
			callback(c)
		}
	}

	var text strings.Builder
	var usage message.Usage
	type accCall struct {
		id, name string
		args     strings.Builder
	}
	calls := map[int]*accCall{}
	order := []int{}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // tolerate malformed keep-alive chunks, per teacher's ollama/openai clients
		}
		if chunk.Usage != nil {
			usage.InputTokens = chunk.Usage.PromptTokens
			usage.OutputTokens = chunk.Usage.CompletionTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			text.WriteString(delta.Content)
			emit(stream.Chunk{Kind: stream.ChunkText, Text: delta.Content})
		}
		for _, tc := range delta.ToolCalls {
			acc, ok := calls[tc.Index]
			if !ok {
				acc = &accCall{id: tc.ID, name: tc.Function.Name}
				calls[tc.Index] = acc
				order = append(order, tc.Index)
				emit(stream.Chunk{Kind: stream.ChunkInputJSON, ToolID: acc.id, ToolName: acc.name})
			}
			if tc.Function.Arguments != "" {
				acc.args.WriteString(tc.Function.Arguments)
				emit(stream.Chunk{Kind: stream.ChunkInputJSON, ToolID: acc.id, JSONContent: tc.Function.Arguments})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return llmprovider.Response{}, fmt.Errorf("openaicompat: reading stream: %w", err)
	}

	var content []message.ContentPart
	if text.Len() > 0 {
		content = append(content, message.ContentText{Text: text.String()})
	}
	for _, idx := range order {
		acc := calls[idx]
		content = append(content, message.ToolCall{ID: acc.id, Name: acc.name, Input: acc.args.String(), Finished: true})
	}
	return llmprovider.Response{Content: content, Usage: usage}, nil
}

func toChatMessages(req llmprovider.Request) []chatMessage {
	out := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		out = append(out, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		switch m.Role {
		case message.User:
			out = append(out, chatMessage{Role: "user", Content: m.Content().Text})
		case message.System:
			out = append(out, chatMessage{Role: "system", Content: m.Content().Text})
		case message.Assistant:
			cm := chatMessage{Role: "assistant"}
			if text := m.Content().Text; text != "" {
				cm.Content = text
			}
			for _, tc := range m.ToolCalls() {
				var t toolCall
				t.ID = tc.ID
				t.Type = "function"
				t.Function.Name = tc.Name
				t.Function.Arguments = tc.Input
				cm.ToolCalls = append(cm.ToolCalls, t)
			}
			out = append(out, cm)
		case message.Tool:
			for _, tr := range m.ToolResults() {
				out = append(out, chatMessage{Role: "tool", Content: tr.Content, ToolCallID: tr.ToolCallID})
			}
		}
	}
	return out
}
