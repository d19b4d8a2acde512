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

// Package llmprovider defines the LLM Provider Interface (C11): the one
// operation every concrete adapter (anthropic, bedrock, openaicompat)
// implements, plus the retry/rate-limit contract the turn loop drives.
package llmprovider

import (
	"context"
	"time"

	"github.com/hollowmark/weave/internal/message"
	"github.com/hollowmark/weave/pkg/stream"
)

// ToolSchema is one tool's JSON Schema exposed to the provider in native
// function-calling mode.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request is everything send_message needs to build one provider call.
type Request struct {
	SystemPrompt  string
	Messages      []message.Message
	Tools         []ToolSchema // non-empty only in native tool-call mode
	StopSequences []string
	RequestID     uint64
}

// Response is the final, non-streamed result of one provider call.
type Response struct {
	Content   []message.ContentPart
	Usage     message.Usage
	RateLimit *RateLimitInfo
}

// RateLimitInfo is returned instead of a Response when the provider signals
// a rate limit; the turn loop honors RetryAfter and retries.
type RateLimitInfo struct {
	RetryAfter time.Duration
}

// RateLimitError wraps RateLimitInfo so it can flow through the normal
// error-return path of SendMessage.
type RateLimitError struct {
	Info RateLimitInfo
}

func (e *RateLimitError) Error() string { return "provider rate limit exceeded" }

// StreamingCallback receives one stream.Chunk at a time, in order, as the
// provider's wire response is decoded.
type StreamingCallback func(stream.Chunk)

// Provider is the contract every concrete adapter implements: one
// operation, accepting an optional streaming callback.
type Provider interface {
	// SendMessage blocks until the provider's response is fully received
	// (streamed or not) and returns the final content blocks. If callback
	// is non-nil, every StreamingChunk delta is delivered to it in order
	// before SendMessage returns.
	SendMessage(ctx context.Context, req Request, callback StreamingCallback) (Response, error)

	// TokensLimit returns the provider/model's context window size, or 0
	// if unknown (pkg/compaction falls back to a default threshold).
	TokensLimit() int
}
