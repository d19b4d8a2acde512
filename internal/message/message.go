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

// Package message defines the tagged content-block model shared by every
// session message: plain text, thinking, tool calls/results, images, and
// compaction markers.
package message

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/hollowmark/weave/internal/pubsub"
)

// Role represents the role of a message sender.
type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
	Tool      Role = "tool"
	System    Role = "system"
)

// FinishReason represents the reason a message finished.
type FinishReason string

const (
	FinishReasonEndTurn   FinishReason = "end_turn"
	FinishReasonCanceled  FinishReason = "canceled"
	FinishReasonMaxTokens FinishReason = "max_tokens"
	FinishReasonError     FinishReason = "error"
)

// Message represents a single chat message: a role plus an ordered
// sequence of content blocks.
type Message struct {
	ID        string
	SessionID string
	Role      Role
	CreatedAt int64
	Provider  string // LLM provider
	Model     string // LLM model
	Usage     Usage
	RequestID uint64 // correlates to the LLMRequest that produced this message
	parts     []ContentPart
	finish    *FinishPart
}

// Usage is per-message token/cost accounting.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Add returns the field-wise sum of two Usage values.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		CostUSD:      u.CostUSD + o.CostUSD,
	}
}

// NewMessage creates a new message.
func NewMessage(id, sessionID string, role Role) Message {
	return Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
	}
}

// AddPart adds a content part to the message.
func (m *Message) AddPart(part ContentPart) {
	m.parts = append(m.parts, part)
}

// Parts returns the content parts.
func (m Message) Parts() []ContentPart {
	return m.parts
}

// Content returns the concatenated text content.
func (m Message) Content() ContentText {
	var text string
	for _, p := range m.parts {
		if t, ok := p.(ContentText); ok {
			text += t.Text
		}
	}
	return ContentText{Text: text}
}

// ReasoningContent returns the first thinking block, if any.
func (m Message) ReasoningContent() ReasoningContent {
	for _, p := range m.parts {
		if r, ok := p.(ReasoningContent); ok {
			return r
		}
	}
	return ReasoningContent{}
}

// RedactedThinking returns every redacted-thinking block in the message.
func (m Message) RedactedThinking() []RedactedThinking {
	var out []RedactedThinking
	for _, p := range m.parts {
		if r, ok := p.(RedactedThinking); ok {
			out = append(out, r)
		}
	}
	return out
}

// ToolCalls returns tool calls from the message.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.parts {
		if tc, ok := p.(ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// ToolResults returns tool results from the message.
func (m Message) ToolResults() []ToolResult {
	var results []ToolResult
	for _, p := range m.parts {
		if tr, ok := p.(ToolResult); ok {
			results = append(results, tr)
		}
	}
	return results
}

// Images returns every image block in the message.
func (m Message) Images() []Image {
	var out []Image
	for _, p := range m.parts {
		if img, ok := p.(Image); ok {
			out = append(out, img)
		}
	}
	return out
}

// Compaction returns the message's context-compaction marker, if present.
func (m Message) Compaction() (ContextCompaction, bool) {
	for _, p := range m.parts {
		if c, ok := p.(ContextCompaction); ok {
			return c, true
		}
	}
	return ContextCompaction{}, false
}

// FinishPart returns the finish part if present.
func (m Message) FinishPart() *FinishPart {
	return m.finish
}

// SetFinish records the finish metadata for the message.
func (m *Message) SetFinish(f FinishPart) {
	m.finish = &f
}

// IsThinking returns true if the message carries a thinking block.
func (m Message) IsThinking() bool {
	for _, p := range m.parts {
		if _, ok := p.(ReasoningContent); ok {
			return true
		}
	}
	return false
}

// IsSummaryMessage returns true if this message replaced an archived
// prefix of the session with a synthesized summary (C10 compaction).
func (m Message) IsSummaryMessage() bool {
	_, ok := m.Compaction()
	return ok
}

// IsFinished returns true if the message is finished.
func (m Message) IsFinished() bool {
	return m.finish != nil
}

// BinaryContent returns every image block in the message as raw binary
// attachments, decoded from their base64 payload. Images whose payload is
// not valid base64 are skipped.
func (m Message) BinaryContent() []BinaryContent {
	var out []BinaryContent
	for _, img := range m.Images() {
		data, err := base64.StdEncoding.DecodeString(img.Base64Data)
		if err != nil {
			continue
		}
		out = append(out, BinaryContent{
			Type:     "image",
			MimeType: img.MediaType,
			Data:     data,
		})
	}
	return out
}

// ThinkingDuration returns the thinking duration.
func (m Message) ThinkingDuration() Duration {
	r := m.ReasoningContent()
	if r.EndedAt > 0 && r.StartedAt > 0 {
		return Duration(r.EndedAt - r.StartedAt)
	}
	return 0
}

// Duration represents a duration in milliseconds.
type Duration int64

// String returns a formatted duration string.
func (d Duration) String() string {
	if d < 1000 {
		return "<1s"
	}
	secs := d / 1000
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	mins := secs / 60
	secs = secs % 60
	return fmt.Sprintf("%dm%ds", mins, secs)
}

// BinaryContent represents binary data in a message.
type BinaryContent struct {
	Type     string
	MimeType string
	Data     []byte
	Path     string
}

// ContentPart is a marker interface implemented by every content-block
// variant: Text, Thinking, RedactedThinking, ToolCall, ToolResult, Image,
// ContextCompaction.
type ContentPart interface {
	isContentPart()
}

// ContentText is a plain text content block.
type ContentText struct {
	Text string
}

func (ContentText) isContentPart() {}

func (c ContentText) String() string {
	return c.Text
}

// ReasoningContent is a visible chain-of-thought ("Thinking") block. The
// signature is the provider's opaque continuation token, echoed back
// verbatim on the next request so the provider can verify the thinking
// block it is being asked to trust.
type ReasoningContent struct {
	Thinking   string
	Signature  string
	StartedAt  int64
	EndedAt    int64
	FinishedAt int64 // Alias for EndedAt
}

func (ReasoningContent) isContentPart() {}

// RedactedThinking is a thinking block the provider declined to reveal in
// plaintext; Data is an opaque, provider-defined payload that must still be
// sent back on the next turn.
type RedactedThinking struct {
	Data string
}

func (RedactedThinking) isContentPart() {}

// Image is an inline image content block.
type Image struct {
	MediaType  string // e.g. "image/png"
	Base64Data string
}

func (Image) isContentPart() {}

// ContextCompaction marks a point where a prefix of older messages was
// replaced by a synthesized summary (C10). N is the running compaction
// counter for the session.
type ContextCompaction struct {
	N                 int
	MessagesArchived  int
	ContextSizeBefore int
	Summary           string
}

func (ContextCompaction) isContentPart() {}

// ToolCall represents a tool invocation accumulated from the stream.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
	Input     string // Raw input JSON
	Finished  bool   // Whether the tool call has finished
}

func (ToolCall) isContentPart() {}

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
	Data       []byte // Binary data result
	MIMEType   string // MIME type of data
	Metadata   string // Tool-specific metadata (JSON)
}

func (ToolResult) isContentPart() {}

// FinishPart represents the finish metadata.
type FinishPart struct {
	Reason  FinishReason
	Message string
	Details string
	Time    int64
}

func (FinishPart) isContentPart() {}

// Attachment represents a file attachment supplied alongside a user
// message, before it becomes an Image or BinaryContent block.
type Attachment struct {
	Type     string
	Name     string
	Path     string
	MimeType string
	Data     []byte
	FilePath string
	FileName string
	Content  []byte
}

// Service is the persistence-backed message accessor shared by the turn
// loop and the front-ends.
type Service interface {
	List(ctx context.Context, sessionID string) ([]Message, error)
	Subscribe(ctx context.Context) <-chan pubsub.Event[Message]
}
