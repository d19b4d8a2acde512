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

// Package compaction implements Compaction (C10): replacing the oldest
// prefix of a session's messages with a single synthesized summary block
// once the estimated prompt token count approaches the provider's context
// window, per spec.md §4.9.
package compaction

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/hollowmark/weave/internal/message"
)

// DefaultTokensLimit is used when the provider reports no TokensLimit.
const DefaultTokensLimit = 180_000

// KeepTurns is the number of most-recent turns (user+assistant+tools
// counted together) never eligible for archival.
const KeepTurns = 4

// ThresholdFraction triggers compaction once estimated tokens exceed this
// fraction of the effective limit.
const ThresholdFraction = 0.85

// SummaryPrompt is the dedicated system prompt used to ask the model for a
// compaction summary of the archived prefix.
const SummaryPrompt = `You are summarizing an in-progress coding session so it can continue ` +
	`with a smaller context window. Produce a terse but complete account of: ` +
	`what the user asked for, what has been done so far (files touched, ` +
	`commands run, decisions made), and what remains outstanding. Do not ` +
	`include pleasantries or restate this instruction.`

// Counter estimates token counts for messages, grounded in the teacher's
// tiktoken-backed TokenCounter.
type Counter struct {
	mu      sync.Mutex
	encoder *tiktoken.Tiktoken
}

// NewCounter constructs a Counter using the cl100k_base encoding (a
// Claude-compatible approximation), falling back to a char/4 heuristic if
// the encoding table can't be loaded.
func NewCounter() *Counter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &Counter{encoder: nil}
	}
	return &Counter{encoder: enc}
}

// CountText returns the estimated token count of text.
func (c *Counter) CountText(text string) int {
	if c.encoder == nil {
		return len(text) / 4
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoder.Encode(text, nil, nil))
}

// CountMessages estimates the total token count of a message slice,
// including a small per-message structural overhead.
func (c *Counter) CountMessages(messages []message.Message) int {
	total := 0
	for _, m := range messages {
		total += 10
		total += c.CountText(m.Content().Text)
		for _, tc := range m.ToolCalls() {
			total += c.CountText(tc.Name) + c.CountText(tc.Input) + 10
		}
		for _, tr := range m.ToolResults() {
			total += c.CountText(tr.Content) + 10
		}
	}
	return total
}

// Summarizer asks the model for a compaction summary. The turn loop's
// llmprovider.Provider satisfies this with a non-streaming call.
type Summarizer func(ctx context.Context, systemPrompt string, messages []message.Message) (string, error)

// ShouldCompact reports whether messages' estimated token count exceeds
// ThresholdFraction of tokensLimit (or DefaultTokensLimit if tokensLimit
// is 0, per spec.md §9's documented provider-dependent threshold).
func ShouldCompact(counter *Counter, messages []message.Message, tokensLimit int) bool {
	limit := tokensLimit
	if limit <= 0 {
		limit = DefaultTokensLimit
	}
	return counter.CountMessages(messages) > int(float64(limit)*ThresholdFraction)
}

// Result is the outcome of one compaction pass.
type Result struct {
	Compacted         []message.Message // archived prefix, unmodified, kept in the persisted session for audit
	Remaining         []message.Message // messages[splitIndex:], sent in future prompts
	Summary           string
	CompactionNumber  int
	ContextSizeBefore int
}

// Compact selects the oldest prefix of messages (everything but the last
// KeepTurns turns), asks summarize for a synthesized summary, and returns
// the split. The caller is responsible for splicing a single assistant
// message carrying message.ContextCompaction{...} in front of Remaining
// and persisting the session (spec.md §4.9's documented replacement
// contract; the archived messages are NOT deleted from the session, only
// excluded from future prompts).
func Compact(ctx context.Context, counter *Counter, messages []message.Message, compactionCount int, summarize Summarizer) (Result, error) {
	splitIndex := splitPoint(messages)
	if splitIndex == 0 {
		return Result{Remaining: messages, CompactionNumber: compactionCount}, nil
	}

	before := messages[:splitIndex]
	contextSize := counter.CountMessages(messages)

	summary, err := summarize(ctx, SummaryPrompt, before)
	if err != nil {
		return Result{}, fmt.Errorf("compaction summarize: %w", err)
	}

	return Result{
		Compacted:         before,
		Remaining:         messages[splitIndex:],
		Summary:           summary,
		CompactionNumber:  compactionCount + 1,
		ContextSizeBefore: contextSize,
	}, nil
}

// splitPoint returns the index of the first message belonging to the last
// KeepTurns turns, walking backward from the end and counting a new turn
// on every User-role message.
func splitPoint(messages []message.Message) int {
	turns := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == message.User {
			turns++
			if turns >= KeepTurns {
				return i
			}
		}
	}
	return 0
}

// BuildCompactionMessage constructs the synthetic assistant message that
// replaces the archived prefix in future prompts.
func BuildCompactionMessage(id, sessionID string, res Result) message.Message {
	m := message.NewMessage(id, sessionID, message.Assistant)
	m.AddPart(message.ContextCompaction{
		N:                 res.CompactionNumber,
		MessagesArchived:  len(res.Compacted),
		ContextSizeBefore: res.ContextSizeBefore,
		Summary:           res.Summary,
	})
	return m
}
