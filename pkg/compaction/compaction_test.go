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

package compaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowmark/weave/internal/message"
)

func turn(sessionID string, n int, role message.Role, text string) message.Message {
	m := message.NewMessage("", sessionID, role)
	m.AddPart(message.ContentText{Text: text})
	return m
}

func TestShouldCompact_BelowThreshold(t *testing.T) {
	counter := NewCounter()
	msgs := []message.Message{turn("s", 0, message.User, "hi")}
	assert.False(t, ShouldCompact(counter, msgs, DefaultTokensLimit))
}

func TestShouldCompact_AboveThreshold(t *testing.T) {
	counter := NewCounter()
	big := make([]byte, 0, 2_000_000)
	for len(big) < 2_000_000 {
		big = append(big, []byte("word ")...)
	}
	msgs := []message.Message{turn("s", 0, message.User, string(big))}
	assert.True(t, ShouldCompact(counter, msgs, DefaultTokensLimit))
}

// TestSplitPoint_KeepsLastFourTurns ensures Compact never archives any of
// the most recent KeepTurns user turns, per spec.md §4.9.
func TestSplitPoint_KeepsLastFourTurns(t *testing.T) {
	var msgs []message.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, turn("s", i, message.User, "question"))
		msgs = append(msgs, turn("s", i, message.Assistant, "answer"))
	}

	idx := splitPoint(msgs)
	// The last KeepTurns(4) user messages, and everything after the first
	// of those, must remain.
	userCountAfter := 0
	for _, m := range msgs[idx:] {
		if m.Role == message.User {
			userCountAfter++
		}
	}
	assert.Equal(t, KeepTurns, userCountAfter)
}

func TestCompact_TooFewTurnsIsNoop(t *testing.T) {
	counter := NewCounter()
	msgs := []message.Message{
		turn("s", 0, message.User, "hi"),
		turn("s", 0, message.Assistant, "hello"),
	}
	called := false
	summarize := func(context.Context, string, []message.Message) (string, error) {
		called = true
		return "summary", nil
	}

	res, err := Compact(context.Background(), counter, msgs, 0, summarize)
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, msgs, res.Remaining)
	assert.Empty(t, res.Compacted)
}

func TestCompact_ArchivesOldestPrefixAndSummarizes(t *testing.T) {
	counter := NewCounter()
	var msgs []message.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, turn("s", i, message.User, "question"))
		msgs = append(msgs, turn("s", i, message.Assistant, "answer"))
	}

	var seenPrompt string
	summarize := func(_ context.Context, prompt string, archived []message.Message) (string, error) {
		seenPrompt = prompt
		return "a terse recap", nil
	}

	res, err := Compact(context.Background(), counter, msgs, 2, summarize)
	require.NoError(t, err)
	assert.Equal(t, SummaryPrompt, seenPrompt)
	assert.Equal(t, "a terse recap", res.Summary)
	assert.Equal(t, 3, res.CompactionNumber)
	assert.NotEmpty(t, res.Compacted)
	assert.Equal(t, len(msgs), len(res.Compacted)+len(res.Remaining))
}

func TestBuildCompactionMessage_CarriesSummary(t *testing.T) {
	res := Result{CompactionNumber: 1, Compacted: []message.Message{{}}, Summary: "s"}
	msg := BuildCompactionMessage("id1", "sess", res)
	cc, ok := msg.Compaction()
	require.True(t, ok)
	assert.Equal(t, "s", cc.Summary)
	assert.Equal(t, 1, cc.N)
	assert.Equal(t, message.Assistant, msg.Role)
}
