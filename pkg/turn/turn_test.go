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

package turn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowmark/weave/internal/message"
	"github.com/hollowmark/weave/internal/session"
	"github.com/hollowmark/weave/pkg/exec"
	"github.com/hollowmark/weave/pkg/llmprovider"
	"github.com/hollowmark/weave/pkg/memory"
	"github.com/hollowmark/weave/pkg/store"
	"github.com/hollowmark/weave/pkg/stream"
	"github.com/hollowmark/weave/pkg/tools"
	"github.com/hollowmark/weave/pkg/workspace"
)

// scriptedProvider replays a fixed sequence of responses, one per
// SendMessage call, streaming chunks synchronously to the callback first.
type scriptedProvider struct {
	calls     int
	chunks    [][]stream.Chunk
	responses []llmprovider.Response
	errs      []error
}

func (p *scriptedProvider) TokensLimit() int { return 0 }

func (p *scriptedProvider) SendMessage(_ context.Context, _ llmprovider.Request, callback llmprovider.StreamingCallback) (llmprovider.Response, error) {
	i := p.calls
	p.calls++
	if callback != nil && i < len(p.chunks) {
		for _, c := range p.chunks[i] {
			callback(c)
		}
	}
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	if i < len(p.responses) {
		return p.responses[i], err
	}
	return llmprovider.Response{}, err
}

type stubResolver struct{}

func (stubResolver) Explorer(string) (*workspace.Explorer, error) {
	return nil, errors.New("no project")
}
func (stubResolver) Executor(string) (*exec.Executor, error) {
	return nil, errors.New("no project")
}
func (stubResolver) Projects() []string                   { return nil }
func (stubResolver) FormatCommand(string, string) string { return "" }

func newTestLoop(t *testing.T, provider llmprovider.Provider) *Loop {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	l := NewLoop(provider, tools.NewRegistry(), stubResolver{})
	l.Store = st
	l.Config.Retry.Enabled = false
	return l
}

func newTestSession() *session.ChatSession {
	return &session.ChatSession{
		ID:         "sess-1",
		ToolSyntax: session.ToolSyntaxNative,
	}
}

func TestRunSimpleTextTurn(t *testing.T) {
	provider := &scriptedProvider{
		chunks: [][]stream.Chunk{
			{
				{Kind: stream.ChunkText, Text: "Hi!"},
				{Kind: stream.ChunkText, Text: " How can I help you today?"},
			},
		},
		responses: []llmprovider.Response{
			{Usage: message.Usage{InputTokens: 10, OutputTokens: 8}},
		},
	}
	l := newTestLoop(t, provider)

	sub, unsub := l.Bus.Subscribe(16)
	defer unsub()

	sess := newTestSession()
	err := l.Run(context.Background(), sess, memory.New(), "Hello", nil)
	require.NoError(t, err)

	var fragments []stream.Fragment
	for drained := false; !drained; {
		select {
		case ev := <-sub:
			if ev.Fragment != nil {
				fragments = append(fragments, *ev.Fragment)
			}
		default:
			drained = true
		}
	}
	require.Len(t, fragments, 2)
	assert.Equal(t, stream.FragPlainText, fragments[0].Kind)
	assert.Equal(t, "Hi!", fragments[0].Text)
	assert.Equal(t, " How can I help you today?", fragments[1].Text)

	require.Len(t, sess.Messages, 2)
	assert.Equal(t, message.User, sess.Messages[0].Role)
	assert.Equal(t, "Hello", sess.Messages[0].Content().Text)

	assistant := sess.Messages[1]
	assert.Equal(t, message.Assistant, assistant.Role)
	assert.Equal(t, "Hi! How can I help you today?", assistant.Content().Text)
	assert.Empty(t, assistant.ToolCalls())
	require.NotNil(t, assistant.FinishPart())
	assert.Equal(t, message.FinishReasonEndTurn, assistant.FinishPart().Reason)
	assert.Equal(t, 1, provider.calls)
}

func TestRunNativeToolCallThenCompleteTask(t *testing.T) {
	provider := &scriptedProvider{
		chunks: [][]stream.Chunk{
			{
				{Kind: stream.ChunkInputJSON, ToolID: "t1", ToolName: "complete_task", JSONContent: `{"summary":`},
				{Kind: stream.ChunkInputJSON, ToolID: "t1", JSONContent: `"done"}`},
			},
		},
		responses: []llmprovider.Response{{}},
	}
	l := newTestLoop(t, provider)

	sess := newTestSession()
	err := l.Run(context.Background(), sess, memory.New(), "please finish", nil)
	require.NoError(t, err)

	// user + assistant + tool result, exactly one LLM call since complete_task ends the turn.
	require.Len(t, sess.Messages, 3)
	assistant := sess.Messages[1]
	require.Len(t, assistant.ToolCalls(), 1)
	assert.Equal(t, "complete_task", assistant.ToolCalls()[0].Name)

	toolResult := sess.Messages[2]
	assert.Equal(t, message.Tool, toolResult.Role)
	require.Len(t, toolResult.ToolResults(), 1)
	assert.False(t, toolResult.ToolResults()[0].IsError)
	assert.Equal(t, 1, provider.calls)

	require.Len(t, sess.ToolExecutions, 1)
	assert.Equal(t, "complete_task", sess.ToolExecutions[0].ToolName)
}

func TestRunHonorsCancellation(t *testing.T) {
	provider := &scriptedProvider{
		chunks: [][]stream.Chunk{
			{{Kind: stream.ChunkText, Text: "partial"}},
		},
		responses: []llmprovider.Response{{}},
	}
	l := newTestLoop(t, provider)

	cancel := &CancelFlag{}
	cancel.Cancel()

	sess := newTestSession()
	err := l.Run(context.Background(), sess, memory.New(), "hello", cancel)
	require.NoError(t, err)

	// The user message is appended, but the loop never issues a request.
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, 0, provider.calls)
}

func TestRunSurfacesFatalProviderError(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{errors.New("invalid api key")},
	}
	l := newTestLoop(t, provider)

	sub, unsub := l.Bus.Subscribe(4)
	defer unsub()

	sess := newTestSession()
	err := l.Run(context.Background(), sess, memory.New(), "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")

	var errMsg string
	for drained := false; !drained; {
		select {
		case ev := <-sub:
			if ev.Error != nil {
				errMsg = ev.Error.Message
			}
		default:
			drained = true
		}
	}
	assert.Contains(t, errMsg, "invalid api key")
}

func TestScopeForDiffBlocks(t *testing.T) {
	s := &session.ChatSession{UseDiffBlocks: true}
	assert.Equal(t, tools.ScopeAgentWithDiffBlocks, scopeFor(s))

	s.UseDiffBlocks = false
	assert.Equal(t, tools.ScopeAgent, scopeFor(s))
}

func TestAccumulatorSeparatesTextAndThinking(t *testing.T) {
	acc := &accumulator{}
	acc.absorb(stream.Fragment{Kind: stream.FragPlainText, Text: "hello "})
	acc.absorb(stream.Fragment{Kind: stream.FragThinkingText, Text: "pondering "})
	acc.absorb(stream.Fragment{Kind: stream.FragPlainText, Text: "world"})
	acc.absorb(stream.Fragment{Kind: stream.FragReasoningSummaryDelta, Text: "more thought"})

	assert.Equal(t, "hello world", acc.text.String())
	assert.Equal(t, "pondering more thought", acc.thinking.String())
}
