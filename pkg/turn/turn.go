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

// Package turn implements the Agent Turn Loop (C8): the control loop that
// composes one LLM request from session state, streams and parses the
// response, dispatches every tool call it contains, and repeats until the
// model calls complete_task or emits no further tool calls, per spec.md
// §4.8.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hollowmark/weave/internal/agent"
	"github.com/hollowmark/weave/internal/history"
	"github.com/hollowmark/weave/internal/message"
	"github.com/hollowmark/weave/internal/permission"
	"github.com/hollowmark/weave/internal/session"
	"github.com/hollowmark/weave/pkg/compaction"
	"github.com/hollowmark/weave/pkg/eventbus"
	"github.com/hollowmark/weave/pkg/llmprovider"
	"github.com/hollowmark/weave/pkg/memory"
	"github.com/hollowmark/weave/pkg/store"
	"github.com/hollowmark/weave/pkg/stream"
	"github.com/hollowmark/weave/pkg/tools"
)

// SubAgentSpawner is implemented by pkg/subagent.Runner. It is declared
// here, not there, so pkg/turn never imports pkg/subagent: the dependency
// runs one way (subagent -> turn) even though a Loop holds a spawner.
type SubAgentSpawner interface {
	Spawn(ctx context.Context, task agent.SubAgentTask) (agent.SubAgentResult, error)
}

// RetryConfig mirrors the teacher's LLM retry policy: bounded exponential
// backoff, with provider-reported rate-limit hints taking priority over
// the computed delay.
type RetryConfig struct {
	Enabled      bool
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Config configures a Loop.
type Config struct {
	Retry RetryConfig

	// MaxToolIterations bounds step 7's re-entry into step 2, guarding
	// against a misbehaving model issuing tool calls forever. Not named in
	// spec.md; a conservative backstop the source leaves implementation
	// defined.
	MaxToolIterations int
}

// DefaultConfig returns the retry/iteration policy used when a front-end
// does not override it.
func DefaultConfig() Config {
	return Config{
		Retry: RetryConfig{
			Enabled:      true,
			MaxRetries:   5,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		MaxToolIterations: 50,
	}
}

// Loop is the C8 agent turn loop for one session. It is not safe for
// concurrent use against the same session: spec.md §5 permits at most one
// running turn per session.
type Loop struct {
	Provider     llmprovider.Provider
	ProviderName string
	Model        string

	Registry   *tools.Registry
	Projects   tools.ProjectResolver
	History    history.Service
	Permission permission.Service
	Bus        *eventbus.Bus
	Store      store.Store

	Counter *compaction.Counter
	Archive *compaction.ArchiveStore

	// SubAgents dispatches delegate_task invocations to C9; nil disables
	// sub-agent spawning (the tool then reports a PolicyError, never a
	// fatal process error).
	SubAgents SubAgentSpawner

	Config Config

	// SystemPrompt is the product-specific preamble prepended to the
	// working-memory and tool-description sections built per request.
	SystemPrompt string
}

// NewLoop constructs a Loop with DefaultConfig; callers override fields on
// the returned value as needed.
func NewLoop(provider llmprovider.Provider, registry *tools.Registry, projects tools.ProjectResolver) *Loop {
	return &Loop{
		Provider: provider,
		Registry: registry,
		Projects: projects,
		Bus:      eventbus.New(),
		Config:   DefaultConfig(),
	}
}

// Run executes one turn: appending userText (plus any attachments, e.g.
// images resolved from an /attach command) as a user message, then
// repeating the compose/stream/dispatch cycle until the model signals
// completion, exhausts MaxToolIterations, or cancel is observed. mem is
// the session's live working memory; the caller persists its final
// Snapshot onto sess.WorkingMemory via Snapshot after Run returns (Run
// does this itself before every save).
func (l *Loop) Run(ctx context.Context, sess *session.ChatSession, mem *memory.Memory, userText string, cancel *CancelFlag, attachments ...message.ContentPart) error {
	userMsg := message.NewMessage(uuid.New().String(), sess.ID, message.User)
	userMsg.AddPart(message.ContentText{Text: userText})
	for _, a := range attachments {
		userMsg.AddPart(a)
	}
	sess.Messages = append(sess.Messages, userMsg)
	l.persist(ctx, sess, nil)

	for iteration := 0; iteration < l.Config.MaxToolIterations; iteration++ {
		if !cancel.ShouldContinue() {
			return nil
		}

		if l.Counter != nil && compaction.ShouldCompact(l.Counter, sess.Messages, l.Provider.TokensLimit()) {
			if err := l.compactNow(ctx, sess); err != nil {
				zap.L().Warn("compaction failed, continuing with uncompacted history",
					zap.String("session_id", sess.ID), zap.Error(err))
			}
		}

		finished, ranTool, err := l.step(ctx, sess, mem, cancel)
		if err != nil {
			l.Bus.DisplayError(err.Error())
			return err
		}
		if finished || !ranTool {
			return nil
		}
	}
	return nil
}

// step runs one iteration of spec.md §4.8 steps 2-6: compose a request,
// stream it, append the assistant message, and dispatch every tool call
// it contained in order. Returns (turnFinished, anyToolRan, error).
func (l *Loop) step(ctx context.Context, sess *session.ChatSession, mem *memory.Memory, cancel *CancelFlag) (bool, bool, error) {
	sess.NextRequestID++
	requestID := sess.NextRequestID

	scope := scopeFor(sess)
	specs := l.Registry.Specs(scope)
	systemPrompt := buildSystemPrompt(l.SystemPrompt, mem, specs, sess.ToolSyntax)

	req := llmprovider.Request{
		SystemPrompt: systemPrompt,
		Messages:     sess.Messages,
		RequestID:    requestID,
	}
	if sess.ToolSyntax == session.ToolSyntaxNative {
		req.Tools = nativeToolSchemas(specs)
	}

	reqCtx, cancelReq := context.WithCancel(ctx)
	defer cancelReq()

	parser := stream.NewParser(sess.ToolSyntax)
	acc := &accumulator{}

	callback := func(c stream.Chunk) {
		if !cancel.ShouldContinue() {
			parser.Cancel()
			cancelReq()
			return
		}
		for _, f := range parser.Feed(c) {
			l.Bus.Fragment(f)
			acc.absorb(f)
		}
	}

	resp, err := l.sendWithRetry(reqCtx, req, callback)
	cancelled := cancel.Cancelled() || parser.Cancelled()
	if err != nil && !cancelled {
		return false, false, fmt.Errorf("llm request: %w", err)
	}

	trailing, toolReqs := parser.End()
	for _, f := range trailing {
		l.Bus.Fragment(f)
		acc.absorb(f)
	}

	assistantMsg := message.NewMessage(uuid.New().String(), sess.ID, message.Assistant)
	if acc.text.Len() > 0 {
		assistantMsg.AddPart(message.ContentText{Text: acc.text.String()})
	}
	if acc.thinking.Len() > 0 {
		assistantMsg.AddPart(message.ReasoningContent{Thinking: acc.thinking.String()})
	}
	for _, tr := range toolReqs {
		assistantMsg.AddPart(message.ToolCall{ID: tr.ID, Name: tr.Name, Input: tr.Input, Finished: true})
	}
	assistantMsg.Provider = l.ProviderName
	assistantMsg.Model = l.Model
	assistantMsg.Usage = resp.Usage
	assistantMsg.RequestID = requestID
	finishReason := message.FinishReasonEndTurn
	if cancelled {
		finishReason = message.FinishReasonCanceled
	}
	assistantMsg.SetFinish(message.FinishPart{Reason: finishReason, Time: time.Now().Unix()})

	sess.Messages = append(sess.Messages, assistantMsg)
	l.persist(ctx, sess, mem)

	if cancelled {
		// spec.md §8 scenario 7: cancellation ends the turn without
		// dispatching any of the tool calls the parser reconstructed.
		return true, false, nil
	}

	if len(toolReqs) == 0 {
		return false, false, nil
	}

	turnFinished, err := l.dispatchTools(ctx, sess, mem, toolReqs)
	if err != nil {
		return false, true, err
	}
	return turnFinished, true, nil
}

// dispatchTools runs every parsed tool request in order (spec.md §5
// "tool dispatch is sequential"), appending a Tool-role result message
// and persisting after each one.
func (l *Loop) dispatchTools(ctx context.Context, sess *session.ChatSession, mem *memory.Memory, toolReqs []stream.ToolRequest) (bool, error) {
	tracker := tools.NewResourcesTracker()
	turnFinished := false

	for _, treq := range toolReqs {
		l.Bus.SetToolStatus(treq.ID, eventbus.ToolRunning)

		result := l.dispatchOne(ctx, sess, mem, tracker, treq)
		rendered := result.Render(tracker)

		status := eventbus.ToolSuccess
		if !result.IsSuccess {
			status = eventbus.ToolError
		}
		l.Bus.SetToolStatus(treq.ID, status)

		sess.ToolExecutions = append(sess.ToolExecutions, session.ToolExecutionRecord{
			ToolRequestID: treq.ID,
			ToolName:      treq.Name,
			Input:         treq.Input,
			ResultJSON:    rendered,
			IsError:       !result.IsSuccess,
		})

		toolMsg := message.NewMessage(uuid.New().String(), sess.ID, message.Tool)
		toolMsg.AddPart(message.ToolResult{ToolCallID: treq.ID, Content: rendered, IsError: !result.IsSuccess})
		sess.Messages = append(sess.Messages, toolMsg)
		l.persist(ctx, sess, mem)

		if treq.Name == "complete_task" {
			turnFinished = true
		}
	}
	return turnFinished, nil
}

// dispatchOne gates a mutating tool behind the permission service, then
// dispatches through the registry.
func (l *Loop) dispatchOne(ctx context.Context, sess *session.ChatSession, mem *memory.Memory, tracker *tools.ResourcesTracker, treq stream.ToolRequest) tools.Result {
	if tool, ok := l.Registry.Get(treq.Name); ok && l.Permission != nil && tool.Spec().Annotations.Mutating {
		if !l.Permission.SkipRequests() {
			granted := l.Permission.Request(ctx, permission.PermissionRequest{
				ID:         uuid.New().String(),
				ToolName:   treq.Name,
				ToolCallID: treq.ID,
				SessionID:  sess.ID,
				Arguments:  treq.Input,
			})
			if !granted {
				return tools.DeniedResult(fmt.Sprintf("permission denied for %s", treq.Name))
			}
		}
	}

	tc := &tools.ToolContext{
		Context:    ctx,
		Projects:   l.Projects,
		Memory:     mem,
		History:    l.History,
		Permission: l.Permission,
		SessionID:  sess.ID,
		ToolID:     treq.ID,
		OutputChunk: func(toolID, line string) {
			l.Bus.Fragment(stream.Fragment{Kind: stream.FragToolOutput, ToolID: toolID, Chunk: line})
		},
		SetPlan: func(markdown string, items []tools.PlanItem) {
			l.Bus.UpdatePlan(markdown)
		},
	}
	if l.SubAgents != nil {
		tc.SpawnSubAgent = l.SubAgents.Spawn
	}
	return l.Registry.Dispatch(tc, treq)
}

// sendWithRetry wraps Provider.SendMessage with bounded exponential
// backoff, honoring a provider-reported RateLimitError's RetryAfter hint
// over the locally computed delay, grounded in the teacher's
// chatWithRetry.
func (l *Loop) sendWithRetry(ctx context.Context, req llmprovider.Request, callback llmprovider.StreamingCallback) (llmprovider.Response, error) {
	if !l.Config.Retry.Enabled || l.Config.Retry.MaxRetries == 0 {
		resp, err := l.Provider.SendMessage(ctx, req, callback)
		if err == nil {
			l.Bus.ClearRateLimit()
		}
		return resp, err
	}

	var lastErr error
	delay := l.Config.Retry.InitialDelay

	for attempt := 0; attempt <= l.Config.Retry.MaxRetries; attempt++ {
		resp, err := l.Provider.SendMessage(ctx, req, callback)
		if err == nil {
			l.Bus.ClearRateLimit()
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return llmprovider.Response{}, err
		}
		if attempt >= l.Config.Retry.MaxRetries {
			break
		}

		wait := delay
		var rlErr *llmprovider.RateLimitError
		if errors.As(err, &rlErr) && rlErr.Info.RetryAfter > 0 {
			wait = rlErr.Info.RetryAfter
		}

		zap.L().Warn("llm call failed, retrying",
			zap.Int("attempt", attempt+1), zap.Int("max_retries", l.Config.Retry.MaxRetries),
			zap.Duration("delay", wait), zap.Error(err))
		l.Bus.NotifyRateLimit(int(wait / time.Second))

		select {
		case <-ctx.Done():
			return llmprovider.Response{}, ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * l.Config.Retry.Multiplier)
		if delay > l.Config.Retry.MaxDelay {
			delay = l.Config.Retry.MaxDelay
		}
	}

	return llmprovider.Response{}, fmt.Errorf("llm call failed after %d attempts: %w", l.Config.Retry.MaxRetries+1, lastErr)
}

// compactNow runs C10 against sess.Messages, archiving the resulting
// prefix and splicing the synthesized summary in front of what remains.
func (l *Loop) compactNow(ctx context.Context, sess *session.ChatSession) error {
	summarize := func(ctx context.Context, systemPrompt string, msgs []message.Message) (string, error) {
		resp, err := l.Provider.SendMessage(ctx, llmprovider.Request{SystemPrompt: systemPrompt, Messages: msgs}, nil)
		if err != nil {
			return "", err
		}
		return responseText(resp), nil
	}

	res, err := compaction.Compact(ctx, l.Counter, sess.Messages, sess.CompactionCount, summarize)
	if err != nil {
		return err
	}
	if res.CompactionNumber == sess.CompactionCount {
		return nil // nothing old enough to archive yet
	}

	if l.Archive != nil {
		if err := l.Archive.Write(sess.ID, res.CompactionNumber, res.Compacted); err != nil {
			zap.L().Warn("archive compacted messages", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}

	compactionMsg := compaction.BuildCompactionMessage(uuid.New().String(), sess.ID, res)
	sess.Messages = append([]message.Message{compactionMsg}, res.Remaining...)
	sess.CompactionCount = res.CompactionNumber
	l.Bus.Compaction(len(res.Compacted), res.ContextSizeBefore)
	l.persist(ctx, sess, nil)
	return nil
}

// persist saves sess, including mem's current snapshot, logging and
// swallowing any failure per spec.md §7 PersistenceError: lost durability
// for this turn, never a crash. mem is nil for call sites that run before
// working memory can have changed (e.g. the initial user-message append).
func (l *Loop) persist(ctx context.Context, sess *session.ChatSession, mem *memory.Memory) {
	if mem != nil {
		sess.WorkingMemory = mem.Snapshot()
	}
	if l.Store == nil {
		return
	}
	sess.UpdatedAt = time.Now().Unix()
	if err := l.Store.Save(ctx, *sess); err != nil {
		zap.L().Error("persist session", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

// accumulator collects the plain-text and thinking fragments of one
// assistant stream into the two content blocks the final message carries;
// tool calls are reconstructed separately from the parser's ToolRequests.
type accumulator struct {
	text     strings.Builder
	thinking strings.Builder
}

func (a *accumulator) absorb(f stream.Fragment) {
	switch f.Kind {
	case stream.FragPlainText:
		a.text.WriteString(f.Text)
	case stream.FragThinkingText, stream.FragReasoningSummaryDelta:
		a.thinking.WriteString(f.Text)
	}
}

func responseText(resp llmprovider.Response) string {
	var b strings.Builder
	for _, p := range resp.Content {
		if t, ok := p.(message.ContentText); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

func scopeFor(sess *session.ChatSession) tools.Scope {
	if sess.UseDiffBlocks {
		return tools.ScopeAgentWithDiffBlocks
	}
	return tools.ScopeAgent
}

func nativeToolSchemas(specs []tools.Spec) []llmprovider.ToolSchema {
	out := make([]llmprovider.ToolSchema, 0, len(specs))
	for _, s := range specs {
		out = append(out, llmprovider.ToolSchema{Name: s.Name, Description: s.Description, Parameters: s.ParametersSchema})
	}
	return out
}
