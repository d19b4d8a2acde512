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

// Package subagent implements the Sub-Agent Runner (C9): bounded child
// agents spawned by a parent tool invocation, each with its own
// WorkingMemory and an independent cancellation scope registered in a
// process-wide registry keyed by the parent tool_id, per spec.md §4.8 and
// §9 ("global mutable state ... intentionally process-global because
// [it represents] a process-level invariant").
package subagent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hollowmark/weave/internal/agent"
	"github.com/hollowmark/weave/internal/csync"
	"github.com/hollowmark/weave/internal/message"
	"github.com/hollowmark/weave/internal/session"
	"github.com/hollowmark/weave/pkg/memory"
	"github.com/hollowmark/weave/pkg/turn"
)

// CancellationRegistry is the process-wide map from a parent tool_id to
// the cancel flag of the sub-agent it spawned. A front-end cancelling a
// parent turn looks up every sub-agent it spawned and cancels them too;
// spec.md §9 calls this out by name as one of the two sanctioned process
// globals.
type CancellationRegistry struct {
	byParent *csync.Map[string, *turn.CancelFlag]
}

// NewCancellationRegistry constructs an empty registry. Registry is the
// single process-wide instance front-ends and the turn loop share.
func NewCancellationRegistry() *CancellationRegistry {
	return &CancellationRegistry{byParent: csync.NewMap[string, *turn.CancelFlag]()}
}

// Registry is the process-wide sub-agent cancellation registry, analogous
// to the teacher's single ACP filesystem worker: initialize-once, never
// duplicated per session.
var Registry = NewCancellationRegistry()

func (r *CancellationRegistry) register(parentToolID string, flag *turn.CancelFlag) {
	r.byParent.Set(parentToolID, flag)
}

func (r *CancellationRegistry) unregister(parentToolID string) {
	r.byParent.Delete(parentToolID)
}

// Cancel requests cooperative cancellation of the sub-agent spawned by
// parentToolID, if one is currently running. A no-op if none is found.
func (r *CancellationRegistry) Cancel(parentToolID string) {
	if flag, ok := r.byParent.Get(parentToolID); ok {
		flag.Cancel()
	}
}

// LoopFactory builds a fresh turn.Loop for running one sub-agent's
// messages. The returned Loop shares the parent's Provider/Registry/Store
// wiring but must not share session state: the caller supplies a fresh
// *session.ChatSession and *memory.Memory per spawn.
type LoopFactory func(sessionID string) *turn.Loop

// Runner spawns bounded child agents. MaxConcurrent limits how many
// sub-agents may run at once across the whole process; spec.md leaves
// the exact bound implementation-defined the same way it leaves
// MaxToolIterations implementation-defined.
type Runner struct {
	NewLoop       LoopFactory
	Registry      *CancellationRegistry
	MaxConcurrent int

	running atomic.Int32
	mu      sync.Mutex
}

// New constructs a Runner. maxConcurrent <= 0 means unbounded.
func New(factory LoopFactory, maxConcurrent int) *Runner {
	return &Runner{NewLoop: factory, Registry: Registry, MaxConcurrent: maxConcurrent}
}

// Spawn runs task to completion (or cancellation) and returns a
// SubAgentResult summarizing it. It implements turn.SubAgentSpawner so a
// parent turn.Loop can wire ToolContext.SpawnSubAgent to it without
// pkg/turn importing pkg/subagent.
func (r *Runner) Spawn(ctx context.Context, task agent.SubAgentTask) (agent.SubAgentResult, error) {
	if r.MaxConcurrent > 0 {
		if r.running.Add(1) > int32(r.MaxConcurrent) {
			r.running.Add(-1)
			return agent.SubAgentResult{}, fmt.Errorf("sub-agent limit of %d reached", r.MaxConcurrent)
		}
		defer r.running.Add(-1)
	}

	childID := task.SessionID
	if childID == "" {
		childID = uuid.New().String()
	}

	loop := r.NewLoop(childID)
	if loop == nil {
		return agent.SubAgentResult{}, fmt.Errorf("sub-agent: no loop factory configured")
	}

	cancel := &turn.CancelFlag{}
	reg := r.Registry
	if reg == nil {
		reg = Registry
	}
	reg.register(task.ParentToolID, cancel)
	defer reg.unregister(task.ParentToolID)

	sess := &session.ChatSession{
		ID:         childID,
		Name:       "sub-agent: " + task.Task,
		ToolSyntax: session.ToolSyntaxNative,
		LLMConfig:  session.LLMConfig{Model: task.Model},
	}
	mem := memory.New()

	if err := loop.Run(ctx, sess, mem, task.Task, cancel); err != nil {
		zap.L().Warn("sub-agent turn ended with error",
			zap.String("parent_tool_id", task.ParentToolID), zap.Error(err))
		return agent.SubAgentResult{Cancelled: cancel.Cancelled()}, err
	}

	return agent.SubAgentResult{
		Summary:    lastAssistantText(sess),
		TokensUsed: totalTokens(sess),
		Cancelled:  cancel.Cancelled(),
	}, nil
}

func lastAssistantText(sess *session.ChatSession) string {
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		m := sess.Messages[i]
		if m.Role == message.Assistant {
			if text := m.Content().Text; text != "" {
				return text
			}
		}
	}
	return ""
}

func totalTokens(sess *session.ChatSession) int {
	total := 0
	for _, m := range sess.Messages {
		total += m.Usage.InputTokens + m.Usage.OutputTokens
	}
	return total
}
