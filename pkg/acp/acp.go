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

// Package acp declares the shape of the ACP (Agent Client Protocol)
// surface named in spec.md §6: the session/new, session/prompt,
// session/cancel methods a client calls, and the session/update
// notification variants the agent pushes back. The framed
// bidirectional-channel wire encoding itself is explicitly out of scope
// per spec.md §1 ("the MCP and ACP RPC framings"); this package types
// the payloads and adapts a C12 eventbus.Event stream into them, leaving
// the actual transport to whichever IDE-integration binary wires it up.
package acp

import (
	"github.com/hollowmark/weave/pkg/eventbus"
	"github.com/hollowmark/weave/pkg/stream"
)

// Request method names a client sends.
const (
	MethodSessionNew    = "session/new"
	MethodSessionPrompt = "session/prompt"
	MethodSessionCancel = "session/cancel"
)

// NewSessionParams requests a new ACP-backed session rooted at a project path.
type NewSessionParams struct {
	ProjectPath string `json:"projectPath"`
}

// NewSessionResult returns the session ID the client should use for
// subsequent session/prompt and session/cancel calls.
type NewSessionResult struct {
	SessionID string `json:"sessionId"`
}

// PromptParams submits one user turn.
type PromptParams struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

// CancelParams requests cooperative cancellation of the named session's
// in-flight turn.
type CancelParams struct {
	SessionID string `json:"sessionId"`
}

// UpdateKind discriminates the Update.Payload variants.
type UpdateKind string

const (
	UpdateUserMessageChunk  UpdateKind = "user_message_chunk"
	UpdateAgentMessageChunk UpdateKind = "agent_message_chunk"
	UpdateAgentThoughtChunk UpdateKind = "agent_thought_chunk"
	UpdateToolCall          UpdateKind = "tool_call"
	UpdateToolCallUpdate    UpdateKind = "tool_call_update"
	UpdatePlan              UpdateKind = "plan"
)

// Update is one session/update notification, matching spec.md §6's list:
// UserMessageChunk, AgentMessageChunk, AgentThoughtChunk, ToolCall,
// ToolCallUpdate, Plan.
type Update struct {
	SessionID string     `json:"sessionId"`
	Kind      UpdateKind `json:"kind"`

	Text string `json:"text,omitempty"` // *MessageChunk / *ThoughtChunk

	ToolCall       *ToolCall       `json:"toolCall,omitempty"`
	ToolCallUpdate *ToolCallUpdate `json:"toolCallUpdate,omitempty"`
	Plan           string          `json:"plan,omitempty"`
}

// ToolCall announces a new tool invocation the agent is about to run.
type ToolCall struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

// ToolCallStatus is the lifecycle state carried in a ToolCallUpdate.
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallRunning   ToolCallStatus = "running"
	ToolCallCompleted ToolCallStatus = "completed"
	ToolCallFailed    ToolCallStatus = "failed"
)

// ToolCallUpdate carries the fields spec.md §6 names:
// {status, title, kind, content, locations, raw_input, raw_output}.
type ToolCallUpdate struct {
	ID        string         `json:"id"`
	Status    ToolCallStatus `json:"status,omitempty"`
	Title     string         `json:"title,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Content   []Content      `json:"content,omitempty"`
	Locations []string       `json:"locations,omitempty"`
	RawInput  string         `json:"rawInput,omitempty"`
	RawOutput string         `json:"rawOutput,omitempty"`
}

// ContentKind discriminates the Content variants named in spec.md §6:
// Text, Diff{path,old_text,new_text}, Terminal{terminal_id}.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentDiff     ContentKind = "diff"
	ContentTerminal ContentKind = "terminal"
)

// Content is one piece of a ToolCallUpdate's rendered output.
type Content struct {
	Kind ContentKind `json:"kind"`

	Text string `json:"text,omitempty"` // ContentText

	Path    string `json:"path,omitempty"` // ContentDiff
	OldText string `json:"oldText,omitempty"`
	NewText string `json:"newText,omitempty"`

	TerminalID string `json:"terminalId,omitempty"` // ContentTerminal
}

// Translator adapts one session's eventbus.Event stream into ACP Update
// notifications. File-modification tools always emit Diff content and
// execute_command tools always emit Terminal content once, per spec.md
// §6 ("suppress further output streaming after attachment"): Translator
// tracks which tool IDs have already attached a Terminal so later
// ToolOutput fragments for the same ID are dropped.
type Translator struct {
	SessionID string

	attachedTerminal map[string]bool
}

// NewTranslator constructs a Translator for one ACP session.
func NewTranslator(sessionID string) *Translator {
	return &Translator{SessionID: sessionID, attachedTerminal: map[string]bool{}}
}

// Translate converts one eventbus.Event into zero or more Updates. Most
// events map to exactly one Update; a dropped post-attachment terminal
// chunk maps to none.
func (t *Translator) Translate(ev eventbus.Event) []Update {
	switch {
	case ev.Fragment != nil:
		return t.translateFragment(*ev.Fragment)
	case ev.ToolStatus != nil:
		return []Update{t.statusUpdate(*ev.ToolStatus)}
	case ev.PlanUpdate != nil:
		return []Update{{SessionID: t.SessionID, Kind: UpdatePlan, Plan: ev.PlanUpdate.Markdown}}
	default:
		return nil
	}
}

func (t *Translator) translateFragment(f stream.Fragment) []Update {
	switch f.Kind {
	case stream.FragPlainText:
		return []Update{{SessionID: t.SessionID, Kind: UpdateAgentMessageChunk, Text: f.Text}}
	case stream.FragThinkingText, stream.FragReasoningSummaryDelta:
		return []Update{{SessionID: t.SessionID, Kind: UpdateAgentThoughtChunk, Text: f.Text}}
	case stream.FragToolName:
		return []Update{{
			SessionID: t.SessionID, Kind: UpdateToolCall,
			ToolCall: &ToolCall{ID: f.ToolID, Title: f.ToolName, Kind: f.ToolName},
		}}
	case stream.FragToolTerminal:
		// First attachment only; spec.md §6: "execute_command tools
		// always emit Terminal content once and suppress further output
		// streaming after attachment".
		if t.attachedTerminal[f.ToolID] {
			return nil
		}
		t.attachedTerminal[f.ToolID] = true
		return []Update{{
			SessionID: t.SessionID, Kind: UpdateToolCallUpdate,
			ToolCallUpdate: &ToolCallUpdate{
				ID:      f.ToolID,
				Status:  ToolCallRunning,
				Content: []Content{{Kind: ContentTerminal, TerminalID: f.TerminalID}},
			},
		}}
	case stream.FragToolOutput:
		if t.attachedTerminal[f.ToolID] {
			return nil
		}
		return []Update{{
			SessionID: t.SessionID, Kind: UpdateToolCallUpdate,
			ToolCallUpdate: &ToolCallUpdate{ID: f.ToolID, Status: ToolCallRunning, RawOutput: f.Chunk},
		}}
	case stream.FragToolEnd:
		return []Update{{
			SessionID: t.SessionID, Kind: UpdateToolCallUpdate,
			ToolCallUpdate: &ToolCallUpdate{ID: f.ToolID, Status: ToolCallCompleted},
		}}
	default:
		return nil
	}
}

func (t *Translator) statusUpdate(ev eventbus.ToolStatusEvent) Update {
	status := ToolCallRunning
	switch ev.Status {
	case eventbus.ToolSuccess:
		status = ToolCallCompleted
	case eventbus.ToolError:
		status = ToolCallFailed
	}
	return Update{
		SessionID:      t.SessionID,
		Kind:           UpdateToolCallUpdate,
		ToolCallUpdate: &ToolCallUpdate{ID: ev.ToolID, Status: status},
	}
}

// DiffContent builds the ContentDiff variant spec.md §6 requires every
// file-modification tool's ToolCallUpdate to carry.
func DiffContent(path, oldText, newText string) Content {
	return Content{Kind: ContentDiff, Path: path, OldText: oldText, NewText: newText}
}
