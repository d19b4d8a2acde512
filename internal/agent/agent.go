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

// Package agent holds the shared types that describe a running turn and
// its spawned sub-agents, independent of any single turn-loop
// implementation. pkg/turn and pkg/subagent depend on this package rather
// than on each other.
package agent

import "context"

// Status is the lifecycle state of an agent turn.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusError    Status = "error"
)

// Info describes one running or completed agent turn (top-level or
// sub-agent) for listing purposes.
type Info struct {
	ID        string
	SessionID string
	ParentID  string // empty for a top-level turn
	Task      string
	Status    Status
}

// Coordinator is the process-wide view over running turns: the top-level
// per-session turn loop and any sub-agents it has spawned. A single
// Coordinator instance is shared by the CLI, the MCP server and the TUI
// front-end so they agree on what is running and can cancel it.
type Coordinator interface {
	// IsSessionBusy reports whether a turn is currently running for sessionID.
	IsSessionBusy(sessionID string) bool

	// Cancel requests cooperative cancellation of the turn identified by id
	// (a top-level turn ID or a sub-agent ID). It does not block until the
	// turn actually stops.
	Cancel(id string)

	// CancelAll cancels every running turn, top-level and sub-agent.
	CancelAll()

	// ListAgents returns every running or recently completed turn.
	ListAgents(ctx context.Context) ([]Info, error)
}

// ErrCancelled is returned by a turn or sub-agent that stopped because its
// cancellation flag was observed set.
var ErrCancelled = &CancelledError{}

// CancelledError indicates a turn ended due to cooperative cancellation
// rather than completion or failure. Cancellation is never surfaced as a
// process error.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "turn cancelled" }

// SubAgentTask is the input a parent tool invocation supplies when it
// spawns a child agent: an independent working-memory scope and a task
// description substituted for the usual user message.
type SubAgentTask struct {
	ParentToolID string
	SessionID    string
	Task         string
	Model        string
}

// SubAgentResult is what a child agent returns to the parent tool
// invocation that spawned it. It is stringified and folded into the
// parent's tool-result content.
type SubAgentResult struct {
	Summary    string
	TokensUsed int
	Cancelled  bool
}
