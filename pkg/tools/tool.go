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

// Package tools implements the Tool Registry & Dispatch (C4): a typed
// tool catalog, JSON Schema exposure, input parsing from the three tool
// syntaxes, and execution against a ToolContext.
package tools

import (
	"context"

	"github.com/hollowmark/weave/internal/agent"
	"github.com/hollowmark/weave/internal/history"
	"github.com/hollowmark/weave/internal/permission"
	"github.com/hollowmark/weave/pkg/exec"
	"github.com/hollowmark/weave/pkg/memory"
	"github.com/hollowmark/weave/pkg/workspace"
)

// Scope restricts which front-end(s) a tool is exposed to.
type Scope string

const (
	ScopeMCPServer         Scope = "mcp_server"
	ScopeAgent             Scope = "agent"
	ScopeAgentWithDiffBlocks Scope = "agent_diff_blocks"
)

// Annotations carries behavioral hints about a tool, notably whether it
// mutates the workspace (gating the permission.Service supplement).
type Annotations struct {
	Mutating    bool
	ReadOnly    bool
	Idempotent  bool
}

// Spec describes one tool for schema exposure and front-end filtering.
type Spec struct {
	Name             string
	Description      string
	ParametersSchema map[string]any // JSON Schema
	Annotations      Annotations
	SupportedScopes  []Scope
	Hidden           bool
	TitleTemplate    string
}

// ProjectResolver resolves a configured project name to its Explorer and
// Executor, as the turn loop and MCP server construct them from config.
type ProjectResolver interface {
	Explorer(project string) (*workspace.Explorer, error)
	Executor(project string) (*exec.Executor, error)
	Projects() []string

	// FormatCommand returns the configured format-on-save command whose
	// glob matches relPath within project, or "" if none applies.
	FormatCommand(project, relPath string) string
}

// ToolContext carries, by reference, everything a tool invocation may
// touch. SessionID and ToolID correlate history/permission entries back
// to the turn that dispatched this call.
type ToolContext struct {
	Context    context.Context
	Projects   ProjectResolver
	Memory     *memory.Memory // nil for the MCP server's null working-memory context
	History    history.Service
	Permission permission.Service
	SessionID  string
	ToolID     string

	// OutputChunk streams one line of execute_command output to the UI as
	// soon as it is produced, tagged with ToolID.
	OutputChunk func(toolID, line string)

	// SetPlan is called by update_plan; nil contexts (MCP) never call it.
	SetPlan func(markdown string, items []PlanItem)

	// SpawnSubAgent dispatches delegate_task to C9 (pkg/subagent); nil
	// when the front-end that dispatched this tool call disabled
	// sub-agent spawning (the MCP server's null working-memory context
	// always leaves this nil).
	SpawnSubAgent func(ctx context.Context, task agent.SubAgentTask) (agent.SubAgentResult, error)
}

// PlanItem mirrors session.PlanItem for the update_plan tool boundary.
type PlanItem struct {
	Text     string
	Priority string
	Status   string
}

// Result is the uniform, typed outcome of one tool invocation.
type Result struct {
	IsSuccess bool
	status    string
	render    func(tracker *ResourcesTracker) string
}

// Status returns the short one-line status string.
func (r Result) Status() string { return r.status }

// Render returns the full rendered result, deduplicating large payloads
// against tracker.
func (r Result) Render(tracker *ResourcesTracker) string {
	if r.render == nil {
		return r.status
	}
	return r.render(tracker)
}

func ok(status string, render func(*ResourcesTracker) string) Result {
	return Result{IsSuccess: true, status: status, render: render}
}

func fail(status string, render func(*ResourcesTracker) string) Result {
	return Result{IsSuccess: false, status: status, render: render}
}

func plainResult(success bool, text string) Result {
	return Result{IsSuccess: success, status: text, render: func(*ResourcesTracker) string { return text }}
}

// DeniedResult is the Result a mutating tool invocation never reaches when
// the permission gate refuses it; the turn loop reports this back to the
// model as an ordinary failed tool result (spec.md §7 "ParseError/PolicyError
// ... same treatment", never a fatal process error).
func DeniedResult(reason string) Result {
	return plainResult(false, reason)
}

// Tool is the uniform dynamic-dispatch contract every registry entry
// implements (spec.md §9 "dynamic dispatch for tools").
type Tool interface {
	Spec() Spec
	Invoke(tc *ToolContext, input map[string]any) (Result, error)
}
