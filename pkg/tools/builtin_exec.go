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

package tools

import (
	"fmt"

	"github.com/hollowmark/weave/internal/ansiext"
	"github.com/hollowmark/weave/internal/session"
	"github.com/hollowmark/weave/pkg/exec"
)

// --- execute_command ----------------------------------------------------

type executeCommandTool struct{}

func (t *executeCommandTool) Spec() Spec {
	return Spec{
		Name:        "execute_command",
		Description: "Run a shell command inside the project's sandbox, streaming output as it is produced.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project":        map[string]any{"type": "string"},
				"command":        map[string]any{"type": "string"},
				"cwd":            map[string]any{"type": "string"},
				"bypass_sandbox": map[string]any{"type": "boolean"},
				"read_only":      map[string]any{"type": "boolean"},
			},
			"required": []any{"project", "command"},
		},
		Annotations:     Annotations{Mutating: true},
		SupportedScopes: []Scope{ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *executeCommandTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	project := asString(input["project"])
	command := asString(input["command"])
	cwd := asString(input["cwd"])

	executor, err := tc.Projects.Executor(project)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	req := &exec.SandboxRequest{
		BypassSandbox: asBool(input["bypass_sandbox"]),
		ReadOnly:      asBool(input["read_only"]),
	}

	var result exec.Result
	if tc.OutputChunk != nil {
		result, err = executor.ExecuteStreaming(tc.Context, command, cwd, func(line string) {
			tc.OutputChunk(tc.ToolID, line)
		}, req)
	} else {
		result, err = executor.Execute(tc.Context, command, cwd, req)
	}
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	// The raw combined output may carry color/cursor escape sequences from
	// the child process; the model only ever sees the stripped text, while
	// tc.OutputChunk above already forwarded the unstripped lines for any
	// UI that wants to render them as a real terminal.
	output := ansiext.Strip(result.CombinedOutput)
	status := fmt.Sprintf("exit code %d", result.ExitCode)
	return ok(status, func(*ResourcesTracker) string { return output }), nil
}

// --- update_plan ----------------------------------------------------------

type updatePlanTool struct{}

func (t *updatePlanTool) Spec() Spec {
	return Spec{
		Name:        "update_plan",
		Description: "Replace the session's working plan with a new markdown checklist.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"plan": map[string]any{"type": "string"},
				"items": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"text":     map[string]any{"type": "string"},
							"priority": map[string]any{"type": "string"},
							"status":   map[string]any{"type": "string"},
						},
					},
				},
			},
			"required": []any{"plan"},
		},
		SupportedScopes: []Scope{ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *updatePlanTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	plan := asString(input["plan"])
	var items []session.PlanItem
	if raw, ok := input["items"].([]any); ok {
		for _, e := range raw {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			items = append(items, session.PlanItem{
				Text:     asString(m["text"]),
				Priority: session.PlanPriority(asString(m["priority"])),
				Status:   session.PlanStatus(asString(m["status"])),
			})
		}
	}

	if tc.Memory != nil {
		toolItems := make([]PlanItem, 0, len(items))
		for _, it := range items {
			toolItems = append(toolItems, PlanItem{Text: it.Text, Priority: string(it.Priority), Status: string(it.Status)})
		}
		tc.Memory.SetPlan(plan, items)
		if tc.SetPlan != nil {
			tc.SetPlan(plan, toolItems)
		}
	}
	return plainResult(true, "plan updated"), nil
}

// --- complete_task ----------------------------------------------------------

type completeTaskTool struct{}

func (t *completeTaskTool) Spec() Spec {
	return Spec{
		Name:        "complete_task",
		Description: "Signal that the current turn's objective is finished, ending the agent loop.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{"type": "string"},
			},
			"required": []any{"summary"},
		},
		SupportedScopes: []Scope{ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *completeTaskTool) Invoke(_ *ToolContext, input map[string]any) (Result, error) {
	summary := asString(input["summary"])
	return plainResult(true, summary), nil
}
