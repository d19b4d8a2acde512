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

	"github.com/hollowmark/weave/internal/agent"
)

// delegateTaskTool is the one parent-tool-invocation surface spec.md
// §4.8 describes for spawning a sub-agent (C9): "a parent tool
// invocation may request a child agent with its own WorkingMemory, a
// task description, and an independent cancellation token". Grounded on
// the teacher's manage_ephemeral_agents spawn command, simplified to one
// fire-and-wait call since this spec has no background-agent registry.
type delegateTaskTool struct{}

func (t *delegateTaskTool) Spec() Spec {
	return Spec{
		Name: "delegate_task",
		Description: "Delegate a focused sub-task to a bounded child agent with its own " +
			"working memory; returns the child's final summary once it completes or is cancelled.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task":  map[string]any{"type": "string"},
				"model": map[string]any{"type": "string"},
			},
			"required": []any{"task"},
		},
		Annotations:     Annotations{Idempotent: false},
		SupportedScopes: []Scope{ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *delegateTaskTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	if tc.SpawnSubAgent == nil {
		return DeniedResult("sub-agent spawning is disabled for this session"), nil
	}
	task := asString(input["task"])
	if task == "" {
		return fail("delegate_task requires a non-empty task", nil), nil
	}

	res, err := tc.SpawnSubAgent(tc.Context, agent.SubAgentTask{
		ParentToolID: tc.ToolID,
		SessionID:    "",
		Task:         task,
		Model:        asString(input["model"]),
	})
	if err != nil {
		return fail(fmt.Sprintf("delegate_task: %v", err), nil), nil
	}

	status := fmt.Sprintf("sub-agent completed (%d tokens)", res.TokensUsed)
	if res.Cancelled {
		status = "sub-agent cancelled"
	}
	summary := res.Summary
	return ok(status, func(*ResourcesTracker) string { return summary }), nil
}
