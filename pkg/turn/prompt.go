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
	"fmt"
	"sort"
	"strings"

	"github.com/hollowmark/weave/internal/session"
	"github.com/hollowmark/weave/pkg/memory"
	"github.com/hollowmark/weave/pkg/tools"
)

// buildSystemPrompt renders the working memory and, in non-native syntax,
// a per-tool description block into the system prompt sent with every
// request (spec.md §4.8 step 2, §6 "tool schemas").
func buildSystemPrompt(base string, mem *memory.Memory, specs []tools.Spec, syntax session.ToolSyntax) string {
	var b strings.Builder
	b.WriteString(base)

	if mem != nil {
		renderWorkingMemory(&b, mem)
	}

	if syntax != session.ToolSyntaxNative {
		renderToolDescriptions(&b, specs, syntax)
	}

	return b.String()
}

func renderWorkingMemory(b *strings.Builder, mem *memory.Memory) {
	projects := mem.AvailableProjects()
	if len(projects) > 0 {
		fmt.Fprintf(b, "\n\nAvailable projects: %s\n", strings.Join(projects, ", "))
	}

	// Loaded/summarized resources render in load order, not sorted order:
	// this keeps the prompt prefix stable turn-to-turn as new resources are
	// appended, which matters for providers that cache on a common prefix.
	snap := mem.Snapshot()
	if len(snap.LoadedResources) > 0 {
		b.WriteString("\nLoaded resources:\n")
		for _, k := range mem.LoadedOrder() {
			fmt.Fprintf(b, "--- %s ---\n%s\n", displayKey(k), snap.LoadedResources[k])
		}
	}
	if len(snap.Summaries) > 0 {
		b.WriteString("\nSummarized resources:\n")
		for _, k := range mem.SummaryOrder() {
			fmt.Fprintf(b, "--- %s (summary) ---\n%s\n", displayKey(k), snap.Summaries[k])
		}
	}
	if snap.Plan != "" {
		fmt.Fprintf(b, "\nCurrent plan:\n%s\n", snap.Plan)
	}
}

func displayKey(snapKey string) string {
	return strings.Replace(snapKey, "\x00", ":", 1)
}

// renderToolDescriptions synthesizes a human-readable per-tool block for
// XML/Caret syntax, since those modes carry no native function-calling
// schema the provider can consult directly.
func renderToolDescriptions(b *strings.Builder, specs []tools.Spec, syntax session.ToolSyntax) {
	openTag, closeTag, paramTag := "<tool:%s>", "</tool:%s>", "<param:%s>value</param:%s>"
	if syntax == session.ToolSyntaxCaret {
		openTag, closeTag, paramTag = "^tool:%s^", "^/tool:%s^", "^param:%s^value^/param:%s^"
	}

	b.WriteString("\n\nAvailable tools:\n")
	for _, spec := range specs {
		fmt.Fprintf(b, "\n## %s\n%s\n", spec.Name, spec.Description)
		fmt.Fprintf(b, "Usage: "+openTag+"\n", spec.Name)
		for _, name := range schemaPropertyNames(spec.ParametersSchema) {
			fmt.Fprintf(b, "  "+paramTag+"\n", name, name)
		}
		fmt.Fprintf(b, closeTag+"\n", spec.Name)
	}
}

func schemaPropertyNames(schema map[string]any) []string {
	props, _ := schema["properties"].(map[string]any)
	out := make([]string, 0, len(props))
	for k := range props {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
