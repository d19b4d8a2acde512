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
	"sort"
	"strings"

	"github.com/hollowmark/weave/pkg/edit"
	"github.com/hollowmark/weave/pkg/memory"
	"github.com/hollowmark/weave/pkg/workspace"
)

// --- list_projects -----------------------------------------------------

type listProjectsTool struct{}

func (t *listProjectsTool) Spec() Spec {
	return Spec{
		Name:            "list_projects",
		Description:     "Enumerate configured and temporary projects available in this session.",
		ParametersSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		SupportedScopes: []Scope{ScopeMCPServer, ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *listProjectsTool) Invoke(tc *ToolContext, _ map[string]any) (Result, error) {
	names := tc.Projects.Projects()
	if tc.Memory != nil {
		names = mergeUnique(names, tc.Memory.AvailableProjects())
	}
	sort.Strings(names)
	text := strings.Join(names, "\n")
	return plainResult(true, text), nil
}

func mergeUnique(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string(nil), a...)
	for _, x := range a {
		seen[x] = true
	}
	for _, x := range b {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

// --- list_files ----------------------------------------------------------

type listFilesTool struct{}

func (t *listFilesTool) Spec() Spec {
	return Spec{
		Name:        "list_files",
		Description: "List files and directories under one or more relative paths within a project.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project":  map[string]any{"type": "string"},
				"paths":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"max_depth": map[string]any{"type": "integer"},
			},
			"required": []any{"project", "paths"},
		},
		SupportedScopes: []Scope{ScopeMCPServer, ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *listFilesTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	project := asString(input["project"])
	paths := asStringSlice(input["paths"])
	maxDepth := 0
	if v, ok := input["max_depth"].(int64); ok {
		maxDepth = int(v)
	}

	explorer, err := tc.Projects.Explorer(project)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	var b strings.Builder
	var expanded []string
	for _, p := range paths {
		entry, err := explorer.ListFiles(p, maxDepth)
		if err != nil {
			b.WriteString(fmt.Sprintf("%s: %v\n", p, err))
			continue
		}
		b.WriteString(workspace.RenderTree(entry))
		expanded = append(expanded, p)
		if tc.Memory != nil {
			tc.Memory.MergeFileTree(project, toMemoryTree(entry))
		}
	}
	if tc.Memory != nil {
		tc.Memory.RecordExpansion(project, expanded)
	}
	text := b.String()
	return ok(fmt.Sprintf("listed %d path(s)", len(paths)), func(*ResourcesTracker) string { return text }), nil
}

func toMemoryTree(e *workspace.FileTreeEntry) *memory.FileTreeEntry {
	out := &memory.FileTreeEntry{Name: e.Name, IsDir: e.IsDir, IsExpanded: e.IsExpanded}
	if e.Children != nil {
		out.Children = make(map[string]*memory.FileTreeEntry, len(e.Children))
		for k, v := range e.Children {
			out.Children[k] = toMemoryTree(v)
		}
	}
	return out
}

// --- read_files ----------------------------------------------------------

type readFilesTool struct{}

func (t *readFilesTool) Spec() Spec {
	return Spec{
		Name:        "read_files",
		Description: "Load one or more files (optionally a line range) into working memory.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project": map[string]any{"type": "string"},
				"paths":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []any{"project", "paths"},
		},
		SupportedScopes: []Scope{ScopeMCPServer, ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *readFilesTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	project := asString(input["project"])
	paths := asStringSlice(input["paths"])

	explorer, err := tc.Projects.Explorer(project)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	var failedPaths, loadedPaths []string
	var rendered []string
	for _, raw := range paths {
		pr := ParsePathWithLineRange(raw)

		var content string
		var err error
		if extractableExt(pr.Path) {
			var data []byte
			if data, err = explorer.ReadFileBytes(pr.Path); err == nil {
				content, err = extractText(pr.Path, data)
			}
		} else {
			content, err = explorer.ReadFileRange(pr.Path, pr.StartLine, pr.EndLine)
		}
		if err != nil {
			failedPaths = append(failedPaths, pr.Path)
			rendered = append(rendered, fmt.Sprintf("--- %s ---\nerror: %v", pr.Path, err))
			continue
		}
		if tc.Memory != nil {
			tc.Memory.LoadResource(project, pr.Path, memory.Resource{Kind: memory.ResourceFile, Content: content})
		}
		loadedPaths = append(loadedPaths, pr.Path)
		rendered = append(rendered, fmt.Sprintf("--- %s ---\n%s", pr.Path, content))
	}

	// read_files reports per-file success and failure rather than failing
	// the whole call when one of several paths is bad.
	status := fmt.Sprintf("successfully loaded %d file(s)", len(loadedPaths))
	if len(failedPaths) > 0 {
		status = fmt.Sprintf("loaded %d file(s), failed to load %d file(s)", len(loadedPaths), len(failedPaths))
	}
	text := strings.Join(rendered, "\n\n")
	return ok(status, func(tr *ResourcesTracker) string {
		if tr == nil || len(paths) != 1 {
			return text
		}
		return tr.RenderFile(project, paths[0], text)
	}), nil
}

// --- search_files ----------------------------------------------------------

type searchFilesTool struct{}

func (t *searchFilesTool) Spec() Spec {
	return Spec{
		Name:        "search_files",
		Description: "Regex-search files within a project, ranked and grouped with context.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project": map[string]any{"type": "string"},
				"regex":   map[string]any{"type": "string"},
				"paths":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []any{"project", "regex"},
		},
		SupportedScopes: []Scope{ScopeMCPServer, ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *searchFilesTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	project := asString(input["project"])
	regex := asString(input["regex"])
	paths := asStringSlice(input["paths"])

	explorer, err := tc.Projects.Explorer(project)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	results, err := explorer.Search("", workspace.SearchOptions{Query: regex, Paths: paths, MaxResults: 200})
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	if len(results) > 30 {
		// Beyond 30 match sections, downgrade to one line per file with its
		// match count (at most 200 files). Search stops at 200 sections, so
		// there is no separate file-list-only mode.
		files := make(map[string]int)
		var order []string
		for _, r := range results {
			if _, seen := files[r.File]; !seen {
				order = append(order, r.File)
			}
			files[r.File] += len(r.MatchLines)
		}
		if len(order) > 200 {
			order = order[:200]
		}
		var b strings.Builder
		for _, f := range order {
			fmt.Fprintf(&b, "%s (%d matches)\n", f, files[f])
		}
		text := b.String()
		return ok(fmt.Sprintf("found matches in %d file(s)", len(order)), func(*ResourcesTracker) string { return text }), nil
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "--- %s:%d ---\n%s\n\n", r.File, r.StartLine+1, strings.Join(r.LineContent, "\n"))
	}
	text := b.String()
	return ok(fmt.Sprintf("found %d match section(s)", len(results)), func(*ResourcesTracker) string { return text }), nil
}

// --- write_file ----------------------------------------------------------

type writeFileTool struct{}

func (t *writeFileTool) Spec() Spec {
	return Spec{
		Name:        "write_file",
		Description: "Write (or append to) a file, optionally running the project's format-on-save command.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project": map[string]any{"type": "string"},
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
				"append":  map[string]any{"type": "boolean"},
			},
			"required": []any{"project", "path", "content"},
		},
		Annotations:     Annotations{Mutating: true},
		SupportedScopes: []Scope{ScopeMCPServer, ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *writeFileTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	project := asString(input["project"])
	path := asString(input["path"])
	content := asString(input["content"])
	appendMode := asBool(input["append"])

	explorer, err := tc.Projects.Explorer(project)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	final, err := explorer.WriteFile(path, content, appendMode)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	final = runFormatOnSave(tc, project, path, final, explorer)

	if tc.Memory != nil {
		tc.Memory.LoadResource(project, path, memory.Resource{Kind: memory.ResourceFile, Content: final})
	}
	if tc.History != nil {
		_, _ = tc.History.Record(tc.Context, tc.SessionID, project+"/"+path, final, 0)
	}
	return plainResult(true, fmt.Sprintf("wrote %s", path)), nil
}

// runFormatOnSave runs the project's configured formatter for path, if
// any, and re-reads the file. A formatter failure is swallowed and the
// pre-format content is kept, per spec.md §9's documented silent-fallback
// behavior -- the agent is not told which formatter failed.
func runFormatOnSave(tc *ToolContext, project, path, content string, explorer *workspace.Explorer) string {
	cmd := tc.Projects.FormatCommand(project, path)
	if cmd == "" {
		return content
	}
	executor, err := tc.Projects.Executor(project)
	if err != nil {
		return content
	}
	if _, err := executor.Execute(tc.Context, cmd, "", nil); err != nil {
		return content
	}
	reread, err := explorer.ReadFile(path)
	if err != nil {
		return content
	}
	return reread
}

// --- edit ------------------------------------------------------------------

type editTool struct{}

func (t *editTool) Spec() Spec {
	return Spec{
		Name:        "edit",
		Description: "Replace exact-match old_text with new_text in a file; fails on zero or (without replace_all) multiple matches.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project":     map[string]any{"type": "string"},
				"path":        map[string]any{"type": "string"},
				"old_text":    map[string]any{"type": "string"},
				"new_text":    map[string]any{"type": "string"},
				"replace_all": map[string]any{"type": "boolean"},
			},
			"required": []any{"project", "path", "old_text", "new_text"},
		},
		Annotations:     Annotations{Mutating: true},
		SupportedScopes: []Scope{ScopeMCPServer, ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *editTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	project := asString(input["project"])
	path := asString(input["path"])
	oldText := asString(input["old_text"])
	newText := asString(input["new_text"])
	replaceAll := asBool(input["replace_all"])

	explorer, err := tc.Projects.Explorer(project)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	original, err := explorer.ReadFile(path)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	updated, err := edit.Apply(original, []edit.Replacement{{Search: oldText, Replace: newText, ReplaceAll: replaceAll}})
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	final, err := explorer.WriteFile(path, updated, false)
	if err != nil {
		return fail(err.Error(), nil), nil
	}
	final = runFormatOnSave(tc, project, path, final, explorer)

	if tc.Memory != nil {
		tc.Memory.LoadResource(project, path, memory.Resource{Kind: memory.ResourceFile, Content: final})
	}
	if tc.History != nil {
		_, _ = tc.History.Record(tc.Context, tc.SessionID, project+"/"+path, final, 0)
	}
	return plainResult(true, fmt.Sprintf("edited %s", path)), nil
}

// --- delete_files ------------------------------------------------------------

type deleteFilesTool struct{}

func (t *deleteFilesTool) Spec() Spec {
	return Spec{
		Name:        "delete_files",
		Description: "Delete one or more files from the workspace.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project": map[string]any{"type": "string"},
				"paths":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []any{"project", "paths"},
		},
		Annotations:     Annotations{Mutating: true},
		SupportedScopes: []Scope{ScopeMCPServer, ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

// deleteFileFailure pairs a path with the reason its deletion failed.
type deleteFileFailure struct {
	path string
	err  error
}

func (t *deleteFilesTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	project := asString(input["project"])
	paths := asStringSlice(input["paths"])

	explorer, err := tc.Projects.Explorer(project)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	var deleted []string
	var failed []deleteFileFailure
	for _, p := range paths {
		if err := explorer.DeleteFile(p); err != nil {
			failed = append(failed, deleteFileFailure{path: p, err: err})
			continue
		}
		deleted = append(deleted, p)
		if tc.Memory != nil {
			tc.Memory.Forget(project, p)
		}
	}

	// Deletion is reported per-file rather than all-or-nothing: a batch
	// that deletes 3 of 4 files is a partial success, not a failure.
	status := fmt.Sprintf("successfully deleted %d file(s)", len(deleted))
	if len(failed) > 0 {
		status = fmt.Sprintf("deleted %d file(s), failed to delete %d file(s)", len(deleted), len(failed))
	}
	return ok(status, func(*ResourcesTracker) string {
		var b strings.Builder
		for _, f := range failed {
			fmt.Fprintf(&b, "Failed to delete '%s': %v\n", f.path, f.err)
		}
		if len(deleted) > 0 {
			b.WriteString("Successfully deleted the following file(s):\n")
			for _, p := range deleted {
				fmt.Fprintf(&b, "- %s\n", p)
			}
		}
		return b.String()
	}), nil
}

// --- summarize ---------------------------------------------------------------

type summarizeTool struct{}

func (t *summarizeTool) Spec() Spec {
	return Spec{
		Name:        "summarize",
		Description: "Replace a currently-loaded resource in working memory with a terse model-authored summary.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project": map[string]any{"type": "string"},
				"path":    map[string]any{"type": "string"},
				"summary": map[string]any{"type": "string"},
			},
			"required": []any{"project", "path", "summary"},
		},
		SupportedScopes: []Scope{ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *summarizeTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	if tc.Memory == nil {
		return fail("summarize requires an active session working memory", nil), nil
	}
	project := asString(input["project"])
	path := asString(input["path"])
	summary := asString(input["summary"])

	if !tc.Memory.Summarize(project, path, summary) {
		return fail(fmt.Sprintf("%s is not currently loaded", path), nil), nil
	}
	return plainResult(true, fmt.Sprintf("summarized %s", path)), nil
}
