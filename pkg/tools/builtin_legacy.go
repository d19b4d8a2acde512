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
	"strings"

	"github.com/hollowmark/weave/pkg/edit"
	"github.com/hollowmark/weave/pkg/memory"
)

// --- replace_in_file ---------------------------------------------------

// replaceInFileTool supports the legacy SEARCH/REPLACE diff block syntax
// some older models still emit instead of edit's old_text/new_text pair:
//
//	<<<<<<< SEARCH
//	old content
//	=======
//	new content
//	>>>>>>> REPLACE
//
// SEARCH_ALL/REPLACE_ALL markers request a replace-all block. A stray
// separator line with no matching opening/closing marker is discarded
// rather than treated as literal content, per the legacy format's
// tolerance for malformed output.
type replaceInFileTool struct{}

func (t *replaceInFileTool) Spec() Spec {
	return Spec{
		Name:        "replace_in_file",
		Description: "Apply one or more legacy SEARCH/REPLACE diff blocks to a file.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project": map[string]any{"type": "string"},
				"path":    map[string]any{"type": "string"},
				"diff":    map[string]any{"type": "string"},
			},
			"required": []any{"project", "path", "diff"},
		},
		Annotations:     Annotations{Mutating: true},
		SupportedScopes: []Scope{ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *replaceInFileTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	project := asString(input["project"])
	path := asString(input["path"])
	diff := asString(input["diff"])

	replacements, err := parseLegacyDiffBlocks(diff)
	if err != nil {
		return fail(err.Error(), nil), nil
	}
	if len(replacements) == 0 {
		return fail("no SEARCH/REPLACE blocks found in diff", nil), nil
	}

	explorer, err := tc.Projects.Explorer(project)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	original, err := explorer.ReadFile(path)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	updated, err := edit.Apply(original, replacements)
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
	return plainResult(true, fmt.Sprintf("applied %d block(s) to %s", len(replacements), path)), nil
}

const (
	markerSearchStart    = "<<<<<<< SEARCH"
	markerSearchAllStart = "<<<<<<< SEARCH_ALL"
	markerSeparator      = "======="
	markerReplaceEnd     = ">>>>>>> REPLACE"
	markerReplaceAllEnd  = ">>>>>>> REPLACE_ALL"
)

// parseLegacyDiffBlocks scans diff line by line, discarding any separator
// line ("=======" or a REPLACE/REPLACE_ALL close) encountered outside an
// open block instead of erroring, since models occasionally emit stray
// markers around otherwise well-formed blocks. The lookahead that drops a
// stray "=======" immediately before the end marker is ported from
// parse_search_replace_blocks in original_source's tools/parse.rs.
func parseLegacyDiffBlocks(diff string) ([]edit.Replacement, error) {
	lines := strings.Split(diff, "\n")

	var out []edit.Replacement
	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], "\r")
		trimmed := strings.TrimSpace(line)

		replaceAll := false
		switch trimmed {
		case markerSearchStart:
			replaceAll = false
		case markerSearchAllStart:
			replaceAll = true
		default:
			i++
			continue // stray line outside any block; discard
		}
		i++

		var search, replace []string
		for i < len(lines) && strings.TrimSpace(strings.TrimRight(lines[i], "\r")) != markerSeparator {
			search = append(search, lines[i])
			i++
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("unterminated SEARCH block: missing %q", markerSeparator)
		}
		i++ // skip separator

		endMarker := markerReplaceEnd
		if replaceAll {
			endMarker = markerReplaceAllEnd
		}
		for i < len(lines) {
			current := strings.TrimSpace(strings.TrimRight(lines[i], "\r"))
			if current == endMarker {
				break
			}
			// A stray separator right before the end marker is a common
			// model mistake; skip it instead of treating it as replace
			// content.
			if current == markerSeparator && i+1 < len(lines) {
				next := strings.TrimSpace(strings.TrimRight(lines[i+1], "\r"))
				if next == endMarker {
					i++
					continue
				}
			}
			replace = append(replace, lines[i])
			i++
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("unterminated REPLACE block: missing %q", endMarker)
		}
		i++ // skip end marker

		out = append(out, edit.Replacement{
			Search:     strings.Join(search, "\n"),
			Replace:    strings.Join(replace, "\n"),
			ReplaceAll: replaceAll,
		})
	}
	return out, nil
}
