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

// Package diff renders line-level diffs between file versions, for the
// agent-with-diff-blocks UI surface and the ACP Diff content variant.
package diff

import (
	"fmt"
	"strings"

	dmp "github.com/sergi/go-diff/diffmatchpatch"
)

// DiffType tags one line of a Lines() result.
type DiffType int

const (
	DiffEqual DiffType = iota
	DiffInsert
	DiffDelete
)

// DiffLine is one line of a line-level diff.
type DiffLine struct {
	Type    DiffType
	Content string
}

var patcher = dmp.New()

// Lines computes a line-level diff between a and b.
func Lines(a, b string) []DiffLine {
	a1, b1, lineArray := patcher.DiffLinesToChars(a, b)
	diffs := patcher.DiffMain(a1, b1, false)
	diffs = patcher.DiffCharsToLines(diffs, lineArray)

	var out []DiffLine
	for _, d := range diffs {
		var t DiffType
		switch d.Type {
		case dmp.DiffInsert:
			t = DiffInsert
		case dmp.DiffDelete:
			t = DiffDelete
		default:
			t = DiffEqual
		}
		text := strings.TrimSuffix(d.Text, "\n")
		if text == "" {
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			out = append(out, DiffLine{Type: t, Content: line})
		}
	}
	return out
}

// Unified renders a unified-diff-style text between a and b: one line per
// changed or contextual source line, prefixed "+"/"-"/" ".
func Unified(a, b string) string {
	lines := Lines(a, b)
	var sb strings.Builder
	for _, l := range lines {
		switch l.Type {
		case DiffInsert:
			sb.WriteString("+" + l.Content + "\n")
		case DiffDelete:
			sb.WriteString("-" + l.Content + "\n")
		default:
			sb.WriteString(" " + l.Content + "\n")
		}
	}
	return sb.String()
}

// GenerateDiff renders a unified diff between old and new content along
// with each side's line count, for ACP Diff content and tool-result
// rendering.
func GenerateDiff(old, new, filename string) (string, int, int) {
	oldLines := countLines(old)
	newLines := countLines(new)
	if old == new {
		return "", oldLines, newLines
	}
	header := fmt.Sprintf("--- %s\n+++ %s\n", filename, filename)
	return header + Unified(old, new), oldLines, newLines
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
