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

// Package edit implements the File Updater (C2): an exact-string
// search/replace engine with single-match and replace-all semantics,
// overlap/adjacency detection, and a find-then-apply two-phase algorithm
// so errors are reported before any byte is changed.
package edit

import (
	"fmt"
	"sort"
	"strings"
)

// Replacement mirrors spec.md's FileReplacement data-model entry.
type Replacement struct {
	Search     string
	Replace    string
	ReplaceAll bool
}

// SearchBlockNotFoundError reports that a replacement's Search text does
// not occur in the (normalized) original.
type SearchBlockNotFoundError struct {
	BlockIndex    int
	SearchedText  string
}

func (e *SearchBlockNotFoundError) Error() string {
	return fmt.Sprintf("search text not found (block %d): %q", e.BlockIndex, e.SearchedText)
}

// MultipleMatchesError reports that a non-replace_all block matched more
// than once.
type MultipleMatchesError struct {
	Count        int
	BlockIndex   int
	SearchedText string
}

func (e *MultipleMatchesError) Error() string {
	return fmt.Sprintf("found %d matches for block %d (expected exactly 1 unless replace_all): %q. Try enlarging the search text so it matches a unique location.", e.Count, e.BlockIndex, e.SearchedText)
}

// OverlappingMatchesError reports two replacement blocks whose matched
// spans overlap.
type OverlappingMatchesError struct {
	BlockA, BlockB int
}

func (e *OverlappingMatchesError) Error() string {
	return fmt.Sprintf("replacement blocks %d and %d match overlapping regions", e.BlockA, e.BlockB)
}

// AdjacentMatchesError reports two replacement blocks whose matched spans
// touch with no character between them.
type AdjacentMatchesError struct {
	BlockA, BlockB int
}

func (e *AdjacentMatchesError) Error() string {
	return fmt.Sprintf("replacement blocks %d and %d match adjacent regions; merge them into one block to avoid ordering ambiguity", e.BlockA, e.BlockB)
}

// OtherError wraps any error not covered by the named taxonomy.
type OtherError struct{ Message string }

func (e *OtherError) Error() string { return e.Message }

type span struct {
	start, end int // byte offsets into normalized original, end exclusive
	block      int
}

// Apply runs the two-phase algorithm over original (already
// LF-normalized) and replacements, in declaration order. It returns the
// updated text, or a typed error from the taxonomy above. An empty
// replacements list is the identity.
func Apply(original string, replacements []Replacement) (string, error) {
	if len(replacements) == 0 {
		return original, nil
	}

	spans, err := findSpans(original, replacements)
	if err != nil {
		return "", err
	}

	return applySpans(original, replacements, spans), nil
}

func findSpans(original string, replacements []Replacement) ([]span, error) {
	var spans []span
	for i, r := range replacements {
		if r.Search == "" {
			return nil, &OtherError{Message: fmt.Sprintf("block %d: search text must not be empty", i)}
		}
		occurrences := findAll(original, r.Search)
		if len(occurrences) == 0 {
			return nil, &SearchBlockNotFoundError{BlockIndex: i, SearchedText: r.Search}
		}
		if !r.ReplaceAll && len(occurrences) > 1 {
			return nil, &MultipleMatchesError{Count: len(occurrences), BlockIndex: i, SearchedText: r.Search}
		}
		for _, start := range occurrences {
			spans = append(spans, span{start: start, end: start + len(r.Search), block: i})
		}
	}

	sort.Slice(spans, func(a, b int) bool { return spans[a].start < spans[b].start })

	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if cur.start < prev.end {
			return nil, &OverlappingMatchesError{BlockA: prev.block, BlockB: cur.block}
		}
		if cur.start == prev.end {
			return nil, &AdjacentMatchesError{BlockA: prev.block, BlockB: cur.block}
		}
	}

	return spans, nil
}

func findAll(s, sub string) []int {
	var out []int
	offset := 0
	for {
		idx := strings.Index(s[offset:], sub)
		if idx < 0 {
			return out
		}
		out = append(out, offset+idx)
		offset += idx + len(sub)
	}
}

func applySpans(original string, replacements []Replacement, spans []span) string {
	var b strings.Builder
	cursor := 0
	for _, sp := range spans {
		b.WriteString(original[cursor:sp.start])
		b.WriteString(replacements[sp.block].Replace)
		cursor = sp.end
	}
	b.WriteString(original[cursor:])
	return b.String()
}

// HasConflicts reports whether applying replacements against original
// would hit an overlap/adjacency error, without returning the specific
// error. Used by the format-reconstruction path in format.go, which must
// skip reconstruction whenever any block had conflicts.
func HasConflicts(original string, replacements []Replacement) bool {
	_, err := findSpans(original, replacements)
	if err == nil {
		return false
	}
	switch err.(type) {
	case *OverlappingMatchesError, *AdjacentMatchesError:
		return true
	default:
		return false
	}
}
