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

package workspace

import (
	"regexp"
	"strings"
)

// buildPattern compiles opts.Query per spec.md §4.1: whole_words adds
// \b-anchors, exact escapes the query as a literal.
func buildPattern(opts SearchOptions) (*regexp.Regexp, error) {
	q := opts.Query
	if opts.Exact {
		q = regexp.QuoteMeta(q)
	}
	if opts.WholeWords {
		q = `\b` + q + `\b`
	}
	if !opts.CaseSensitive {
		q = "(?i)" + q
	}
	return regexp.Compile(q)
}

const contextLines = 2

// searchFile returns grouped, context-merged sections of relPath matching
// pattern, one SearchResult per merged section.
func searchFile(relPath, content string, pattern *regexp.Regexp) []SearchResult {
	lines := strings.Split(content, "\n")

	var matchedLines []int
	ranges := make(map[int][][2]int)
	for i, line := range lines {
		locs := pattern.FindAllStringIndex(line, -1)
		if len(locs) == 0 {
			continue
		}
		matchedLines = append(matchedLines, i)
		for _, loc := range locs {
			ranges[i] = append(ranges[i], [2]int{loc[0], loc[1]})
		}
	}
	if len(matchedLines) == 0 {
		return nil
	}

	// Merge matched lines (plus context) into contiguous sections.
	type section struct{ start, end int } // inclusive, 0-based
	var sections []section
	for _, ln := range matchedLines {
		start := ln - contextLines
		if start < 0 {
			start = 0
		}
		end := ln + contextLines
		if end >= len(lines) {
			end = len(lines) - 1
		}
		if len(sections) > 0 && start <= sections[len(sections)-1].end+1 {
			if end > sections[len(sections)-1].end {
				sections[len(sections)-1].end = end
			}
		} else {
			sections = append(sections, section{start, end})
		}
	}

	results := make([]SearchResult, 0, len(sections))
	for _, sec := range sections {
		res := SearchResult{
			File:        relPath,
			StartLine:   sec.start,
			LineContent: append([]string(nil), lines[sec.start:sec.end+1]...),
		}
		for _, ln := range matchedLines {
			if ln < sec.start || ln > sec.end {
				continue
			}
			res.MatchLines = append(res.MatchLines, ln-sec.start)
			res.MatchRanges = append(res.MatchRanges, ranges[ln])
		}
		results = append(results, res)
	}
	return results
}
