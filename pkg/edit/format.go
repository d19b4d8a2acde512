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

package edit

import "strings"

// ReconstructAfterFormat attempts to rebuild each Replacement's Replace
// value as it reads in the post-formatter text, anchored on the
// unmodified context around each original match; Search is carried over
// unchanged. Returns (nil, false) if
// any original block had conflicts, or if an anchor could not be located
// unambiguously in the formatted text -- the caller then keeps the
// pre-format parameters and the agent proceeds without reconstruction,
// per spec.md §4.2's documented silent-fallback behavior.
func ReconstructAfterFormat(beforeFormat string, replacements []Replacement, afterFormat string) ([]Replacement, bool) {
	if HasConflicts(beforeFormat, replacements) {
		return nil, false
	}

	out := make([]Replacement, len(replacements))
	for i, r := range replacements {
		idx := strings.Index(beforeFormat, r.Replace)
		if idx < 0 {
			return nil, false
		}
		const anchor = 24
		preStart := idx - anchor
		if preStart < 0 {
			preStart = 0
		}
		postEnd := idx + len(r.Replace) + anchor
		if postEnd > len(beforeFormat) {
			postEnd = len(beforeFormat)
		}
		pre := beforeFormat[preStart:idx]
		post := beforeFormat[idx+len(r.Replace) : postEnd]

		anchoredStart := strings.Index(afterFormat, pre)
		if anchoredStart < 0 || strings.Count(afterFormat, pre) != 1 {
			return nil, false
		}
		searchStart := anchoredStart + len(pre)
		postIdx := strings.Index(afterFormat[searchStart:], post)
		if postIdx < 0 {
			return nil, false
		}
		newReplace := afterFormat[searchStart : searchStart+postIdx]

		out[i] = Replacement{Search: r.Search, Replace: newReplace, ReplaceAll: r.ReplaceAll}
	}
	return out, true
}
