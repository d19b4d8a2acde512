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
	"strconv"
	"strings"
)

// PathWithLineRange is the parsed form of a read_files path argument,
// e.g. "file:10-20", "file:10-", "file:-20", "file:15".
type PathWithLineRange struct {
	Path      string
	StartLine int // 0 means unbounded
	EndLine   int // 0 means unbounded
}

// ParsePathWithLineRange parses spec.md §4.4's path:range grammar. A
// Windows drive-letter colon at index 1 ("C:\\...") is never treated as a
// range separator.
func ParsePathWithLineRange(s string) PathWithLineRange {
	idx := strings.LastIndex(s, ":")
	if idx < 0 || idx == 1 {
		return PathWithLineRange{Path: s}
	}

	path := s[:idx]
	rangePart := s[idx+1:]
	if rangePart == "" {
		return PathWithLineRange{Path: s}
	}

	if !strings.Contains(rangePart, "-") {
		n, err := strconv.Atoi(rangePart)
		if err != nil {
			return PathWithLineRange{Path: s}
		}
		return PathWithLineRange{Path: path, StartLine: n, EndLine: n}
	}

	parts := strings.SplitN(rangePart, "-", 2)
	start, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	end := 0
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		end, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	if start == 0 && end == 0 && parts[0] == "" && (len(parts) < 2 || parts[1] == "") {
		return PathWithLineRange{Path: s}
	}
	return PathWithLineRange{Path: path, StartLine: start, EndLine: end}
}
