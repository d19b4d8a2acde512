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

// Package ignore implements the small subset of .gitignore matching the
// Workspace Explorer needs: one pattern per line, '#' comments, a
// leading '/' anchoring a pattern to the root, and glob wildcards. A
// trailing '/' is stripped; such a pattern matches files as well as
// directories.
// It is deliberately not a full gitignore implementation; see DESIGN.md
// for why this is hand-rolled rather than imported.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Matcher evaluates relative paths against a loaded .gitignore.
type Matcher struct {
	patterns []pattern
}

type pattern struct {
	glob      string
	dirOnly   bool
	anchored  bool
}

// Load reads root/.gitignore, if present, and returns a Matcher. A missing
// file yields an empty (always-false) Matcher.
func Load(root string) *Matcher {
	m := &Matcher{}
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return m
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := pattern{glob: line}
		if strings.HasSuffix(p.glob, "/") {
			p.dirOnly = true
			p.glob = strings.TrimSuffix(p.glob, "/")
		}
		if strings.HasPrefix(p.glob, "/") {
			p.anchored = true
			p.glob = strings.TrimPrefix(p.glob, "/")
		}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// Match reports whether rel (slash-separated, relative to root) is
// ignored.
func (m *Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, p := range m.patterns {
		if p.anchored {
			if ok, _ := filepath.Match(p.glob, rel); ok {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(p.glob, base); ok {
			return true
		}
		if ok, _ := filepath.Match(p.glob, rel); ok {
			return true
		}
	}
	return false
}
