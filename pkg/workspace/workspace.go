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

// Package workspace implements the Workspace Explorer (C1): the only
// component that touches the real filesystem. It enforces path
// sandboxing against a project root, detects and preserves file
// encoding/line-ending, and exposes the read/write/list/search/delete
// primitives every tool builds on.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/hollowmark/weave/pkg/workspace/internal/ignore"

	"github.com/hollowmark/weave/internal/fsext"
)

// defaultIgnored is the fixed ignore list from spec.md §4.1, applied in
// addition to .gitignore.
var defaultIgnored = map[string]bool{
	"target":        true,
	"node_modules":  true,
	"build":         true,
	"dist":          true,
	".git":          true,
	".idea":         true,
	".vscode":       true,
	".DS_Store":     true,
	"Thumbs.db":     true,
}

var defaultIgnoredSuffixes = []string{".pyc", ".pyo", ".class"}

// PolicyError reports a path that resolved outside the project root, or
// was rejected because it is gitignored. Never fatal: the turn loop
// surfaces it as a tool-result error so the model can self-correct.
type PolicyError struct {
	Path   string
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("access denied for %q: %s", e.Path, e.Reason)
}

// FileTreeEntry is the data-model tree node from spec.md §3.
type FileTreeEntry struct {
	Name       string
	IsDir      bool
	IsExpanded bool
	Children   map[string]*FileTreeEntry
}

// Explorer is the C1 Workspace Explorer for one project root.
type Explorer struct {
	root    string
	formats *fsext.FormatCache
	ignore  *gitignore.Matcher
}

// New constructs an Explorer rooted at root. root must already be an
// absolute, existing directory.
func New(root string) (*Explorer, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &Explorer{
		root:    resolved,
		formats: fsext.NewFormatCache(),
		ignore:  gitignore.Load(resolved),
	}, nil
}

// RootDir returns the project's canonical root.
func (e *Explorer) RootDir() string { return e.root }

// resolve applies the path discipline required by spec.md §4.1: resolve
// against root, canonicalize the longest existing prefix, and reject any
// result that escapes root.
func (e *Explorer) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) && runtimeIsWindowsDriveLetter(rel) {
		return "", &PolicyError{Path: rel, Reason: "absolute paths are not permitted"}
	}
	joined := filepath.Join(e.root, rel)

	resolved, err := canonicalizeExistingPrefix(joined)
	if err != nil {
		return "", err
	}

	if resolved != e.root && !strings.HasPrefix(resolved, e.root+string(filepath.Separator)) {
		return "", &PolicyError{Path: rel, Reason: "access outside project root"}
	}
	return resolved, nil
}

func runtimeIsWindowsDriveLetter(p string) bool {
	return len(p) >= 2 && p[1] == ':' && ((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}

// canonicalizeExistingPrefix resolves symlinks along the longest existing
// prefix of path and re-appends the (possibly nonexistent) tail, so that a
// not-yet-created file still resolves against its real parent directory.
func canonicalizeExistingPrefix(path string) (string, error) {
	cur := path
	var tail []string
	for {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			full := resolved
			for i := len(tail) - 1; i >= 0; i-- {
				full = filepath.Join(full, tail[i])
			}
			return full, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return filepath.Join(append([]string{parent}, reverse(tail)...)...), nil
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}

func reverse(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func (e *Explorer) checkNotIgnored(resolved string) error {
	rel, err := filepath.Rel(e.root, resolved)
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if defaultIgnored[part] {
			return &PolicyError{Path: rel, Reason: "path is in the default ignore list"}
		}
		for _, suf := range defaultIgnoredSuffixes {
			if strings.HasSuffix(part, suf) {
				return &PolicyError{Path: rel, Reason: "path matches an ignored suffix"}
			}
		}
	}
	if e.ignore.Match(rel) {
		return &PolicyError{Path: rel, Reason: "path is gitignored"}
	}
	return nil
}

// ReadFile returns the normalized (LF, trailing-whitespace-stripped)
// content of rel.
func (e *Explorer) ReadFile(rel string) (string, error) {
	resolved, err := e.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := e.checkNotIgnored(resolved); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	format, normalized := fsext.DetectFormat(raw)
	e.formats.Set(resolved, format)
	return normalized, nil
}

// ReadFileRange returns lines [startLine, endLine] (1-based, inclusive;
// either bound may be zero to mean "unbounded on that side").
func (e *Explorer) ReadFileRange(rel string, startLine, endLine int) (string, error) {
	content, err := e.ReadFile(rel)
	if err != nil {
		return "", err
	}
	if startLine == 0 && endLine == 0 {
		return content, nil
	}
	lines := strings.Split(content, "\n")
	start := startLine
	if start < 1 {
		start = 1
	}
	end := endLine
	if end < 1 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) {
		return "", nil
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

// ReadFileBytes returns the raw, unmodified bytes of rel, for binary
// formats (PDF, XLSX, images) that bypass the text normalization
// pipeline ReadFile applies. Sandboxing and the ignore list still apply.
func (e *Explorer) ReadFileBytes(rel string) ([]byte, error) {
	resolved, err := e.resolve(rel)
	if err != nil {
		return nil, err
	}
	if err := e.checkNotIgnored(resolved); err != nil {
		return nil, err
	}
	return os.ReadFile(resolved)
}

// WriteFile writes content (already LF-normalized) to rel, reapplying the
// file's cached encoding/line-ending or detecting a fresh default
// (UTF-8/LF) for a new file. When append is true, content is appended to
// the existing normalized text before restoring. Returns the final
// (normalized) text.
func (e *Explorer) WriteFile(rel, content string, append_ bool) (string, error) {
	resolved, err := e.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := e.checkNotIgnored(resolved); err != nil {
		return "", err
	}

	final := content
	format, hasFormat := e.formats.Get(resolved)
	if !hasFormat {
		if raw, err := os.ReadFile(resolved); err == nil {
			format, _ = fsext.DetectFormat(raw)
		} else {
			format = fsext.FileFormat{Encoding: fsext.EncodingUTF8, LineEnding: fsext.LineEndingLF}
		}
	}
	if append_ {
		if existing, err := os.ReadFile(resolved); err == nil {
			_, normalizedExisting := fsext.DetectFormat(existing)
			if normalizedExisting != "" {
				final = normalizedExisting + "\n" + content
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(resolved, fsext.Restore(format, final), 0o644); err != nil {
		return "", err
	}
	e.formats.Set(resolved, format)
	return final, nil
}

// DeleteFile removes rel from the filesystem and drops its cached format.
func (e *Explorer) DeleteFile(rel string) error {
	resolved, err := e.resolve(rel)
	if err != nil {
		return err
	}
	if err := e.checkNotIgnored(resolved); err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil {
		return err
	}
	e.formats.Forget(resolved)
	return nil
}

// CreateInitialTree walks from root honoring .gitignore and the fixed
// ignore list, to maxDepth.
func (e *Explorer) CreateInitialTree(maxDepth int) (*FileTreeEntry, error) {
	return e.ListFiles("", maxDepth)
}

// ListFiles walks rel to maxDepth (0 means unbounded), honoring ignores.
func (e *Explorer) ListFiles(rel string, maxDepth int) (*FileTreeEntry, error) {
	resolved, err := e.resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, err
	}
	return e.walk(resolved, info.Name(), 0, maxDepth)
}

func (e *Explorer) walk(path, name string, depth, maxDepth int) (*FileTreeEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return &FileTreeEntry{Name: name, IsDir: false}, nil
	}

	entry := &FileTreeEntry{Name: name, IsDir: true, IsExpanded: true, Children: map[string]*FileTreeEntry{}}
	if maxDepth > 0 && depth >= maxDepth {
		entry.IsExpanded = false
		return entry, nil
	}

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	for _, de := range dirEntries {
		childPath := filepath.Join(path, de.Name())
		if err := e.checkNotIgnored(childPath); err != nil {
			continue
		}
		child, err := e.walk(childPath, de.Name(), depth+1, maxDepth)
		if err != nil {
			continue
		}
		entry.Children[de.Name()] = child
	}
	return entry, nil
}

// SearchOptions configures Search.
type SearchOptions struct {
	Query         string
	WholeWords    bool
	Exact         bool
	CaseSensitive bool
	MaxResults    int
	Paths         []string // restrict to these relative paths/globs; empty means whole tree
}

// SearchResult is one context-merged section of a matched file.
type SearchResult struct {
	File         string
	StartLine    int // 0-based
	LineContent  []string
	MatchLines   []int
	MatchRanges  [][][2]int // per match-line, list of (colStart, colEnd)
}

// Search scans files under rel (whole project when rel=="") for opts.Query.
func (e *Explorer) Search(rel string, opts SearchOptions) ([]SearchResult, error) {
	pattern, err := buildPattern(opts)
	if err != nil {
		return nil, err
	}

	root, err := e.resolve(rel)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	max := opts.MaxResults
	if max <= 0 {
		max = 200
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if e.checkNotIgnored(path) != nil {
			return nil
		}
		if len(results) >= max {
			return filepath.SkipAll
		}
		if !matchesPaths(e.root, path, opts.Paths) {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		_, normalized := fsext.DetectFormat(raw)
		relPath, _ := filepath.Rel(e.root, path)
		res := searchFile(relPath, normalized, pattern)
		results = append(results, res...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(results) > max {
		results = results[:max]
	}
	return results, nil
}

func matchesPaths(root, path string, globs []string) bool {
	if len(globs) == 0 {
		return true
	}
	rel, _ := filepath.Rel(root, path)
	for _, g := range globs {
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
		if strings.HasPrefix(rel, g) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]*FileTreeEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
