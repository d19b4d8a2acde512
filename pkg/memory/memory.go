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

// Package memory implements the per-session working memory (C6): the
// in-memory map of loaded resources, summaries, file trees and plan state
// that every tool handler mutates and every LLM request is built from.
package memory

import (
	"sort"
	"sync"

	"github.com/hollowmark/weave/internal/ordered"
	"github.com/hollowmark/weave/internal/session"
)

// ResourceKind tags the variant of a loaded resource.
type ResourceKind int

const (
	ResourceFile ResourceKind = iota
	ResourceWebSearch
	ResourceWebPage
)

// Resource is one entry of loadedResources: a file's text, or the
// materialized result of a web_search/web_fetch call.
type Resource struct {
	Kind    ResourceKind
	Content string // File text, or rendered search/page result
	Query   string // WebSearch only
}

// FileTreeEntry is a partially-materialized directory tree node. An
// unexpanded directory has IsExpanded=false and no Children; it renders
// with a "[...]" marker until list_files expands it.
type FileTreeEntry struct {
	Name        string
	IsDir       bool
	IsExpanded  bool
	Children    map[string]*FileTreeEntry
}

type resourceKey struct {
	project string
	path    string
}

// Memory is the live, mutation-guarded working memory for one session. It
// is owned by the turn loop for the duration of one turn: no tool runs
// concurrently with another against the same Memory.
type Memory struct {
	mu sync.Mutex

	// loaded/summaries use an insertion-ordered map rather than a plain
	// Go map so that the order resources were loaded into the prompt is
	// stable across turns -- important for provider-side prompt caching,
	// which keys on a stable prefix of the request.
	loaded    *ordered.Map[resourceKey, Resource]
	summaries *ordered.Map[resourceKey, string]

	fileTrees           map[string]*FileTreeEntry // project -> root
	expandedDirectories map[string][]string       // project -> ordered relative paths listed

	availableProjects map[string]struct{}

	plan      string
	planItems []session.PlanItem
}

// New constructs an empty working memory.
func New() *Memory {
	return &Memory{
		loaded:              ordered.New[resourceKey, Resource](),
		summaries:           ordered.New[resourceKey, string](),
		fileTrees:           make(map[string]*FileTreeEntry),
		expandedDirectories: make(map[string][]string),
		availableProjects:   make(map[string]struct{}),
	}
}

// RegisterProject adds project to the set of projects ever referenced.
func (m *Memory) RegisterProject(project string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availableProjects[project] = struct{}{}
}

// AvailableProjects returns every project ever referenced, sorted.
func (m *Memory) AvailableProjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.availableProjects))
	for p := range m.availableProjects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// LoadResource records content as a loaded resource for (project, path),
// atomically removing any existing summary for the same key. This is the
// only mutation path for read_files, write_file, and edit.
func (m *Memory) LoadResource(project, path string, r Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := resourceKey{project, path}
	m.summaries.Delete(k)
	m.loaded.Set(k, r)
	m.availableProjects[project] = struct{}{}
}

// Summarize moves a loaded resource to its summary form. Returns false if
// the resource was not currently loaded (summarize is a no-op error case
// in that situation; the caller surfaces it as a ToolExecutionError).
func (m *Memory) Summarize(project, path, summary string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := resourceKey{project, path}
	if _, ok := m.loaded.Get(k); !ok {
		return false
	}
	m.loaded.Delete(k)
	m.summaries.Set(k, summary)
	return true
}

// Forget removes (project, path) from both loaded resources and
// summaries, e.g. after delete_files.
func (m *Memory) Forget(project, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := resourceKey{project, path}
	m.loaded.Delete(k)
	m.summaries.Delete(k)
}

// IsLoaded reports whether (project, path) is currently in loadedResources.
func (m *Memory) IsLoaded(project, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loaded.Get(resourceKey{project, path})
	return ok
}

// Exclusive reports whether every key present is in at most one of
// loadedResources/summaries -- the invariant required by spec.md §4.6.
// Exposed for tests; always true by construction of the mutators above.
func (m *Memory) Exclusive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	exclusive := true
	m.loaded.Range(func(k resourceKey, _ Resource) bool {
		if _, ok := m.summaries.Get(k); ok {
			exclusive = false
			return false
		}
		return true
	})
	return exclusive
}

// RecordExpansion merges newly-listed relative paths into a project's
// expanded-directories list, preserving first-seen order and
// deduplicating.
func (m *Memory) RecordExpansion(project string, paths []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool, len(m.expandedDirectories[project]))
	for _, p := range m.expandedDirectories[project] {
		seen[p] = true
	}
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			m.expandedDirectories[project] = append(m.expandedDirectories[project], p)
		}
	}
	m.availableProjects[project] = struct{}{}
}

// MergeFileTree merges a freshly-walked subtree into the project's file
// tree, expanding previously-unexpanded nodes along the path.
func (m *Memory) MergeFileTree(project string, root *FileTreeEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.fileTrees[project]
	if !ok {
		m.fileTrees[project] = root
		return
	}
	mergeTree(existing, root)
}

func mergeTree(dst, src *FileTreeEntry) {
	dst.IsExpanded = dst.IsExpanded || src.IsExpanded
	if src.Children == nil {
		return
	}
	if dst.Children == nil {
		dst.Children = make(map[string]*FileTreeEntry, len(src.Children))
	}
	for name, child := range src.Children {
		if existing, ok := dst.Children[name]; ok {
			mergeTree(existing, child)
		} else {
			dst.Children[name] = child
		}
	}
}

// FileTree returns the file tree materialized so far for project, or nil.
func (m *Memory) FileTree(project string) *FileTreeEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fileTrees[project]
}

// SetPlan replaces the plan markdown and parsed plan items (update_plan).
func (m *Memory) SetPlan(markdown string, items []session.PlanItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plan = markdown
	m.planItems = items
}

// Plan returns the current plan markdown and items.
func (m *Memory) Plan() (string, []session.PlanItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plan, append([]session.PlanItem(nil), m.planItems...)
}

// Snapshot renders the live memory into its persisted form.
func (m *Memory) Snapshot() session.WorkingMemorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := make(map[string]string, m.loaded.Len())
	m.loaded.Range(func(k resourceKey, v Resource) bool {
		loaded[snapKey(k)] = v.Content
		return true
	})
	summaries := make(map[string]string, m.summaries.Len())
	m.summaries.Range(func(k resourceKey, v string) bool {
		summaries[snapKey(k)] = v
		return true
	})
	expanded := make(map[string][]string, len(m.expandedDirectories))
	for k, v := range m.expandedDirectories {
		expanded[k] = append([]string(nil), v...)
	}
	projects := make([]string, 0, len(m.availableProjects))
	for p := range m.availableProjects {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	return session.WorkingMemorySnapshot{
		LoadedResources:     loaded,
		Summaries:           summaries,
		ExpandedDirectories: expanded,
		AvailableProjects:   projects,
		Plan:                m.plan,
		PlanItems:           append([]session.PlanItem(nil), m.planItems...),
	}
}

// Restore rebuilds a live Memory from a persisted snapshot (session load).
func Restore(snap session.WorkingMemorySnapshot) *Memory {
	m := New()
	for k, v := range snap.LoadedResources {
		proj, path := splitKey(k)
		m.loaded.Set(resourceKey{proj, path}, Resource{Kind: ResourceFile, Content: v})
		m.availableProjects[proj] = struct{}{}
	}
	for k, v := range snap.Summaries {
		proj, path := splitKey(k)
		m.summaries.Set(resourceKey{proj, path}, v)
		m.availableProjects[proj] = struct{}{}
	}
	for proj, paths := range snap.ExpandedDirectories {
		m.expandedDirectories[proj] = append([]string(nil), paths...)
		m.availableProjects[proj] = struct{}{}
	}
	for _, p := range snap.AvailableProjects {
		m.availableProjects[p] = struct{}{}
	}
	m.plan = snap.Plan
	m.planItems = append([]session.PlanItem(nil), snap.PlanItems...)
	return m
}

// LoadedOrder returns the "project\x00path" keys of loadedResources in the
// order they were loaded, for prompt builders that want a stable (and
// provider-cache-friendly) ordering rather than the lexicographic one a
// plain map forces them to reinvent.
func (m *Memory) LoadedOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, m.loaded.Len())
	for _, k := range m.loaded.Keys() {
		out = append(out, snapKey(k))
	}
	return out
}

// SummaryOrder is LoadedOrder's counterpart for summarized resources.
func (m *Memory) SummaryOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, m.summaries.Len())
	for _, k := range m.summaries.Keys() {
		out = append(out, snapKey(k))
	}
	return out
}

func snapKey(k resourceKey) string { return k.project + "\x00" + k.path }

func splitKey(s string) (project, path string) {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}
