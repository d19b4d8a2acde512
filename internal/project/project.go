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

// Package project adapts the configured project table (internal/config)
// into the pkg/tools.ProjectResolver contract the turn loop and the MCP
// server dispatch tools through: a cached Explorer and Executor per
// project name.
package project

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/hollowmark/weave/internal/config"
	"github.com/hollowmark/weave/pkg/exec"
	"github.com/hollowmark/weave/pkg/workspace"
)

// Manager resolves a configured project name to its live Explorer/Executor,
// constructing and caching them on first use. A temporary project (one
// created ad hoc for e.g. an MCP call against an arbitrary directory) can
// be registered with AddTemporary without touching projects.json.
type Manager struct {
	cfg *config.Config

	mu        sync.Mutex
	explorers map[string]*workspace.Explorer
	executors map[string]*exec.Executor
	temporary map[string]config.Project
}

// NewManager constructs a Manager backed by cfg.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg:       cfg,
		explorers: make(map[string]*workspace.Explorer),
		executors: make(map[string]*exec.Executor),
		temporary: make(map[string]config.Project),
	}
}

// AddTemporary registers a project definition that isn't persisted to
// projects.json, e.g. the MCP server's --workspace flag.
func (m *Manager) AddTemporary(name string, p config.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temporary[name] = p
	delete(m.explorers, name)
	delete(m.executors, name)
}

func (m *Manager) lookup(name string) (config.Project, bool) {
	m.mu.Lock()
	if p, ok := m.temporary[name]; ok {
		m.mu.Unlock()
		return p, true
	}
	m.mu.Unlock()
	p, ok := m.cfg.Projects()[name]
	return p, ok
}

// Projects returns every configured and temporary project name, sorted by
// the caller if order matters.
func (m *Manager) Projects() []string {
	seen := make(map[string]struct{})
	var out []string
	for name := range m.cfg.Projects() {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	m.mu.Lock()
	for name := range m.temporary {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	m.mu.Unlock()
	return out
}

// Explorer returns the cached Explorer for project, constructing it on
// first use.
func (m *Manager) Explorer(name string) (*workspace.Explorer, error) {
	m.mu.Lock()
	if e, ok := m.explorers[name]; ok {
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	p, ok := m.lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown project %q", name)
	}
	e, err := workspace.New(p.Path)
	if err != nil {
		return nil, fmt.Errorf("opening project %q: %w", name, err)
	}

	m.mu.Lock()
	m.explorers[name] = e
	m.mu.Unlock()
	return e, nil
}

// Executor returns the cached Executor for project, constructing it with
// the project's configured sandbox policy on first use.
func (m *Manager) Executor(name string) (*exec.Executor, error) {
	m.mu.Lock()
	if e, ok := m.executors[name]; ok {
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	p, ok := m.lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown project %q", name)
	}
	policy := sandboxPolicyFromName(p.SandboxProfile, m.cfg.SandboxPolicyName())
	e := exec.New(p.Path, policy, nil, false)

	m.mu.Lock()
	m.executors[name] = e
	m.mu.Unlock()
	return e, nil
}

// FormatCommand returns the configured formatter command for path within
// project, matching the project's glob table, or "" if none applies.
func (m *Manager) FormatCommand(name, relPath string) string {
	p, ok := m.lookup(name)
	if !ok {
		return ""
	}
	for glob, cmd := range p.FormatOnSave {
		if matched, _ := filepath.Match(glob, relPath); matched {
			return cmd
		}
	}
	return ""
}

func sandboxPolicyFromName(projectOverride, def string) exec.SandboxPolicy {
	name := projectOverride
	if name == "" {
		name = def
	}
	switch name {
	case "none":
		return exec.SandboxNone
	case "read_only":
		return exec.SandboxReadOnly
	case "danger_full_access":
		return exec.SandboxDangerFullAccess
	default:
		return exec.SandboxWorkspaceWrite
	}
}
