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

// Package config loads projects.json, provider credentials and sandbox
// policy from the platform config directory, and watches it for changes.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hollowmark/weave/internal/log"
)

// Project is a named workspace root with optional per-glob format commands.
type Project struct {
	Path           string            `json:"path"`
	FormatOnSave   map[string]string `json:"format_on_save,omitempty"` // glob -> command
	SandboxProfile string            `json:"sandbox_profile,omitempty"`
}

// ProjectsFile is the on-disk shape of ~/.config/weave/projects.json.
type ProjectsFile map[string]Project

// Config holds process-wide configuration: known projects, provider
// settings and sandbox defaults. Safe for concurrent reads; writers hold
// the full lock.
type Config struct {
	mu sync.RWMutex

	configDir string
	projects  ProjectsFile

	v *viper.Viper

	watcher *fsnotify.Watcher
	onChange []func()
}

var (
	global     *Config
	globalOnce sync.Once
)

// Get returns the process-global configuration, loading it on first use.
func Get() *Config {
	globalOnce.Do(func() {
		c, err := Load("")
		if err != nil {
			log.Warn("config: using defaults", zap.Error(err))
			c = &Config{projects: ProjectsFile{}}
		}
		global = c
	})
	return global
}

// Load reads configuration from configDir (or the platform default config
// dir when empty): config.yaml via viper, and projects.json for the project
// table described in spec.md §6.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		configDir = filepath.Join(dir, "weave")
	}

	c := &Config{
		configDir: configDir,
		projects:  ProjectsFile{},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("WEAVE")
	v.AutomaticEnv()
	v.SetDefault("provider", "anthropic")
	v.SetDefault("model", "claude-sonnet-4-20250514")
	v.SetDefault("tool_syntax", "native")
	v.SetDefault("sandbox.policy", "workspace_write")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	c.v = v

	if err := c.loadProjects(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) projectsPath() string {
	return filepath.Join(c.configDir, "projects.json")
}

func (c *Config) loadProjects() error {
	data, err := os.ReadFile(c.projectsPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var p ProjectsFile
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	c.mu.Lock()
	c.projects = p
	c.mu.Unlock()
	return nil
}

// SaveProjects atomically rewrites projects.json.
func (c *Config) SaveProjects() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.projects, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.configDir, 0o755); err != nil {
		return err
	}
	tmp := c.projectsPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.projectsPath())
}

// Projects returns a snapshot of the configured projects.
func (c *Config) Projects() ProjectsFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(ProjectsFile, len(c.projects))
	for k, v := range c.projects {
		out[k] = v
	}
	return out
}

// SetProject adds or replaces a project definition and persists it.
func (c *Config) SetProject(name string, p Project) error {
	c.mu.Lock()
	c.projects[name] = p
	c.mu.Unlock()
	return c.SaveProjects()
}

// Provider returns the configured default LLM provider name.
func (c *Config) Provider() string { return c.v.GetString("provider") }

// Model returns the configured default model identifier.
func (c *Config) Model() string { return c.v.GetString("model") }

// ToolSyntax returns the configured tool-call syntax ("native", "xml", "caret").
func (c *Config) ToolSyntax() string { return c.v.GetString("tool_syntax") }

// SandboxPolicyName returns the configured default sandbox policy name.
func (c *Config) SandboxPolicyName() string { return c.v.GetString("sandbox.policy") }

// Watch starts watching the config directory for changes and invokes fn on
// every write. Returns a stop function.
func (c *Config) Watch(fn func()) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(c.configDir); err != nil {
		_ = w.Close()
		return nil, err
	}
	c.mu.Lock()
	c.watcher = w
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					if filepath.Base(ev.Name) == "projects.json" {
						_ = c.loadProjects()
					}
					fn()
				}
			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher error", zap.Error(werr))
			}
		}
	}()

	return func() { _ = w.Close() }, nil
}
