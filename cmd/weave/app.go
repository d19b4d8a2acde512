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

package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hollowmark/weave/internal/config"
	"github.com/hollowmark/weave/internal/history"
	"github.com/hollowmark/weave/internal/log"
	"github.com/hollowmark/weave/internal/permission"
	"github.com/hollowmark/weave/internal/project"
	"github.com/hollowmark/weave/internal/session"
	"github.com/hollowmark/weave/pkg/compaction"
	"github.com/hollowmark/weave/pkg/eventbus"
	"github.com/hollowmark/weave/pkg/llmprovider/factory"
	"github.com/hollowmark/weave/pkg/store"
	"github.com/hollowmark/weave/pkg/subagent"
	"github.com/hollowmark/weave/pkg/tools"
	"github.com/hollowmark/weave/pkg/turn"
)

// app bundles every long-lived dependency cmd/weave's subcommands share,
// built once from configuration the way the teacher's internal/app wires
// a client into a bubbletea model.
type app struct {
	cfg        *config.Config
	projects   *project.Manager
	registry   *tools.Registry
	permission permission.Service
	history    history.Service
	store      *store.FileStore
	sessions   session.Service
	bus        *eventbus.Bus
	counter    *compaction.Counter
	archive    *compaction.ArchiveStore
	subagents  *subagent.Runner

	providerName string
	model        string
}

// newApp loads configuration and constructs every shared dependency.
// workspacePath, when non-empty, is registered as a temporary project
// named "default" so a bare "weave chat" works from inside any directory.
func newApp(configDir, workspacePath, providerFlag, modelFlag string) (*app, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	projects := project.NewManager(cfg)
	if workspacePath != "" {
		projects.AddTemporary("default", config.Project{Path: workspacePath})
	} else if len(cfg.Projects()) == 0 {
		if wd, err := os.Getwd(); err == nil {
			projects.AddTemporary("default", config.Project{Path: wd})
		}
	}

	dir, err := store.DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("resolving session directory: %w", err)
	}
	fileStore, err := store.NewFileStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening session store at %s: %w", dir, err)
	}

	archiveDir := dir + "-archive"
	archive, err := compaction.NewArchiveStore(archiveDir)
	if err != nil {
		return nil, fmt.Errorf("opening compaction archive at %s: %w", archiveDir, err)
	}

	providerName := providerFlag
	if providerName == "" {
		providerName = cfg.Provider()
	}
	model := modelFlag
	if model == "" {
		model = cfg.Model()
	}

	a := &app{
		cfg:          cfg,
		projects:     projects,
		registry:     tools.NewRegistry(),
		permission:   permission.NewService(),
		history:      history.NewInMemoryService(),
		store:        fileStore,
		sessions:     store.NewSessionService(fileStore),
		bus:          eventbus.New(),
		counter:      compaction.NewCounter(),
		archive:      archive,
		providerName: providerName,
		model:        model,
	}
	a.subagents = subagent.New(a.newSubAgentLoop, 4)
	return a, nil
}

// factoryConfig derives the llmprovider/factory.Config from environment and
// configuration, the way the teacher's pkg/llm/factory reads per-provider
// settings at construction time rather than baking them into each call.
func (a *app) factoryConfig() factory.Config {
	return factory.Config{
		DefaultProvider: a.providerName,
		DefaultModel:    a.model,
		TokensLimit:     compaction.DefaultTokensLimit,

		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: os.Getenv("ANTHROPIC_BASE_URL"),

		BedrockRegion:          os.Getenv("AWS_REGION"),
		BedrockAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		BedrockSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		BedrockSessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		BedrockProfile:         os.Getenv("AWS_PROFILE"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OllamaBaseURL: os.Getenv("OLLAMA_BASE_URL"),
	}
}

// newLoop builds a turn.Loop sharing this app's registry, projects,
// history, permission, store and compaction wiring, for the given
// providerName/model (falling back to the app defaults when empty).
func (a *app) newLoop(providerName, model string) (*turn.Loop, error) {
	if providerName == "" {
		providerName = a.providerName
	}
	if model == "" {
		model = a.model
	}
	provider, err := factory.New(a.factoryConfig(), providerName, model)
	if err != nil {
		return nil, fmt.Errorf("constructing %s provider: %w", providerName, err)
	}

	loop := turn.NewLoop(provider, a.registry, a.projects)
	loop.ProviderName = providerName
	loop.Model = model
	loop.History = a.history
	loop.Permission = a.permission
	loop.Bus = a.bus
	loop.Store = a.store
	loop.Counter = a.counter
	loop.Archive = a.archive
	loop.SubAgents = a.subagents
	return loop, nil
}

// newSubAgentLoop is the subagent.LoopFactory passed to subagent.New: a
// fresh Loop per spawn, sharing this app's provider/model defaults.
func (a *app) newSubAgentLoop(sessionID string) *turn.Loop {
	loop, err := a.newLoop("", "")
	if err != nil {
		log.Error("sub-agent: failed to construct loop", zap.Error(err))
		return nil
	}
	// Sub-agents never spawn further sub-agents (spec.md §4.8 bounds
	// nesting to one level).
	loop.SubAgents = nil
	return loop
}
