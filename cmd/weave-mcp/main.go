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

// weave-mcp is a standalone MCP (Model Context Protocol) server exposing
// the same tool registry as "weave chat" over stdio, for editors and
// other MCP clients that want direct tool access without a chat session.
//
// Usage:
//
//	weave-mcp --workspace /path/to/project
//
// Claude Desktop configuration (claude_desktop_config.json):
//
//	{
//	  "mcpServers": {
//	    "weave": {
//	      "command": "/path/to/weave-mcp",
//	      "args": ["--workspace", "/path/to/project"]
//	    }
//	  }
//	}
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hollowmark/weave/internal/config"
	"github.com/hollowmark/weave/internal/project"
	"github.com/hollowmark/weave/internal/version"
	"github.com/hollowmark/weave/pkg/mcpserver"
	"github.com/hollowmark/weave/pkg/tools"
)

func main() {
	workspace := flag.String("workspace", "", "Path to the project to serve tools against (defaults to the current directory)")
	configDir := flag.String("config-dir", "", "Configuration directory (defaults to the platform config dir)")
	logFile := flag.String("log-file", "", "Log file path (defaults to stderr)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	// CRITICAL: the logger must never write to stdout, since stdout is the
	// MCP stdio transport.
	logger := setupLogger(*logFile, *logLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting weave-mcp server", zap.String("version", version.Get()))

	cfg, err := config.Load(*configDir)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	projects := project.NewManager(cfg)
	wsPath := *workspace
	if wsPath == "" {
		if wd, err := os.Getwd(); err == nil {
			wsPath = wd
		}
	}
	if wsPath != "" {
		projects.AddTemporary("workspace", config.Project{Path: wsPath})
	}

	registry := tools.NewRegistry()
	srv := mcpserver.New(registry, projects, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("MCP server ready, awaiting client requests on stdio")
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		if ctx.Err() != nil {
			logger.Info("server stopped gracefully")
			return
		}
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

// setupLogger creates a zap logger writing to logFile, or stderr if unset.
func setupLogger(logFile, logLevel string) *zap.Logger {
	logger, err := buildLogger(logFile, logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func buildLogger(logFile, logLevel string) (*zap.Logger, error) {
	level := parseLogLevel(logLevel)

	var output zapcore.WriteSyncer
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", logFile, err)
		}
		output = zapcore.AddSync(f)
	} else {
		output = zapcore.AddSync(os.Stderr)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), output, level)
	return zap.New(core), nil
}

func parseLogLevel(logLevel string) zapcore.Level {
	switch logLevel {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
