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

// weave is the command-line front-end for the autonomous coding agent:
// an interactive chat REPL driving the C8 turn loop directly (no server
// process), session management, and an embedded MCP server.
package main

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/hollowmark/weave/internal/version"
)

var (
	flagConfigDir string
	flagWorkspace string
	flagProvider  string
	flagModel     string
)

var rootCmd = &cobra.Command{
	Use:     "weave",
	Short:   "Weave - an autonomous coding agent",
	Version: version.Get(),
	Long: heredoc.Doc(`
		Weave drives a streaming tool-calling agent loop against a workspace:
		read and edit files, run commands, delegate sub-tasks, and persist
		every session so it can be resumed later.
	`),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "Configuration directory (defaults to the platform config dir)")
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", "", "Project path to operate on (defaults to the current directory)")
	rootCmd.PersistentFlags().StringVarP(&flagProvider, "provider", "p", "", "LLM provider: anthropic, bedrock, openai, ollama (defaults to config)")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "Model identifier (defaults to config)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the weave version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.Get())
		return nil
	},
}
