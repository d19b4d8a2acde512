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
	"context"
	"fmt"
	"text/tabwriter"

	"os"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List, inspect and delete persisted chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every persisted session",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a persisted session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	a, err := newApp(flagConfigDir, flagWorkspace, flagProvider, flagModel)
	if err != nil {
		return err
	}
	ctx := context.Background()
	metas, err := a.sessions.List(ctx)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMESSAGES\tUPDATED")
	for _, m := range metas {
		name := m.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", m.ID, name, m.MessageCount, m.UpdatedAt)
	}
	return w.Flush()
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(flagConfigDir, flagWorkspace, flagProvider, flagModel)
	if err != nil {
		return err
	}
	ctx := context.Background()
	sess, err := a.sessions.Get(ctx, args[0])
	if err != nil {
		return err
	}
	for _, m := range sess.Messages {
		fmt.Printf("--- %s ---\n%s\n\n", m.Role, m.Content().Text)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(flagConfigDir, flagWorkspace, flagProvider, flagModel)
	if err != nil {
		return err
	}
	if err := a.sessions.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted session %s\n", args[0])
	return nil
}
