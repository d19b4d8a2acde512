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
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hollowmark/weave/internal/log"
	"github.com/hollowmark/weave/internal/message"
	"github.com/hollowmark/weave/internal/session"
	"github.com/hollowmark/weave/pkg/eventbus"
	"github.com/hollowmark/weave/pkg/memory"
	"github.com/hollowmark/weave/pkg/stream"
	"github.com/hollowmark/weave/pkg/turn"
)

var flagResumeSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session with the agent",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&flagResumeSession, "session", "", "Resume an existing session by ID (defaults to starting a new one)")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(flagConfigDir, flagWorkspace, flagProvider, flagModel)
	if err != nil {
		return err
	}

	ctx := context.Background()
	sess, err := loadOrCreateSession(ctx, a, flagResumeSession)
	if err != nil {
		return err
	}
	mem := memory.Restore(sess.WorkingMemory)
	for _, p := range a.projects.Projects() {
		mem.RegisterProject(p)
	}

	loop, err := a.newLoop(sess.LLMConfig.Provider, sess.LLMConfig.Model)
	if err != nil {
		return err
	}
	if sess.LLMConfig.Provider == "" {
		sess.LLMConfig.Provider = a.providerName
	}
	if sess.LLMConfig.Model == "" {
		sess.LLMConfig.Model = a.model
	}

	unsubscribe := startRenderer(a.bus)
	defer unsubscribe()

	fmt.Printf("weave chat - session %s (provider=%s model=%s)\n", sess.ID, sess.LLMConfig.Provider, sess.LLMConfig.Model)
	fmt.Println(`Type your request and press Enter. Ctrl-C cancels the current turn; Ctrl-C again, or /exit, quits.`)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pending []message.ContentPart
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/exit" || line == "/quit" {
			break
		}
		if rest, ok := strings.CutPrefix(line, "/attach "); ok {
			part, err := attachImage(strings.TrimSpace(rest))
			if err != nil {
				fmt.Fprintf(os.Stderr, "attach failed: %v\n", err)
				continue
			}
			pending = append(pending, part)
			fmt.Printf("attached %s (sent with your next message)\n", rest)
			continue
		}

		if err := runTurn(ctx, loop, &sess, mem, line, pending...); err != nil {
			fmt.Fprintf(os.Stderr, "\nturn ended with error: %v\n", err)
		}
		pending = nil
	}
	return scanner.Err()
}

// attachImage reads an image file from the local filesystem (outside
// project sandboxing, matching a user dragging a file into the chat) and
// resolves it into an inline Image content part.
func attachImage(path string) (message.ContentPart, error) {
	if !message.IsImageAttachment(path) {
		return nil, fmt.Errorf("unsupported attachment type: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := message.ResolveAttachment(message.Attachment{
		Type: "image",
		Name: path,
		Path: path,
		Data: data,
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// runTurn executes one turn, arranging for SIGINT to cancel it rather
// than kill the process, matching the teacher's one-turn-at-a-time
// cancellation model (spec.md §5 permits at most one running turn per
// session).
func runTurn(ctx context.Context, loop *turn.Loop, sess *session.ChatSession, mem *memory.Memory, text string, attachments ...message.ContentPart) error {
	cancel := &turn.CancelFlag{}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			cancel.Cancel()
		case <-done:
		}
	}()
	defer close(done)

	err := loop.Run(ctx, sess, mem, text, cancel, attachments...)
	sess.WorkingMemory = mem.Snapshot()
	return err
}

// startRenderer subscribes to bus and prints streamed fragments to
// stdout, returning an unsubscribe function.
func startRenderer(bus *eventbus.Bus) func() {
	ch, unsubscribe := bus.Subscribe(64)
	go func() {
		for ev := range ch {
			renderEvent(ev)
		}
	}()
	return unsubscribe
}

func renderEvent(ev eventbus.Event) {
	switch {
	case ev.Fragment != nil:
		renderFragment(ev.Fragment)
	case ev.ToolStatus != nil:
		// Tool name/args were already echoed via FragToolName/FragToolParameter;
		// only note terminal failures here.
		if ev.ToolStatus.Status == eventbus.ToolError {
			fmt.Printf("\n[tool %s failed]\n", ev.ToolStatus.ToolID)
		}
	case ev.RateLimit != nil:
		if ev.RateLimit.RetryAfterSeconds > 0 {
			fmt.Printf("\n[rate limited, retrying in %ds]\n", ev.RateLimit.RetryAfterSeconds)
		}
	case ev.PlanUpdate != nil:
		fmt.Printf("\n--- plan ---\n%s\n------------\n", ev.PlanUpdate.Markdown)
	case ev.Compaction != nil:
		fmt.Printf("\n[compacted %d messages]\n", ev.Compaction.MessagesArchived)
	case ev.Error != nil:
		fmt.Printf("\n[error] %s\n", ev.Error.Message)
	}
}

func renderFragment(f *stream.Fragment) {
	switch f.Kind {
	case stream.FragPlainText:
		fmt.Print(f.Text)
	case stream.FragThinkingText:
		// Thinking text is deliberately not echoed to the console front-end.
	case stream.FragToolName:
		fmt.Printf("\n[tool: %s]\n", f.ToolName)
	case stream.FragToolParameter:
		fmt.Printf("  %s: %s\n", f.ParamName, f.ParamValue)
	case stream.FragToolOutput:
		fmt.Print(f.Chunk)
	case stream.FragToolEnd:
		fmt.Println()
	case stream.FragCompactionDivider:
		fmt.Println("\n--- context compacted ---")
	}
}

func loadOrCreateSession(ctx context.Context, a *app, id string) (session.ChatSession, error) {
	if id != "" {
		sess, err := a.sessions.Get(ctx, id)
		if err != nil {
			return session.ChatSession{}, fmt.Errorf("resuming session %s: %w", id, err)
		}
		return sess, nil
	}
	sess, err := a.sessions.Create(ctx, "")
	if err != nil {
		log.Error("chat: failed to create session", zap.Error(err))
	}
	return sess, err
}
