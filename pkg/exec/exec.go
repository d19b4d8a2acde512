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

// Package exec implements the Command Executor (C3): it launches
// subprocesses through the platform shell, optionally wrapped in an
// OS-level sandbox policy, and can stream output line-by-line as it is
// produced.
package exec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hollowmark/weave/internal/log"
)

// SandboxPolicy is the baseline restriction applied to every command
// executed against a project, before any per-call SandboxCommandRequest
// override is merged in.
type SandboxPolicy int

const (
	SandboxNone SandboxPolicy = iota
	SandboxReadOnly
	SandboxWorkspaceWrite
	SandboxDangerFullAccess
)

// SandboxRequest is a per-call relaxation of the project's SandboxPolicy.
type SandboxRequest struct {
	BypassSandbox bool
	ReadOnly      bool
	WritableRoots []string
}

// Result is the outcome of one command execution.
type Result struct {
	Success        bool
	CombinedOutput string
	ExitCode       int
}

// ContainerSandbox is the alternate sandbox backend pkg/exec/dockersandbox
// implements: an ephemeral-container enforcement path, used in place of
// macOS Seatbelt on platforms where a container runtime is available
// (primarily Linux, where there is no OS-native equivalent of Seatbelt).
// Declared here rather than in dockersandbox so Executor never imports
// the docker client; wiring is left to callers that opt in.
type ContainerSandbox interface {
	Run(ctx context.Context, shell string, args []string, cwd string, policy SandboxPolicy, writableRoots []string, fullNetwork bool) (Result, error)
}

// Executor runs shell commands for one project.
type Executor struct {
	ProjectRoot   string
	Policy        SandboxPolicy
	WritableRoots []string
	FullNetwork   bool

	// DockerSandbox, when set, enforces SandboxPolicy via an ephemeral
	// container instead of the platform-native launcher. Consulted only
	// on platforms where wrapSandbox itself has no native backend
	// (everything except darwin); a set DockerSandbox always wins over
	// falling through to "run unrestricted" on those platforms.
	DockerSandbox ContainerSandbox
}

// New constructs an Executor for projectRoot under policy.
func New(projectRoot string, policy SandboxPolicy, writableRoots []string, fullNetwork bool) *Executor {
	return &Executor{ProjectRoot: projectRoot, Policy: policy, WritableRoots: writableRoots, FullNetwork: fullNetwork}
}

// Execute blocks until cmdLine exits.
func (e *Executor) Execute(ctx context.Context, cmdLine, cwd string, req *SandboxRequest) (Result, error) {
	return e.run(ctx, cmdLine, cwd, req, nil)
}

// ExecuteStreaming behaves like Execute but invokes callback once per
// output line, as soon as it is available, from either stdout or stderr.
func (e *Executor) ExecuteStreaming(ctx context.Context, cmdLine, cwd string, callback func(line string), req *SandboxRequest) (Result, error) {
	return e.run(ctx, cmdLine, cwd, req, callback)
}

func (e *Executor) run(ctx context.Context, cmdLine, cwd string, req *SandboxRequest, callback func(string)) (Result, error) {
	shell, args := shellInvocation(cmdLine)

	effective := e.effectivePolicy(req)
	fullNetwork := e.FullNetwork && !effectivePolicyReadOnly(effective)

	wrapped, wrapErr := wrapSandbox(ctx, shell, args, effective, e.effectiveWritableRoots(req), fullNetwork)
	if wrapErr != nil {
		if effective != SandboxNone && effective != SandboxDangerFullAccess && e.DockerSandbox != nil {
			dir := cwd
			if dir == "" {
				dir = e.ProjectRoot
			}
			res, derr := e.DockerSandbox.Run(ctx, shell, args, dir, effective, e.effectiveWritableRoots(req), fullNetwork)
			if derr == nil {
				if callback != nil {
					for _, line := range strings.Split(strings.TrimRight(res.CombinedOutput, "\n"), "\n") {
						if line != "" {
							callback(line)
						}
					}
				}
				return res, nil
			}
			log.Warn("docker sandbox failed, running unrestricted", zap.Error(derr))
		} else {
			log.Warn("sandbox unsupported on this platform, running unrestricted", zap.Error(wrapErr))
		}
		wrapped = osexec.CommandContext(ctx, shell, args...)
	}
	cmd := wrapped
	if cwd != "" {
		cmd.Dir = cwd
	} else if e.ProjectRoot != "" {
		cmd.Dir = e.ProjectRoot
	}
	cmd.Env = append(os.Environ(), sandboxEnv(effective, e.FullNetwork && !effectivePolicyReadOnly(effective))...)

	if callback == nil {
		out, err := cmd.CombinedOutput()
		return Result{
			Success:        err == nil,
			CombinedOutput: string(out),
			ExitCode:       exitCode(err),
		}, nil
	}

	return e.runStreaming(cmd, callback)
}

func (e *Executor) runStreaming(cmd *osexec.Cmd, callback func(string)) (Result, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, err
	}
	if err := cmd.Start(); err != nil {
		return Result{}, err
	}

	var mu sync.Mutex
	var combined strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)

	pump := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			combined.WriteString(line)
			combined.WriteString("\n")
			mu.Unlock()
			callback(line)
		}
	}
	go pump(stdout)
	go pump(stderr)
	wg.Wait()

	err = cmd.Wait()
	return Result{
		Success:        err == nil,
		CombinedOutput: combined.String(),
		ExitCode:       exitCode(err),
	}, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *osexec.ExitError
	if ok := asExitError(err, &ee); ok {
		return ee.ExitCode()
	}
	return -1
}

func asExitError(err error, target **osexec.ExitError) bool {
	ee, ok := err.(*osexec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}

func shellInvocation(cmdLine string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", cmdLine}
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}
	return shell, []string{"-c", cmdLine}
}

func (e *Executor) effectivePolicy(req *SandboxRequest) SandboxPolicy {
	if req != nil && req.BypassSandbox {
		return SandboxNone
	}
	if req != nil && req.ReadOnly && e.Policy != SandboxReadOnly {
		return SandboxReadOnly
	}
	return e.Policy
}

func effectivePolicyReadOnly(p SandboxPolicy) bool { return p == SandboxReadOnly }

// effectiveWritableRoots merges the project's configured writable roots
// with any supplemental roots from the per-call request, de-duplicated;
// existing ancestors win over narrower descendants already covered.
func (e *Executor) effectiveWritableRoots(req *SandboxRequest) []string {
	roots := append([]string(nil), e.WritableRoots...)
	if req != nil {
		roots = append(roots, req.WritableRoots...)
	}
	return dedupeRoots(roots)
}

func dedupeRoots(roots []string) []string {
	clean := make([]string, 0, len(roots))
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		clean = append(clean, abs)
	}

	var out []string
	for _, r := range clean {
		covered := false
		for _, o := range out {
			if r == o || strings.HasPrefix(r, o+string(filepath.Separator)) {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		kept := out[:0]
		for _, o := range out {
			if !strings.HasPrefix(o, r+string(filepath.Separator)) {
				kept = append(kept, o)
			}
		}
		out = append(kept, r)
	}
	return out
}

func sandboxEnv(p SandboxPolicy, fullNetwork bool) []string {
	if p == SandboxNone || p == SandboxDangerFullAccess {
		return nil
	}
	env := []string{fmt.Sprintf("CODE_ASSISTANT_SANDBOX=%s", sandboxLauncherName())}
	if !fullNetwork {
		env = append(env, "CODE_ASSISTANT_SANDBOX_NETWORK_DISABLED=1")
	}
	return env
}

func sandboxLauncherName() string {
	if runtime.GOOS == "darwin" {
		return "seatbelt"
	}
	return "none"
}
