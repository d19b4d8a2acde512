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

package exec

import (
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"runtime"
)

// wrapSandbox wraps shell/args in the platform's sandbox launcher when
// policy requires restriction and the platform supports it. On an
// unsupported platform it returns an error so the caller can log a
// warning and fall through to running unrestricted -- the contract is
// best-effort per spec.md §4.3.
func wrapSandbox(ctx context.Context, shell string, args []string, policy SandboxPolicy, writableRoots []string, fullNetwork bool) (*osexec.Cmd, error) {
	if policy == SandboxNone || policy == SandboxDangerFullAccess {
		return osexec.CommandContext(ctx, shell, args...), nil
	}
	if runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("sandboxing not supported on %s", runtime.GOOS)
	}
	return seatbeltCommand(ctx, shell, args, policy, writableRoots, fullNetwork)
}

// seatbeltCommand generates a macOS Seatbelt policy file enumerating the
// writable roots and invokes the target shell under `sandbox-exec -f`.
func seatbeltCommand(ctx context.Context, shell string, args []string, policy SandboxPolicy, writableRoots []string, fullNetwork bool) (*osexec.Cmd, error) {
	policyText := seatbeltPolicy(policy, writableRoots, fullNetwork)

	f, err := os.CreateTemp("", "weave-sandbox-*.sb")
	if err != nil {
		return nil, err
	}
	if _, err := f.WriteString(policyText); err != nil {
		f.Close()
		return nil, err
	}
	f.Close()

	full := append([]string{"-f", f.Name(), shell}, args...)
	return osexec.CommandContext(ctx, "sandbox-exec", full...), nil
}

func seatbeltPolicy(policy SandboxPolicy, writableRoots []string, fullNetwork bool) string {
	var b []byte
	b = append(b, "(version 1)\n(deny default)\n(allow process-fork)\n(allow process-exec)\n"...)
	if policy != SandboxReadOnly {
		for _, root := range writableRoots {
			b = append(b, []byte(fmt.Sprintf("(allow file-write* (subpath %q))\n", filepath.Clean(root)))...)
		}
	}
	b = append(b, "(allow file-read*)\n"...)
	if fullNetwork {
		b = append(b, "(allow network*)\n"...)
	}
	return string(b)
}
