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

// Package dockersandbox implements an alternate C3 sandbox backend: it
// enforces a SandboxPolicy by running the command inside a short-lived
// container instead of a platform-native launcher (macOS has Seatbelt;
// Linux has no equivalent exposed to an unprivileged process, so the
// teacher's own pkg/docker/executor.go ephemeral-container pattern fills
// that gap here). Every container is created fresh per call and removed
// on exit; there is no container reuse/rotation the way the teacher's
// DockerExecutor pools long-lived containers, because a single sandboxed
// command is not latency-sensitive enough to need it.
package dockersandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"

	"github.com/hollowmark/weave/pkg/exec"
)

// Runner implements exec.ContainerSandbox against a Docker daemon.
type Runner struct {
	Client *client.Client
	Image  string // default "alpine:3.19"
}

// New connects to the Docker daemon using the standard environment
// configuration (DOCKER_HOST, etc.), mirroring the teacher's
// detectDockerHost/NewClientWithOpts(client.FromEnv) pattern.
func New(image string) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("dockersandbox: connecting to docker: %w", err)
	}
	if image == "" {
		image = "alpine:3.19"
	}
	return &Runner{Client: cli, Image: image}, nil
}

// Run implements exec.ContainerSandbox: creates a container mounting cwd
// (and every writable root) as a bind mount, read-only unless policy
// allows writes, runs shell+args as its entrypoint, waits for exit, and
// removes the container.
func (r *Runner) Run(ctx context.Context, shell string, args []string, cwd string, policy exec.SandboxPolicy, writableRoots []string, fullNetwork bool) (exec.Result, error) {
	readOnly := policy == exec.SandboxReadOnly

	var mounts []mount.Mount
	seen := map[string]bool{}
	addMount := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		mounts = append(mounts, mount.Mount{Type: mount.TypeBind, Source: path, Target: path, ReadOnly: readOnly})
	}
	addMount(cwd)
	for _, root := range writableRoots {
		addMount(root)
	}

	networkMode := container.NetworkMode("none")
	if fullNetwork {
		networkMode = "bridge"
	}

	cmd := append([]string{shell}, args...)
	created, err := r.Client.ContainerCreate(ctx,
		&container.Config{
			Image:      r.Image,
			Cmd:        cmd,
			WorkingDir: cwd,
			Tty:        false,
		},
		&container.HostConfig{
			Mounts:      mounts,
			NetworkMode: networkMode,
			AutoRemove:  false, // removed explicitly below so we can still read logs on failure
		},
		nil, nil, "",
	)
	if err != nil {
		return exec.Result{}, fmt.Errorf("dockersandbox: create container: %w", err)
	}
	defer func() {
		if rmErr := r.Client.ContainerRemove(context.Background(), created.ID, container.RemoveOptions{Force: true}); rmErr != nil {
			zap.L().Warn("dockersandbox: removing sandbox container", zap.String("container_id", created.ID), zap.Error(rmErr))
		}
	}()

	if err := r.Client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return exec.Result{}, fmt.Errorf("dockersandbox: start container: %w", err)
	}

	waitCh, errCh := r.Client.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	var exitCode int
	select {
	case werr := <-errCh:
		if werr != nil {
			return exec.Result{}, fmt.Errorf("dockersandbox: wait container: %w", werr)
		}
	case status := <-waitCh:
		exitCode = int(status.StatusCode)
	}

	out, err := r.Client.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return exec.Result{}, fmt.Errorf("dockersandbox: fetch logs: %w", err)
	}
	defer out.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, out); err != nil && err != io.EOF {
		return exec.Result{}, fmt.Errorf("dockersandbox: demux logs: %w", err)
	}

	return exec.Result{
		Success:        exitCode == 0,
		CombinedOutput: stdout.String() + stderr.String(),
		ExitCode:       exitCode,
	}, nil
}
