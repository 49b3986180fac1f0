// Package controller stops and starts service processes. Stops escalate from
// a graceful terminate to a kill; starts are detached so a launched service
// survives the supervisor.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const (
	terminateWait = 10 * time.Second
	killWait      = 5 * time.Second
	startProbe    = 1 * time.Second
	pollInterval  = 200 * time.Millisecond
)

// Controller launches and terminates service processes on the local host.
type Controller struct{}

func New() *Controller { return &Controller{} }

// Stop terminates the process with the given pid. It sends a graceful
// terminate first and escalates to a kill when the process does not exit
// within the grace window.
func (c *Controller) Stop(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return fmt.Errorf("stop pid %d: %w", pid, err)
	}

	if err := p.TerminateWithContext(ctx); err != nil {
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	if gone, err := waitGone(ctx, pid, terminateWait); err != nil || gone {
		return err
	}

	slog.Warn("process ignored terminate, killing", "pid", pid)
	if err := p.KillWithContext(ctx); err != nil {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	gone, err := waitGone(ctx, pid, killWait)
	if err != nil {
		return err
	}
	if !gone {
		return fmt.Errorf("pid %d still running after kill", pid)
	}
	return nil
}

// Start launches the executable at path detached from the supervisor, using
// workDir as the working directory, and returns the new pid. It probes the
// process briefly so an immediate crash surfaces as an error rather than a
// dead pid.
func (c *Controller) Start(ctx context.Context, path, workDir string) (int32, error) {
	name, args := BuildCommand(path)
	cmd := exec.Command(name, args...)
	cmd.Dir = workDir
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", path, err)
	}
	pid := int32(cmd.Process.Pid)
	// The child is detached; releasing avoids holding its handle.
	_ = cmd.Process.Release()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(startProbe):
	}
	alive, err := process.PidExistsWithContext(ctx, pid)
	if err != nil {
		return 0, fmt.Errorf("probe pid %d: %w", pid, err)
	}
	if !alive {
		return 0, fmt.Errorf("start %s: process %d exited immediately", path, pid)
	}
	slog.Info("process started", "path", path, "pid", pid)
	return pid, nil
}

// BuildCommand maps an executable path to the program and arguments used to
// launch it. Jars launch through java, shell scripts through their shell,
// anything else runs directly.
func BuildCommand(path string) (string, []string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jar":
		return "java", []string{"-jar", path}
	case ".sh":
		return "sh", []string{path}
	case ".bat":
		if runtime.GOOS == "windows" {
			return "cmd.exe", []string{"/c", path}
		}
		return path, nil
	default:
		return path, nil
	}
}

func waitGone(ctx context.Context, pid int32, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		alive, err := process.PidExistsWithContext(ctx, pid)
		if err == nil && !alive {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return false, nil
}
