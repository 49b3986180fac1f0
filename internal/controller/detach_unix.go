//go:build !windows

package controller

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own session so it is not torn down with the
// supervisor.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
