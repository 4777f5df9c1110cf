//go:build !windows

package dispatch

import (
	"os/exec"
	"syscall"
)

// setupProcessGroup puts the transfer subprocess in its own process group
// and arranges for context cancellation to kill the whole group, so a
// cancelled worker never leaves an orphaned dcmsend-equivalent child
// behind. Grounded on runforge/internal/runner/procgroup_unix.go.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil
	}
}
