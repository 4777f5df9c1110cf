//go:build windows

package dispatch

import "os/exec"

// setupProcessGroup is a no-op on Windows, where Setpgid is unavailable;
// process cleanup relies on the default exec.CommandContext cancel
// behavior. Grounded on runforge/internal/runner/procgroup_windows.go.
func setupProcessGroup(cmd *exec.Cmd) {
}
