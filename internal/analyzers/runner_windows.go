//go:build windows

package analyzers

import "os/exec"

// Windows has no POSIX process groups; killing the direct child plus the
// WaitDelay pipe close is the best available bound.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
