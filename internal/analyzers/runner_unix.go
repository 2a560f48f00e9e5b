//go:build !windows

package analyzers

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the shell in its own process group so a kill
// reaches every process it spawned, not just the shell itself.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
