// -----------------------------------------------------------------------
// Runner - Analyzer subprocess execution
// -----------------------------------------------------------------------

package analyzers

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/ternarybob/arbor"
)

// RunResult captures one completed analyzer invocation. A non-zero exit
// code is a result, not a transport error.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner executes an analyzer command with a JSON document on stdin
type Runner interface {
	Run(ctx context.Context, command, baseDir string, stdin []byte) (*RunResult, error)
}

// ShellRunner runs analyzer commands through the platform shell, matching
// how operators write definition commands ("python3 analyzer.py" etc).
type ShellRunner struct {
	logger arbor.ILogger
}

// NewShellRunner creates a shell-based runner
func NewShellRunner(logger arbor.ILogger) Runner {
	return &ShellRunner{logger: logger}
}

func (r *ShellRunner) Run(ctx context.Context, command, baseDir string, stdin []byte) (*RunResult, error) {
	if command == "" {
		return nil, fmt.Errorf("analyzer command is empty")
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/c", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	cmd.Dir = baseDir
	cmd.Stdin = bytes.NewReader(stdin)

	// Non-file stdout/stderr are pumped by os/exec on internal goroutines,
	// so Run cannot deadlock on a chatty analyzer.
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Analyzers are shell commands that may spawn children of their own.
	// The whole process group is killed on context cancellation, and
	// WaitDelay unblocks Wait even if a grandchild keeps the stdout or
	// stderr pipe ends open past the kill.
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = 3 * time.Second

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() != nil {
		r.logger.Warn().
			Str("command", command).
			Str("duration", duration.String()).
			Msg("Analyzer process killed by context")
		return nil, ctx.Err()
	}

	result := &RunResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: duration,
	}

	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("failed to run analyzer command: %w", err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	r.logger.Debug().
		Str("command", command).
		Int("exit_code", result.ExitCode).
		Int("stdout_bytes", len(result.Stdout)).
		Int("stderr_bytes", len(result.Stderr)).
		Str("duration", duration.String()).
		Msg("Analyzer process finished")

	return result, nil
}
