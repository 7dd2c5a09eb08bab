// Package proc abstracts external process invocation behind a narrow
// interface so the capture and transcode stages (and their tests) never
// depend on libcamera or ffmpeg binaries being present.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout is returned (wrapped) when a process exceeds its wall-clock
// budget. A timeout is treated identically to a process failure by callers.
var ErrTimeout = errors.New("process timed out")

// Result holds the outcome of a single external process invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner runs an external command with a hard wall-clock timeout.
type Runner interface {
	Run(ctx context.Context, name string, args []string, timeout time.Duration) (Result, error)
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// Run executes name with args, killing the process when timeout elapses.
// Stdout and stderr are captured for the caller; stderr is what the capture
// and transcode stages log on failure.
func (ExecRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		if ctx.Err() == context.DeadlineExceeded {
			return res, fmt.Errorf("%s: %w after %s", name, ErrTimeout, timeout)
		}
		return res, fmt.Errorf("%s: %w", name, err)
	}
	return res, nil
}
