// Package proc runs external programs (speech engines, audio players,
// transcoders) and captures their output.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Result holds the captured output of a finished process.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// ExitError reports a process that ran but exited with a non-zero status.
// Any other Run error means the process could not be started (or was killed).
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("exit status %d: %s", e.Code, e.Stderr)
}

// Runner locates and runs external programs.
type Runner interface {
	// LookPath resolves an executable name against the search path.
	LookPath(file string) (string, error)

	// Run executes name with args and waits for it to exit. A non-zero exit
	// is reported as an *ExitError carrying the trimmed stderr.
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	// Timeout bounds each Run call. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// LookPath resolves file with exec.LookPath.
func (r ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run executes the program, killing it when ctx ends or Timeout elapses.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	slog.Debug("running process", "name", name, "args", args)
	err := cmd.Run()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, fmt.Errorf("%s timed out: %w", name, ctxErr)
		}
		return res, fmt.Errorf("%s cancelled: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{
			Code:   exitErr.ExitCode(),
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}
	return res, fmt.Errorf("starting %s: %w", name, err)
}

// IsExit reports whether err means the process ran and exited non-zero,
// as opposed to never starting.
func IsExit(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}
