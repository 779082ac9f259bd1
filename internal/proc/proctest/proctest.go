// Package proctest provides a scriptable proc.Runner for tests.
package proctest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/nadzzz/readaloud/internal/proc"
)

// Call records one Run invocation.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a command line, e.g. "aplay -q /tmp/a.wav".
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Response is what a scripted program returns.
type Response struct {
	Stdout string
	Stderr string
	Err    error

	// Do runs before the response is returned, e.g. to create the file a
	// real engine would have written.
	Do func(args []string) error
}

// Exit builds a response for a program that exits with code and stderr.
func Exit(code int, stderr string) Response {
	return Response{Stderr: stderr, Err: &proc.ExitError{Code: code, Stderr: stderr}}
}

// Runner is a fake proc.Runner. Programs listed in Installed resolve in
// LookPath; Responses are keyed by program name. Programs without a
// response succeed with empty output.
type Runner struct {
	Installed map[string]bool
	Responses map[string]Response

	mu    sync.Mutex
	calls []Call
}

// New returns a Runner with the given programs installed.
func New(installed ...string) *Runner {
	r := &Runner{
		Installed: make(map[string]bool, len(installed)),
		Responses: make(map[string]Response),
	}
	for _, name := range installed {
		r.Installed[name] = true
	}
	return r
}

// On scripts the response for program name and returns the runner.
func (r *Runner) On(name string, resp Response) *Runner {
	r.Responses[name] = resp
	return r
}

// LookPath implements proc.Runner.
func (r *Runner) LookPath(file string) (string, error) {
	if r.Installed[file] {
		return "/usr/bin/" + file, nil
	}
	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}

// Run implements proc.Runner.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (*proc.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Args: append([]string(nil), args...)})
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	short := name
	if i := strings.LastIndex(short, "/"); i >= 0 {
		short = short[i+1:]
	}
	resp, ok := r.Responses[short]
	if !ok {
		if !r.Installed[short] {
			return nil, fmt.Errorf("starting %s: %w", name, exec.ErrNotFound)
		}
		return &proc.Result{}, nil
	}
	if resp.Do != nil {
		if err := resp.Do(args); err != nil {
			return nil, err
		}
	}
	return &proc.Result{Stdout: []byte(resp.Stdout), Stderr: []byte(resp.Stderr)}, resp.Err
}

// Calls returns the recorded invocations in order.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}
