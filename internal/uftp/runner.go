// Package uftp wraps the external UFTP client binary behind a narrow,
// testable interface. All transfer, authentication and checksum work is
// delegated to the binary; this package only builds command lines and
// interprets exit codes and captured output.
package uftp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Result holds the outcome of one external command invocation. A nonzero
// exit code is carried here, not as a Go error.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// OK reports whether the command exited with status zero.
func (r *Result) OK() bool {
	return r.ExitCode == 0
}

// Runner executes an external command and captures its output. The
// production implementation shells out; tests substitute a fake so the
// control flow can be exercised without a uftp installation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

type execRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() Runner {
	return &execRunner{}
}

func (e *execRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// the binary could not be started at all
			return nil, fmt.Errorf("failed to run %s: %w", name, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	return result, nil
}
