// Package media wraps the external probing and encoding binaries.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Result is the captured output of a process that exited with code 0.
type Result struct {
	Stdout string
	Stderr string
}

// ProcessError reports a process that ran and exited non-zero.
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
}

// SpawnError reports a process that could not be launched at all.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Command, e.Err)
}

// Unwrap exposes the launch failure (exec.ErrNotFound, fs.ErrPermission, ...).
func (e *SpawnError) Unwrap() error { return e.Err }

// waitDelay bounds how long Wait lingers on pipes held open by grandchildren
// after the process itself has been killed.
const waitDelay = 10 * time.Second

// Runner executes one external command with no stdin.
// When stream is non-nil it also receives stdout chunks as they arrive.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stream io.Writer) (Result, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run starts the command, waits for it, and classifies the outcome.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stream io.Writer) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	if stream != nil {
		cmd.Stdout = io.MultiWriter(&stdout, stream)
	} else {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return Result{}, &SpawnError{Command: name, Err: err}
	}
	err := cmd.Wait()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s interrupted: %w", name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ProcessError{Command: name, ExitCode: exitErr.ExitCode(), Stderr: res.Stderr}
	}
	return res, fmt.Errorf("wait %s: %w", name, err)
}

// lookBinary resolves a bare name on PATH or checks an explicit path.
func lookBinary(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("binary path is empty")
	}
	return exec.LookPath(path)
}
