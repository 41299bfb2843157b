// Package runner executes external commands and captures their status and
// output. Every process the deployment pipeline starts goes through Runner.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrEmptyCommand is returned when no program is given.
var ErrEmptyCommand = errors.New("empty command")

// Command describes one external invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the current environment
}

// String renders the command line for logs and messages.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the completion status of a command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the command exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns stderr when present, else stdout, trimmed.
func (r Result) Output() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner runs a command to completion.
//
// A non-zero exit is reported through Result.ExitCode with a nil error; err is
// reserved for commands that could not be started or were cancelled.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// =============================================================================
// Exec Runner
// =============================================================================

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger *slog.Logger
	stream io.Writer
}

// NewExecRunner creates an ExecRunner. When stream is non-nil, combined
// output is copied to it as the command runs, in addition to being captured.
func NewExecRunner(logger *slog.Logger, stream io.Writer) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{
		logger: logger.With("component", "runner"),
		stream: stream,
	}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if cmd.Name == "" {
		return Result{ExitCode: -1}, ErrEmptyCommand
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	if r.stream != nil {
		c.Stdout = io.MultiWriter(&stdout, r.stream)
		c.Stderr = io.MultiWriter(&stderr, r.stream)
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	r.logger.Debug("running command", "command", cmd.String(), "dir", cmd.Dir)

	start := time.Now()
	err := c.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			result.ExitCode = exitErr.ExitCode()
			r.logger.Debug("command failed",
				"command", cmd.String(),
				"exit_code", result.ExitCode,
				"duration", result.Duration,
			)
			return result, nil
		}
		result.ExitCode = -1
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("run %s: %w", cmd.Name, ctxErr)
		}
		return result, fmt.Errorf("run %s: %w", cmd.Name, err)
	}

	r.logger.Debug("command finished", "command", cmd.String(), "duration", result.Duration)
	return result, nil
}
