// Package runner executes external processes with a per-command timeout and
// captured output. The generators and the git fallback go through it so tests
// can swap in a Fake.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/fulmenhq/resload/pkg/logger"
)

// Command is one process invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Timeout bounds the run; zero means only ctx bounds it.
	Timeout time.Duration
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return fmt.Sprintf("%s %s", c.Name, strings.Join(c.Args, " "))
}

// Result is what a finished (or killed) process left behind.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// Success reports a clean zero exit.
func (r Result) Success() bool { return r.ExitCode == 0 && !r.TimedOut }

// Output joins both streams, stdout first.
func (r Result) Output() string {
	switch {
	case r.Stdout == "":
		return r.Stderr
	case r.Stderr == "":
		return r.Stdout
	default:
		return r.Stdout + "\n" + r.Stderr
	}
}

// Runner runs commands. A non-nil error means the process could not be
// started or waited on; a non-zero exit is reported through Result only.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Env is appended to the inherited environment.
	Env []string
}

// waitDelay bounds how long Wait blocks on inherited pipes after a kill.
const waitDelay = 5 * time.Second

// Run starts cmd and waits for it. On timeout the process is killed and
// TimedOut is set; the error is nil so callers can inspect partial output.
func (e ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	cmdCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	// #nosec G204 -- command names come from repository configuration
	c := exec.CommandContext(cmdCtx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), e.Env...)
	c.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	logger.Debug(fmt.Sprintf("runner: exec %q in %s", cmd.String(), cmd.Dir))
	start := time.Now()
	err := c.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		return res, fmt.Errorf("failed to run %s: %w", cmd.Name, err)
	}
	return res, nil
}
