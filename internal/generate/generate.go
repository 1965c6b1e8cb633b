// Package generate runs the repository's two generator scripts: the
// renderer that turns drafts into html and the indexer that rebuilds the
// resource index.
package generate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/resload/internal/runner"
	"github.com/fulmenhq/resload/pkg/config"
	"github.com/fulmenhq/resload/pkg/logger"
	"github.com/fulmenhq/resload/pkg/safeio"
)

// DefaultTimeout bounds each generator step.
const DefaultTimeout = 60 * time.Second

// Kind classifies a generator failure.
type Kind int

const (
	KindMissing Kind = iota + 1
	KindTimeout
	KindExit
	KindStart
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindTimeout:
		return "timeout"
	case KindExit:
		return "exit"
	case KindStart:
		return "start"
	default:
		return "unknown"
	}
}

// Step is one generator invocation. Script is relative to the repo root.
type Step struct {
	Label   string
	Command string
	Script  string
	Args    []string
	Timeout time.Duration
}

// Steps is the ordered pair of generator invocations.
type Steps struct {
	Root     string
	Renderer Step
	Indexer  Step
}

// FromConfig builds Steps for the repository at root.
func FromConfig(cfg config.GeneratorsConfig, root string) Steps {
	step := func(label string, c config.CommandConfig) Step {
		return Step{Label: label, Command: c.Command, Script: c.Script, Args: c.Args, Timeout: cfg.Timeout}
	}
	return Steps{
		Root:     root,
		Renderer: step("Generator", cfg.Renderer),
		Indexer:  step("Index", cfg.Indexer),
	}
}

// Failure describes a generator step that did not complete. Stdout and
// Stderr are kept verbatim.
type Failure struct {
	Kind   Kind
	Script string
	Stdout string
	Stderr string
	Err    error
}

func (f *Failure) Error() string {
	name := filepath.Base(f.Script)
	switch f.Kind {
	case KindMissing:
		return "Generator script not found: " + f.Script
	case KindTimeout:
		return name + " timed out"
	case KindExit:
		return fmt.Sprintf("%s failed:\n%s", name, f.Stderr)
	default:
		return fmt.Sprintf("Failed to run %s: %v", name, f.Err)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// IsTimeout reports whether err is a generator timeout.
func IsTimeout(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == KindTimeout
}

// Output is the combined stdout of the steps that ran.
type Output struct {
	Renderer string
	Indexer  string
}

// String renders the output the way it is reported to the operator.
func (o Output) String() string {
	var b strings.Builder
	if o.Renderer != "" {
		b.WriteString(o.Renderer)
	}
	if o.Indexer != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(o.Indexer)
	}
	return b.String()
}

// Run executes the renderer and then the indexer from steps.Root. The first
// failing step stops the run and is returned as *Failure.
func Run(ctx context.Context, r runner.Runner, steps Steps, sink logger.Sink) (Output, error) {
	if sink == nil {
		sink = logger.Discard
	}
	sink.Emit("=== Running Generator Scripts ===", logger.InfoLevel)

	var out Output
	res, err := runStep(ctx, r, steps.Root, steps.Renderer, sink)
	if err != nil {
		return out, err
	}
	out.Renderer = fmt.Sprintf("%s:\n%s", filepath.Base(steps.Renderer.Script), res.Stdout)
	sink.Emit("Generated HTML from markdown", logger.SuccessLevel)

	res, err = runStep(ctx, r, steps.Root, steps.Indexer, sink)
	if err != nil {
		return out, err
	}
	out.Indexer = fmt.Sprintf("%s:\n%s", filepath.Base(steps.Indexer.Script), res.Stdout)
	sink.Emit("Regenerated resource index", logger.SuccessLevel)
	return out, nil
}

func runStep(ctx context.Context, r runner.Runner, root string, step Step, sink logger.Sink) (runner.Result, error) {
	script := filepath.Join(root, filepath.FromSlash(step.Script))
	if !safeio.Exists(script) {
		return runner.Result{}, &Failure{Kind: KindMissing, Script: script}
	}
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cmd := runner.Command{
		Name:    step.Command,
		Args:    append([]string{script}, step.Args...),
		Dir:     root,
		Timeout: timeout,
	}
	sink.Emit("  Command: "+cmd.String(), logger.InfoLevel)
	sink.Emit("  Working dir: "+root, logger.InfoLevel)

	res, err := r.Run(ctx, cmd)
	if err != nil {
		return res, &Failure{Kind: KindStart, Script: script, Stdout: res.Stdout, Stderr: res.Stderr, Err: err}
	}
	if s := strings.TrimSpace(res.Stdout); s != "" {
		sink.Emit(fmt.Sprintf("%s output:\n%s", step.Label, s), logger.InfoLevel)
	}
	if s := strings.TrimSpace(res.Stderr); s != "" {
		sink.Emit(fmt.Sprintf("%s stderr:\n%s", step.Label, s), logger.WarnLevel)
	}
	if res.TimedOut {
		return res, &Failure{Kind: KindTimeout, Script: script, Stdout: res.Stdout, Stderr: res.Stderr}
	}
	if res.ExitCode != 0 {
		return res, &Failure{
			Kind:   KindExit,
			Script: script,
			Stdout: res.Stdout,
			Stderr: res.Stderr,
			Err:    fmt.Errorf("exit status %d", res.ExitCode),
		}
	}
	return res, nil
}
