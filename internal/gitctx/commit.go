package gitctx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aymerick/raymond"

	"github.com/fulmenhq/resload/internal/runner"
	"github.com/fulmenhq/resload/pkg/logger"
)

// DefaultCommitTemplate is rendered with {{slug}} bound.
const DefaultCommitTemplate = "Add scheduled resource: {{slug}}"

// ErrNothingToCommit is returned when git reports nothing to commit.
var ErrNothingToCommit = errors.New("nothing to commit - files may already be committed")

// UnrelatedChangesError blocks a commit that would sweep in other work.
type UnrelatedChangesError struct {
	Paths []string
}

func (e *UnrelatedChangesError) Error() string {
	return fmt.Sprintf("%d unrelated change(s) in working tree: %s", len(e.Paths), strings.Join(e.Paths, ", "))
}

// CommandError is a git step that exited non-zero.
type CommandError struct {
	Step   string
	Result runner.Result
}

func (e *CommandError) Error() string {
	if e.Result.TimedOut {
		return fmt.Sprintf("git %s timed out", e.Step)
	}
	return fmt.Sprintf("git %s failed: %s", e.Step, strings.TrimSpace(e.Result.Stderr))
}

// Options controls Commit.
type Options struct {
	Slug string
	// Template is the commit message template; empty uses DefaultCommitTemplate.
	Template       string
	AllowUnrelated bool
	// Push runs git push after a successful commit.
	Push bool
	// Binary defaults to "git".
	Binary  string
	Timeout time.Duration
	Sink    logger.Sink
}

func (o Options) binary() string {
	if o.Binary == "" {
		return "git"
	}
	return o.Binary
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

// CommitResult lists what each step reported.
type CommitResult struct {
	Message string
	Outputs []string
	Changes ChangeSet
}

// CommitMessage renders tpl for slug.
func CommitMessage(tpl, slug string) (string, error) {
	if tpl == "" {
		tpl = DefaultCommitTemplate
	}
	msg, err := raymond.Render(tpl, map[string]string{"slug": slug})
	if err != nil {
		return "", fmt.Errorf("invalid commit template: %w", err)
	}
	return strings.TrimSpace(msg), nil
}

// Commit stages everything, commits with the rendered message and pushes.
// Unrelated pending changes block the commit unless AllowUnrelated is set.
func Commit(ctx context.Context, r runner.Runner, repo string, opts Options) (*CommitResult, error) {
	sink := opts.Sink
	if sink == nil {
		sink = logger.Discard
	}
	bin := opts.binary()
	timeout := opts.timeout()

	msg, err := CommitMessage(opts.Template, opts.Slug)
	if err != nil {
		return nil, err
	}

	changes, err := Status(ctx, r, repo, opts)
	if err != nil {
		return nil, err
	}
	out := &CommitResult{Message: msg, Changes: changes}
	if len(changes.Unrelated) > 0 {
		sink.Emit(fmt.Sprintf("Found %d unrelated change(s) in working tree", len(changes.Unrelated)), logger.WarnLevel)
		for _, p := range changes.Unrelated {
			sink.Emit("  "+p, logger.WarnLevel)
		}
		if !opts.AllowUnrelated {
			return out, &UnrelatedChangesError{Paths: changes.Unrelated}
		}
	}

	run := func(step string, args ...string) (runner.Result, error) {
		res, err := r.Run(ctx, runner.Command{Name: bin, Args: args, Dir: repo, Timeout: timeout})
		if err != nil {
			return res, fmt.Errorf("git %s: %w", step, err)
		}
		return res, nil
	}

	res, err := run("add", "add", "-A")
	if err != nil {
		return out, err
	}
	if !res.Success() {
		return out, &CommandError{Step: "add", Result: res}
	}
	out.Outputs = append(out.Outputs, "git add -A: OK")

	res, err = run("commit", "commit", "-m", msg)
	if err != nil {
		return out, err
	}
	if !res.Success() {
		if strings.Contains(res.Stdout, "nothing to commit") || strings.Contains(res.Stderr, "nothing to commit") {
			sink.Emit(ErrNothingToCommit.Error(), logger.WarnLevel)
			return out, ErrNothingToCommit
		}
		return out, &CommandError{Step: "commit", Result: res}
	}
	out.Outputs = append(out.Outputs, "git commit: "+msg)
	sink.Emit("Committed: "+msg, logger.SuccessLevel)

	if !opts.Push {
		return out, nil
	}
	res, err = run("push", "push")
	if err != nil {
		return out, err
	}
	if !res.Success() {
		return out, &CommandError{Step: "push", Result: res}
	}
	out.Outputs = append(out.Outputs, "git push: OK")
	sink.Emit("Pushed to remote", logger.SuccessLevel)
	return out, nil
}
