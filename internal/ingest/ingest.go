package ingest

import (
	"context"
	"errors"

	"github.com/fulmenhq/resload/internal/gitctx"
	"github.com/fulmenhq/resload/pkg/logger"
)

// Checks are the side-effect free stages.
var Checks = []StageFunc{Load, Validate, Collisions}

// Pipeline is the full ingest, commit excluded.
var Pipeline = []StageFunc{Load, Validate, Collisions, Stage, PreGate, Generate, PostGate, Finish}

// Chain runs stages in order and stops at the first error. The returned
// Context is the last one produced, so a failed stage's partial state (a
// retained staging session in particular) is still visible.
func Chain(ctx context.Context, c Context, stages ...StageFunc) (Context, error) {
	for _, stage := range stages {
		next, err := stage(ctx, c)
		c = next
		if err != nil {
			return c, err
		}
	}
	return c, nil
}

// Check runs only the side-effect free stages: load, validate and the
// collision scan.
func Check(ctx context.Context, opts Options) (Context, error) {
	return Chain(ctx, NewContext(opts), Checks...)
}

// Run ingests the bundle described by opts. Failures after staging leave the
// destinations and the working directory in place; rollback is a separate,
// explicit operation. The Outcome is non-nil even on failure.
func Run(ctx context.Context, opts Options) (*Outcome, error) {
	sink := opts.sink()
	sink.Emit("========================================", logger.InfoLevel)
	sink.Emit("        Starting Process", logger.InfoLevel)
	sink.Emit("========================================", logger.InfoLevel)

	c, err := Chain(ctx, NewContext(opts), Pipeline...)
	if err != nil {
		return c.outcome(), err
	}
	if !opts.Commit {
		return c.outcome(), nil
	}

	c, err = Commit(ctx, c)
	out := c.outcome()
	if errors.Is(err, gitctx.ErrNothingToCommit) {
		out.NothingToCommit = true
		return out, nil
	}
	return out, err
}
