// Package ingest chains the bundle checks, staging, the generator gates and
// the optional commit into one run. Each stage is a function from Context to
// Context so it can be exercised on its own.
package ingest

import (
	"time"

	"github.com/fulmenhq/resload/internal/collision"
	"github.com/fulmenhq/resload/internal/frontmatter"
	"github.com/fulmenhq/resload/internal/generate"
	"github.com/fulmenhq/resload/internal/gitctx"
	"github.com/fulmenhq/resload/internal/images"
	"github.com/fulmenhq/resload/internal/manifest"
	"github.com/fulmenhq/resload/internal/runner"
	"github.com/fulmenhq/resload/internal/staging"
	"github.com/fulmenhq/resload/pkg/config"
	"github.com/fulmenhq/resload/pkg/logger"
)

// Options are the operator's inputs for one run.
type Options struct {
	// Root is the publishing repository root.
	Root string
	// Config defaults to config.Default().
	Config *config.Config
	// Files is the bundle: one markdown document and two images.
	Files []string

	// Hero names the hero image when filenames do not settle the roles.
	Hero string
	// Answers supplies metadata for a document that has none. AnswersFile
	// is read when Answers is nil.
	Answers     *frontmatter.Answers
	AnswersFile string

	AllowOverwrite bool
	// Keep retains the working directory after a successful run.
	Keep bool
	// Debug copies failing artifacts to last_failed and logs generator output.
	Debug bool

	// Commit runs the version-control steps after a successful run.
	Commit         bool
	AllowUnrelated bool

	Runner runner.Runner
	Sink   logger.Sink
	Now    func() time.Time
}

func (o Options) config() *config.Config {
	if o.Config != nil {
		return o.Config
	}
	return config.Default()
}

func (o Options) sink() logger.Sink {
	if o.Sink != nil {
		return o.Sink
	}
	return logger.Discard
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) runner() runner.Runner {
	if o.Runner != nil {
		return o.Runner
	}
	return runner.ExecRunner{}
}

// Context is the state handed from one stage to the next.
type Context struct {
	Options Options
	Layout  config.Paths

	Bundle   images.Bundle
	Roles    images.Roles
	Document frontmatter.Document
	Tags     manifest.Tags

	Collision collision.Report
	Session   *staging.Session
	Generated generate.Output
	Commit    *gitctx.CommitResult

	// Warnings collects non-blocking messages.
	Warnings []string
}

// NewContext anchors opts to its repository layout.
func NewContext(opts Options) Context {
	return Context{Options: opts, Layout: opts.config().Resolve(opts.Root)}
}

// Slug is the join key of the bundle once loaded.
func (c Context) Slug() string { return c.Document.Metadata.Slug() }

func (c Context) warn(msg string) Context {
	c.Options.sink().Emit(msg, logger.WarnLevel)
	c.Warnings = append(append([]string(nil), c.Warnings...), msg)
	return c
}

// Outcome summarizes a run.
type Outcome struct {
	Slug     string
	Session  *staging.Session
	Warnings []string
	// Generated is the generator output of a completed run.
	Generated generate.Output
	Commit    *gitctx.CommitResult
	// NothingToCommit is set when git had nothing to commit.
	NothingToCommit bool
}

func (c Context) outcome() *Outcome {
	return &Outcome{
		Slug:      c.Slug(),
		Session:   c.Session,
		Warnings:  c.Warnings,
		Generated: c.Generated,
		Commit:    c.Commit,
	}
}
