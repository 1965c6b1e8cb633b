package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/resload/internal/collision"
	"github.com/fulmenhq/resload/internal/frontmatter"
	"github.com/fulmenhq/resload/internal/gate"
	"github.com/fulmenhq/resload/internal/generate"
	"github.com/fulmenhq/resload/internal/gitctx"
	"github.com/fulmenhq/resload/internal/images"
	"github.com/fulmenhq/resload/internal/manifest"
	"github.com/fulmenhq/resload/internal/staging"
	"github.com/fulmenhq/resload/pkg/logger"
)

// StageFunc is one pipeline step.
type StageFunc func(ctx context.Context, c Context) (Context, error)

// Load classifies the bundle, reads the document, settles image roles and
// resolves the tag set. It has no side effects.
func Load(_ context.Context, c Context) (Context, error) {
	opts := c.Options
	sink := opts.sink()

	b, err := images.Classify(opts.Files)
	if err != nil {
		return c, &Failure{Stage: StageLoad, Err: err}
	}
	for _, f := range b.Ignored {
		c = c.warn("Ignored unsupported file: " + filepath.Base(f))
	}
	if !b.Complete() {
		return c, &Failure{Stage: StageLoad, Problems: []string{
			fmt.Sprintf("Bundle needs 1 markdown file and 2 images, got %d markdown and %d images",
				btoi(b.Document != ""), len(b.Images)),
		}}
	}
	c.Bundle = b

	sink.Emit("Parsing markdown: "+filepath.Base(b.Document), logger.InfoLevel)
	raw, err := os.ReadFile(b.Document) // #nosec G304 -- operator-supplied bundle file
	if err != nil {
		return c, &Failure{Stage: StageLoad, Err: &frontmatter.IngestError{Msg: "cannot read markdown", Err: err}}
	}
	res := frontmatter.Parse(raw)
	switch res.Kind {
	case frontmatter.KindOK:
		c.Document = res.Document
	case frontmatter.KindNeedsMetadata:
		doc, err := authored(opts, b.Document, res)
		if err != nil {
			return c, err
		}
		c.Document = doc
		sink.Emit("Front matter will be injected (was not in source file)", logger.SuccessLevel)
	default:
		return c, &Failure{Stage: StageLoad, Err: res.Err}
	}

	roles := images.DetectRoles(b.Images)
	if opts.Hero != "" {
		roles, err = images.Resolve(b.Images, opts.Hero)
		if err != nil {
			return c, &Failure{Stage: StageLoad, Err: err}
		}
	}
	if roles.Ambiguous {
		return c, &AmbiguousRolesError{Images: b.Images}
	}
	c.Roles = roles
	sink.Emit("  Hero: "+filepath.Base(roles.Hero), logger.InfoLevel)
	sink.Emit("  Inline: "+filepath.Base(roles.Inline), logger.InfoLevel)

	c.Tags = manifest.Load(c.Layout.Manifest)
	if c.Tags.Fallback {
		if defaults := opts.config().Validation.DefaultTagTypes; len(defaults) > 0 {
			c.Tags.Values = append([]string(nil), defaults...)
		}
		c = c.warn(fmt.Sprintf("Using default tag types (%s)", c.Tags.Reason))
	}
	return c, nil
}

// authored builds the document for a source without metadata from the
// operator's answers, or reports that answers are needed.
func authored(opts Options, path string, res frontmatter.Result) (frontmatter.Document, error) {
	var answers frontmatter.Answers
	switch {
	case opts.Answers != nil:
		answers = *opts.Answers
	case opts.AnswersFile != "":
		a, err := LoadAnswers(opts.AnswersFile)
		if err != nil {
			return frontmatter.Document{}, &Failure{Stage: StageLoad, Err: err}
		}
		answers = a
	default:
		return frontmatter.Document{}, &NeedsMetadataError{Path: path, Title: res.Title, Body: res.Body}
	}

	doc, err := frontmatter.Synthesize(answers.WithDefaults(res.Title, opts.now()), res.Body)
	if err != nil {
		return frontmatter.Document{}, &Failure{Stage: StageLoad, Err: err}
	}
	return doc, nil
}

// Validate runs the metadata and image checks and collects every problem.
func Validate(_ context.Context, c Context) (Context, error) {
	sink := c.Options.sink()
	cfg := c.Options.config()

	sink.Emit("Validating front matter...", logger.InfoLevel)
	problems := frontmatter.Validate(c.Document.Metadata, c.Tags.Values)
	if len(problems) == 0 {
		sink.Emit("Front matter validation passed", logger.SuccessLevel)
	}

	sink.Emit("Validating images...", logger.InfoLevel)
	imageProblems := images.ValidatePair(c.Roles.Hero, c.Roles.Inline, cfg.Validation.MinImageWidth)
	if len(imageProblems) == 0 {
		sink.Emit("Image validation passed", logger.SuccessLevel)
	}
	problems = append(problems, imageProblems...)

	if len(problems) > 0 {
		for _, p := range problems {
			sink.Emit(p, logger.ErrorLevel)
		}
		return c, &Failure{Stage: StageValidation, Problems: problems}
	}
	return c, nil
}

// Collisions checks the destinations for artifacts already named after the slug.
func Collisions(_ context.Context, c Context) (Context, error) {
	sink := c.Options.sink()
	slug := c.Slug()
	sink.Emit("Checking for slug collision: "+slug, logger.InfoLevel)

	r, err := collision.Check(c.Layout, slug, c.Options.AllowOverwrite)
	if err != nil {
		return c, &Failure{Stage: StageCollision, Err: err}
	}
	c.Collision = r
	if r.Blocking {
		for _, m := range r.Messages {
			sink.Emit(m, logger.ErrorLevel)
		}
		return c, &Failure{Stage: StageCollision, Problems: r.Messages}
	}
	for _, m := range r.Messages {
		c = c.warn(m)
	}
	return c, nil
}

// Stage writes the bundle to its destinations. A failed staging keeps the
// session in the context for inspection.
func Stage(ctx context.Context, c Context) (Context, error) {
	opts := c.Options
	s, err := staging.Stage(ctx, staging.StageInput{
		Layout:         c.Layout,
		Document:       c.Document,
		HeroPath:       c.Roles.Hero,
		InlinePath:     c.Roles.Inline,
		AllowOverwrite: opts.AllowOverwrite,
		Keep:           opts.Keep,
		Now:            opts.Now,
		Sink:           opts.sink(),
	})
	c.Session = s
	if err != nil {
		return c, &Failure{Stage: StageStaging, Err: err}
	}
	return c, nil
}

// PreGate confirms the staged files before generation.
func PreGate(_ context.Context, c Context) (Context, error) {
	sink := c.Options.sink()
	s := c.Session
	problems := gate.PreGeneration(c.Layout, c.Slug(), s.HeroExt, s.InlineExt,
		c.Options.config().Validation.FrontMatterWindow, sink)
	if len(problems) > 0 {
		for _, p := range problems {
			sink.Emit(p, logger.ErrorLevel)
		}
		sink.Emit("Keeping temp bundle for debugging: "+s.WorkDir, logger.WarnLevel)
		return c, &Failure{Stage: StagePreGate, Problems: problems}
	}
	return c, nil
}

// Generate runs the renderer and the indexer.
func Generate(ctx context.Context, c Context) (Context, error) {
	opts := c.Options
	sink := opts.sink()
	steps := generate.FromConfig(opts.config().Generators, c.Layout.Root)
	out, err := generate.Run(ctx, opts.runner(), steps, sink)
	if err != nil {
		sink.Emit(err.Error(), logger.ErrorLevel)
		sink.Emit("Generator failed - keeping temp bundle for debugging", logger.WarnLevel)
		return c, &Failure{Stage: StageGenerator, Err: err}
	}
	c.Generated = out
	if opts.Debug {
		sink.Emit(out.String(), logger.InfoLevel)
	}
	return c, nil
}

// PostGate inspects the rendered artifact. In debug mode a failing artifact
// and its document are copied to last_failed.
func PostGate(_ context.Context, c Context) (Context, error) {
	opts := c.Options
	sink := opts.sink()
	slug := c.Slug()

	canonical, err := gate.CanonicalURL(opts.config().Validation.CanonicalTemplate, slug)
	if err != nil {
		return c, &Failure{Stage: StagePostGate, Err: err}
	}
	problems := gate.PostGenerationFile(c.Layout, gate.Expect{
		Slug:      slug,
		TagType:   c.Document.Metadata.String(frontmatter.FieldTagType),
		Canonical: canonical,
	}, sink)
	if len(problems) == 0 {
		return c, nil
	}

	for _, p := range problems {
		sink.Emit(p, logger.ErrorLevel)
	}
	if opts.Debug {
		if _, err := staging.PreserveFailed(c.Layout, slug, sink); err != nil {
			sink.Emit(fmt.Sprintf("Could not preserve failed artifacts: %v", err), logger.WarnLevel)
		}
	}
	if c.Session != nil {
		sink.Emit("Keeping temp bundle for debugging: "+c.Session.WorkDir, logger.WarnLevel)
	}
	return c, &Failure{Stage: StagePostGate, Problems: problems}
}

// Finish discards the working directory, unless it is to be kept.
func Finish(_ context.Context, c Context) (Context, error) {
	sink := c.Options.sink()
	if err := staging.Cleanup(c.Session, false, sink); err != nil {
		c = c.warn(err.Error())
	}
	sink.Emit("========================================", logger.SuccessLevel)
	sink.Emit("  Process complete for: "+c.Slug(), logger.SuccessLevel)
	if !c.Options.Commit {
		sink.Emit("  Ready to Commit + Push", logger.SuccessLevel)
	}
	sink.Emit("========================================", logger.SuccessLevel)
	return c, nil
}

// Commit stages, commits and pushes the run's changes through git.
// Nothing to commit is passed through as gitctx.ErrNothingToCommit.
func Commit(ctx context.Context, c Context) (Context, error) {
	opts := c.Options
	sink := opts.sink()
	cfg := opts.config()
	sink.Emit("--- Committing Changes ---", logger.InfoLevel)

	res, err := gitctx.Commit(ctx, opts.runner(), c.Layout.Root, gitctx.Options{
		Slug:           c.Slug(),
		Template:       cfg.Git.CommitTemplate,
		AllowUnrelated: opts.AllowUnrelated,
		Push:           cfg.Git.Push,
		Binary:         cfg.Git.Binary,
		Timeout:        cfg.Git.Timeout,
		Sink:           sink,
	})
	c.Commit = res
	if errors.Is(err, gitctx.ErrNothingToCommit) {
		return c, err
	}
	if err != nil {
		sink.Emit(err.Error(), logger.ErrorLevel)
		return c, &Failure{Stage: StageCommit, Err: err}
	}
	sink.Emit("Successfully committed: "+c.Slug(), logger.SuccessLevel)
	return c, nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
