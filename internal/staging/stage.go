package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/resload/internal/frontmatter"
	"github.com/fulmenhq/resload/pkg/config"
	"github.com/fulmenhq/resload/pkg/logger"
	"github.com/fulmenhq/resload/pkg/safeio"
)

// StageInput is everything Stage needs. Document must already be validated.
type StageInput struct {
	Layout         config.Paths
	Document       frontmatter.Document
	HeroPath       string
	InlinePath     string
	AllowOverwrite bool
	// Keep retains the working directory through Cleanup unless forced.
	Keep bool
	// Now defaults to time.Now.
	Now  func() time.Time
	Sink logger.Sink
}

// Stage copies the bundle into a fresh working directory, renders the
// canonical document there and then copies document and images to their
// destinations. A failing step returns *StageError and leaves everything
// already written in place.
func Stage(ctx context.Context, in StageInput) (*Session, error) {
	sink := in.Sink
	if sink == nil {
		sink = logger.Discard
	}
	now := time.Now
	if in.Now != nil {
		now = in.Now
	}
	slug := in.Document.Metadata.Slug()
	if slug == "" {
		return nil, &StageError{Step: StepWorkDir, Err: fmt.Errorf("document has no slug")}
	}

	sink.Emit("=== Source Files (Original Locations) ===", logger.InfoLevel)
	sink.Emit("  Hero Image: "+in.HeroPath, logger.InfoLevel)
	sink.Emit("  Inline Image: "+in.InlinePath, logger.InfoLevel)

	// working directory
	s, err := newSession(in.Layout, slug, now())
	if err != nil {
		return nil, &StageError{Step: StepWorkDir, Err: err}
	}
	s.Keep = in.Keep
	s.Injected = in.Document.Injected
	s.HeroExt = strings.ToLower(filepath.Ext(in.HeroPath))
	s.InlineExt = strings.ToLower(filepath.Ext(in.InlinePath))
	sink.Emit("=== Temp Bundle Folder ===", logger.InfoLevel)
	sink.Emit("  "+s.WorkDir, logger.InfoLevel)

	fail := func(step Step, err error) (*Session, error) {
		sink.Emit(fmt.Sprintf("Staging failed: %v", err), logger.ErrorLevel)
		_ = s.Save()
		return s, &StageError{Step: step, Session: s, Err: err}
	}

	// destination directories
	for _, dir := range []string{in.Layout.Drafts, in.Layout.Images} {
		for _, m := range missingDirs(dir) {
			if !containsPath(s.CreatedDirs, m) {
				s.CreatedDirs = append(s.CreatedDirs, m)
			}
		}
		if err := config.EnsureDir(dir); err != nil {
			return fail(StepDestDirs, err)
		}
	}

	// images into the working directory under normalized names
	heroName := filepath.Base(s.Hero())
	inlineName := filepath.Base(s.Inline())
	workHero := filepath.Join(s.WorkDir, heroName)
	workInline := filepath.Join(s.WorkDir, inlineName)
	for _, c := range []struct{ src, dst, role string }{
		{in.HeroPath, workHero, "hero"},
		{in.InlinePath, workInline, "inline"},
	} {
		if err := ctx.Err(); err != nil {
			return fail(StepCopyImages, err)
		}
		if err := safeio.CopyFile(c.src, c.dst); err != nil {
			return fail(StepCopyImages, fmt.Errorf("copy %s image: %w", c.role, err))
		}
		sink.Emit(fmt.Sprintf("  Copied %s -> %s", c.role, filepath.Base(c.dst)), logger.InfoLevel)
	}

	// resolved image paths
	meta, err := frontmatter.InjectResolvedPaths(in.Document.Metadata,
		in.Layout.RelToResources(s.Hero()), in.Layout.RelToResources(s.Inline()))
	if err != nil {
		return fail(StepInjectPaths, err)
	}

	// canonical document
	rendered, err := frontmatter.Render(frontmatter.Document{Metadata: meta, Body: in.Document.Body})
	if err != nil {
		return fail(StepRender, err)
	}

	docName := filepath.Base(s.Document())
	workDoc := filepath.Join(s.WorkDir, docName)
	if err := os.WriteFile(workDoc, rendered, 0o644); err != nil {
		return fail(StepWriteDocument, err)
	}
	sink.Emit(fmt.Sprintf("  Created %s (UTF-8, LF)", docName), logger.InfoLevel)
	if s.Injected {
		sink.Emit("  YAML front matter: INJECTED (was not in source)", logger.WarnLevel)
	} else {
		sink.Emit("  YAML front matter: PRESERVED (was in source)", logger.SuccessLevel)
	}

	// snapshots; a pre-existing rendered artifact is always captured
	dests := []struct{ work, dest string }{
		{workDoc, s.Document()},
		{workHero, s.Hero()},
		{workInline, s.Inline()},
	}
	candidates := []string{s.Rendered()}
	if in.AllowOverwrite {
		candidates = []string{s.Document(), s.Hero(), s.Inline(), s.Rendered()}
	}
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fail(StepSnapshot, err)
		}
		data, err := os.ReadFile(p) // #nosec G304 -- destination path derived from layout
		if err != nil {
			return fail(StepSnapshot, err)
		}
		if err := s.addSnapshot(p, data, info.Mode()); err != nil {
			return fail(StepSnapshot, err)
		}
		sink.Emit("Backed up: "+filepath.Base(p), logger.InfoLevel)
	}

	// publish
	if !in.AllowOverwrite {
		for _, d := range dests {
			if safeio.Exists(d.dest) {
				return fail(StepPublish, fmt.Errorf("%s: %w", in.Layout.RelToResources(d.dest), ErrExists))
			}
		}
	}
	sink.Emit("=== Final Destination Paths ===", logger.InfoLevel)
	for _, d := range dests {
		if err := ctx.Err(); err != nil {
			return fail(StepPublish, err)
		}
		if err := safeio.CopyFile(d.work, d.dest); err != nil {
			return fail(StepPublish, err)
		}
		// recorded as it lands so a later failure can still be rolled back
		s.Staged = append(s.Staged, d.dest)
		sink.Emit("  "+in.Layout.RelToResources(d.dest), logger.InfoLevel)
	}

	if err := s.Save(); err != nil {
		return fail(StepRecord, err)
	}
	sink.Emit(fmt.Sprintf("Staged %d files for slug: %s", len(s.Staged), slug), logger.SuccessLevel)
	return s, nil
}

// missingDirs returns dir and each ancestor that does not exist yet,
// outermost first.
func missingDirs(dir string) []string {
	var missing []string
	for d := filepath.Clean(dir); !safeio.Exists(d); {
		missing = append([]string{d}, missing...)
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return missing
}

func containsPath(list []string, p string) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
