package ingest

import (
	"context"
	"errors"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/resload/internal/frontmatter"
	"github.com/fulmenhq/resload/internal/generate"
	"github.com/fulmenhq/resload/internal/gitctx"
	"github.com/fulmenhq/resload/internal/runner"
	"github.com/fulmenhq/resload/internal/staging"
	"github.com/fulmenhq/resload/pkg/config"
	"github.com/fulmenhq/resload/pkg/logger"
)

const slug = "fleet-fuel-2024"

const validDoc = `---
title: Fleet Fuel 2024
shortTitle: Fleet Fuel
description: Planning fuel for mixed fleets
slug: fleet-fuel-2024
publishDate: "2024-03-01"
readTimeMinutes: 6
category: Fleet Operations
tagType: fleet
hero:
  alt: Trucks at the depot
inlineImage:
  alt: Fuel chart
---

# Fleet Fuel 2024

Body text.
`

const renderedPage = `<html><head>
<link rel="canonical" href="https://pro.foxfuel.com/resources/fleet-fuel-2024.html">
</head><body>
<section class="article-header"><h1>Fleet Fuel 2024</h1><span class="resource-card__tag--fleet">Fleet</span></section>
<figure class="article-hero-image"><img src="images/fleet-fuel-2024-header.png"></figure>
<article class="content-body"><p>Body text.</p></article>
</body></html>`

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

type repo struct {
	root   string
	layout config.Paths
	files  []string
	rec    *logger.Recorder
}

func writePNG(t *testing.T, path string, width int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, width, 2))))
}

func newRepo(t *testing.T, doc string, imageNames ...string) repo {
	t.Helper()
	root := t.TempDir()
	layout := config.Default().Resolve(root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "scripts"), 0o755))
	for _, s := range []string{"generate-resources.js", "regenerate-index.js"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "scripts", s), []byte("//"), 0o644))
	}

	in := filepath.Join(root, "incoming")
	require.NoError(t, os.MkdirAll(in, 0o755))
	docPath := filepath.Join(in, "article.md")
	require.NoError(t, os.WriteFile(docPath, []byte(doc), 0o644))

	if len(imageNames) == 0 {
		imageNames = []string{"banner-header.png", "chart-inline.png"}
	}
	files := []string{docPath}
	for _, n := range imageNames {
		p := filepath.Join(in, n)
		writePNG(t, p, 1200)
		files = append(files, p)
	}
	return repo{root: root, layout: layout, files: files, rec: &logger.Recorder{}}
}

// renderingRunner writes page as the rendered artifact when the renderer runs.
func (r repo) renderingRunner(page string) *runner.Fake {
	return &runner.Fake{Hook: func(cmd runner.Command) {
		if len(cmd.Args) > 0 && strings.HasSuffix(cmd.Args[0], "generate-resources.js") {
			_ = os.MkdirAll(r.layout.Resources, 0o755)
			_ = os.WriteFile(r.layout.Rendered(slug), []byte(page), 0o644)
		}
	}}
}

func (r repo) options(fake runner.Runner) Options {
	return Options{
		Root:   r.root,
		Files:  r.files,
		Runner: fake,
		Sink:   r.rec,
		Now:    fixedNow,
	}
}

func TestRunSuccess(t *testing.T) {
	r := newRepo(t, validDoc)
	fake := r.renderingRunner(renderedPage)

	out, err := Run(context.Background(), r.options(fake))
	require.NoError(t, err)
	assert.Equal(t, slug, out.Slug)
	require.NotNil(t, out.Session)

	for _, p := range []string{
		r.layout.Document(slug),
		r.layout.HeroImage(slug, ".png"),
		r.layout.InlineImage(slug, ".png"),
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	_, err = os.Stat(out.Session.WorkDir)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "working directory is discarded on success")

	doc, err := os.ReadFile(r.layout.Document(slug))
	require.NoError(t, err)
	assert.Contains(t, string(doc), "src: images/fleet-fuel-2024-header.png")

	assert.Len(t, fake.Calls(), 2)
	assert.Contains(t, r.rec.Messages(logger.SuccessLevel), "  Process complete for: "+slug)
	require.NotEmpty(t, out.Warnings)
	assert.True(t, strings.HasPrefix(out.Warnings[0], "Using default tag types"), out.Warnings[0])
}

func TestRunKeepRetainsWorkDir(t *testing.T) {
	r := newRepo(t, validDoc)
	opts := r.options(r.renderingRunner(renderedPage))
	opts.Keep = true

	out, err := Run(context.Background(), opts)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(out.Session.WorkDir, staging.SessionFile))
	assert.NoError(t, err)
}

func TestRunPostGateFailurePreservesState(t *testing.T) {
	r := newRepo(t, validDoc)
	bad := strings.Replace(renderedPage, "<figure", `<section class="article-header"></section><figure`, 1)
	opts := r.options(r.renderingRunner(bad))
	opts.Debug = true

	out, err := Run(context.Background(), opts)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, StagePostGate, f.Stage)
	assert.Equal(t, []string{"Expected exactly 1 .article-header, found 2"}, f.Problems)

	// nothing is rolled back
	_, statErr := os.Stat(r.layout.Document(slug))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(out.Session.WorkDir)
	assert.NoError(t, statErr)
	for _, name := range []string{slug + ".html", slug + ".md"} {
		_, statErr = os.Stat(filepath.Join(r.layout.LastFailed(), name))
		assert.NoError(t, statErr, name)
	}

	// explicit rollback removes the staged files and the generated artifact
	require.NoError(t, staging.Rollback(out.Session, nil))
	for _, p := range []string{r.layout.Document(slug), r.layout.Rendered(slug), r.layout.HeroImage(slug, ".png")} {
		_, statErr = os.Stat(p)
		assert.True(t, errors.Is(statErr, fs.ErrNotExist), p)
	}
}

func TestRunGeneratorFailure(t *testing.T) {
	r := newRepo(t, validDoc)
	fake := &runner.Fake{Default: &runner.Response{Result: runner.Result{ExitCode: 1, Stderr: "SyntaxError"}}}

	out, err := Run(context.Background(), r.options(fake))
	stage, ok := StageOf(err)
	require.True(t, ok)
	assert.Equal(t, StageGenerator, stage)

	var gf *generate.Failure
	require.ErrorAs(t, err, &gf)
	assert.Equal(t, generate.KindExit, gf.Kind)
	assert.Equal(t, "SyntaxError", gf.Stderr)
	assert.Len(t, fake.Calls(), 1, "indexer does not run after a renderer failure")

	_, statErr := os.Stat(out.Session.WorkDir)
	assert.NoError(t, statErr)
}

func TestRunNeedsMetadata(t *testing.T) {
	body := "# Fleet Fuel 2024\n\nNo front matter here.\n"

	t.Run("signal", func(t *testing.T) {
		r := newRepo(t, body)
		_, err := Run(context.Background(), r.options(&runner.Fake{}))
		var nm *NeedsMetadataError
		require.ErrorAs(t, err, &nm)
		assert.Equal(t, "Fleet Fuel 2024", nm.Title)
		assert.Equal(t, body, nm.Body)
		assert.True(t, NeedsInput(err))
		_, ok := StageOf(err)
		assert.False(t, ok, "missing metadata is not a stage failure")
	})

	t.Run("answers", func(t *testing.T) {
		r := newRepo(t, body)
		opts := r.options(r.renderingRunner(strings.Replace(renderedPage, "tag--fleet", "tag--fleet resource-card__tag--construction", 1)))
		opts.Answers = &frontmatter.Answers{Description: "Fuel planning"}

		out, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, slug, out.Slug)
		assert.True(t, out.Session.Injected)

		doc, err := os.ReadFile(r.layout.Document(slug))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(doc), "---\ntitle: Fleet Fuel 2024\nshortTitle: Fleet Fuel 2024\n"), string(doc))
		assert.Contains(t, string(doc), "publishDate: \"2024-03-01\"")
	})
}

func TestCheckRoles(t *testing.T) {
	r := newRepo(t, validDoc, "photo1.png", "photo2.png")

	_, err := Check(context.Background(), r.options(nil))
	var ar *AmbiguousRolesError
	require.ErrorAs(t, err, &ar)
	assert.True(t, NeedsInput(err))

	opts := r.options(nil)
	opts.Hero = "photo2.png"
	c, err := Check(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "photo2.png", filepath.Base(c.Roles.Hero))
	assert.Equal(t, "photo1.png", filepath.Base(c.Roles.Inline))
}

func TestCheckCollectsEveryProblem(t *testing.T) {
	doc := "---\ntitle: T\nslug: Bad_Slug\ntagType: fleet\n---\n\nBody\n"
	r := newRepo(t, doc)
	writePNG(t, r.files[2], 640)

	_, err := Check(context.Background(), r.options(nil))
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, StageValidation, f.Stage)
	assert.Equal(t, []string{
		"Missing required field: shortTitle",
		"Missing required field: description",
		"Missing required field: publishDate",
		"Missing required field: readTimeMinutes",
		"Missing required field: category",
		"Missing required field: hero.alt",
		"Missing required field: inlineImage.alt",
		"Slug must be lowercase alphanumeric with hyphens only: Bad_Slug",
		"Image width 640px is below minimum 1024px: chart-inline.png",
	}, f.Problems)
}

func TestCheckCollision(t *testing.T) {
	r := newRepo(t, validDoc)
	require.NoError(t, os.MkdirAll(r.layout.Drafts, 0o755))
	require.NoError(t, os.WriteFile(r.layout.Document(slug), []byte("old"), 0o644))

	_, err := Check(context.Background(), r.options(nil))
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, StageCollision, f.Stage)
	assert.Contains(t, f.Problems[0], "drafts/fleet-fuel-2024.md")

	opts := r.options(nil)
	opts.AllowOverwrite = true
	c, err := Check(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, c.Collision.Blocking)
	assert.Contains(t, c.Warnings, "Will overwrite existing files: drafts/fleet-fuel-2024.md")
}

func TestCheckBundleShape(t *testing.T) {
	r := newRepo(t, validDoc)
	opts := r.options(nil)
	opts.Files = r.files[:2]
	_, err := Check(context.Background(), opts)
	stage, ok := StageOf(err)
	require.True(t, ok)
	assert.Equal(t, StageLoad, stage)
}

func TestRunCommit(t *testing.T) {
	tests := []struct {
		name        string
		commitResp  runner.Result
		nothing     bool
		wantErr     bool
		wantPushRan bool
	}{
		{name: "commit and push", wantPushRan: true},
		{name: "nothing to commit", commitResp: runner.Result{ExitCode: 1, Stdout: "nothing to commit, working tree clean"}, nothing: true},
		{name: "commit fails", commitResp: runner.Result{ExitCode: 128, Stderr: "fatal: not a git repository"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRepo(t, validDoc)
			fake := r.renderingRunner(renderedPage)
			fake.Responses = map[string]runner.Response{
				"git commit -m Add scheduled resource: " + slug: {Result: tt.commitResp},
			}
			opts := r.options(fake)
			opts.Commit = true

			out, err := Run(context.Background(), opts)
			if tt.wantErr {
				stage, ok := StageOf(err)
				require.True(t, ok)
				assert.Equal(t, StageCommit, stage)
				var ce *gitctx.CommandError
				assert.ErrorAs(t, err, &ce)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.nothing, out.NothingToCommit)
			assert.Equal(t, tt.wantPushRan, fake.Ran("git push"))
			assert.True(t, fake.Ran("git status --porcelain"))
		})
	}
}

func TestParseAnswers(t *testing.T) {
	a, err := ParseAnswers([]byte("description: Fuel planning\nreadTimeMinutes: 8\npublishDate: 2024-05-01\n"))
	require.NoError(t, err)
	assert.Equal(t, "Fuel planning", a.Description)
	assert.Equal(t, 8, a.ReadTimeMinutes)
	assert.Equal(t, "2024-05-01", a.PublishDate)

	for _, bad := range []string{
		"readTimeMinutes: 8\n",
		"description: x\nreadTimeMinutes: 0\n",
		"description: x\nslug: Not Valid\n",
		"description: x\ncolour: blue\n",
		"",
	} {
		_, err := ParseAnswers([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestParseAnswersPlainDateAndEmptyFields(t *testing.T) {
	a, err := ParseAnswers([]byte("title: Fleet Fuel Guide\ndescription: d\npublishDate: 2024-05-01\nslug: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", a.PublishDate)
	assert.Empty(t, a.Slug)
	assert.Equal(t, "fleet-fuel-guide", a.WithDefaults("", time.Now()).Slug)

	_, err = ParseAnswers([]byte("description: d\npublishDate: 2024-05-01T10:00:00Z\n"))
	assert.Error(t, err, "full timestamps are not dates")

	_, err = ParseAnswers([]byte("description: \"\"\n"))
	assert.Error(t, err, "empty description is still missing")
}

func TestParseAnswersAcceptsRenderedTemplate(t *testing.T) {
	// a document without an H1 heading leaves title and slug empty
	tmpl := frontmatter.Answers{}.WithDefaults("", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	tmpl.Description = "Fuel planning"
	raw, err := yaml.Marshal(tmpl)
	require.NoError(t, err)
	require.Contains(t, string(raw), "slug: \"\"")

	a, err := ParseAnswers(raw)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", a.PublishDate)
	a.Title = "Fleet Fuel Guide"
	assert.Equal(t, "fleet-fuel-guide", a.WithDefaults("", time.Now()).Slug)
}
