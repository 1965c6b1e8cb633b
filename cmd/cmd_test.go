package cmd

import (
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/resload/internal/runner"
	"github.com/fulmenhq/resload/pkg/config"
	"github.com/fulmenhq/resload/pkg/exitcode"
)

const testSlug = "fleet-fuel-2024"

const testDoc = `---
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

const testPage = `<html><head>
<link rel="canonical" href="https://pro.foxfuel.com/resources/fleet-fuel-2024.html">
</head><body>
<section class="article-header"><h1>Fleet Fuel 2024</h1><span class="resource-card__tag--fleet">Fleet</span></section>
<figure class="article-hero-image"><img src="images/fleet-fuel-2024-header.png"></figure>
<article class="content-body"><p>Body text.</p></article>
</body></html>`

type testRepo struct {
	root   string
	layout config.Paths
	files  []string
}

func newTestRepo(t *testing.T, doc string, width int) testRepo {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scripts"), 0o755))
	for _, s := range []string{"generate-resources.js", "regenerate-index.js"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "scripts", s), []byte("//"), 0o644))
	}

	in := filepath.Join(root, "incoming")
	require.NoError(t, os.MkdirAll(in, 0o755))
	docPath := filepath.Join(in, "article.md")
	require.NoError(t, os.WriteFile(docPath, []byte(doc), 0o644))
	files := []string{docPath}
	for _, name := range []string{"banner-header.png", "chart-inline.png"} {
		p := filepath.Join(in, name)
		f, err := os.Create(p)
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, width, 2))))
		require.NoError(t, f.Close())
		files = append(files, p)
	}
	return testRepo{root: root, layout: config.Default().Resolve(root), files: files}
}

func (r testRepo) args(cmd string, extra ...string) []string {
	return append(append([]string{cmd, "--repo", r.root}, extra...), r.files...)
}

// useRunner swaps the process runner for the duration of the test.
func useRunner(t *testing.T, fake *runner.Fake) {
	t.Helper()
	prev := ingestRunner
	ingestRunner = fake
	t.Cleanup(func() { ingestRunner = prev })
}

func (r testRepo) rendering(page string) *runner.Fake {
	return &runner.Fake{Hook: func(c runner.Command) {
		if len(c.Args) > 0 && strings.HasSuffix(c.Args[0], "generate-resources.js") {
			_ = os.MkdirAll(r.layout.Resources, 0o755)
			_ = os.WriteFile(r.layout.Rendered(testSlug), []byte(page), 0o644)
		}
	}}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"My Resource Guide"}, "my-resource-guide"},
		{[]string{"Fleet", "Fuel", "2024"}, "fleet-fuel-2024"},
		{[]string{"  --Hello,   World!--  "}, "hello-world"},
	}
	for _, tt := range tests {
		out, err := execRoot(t, append([]string{"slug"}, tt.args...))
		require.NoError(t, err)
		assert.Equal(t, tt.want+"\n", out)
	}

	_, err := execRoot(t, []string{"slug", "!!!"})
	assert.Error(t, err)
}

func TestVersion_JSON(t *testing.T) {
	out, err := execRoot(t, []string{"version", "--json"})
	if err != nil {
		t.Fatalf("version --json failed: %v\n%s", err, out)
	}
	var v map[string]any
	if json.Unmarshal([]byte(out), &v) != nil {
		t.Fatalf("version output is not valid JSON: %s", out)
	}
	for _, key := range []string{"version", "goVersion", "platform"} {
		if _, ok := v[key].(string); !ok {
			t.Errorf("expected %s field in JSON", key)
		}
	}
	if _, ok := v["gitCommit"]; ok {
		t.Error("gitCommit is only reported with --extended")
	}
}

func TestVersion_Extended(t *testing.T) {
	out, err := execRoot(t, []string{"version", "--extended"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "resload "))
	assert.Contains(t, out, "Go Version: ")
	assert.Contains(t, out, "Git Commit: ")
}

func TestValidateCommand(t *testing.T) {
	r := newTestRepo(t, testDoc, 1200)

	out, err := execRoot(t, r.args("validate"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "Bundle OK: "+testSlug)
	assert.Contains(t, out, "Hero:     banner-header.png")
	assert.Contains(t, out, "Inline:   chart-inline.png")

	_, statErr := os.Stat(r.layout.Document(testSlug))
	assert.True(t, errors.Is(statErr, fs.ErrNotExist), "validate must not stage anything")
}

func TestValidateCommand_Failures(t *testing.T) {
	t.Run("narrow images", func(t *testing.T) {
		r := newTestRepo(t, testDoc, 200)
		_, err := execRoot(t, r.args("validate"))
		require.Error(t, err)
		assert.Equal(t, exitcode.ValidationError, exitCodeFor(err))
		assert.Contains(t, err.Error(), "200px")
	})

	t.Run("slug collision", func(t *testing.T) {
		r := newTestRepo(t, testDoc, 1200)
		require.NoError(t, os.MkdirAll(r.layout.Drafts, 0o755))
		require.NoError(t, os.WriteFile(r.layout.Document(testSlug), []byte("old"), 0o644))

		_, err := execRoot(t, r.args("validate"))
		require.Error(t, err)
		assert.Equal(t, exitcode.CollisionError, exitCodeFor(err))

		_, err = execRoot(t, r.args("validate", "--force"))
		assert.NoError(t, err)
	})

	t.Run("incomplete bundle", func(t *testing.T) {
		_, err := execRoot(t, []string{"validate", "--repo", filepath.Join(t.TempDir(), "missing"), "a.md"})
		require.Error(t, err)
	})
}

func TestIngestCommand(t *testing.T) {
	r := newTestRepo(t, testDoc, 1200)
	fake := r.rendering(testPage)
	useRunner(t, fake)

	out, err := execRoot(t, r.args("ingest"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "Ingested: "+testSlug)
	assert.FileExists(t, r.layout.Document(testSlug))
	assert.FileExists(t, r.layout.HeroImage(testSlug, ".png"))
	assert.True(t, fake.Ran("node "+filepath.Join(r.root, "scripts", "regenerate-index.js")))
	assert.False(t, fake.Ran("git "), "no git without --commit")
}

func TestIngestCommand_NeedsMetadata(t *testing.T) {
	r := newTestRepo(t, "# Fleet Fuel 2024\n\nBody text.\n", 1200)
	useRunner(t, r.rendering(testPage))

	out, err := execRoot(t, r.args("ingest"))
	require.Error(t, err)
	assert.Equal(t, exitcode.NeedsInput, exitCodeFor(err))
	assert.Contains(t, out, "has no front matter")
	assert.Contains(t, out, "slug: "+testSlug)
	assert.Contains(t, out, "title: Fleet Fuel 2024")

	answers := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(answers, []byte(`title: Fleet Fuel 2024
description: Planning fuel for mixed fleets
publishDate: "2024-03-01"
category: Fleet Operations
`), 0o644))
	out, err = execRoot(t, r.args("ingest", "--metadata", answers))
	require.NoError(t, err, out)
	assert.Contains(t, out, "Ingested: "+testSlug)
}

var sessionLine = regexp.MustCompile(`Session: (\S+)`)

func TestIngestThenRollback(t *testing.T) {
	r := newTestRepo(t, testDoc, 1200)
	broken := strings.Replace(testPage, `class="article-header"`, `class="header"`, 1)
	useRunner(t, r.rendering(broken))

	out, err := execRoot(t, r.args("ingest"))
	require.Error(t, err)
	assert.Equal(t, exitcode.GateError, exitCodeFor(err))
	assert.FileExists(t, r.layout.Document(testSlug), "failed runs keep staged files")

	m := sessionLine.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	session := m[1]

	out, err = execRoot(t, []string{"rollback", "--keep-temp", session})
	require.NoError(t, err)
	assert.Contains(t, out, "Rolled back: "+testSlug)
	assert.NoFileExists(t, r.layout.Document(testSlug))
	assert.NoFileExists(t, r.layout.HeroImage(testSlug, ".png"))
	assert.NoFileExists(t, r.layout.Rendered(testSlug))

	out, err = execRoot(t, []string{"rollback", session})
	require.NoError(t, err)
	assert.Contains(t, out, "Already rolled back: "+testSlug)
	assert.NoDirExists(t, session)
}

func TestCleanupCommand(t *testing.T) {
	r := newTestRepo(t, testDoc, 1200)
	useRunner(t, r.rendering(testPage))

	out, err := execRoot(t, r.args("ingest", "--keep-temp"))
	require.NoError(t, err, out)
	m := sessionLine.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	session := m[1]

	out, err = execRoot(t, []string{"cleanup", session})
	require.NoError(t, err)
	assert.Contains(t, out, "Kept: ")
	assert.DirExists(t, session)

	out, err = execRoot(t, []string{"cleanup", "--force", session})
	require.NoError(t, err)
	assert.Contains(t, out, "Cleaned up: ")
	assert.NoDirExists(t, session)

	_, err = execRoot(t, []string{"cleanup", session})
	require.Error(t, err)
	assert.Equal(t, exitcode.FileSystemError, exitCodeFor(err))
}

func TestCommitCommand(t *testing.T) {
	commitLine := "git commit -m Add scheduled resource: " + testSlug
	tests := []struct {
		name      string
		status    string
		commit    runner.Result
		extra     []string
		wantOut   string
		wantCode  int
		wantPush  bool
		wantCalls bool
	}{
		{
			name:      "commit and push",
			status:    " M resources/drafts/" + testSlug + ".md\n",
			wantOut:   "Committed: Add scheduled resource: " + testSlug,
			wantCode:  exitcode.Success,
			wantPush:  true,
			wantCalls: true,
		},
		{
			name:      "nothing to commit",
			commit:    runner.Result{ExitCode: 1, Stdout: "nothing to commit, working tree clean"},
			wantOut:   "Nothing to commit",
			wantCode:  exitcode.Success,
			wantCalls: true,
		},
		{
			name:     "unrelated changes block",
			status:   " M README.md\n",
			wantOut:  "unrelated: README.md",
			wantCode: exitcode.NeedsInput,
		},
		{
			name:      "unrelated changes allowed",
			status:    " M README.md\n",
			extra:     []string{"--allow-unrelated"},
			wantOut:   "Committed: ",
			wantCode:  exitcode.Success,
			wantPush:  true,
			wantCalls: true,
		},
		{
			name:      "commit fails",
			commit:    runner.Result{ExitCode: 128, Stderr: "fatal: bad object"},
			wantCode:  exitcode.VCSError,
			wantCalls: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRepo(t, testDoc, 1200)
			fake := &runner.Fake{Responses: map[string]runner.Response{
				"git status --porcelain": {Result: runner.Result{Stdout: tt.status}},
				commitLine:               {Result: tt.commit},
			}}
			useRunner(t, fake)

			args := append([]string{"commit", "--repo", r.root, "--slug", testSlug}, tt.extra...)
			out, err := execRoot(t, args)
			assert.Equal(t, tt.wantCode, exitCodeFor(err), "err: %v", err)
			if tt.wantOut != "" {
				assert.Contains(t, out, tt.wantOut)
			}
			assert.Equal(t, tt.wantCalls, fake.Ran("git add -A"))
			assert.Equal(t, tt.wantPush, fake.Ran("git push"))
		})
	}
}

func TestCommitCommand_RequiresSlug(t *testing.T) {
	r := newTestRepo(t, testDoc, 1200)
	_, err := execRoot(t, []string{"commit", "--repo", r.root})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slug")
}
