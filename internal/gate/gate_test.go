package gate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/resload/pkg/config"
	"github.com/fulmenhq/resload/pkg/logger"
)

const goodPage = `<!DOCTYPE html>
<html>
<head>
  <link rel="canonical" href="https://pro.foxfuel.com/resources/fleet-fuel-2024.html">
</head>
<body>
  <section class="article-header">
    <h1>Fleet Fuel 2024</h1>
    <span class="resource-card__tag resource-card__tag--fleet">Fleet</span>
    <div class="article-header__meta">6 min read</div>
  </section>
  <figure class="article-hero-image"><img src="images/fleet-fuel-2024-header.png"></figure>
  <article class="content-body">
    <h2>Overview</h2>
    <p>Text</p>
  </article>
</body>
</html>`

var goodExpect = Expect{
	Slug:      "fleet-fuel-2024",
	TagType:   "fleet",
	Canonical: "https://pro.foxfuel.com/resources/fleet-fuel-2024.html",
}

func TestCanonicalURL(t *testing.T) {
	got, err := CanonicalURL("", "fleet-fuel-2024")
	require.NoError(t, err)
	assert.Equal(t, "https://pro.foxfuel.com/resources/fleet-fuel-2024.html", got)

	got, err = CanonicalURL("https://example.com/r/{{slug}}/", "a-b")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/r/a-b/", got)

	_, err = CanonicalURL("https://example.com/{{slug", "a")
	assert.Error(t, err)
}

func TestPostGeneration(t *testing.T) {
	tests := []struct {
		name   string
		page   string
		expect Expect
		want   []string
	}{
		{
			name:   "passes",
			page:   goodPage,
			expect: goodExpect,
		},
		{
			name:   "duplicate header",
			page:   strings.Replace(goodPage, `<figure`, `<section class="article-header"></section><figure`, 1),
			expect: goodExpect,
			want:   []string{"Expected exactly 1 .article-header, found 2"},
		},
		{
			name:   "bem variants are not headers",
			page:   strings.Replace(goodPage, `<section class="article-header">`, `<section class="article-header__wrap">`, 1),
			expect: goodExpect,
			want:   []string{"Expected exactly 1 .article-header, found 0"},
		},
		{
			name:   "hero missing",
			page:   strings.Replace(goodPage, `class="article-hero-image"`, `class="figure"`, 1),
			expect: goodExpect,
			want:   []string{"Expected exactly 1 .article-hero-image, found 0"},
		},
		{
			name:   "canonical mismatch",
			page:   strings.Replace(goodPage, "fleet-fuel-2024.html\"", "other.html\"", 1),
			expect: goodExpect,
			want:   []string{"Canonical link URL mismatch (expected: https://pro.foxfuel.com/resources/fleet-fuel-2024.html)"},
		},
		{
			name:   "canonical absent",
			page:   strings.Replace(goodPage, `<link rel="canonical" href="https://pro.foxfuel.com/resources/fleet-fuel-2024.html">`, "", 1),
			expect: goodExpect,
		},
		{
			name:   "tag class missing",
			page:   goodPage,
			expect: Expect{Slug: goodExpect.Slug, TagType: "healthcare", Canonical: goodExpect.Canonical},
			want:   []string{"Missing tag class: resource-card__tag--healthcare"},
		},
		{
			name:   "tag class outside a class attribute",
			page:   strings.Replace(goodPage, `class="resource-card__tag resource-card__tag--fleet"`, `data-tag="resource-card__tag--healthcare"`, 1),
			expect: Expect{Slug: goodExpect.Slug, TagType: "healthcare", Canonical: goodExpect.Canonical},
		},
		{
			name:   "no tag type skips tag check",
			page:   goodPage,
			expect: Expect{Slug: goodExpect.Slug, Canonical: goodExpect.Canonical},
		},
		{
			name:   "h1 in body",
			page:   strings.Replace(goodPage, "<h2>Overview</h2>", "<h1>Again</h1><div><h1>Nested</h1></div>", 1),
			expect: goodExpect,
			want:   []string{"Found 2 H1 tag(s) inside article body (should be 0)"},
		},
		{
			name: "everything wrong keeps order",
			page: `<html><head><link rel="canonical" href="x"></head><body>
				<article class="content-body"><h1>T</h1></article></body></html>`,
			expect: goodExpect,
			want: []string{
				"Expected exactly 1 .article-header, found 0",
				"Expected exactly 1 .article-hero-image, found 0",
				"Canonical link URL mismatch (expected: https://pro.foxfuel.com/resources/fleet-fuel-2024.html)",
				"Missing tag class: resource-card__tag--fleet",
				"Found 1 H1 tag(s) inside article body (should be 0)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PostGeneration([]byte(tt.page), tt.expect)
			assert.Equal(t, tt.want, got)
		})
	}
}

func layoutWithDestinations(t *testing.T, slug string) config.Paths {
	t.Helper()
	layout := config.Default().Resolve(t.TempDir())
	require.NoError(t, os.MkdirAll(layout.Drafts, 0o755))
	require.NoError(t, os.MkdirAll(layout.Images, 0o755))
	require.NoError(t, os.WriteFile(layout.Document(slug), []byte("---\ntitle: T\n---\n\nBody\n"), 0o644))
	require.NoError(t, os.WriteFile(layout.HeroImage(slug, ".png"), []byte("h"), 0o644))
	require.NoError(t, os.WriteFile(layout.InlineImage(slug, ".jpg"), []byte("i"), 0o644))
	return layout
}

func TestPreGeneration(t *testing.T) {
	t.Run("passes", func(t *testing.T) {
		layout := layoutWithDestinations(t, "q3")
		rec := &logger.Recorder{}
		assert.Empty(t, PreGeneration(layout, "q3", ".PNG", ".jpg", 2000, rec))
		assert.Contains(t, rec.Messages(logger.SuccessLevel), "Pre-generator validation PASSED")
	})

	t.Run("missing everything", func(t *testing.T) {
		layout := config.Default().Resolve(t.TempDir())
		got := PreGeneration(layout, "q3", ".png", ".jpg", 2000, nil)
		assert.Equal(t, []string{
			"Markdown not found at destination: " + layout.Document("q3"),
			"Hero image not found at destination: " + layout.HeroImage("q3", ".png"),
			"Inline image not found at destination: " + layout.InlineImage("q3", ".jpg"),
		}, got)
	})

	t.Run("broken block", func(t *testing.T) {
		layout := layoutWithDestinations(t, "q3")
		require.NoError(t, os.WriteFile(layout.Document("q3"), []byte("# no block\n"), 0o644))
		got := PreGeneration(layout, "q3", ".png", ".jpg", 2000, nil)
		require.Len(t, got, 1)
		assert.True(t, strings.HasPrefix(got[0], "YAML front matter validation failed: "), got[0])
	})

	t.Run("no slug", func(t *testing.T) {
		got := PreGeneration(config.Paths{}, "", ".png", ".png", 2000, nil)
		assert.Equal(t, []string{"No slug set - cannot validate pre-generator"}, got)
	})
}

func TestPostGenerationFile(t *testing.T) {
	layout := config.Default().Resolve(t.TempDir())
	require.NoError(t, os.MkdirAll(layout.Resources, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(layout.Resources, "index.html"), []byte("<html></html>"), 0o644))

	rec := &logger.Recorder{}
	got := PostGenerationFile(layout, goodExpect, rec)
	assert.Equal(t, []string{"Generated HTML not found: " + layout.Rendered("fleet-fuel-2024")}, got)
	assert.Contains(t, rec.Messages(logger.DebugLevel), "Existing HTML files in resources: [index.html]")

	require.NoError(t, os.WriteFile(layout.Rendered("fleet-fuel-2024"), []byte(goodPage), 0o644))
	assert.Empty(t, PostGenerationFile(layout, goodExpect, nil))
}
