// Package gate holds the checks that run around the external generators:
// PreGeneration confirms the staged files landed, PostGeneration inspects the
// rendered artifact.
package gate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymerick/raymond"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/fulmenhq/resload/internal/collision"
	"github.com/fulmenhq/resload/internal/frontmatter"
	"github.com/fulmenhq/resload/pkg/config"
	"github.com/fulmenhq/resload/pkg/logger"
	"github.com/fulmenhq/resload/pkg/safeio"
)

const (
	// DefaultCanonicalTemplate renders the public URL of a resource page.
	DefaultCanonicalTemplate = "https://pro.foxfuel.com/resources/{{slug}}.html"

	headerClass  = "article-header"
	heroClass    = "article-hero-image"
	bodyClass    = "content-body"
	tagClassBase = "resource-card__tag--"
)

// CanonicalURL renders tpl with slug bound to {{slug}}.
func CanonicalURL(tpl, slug string) (string, error) {
	if tpl == "" {
		tpl = DefaultCanonicalTemplate
	}
	out, err := raymond.Render(tpl, map[string]string{"slug": slug})
	if err != nil {
		return "", fmt.Errorf("invalid canonical template: %w", err)
	}
	return out, nil
}

// PreGeneration checks that the staged document and both images are at their
// destinations and that the document still opens with a metadata block.
func PreGeneration(layout config.Paths, slug, heroExt, inlineExt string, window int, sink logger.Sink) []string {
	if sink == nil {
		sink = logger.Discard
	}
	if slug == "" {
		return []string{"No slug set - cannot validate pre-generator"}
	}
	sink.Emit("=== Pre-Generator Validation ===", logger.InfoLevel)

	var problems []string
	doc := layout.Document(slug)
	if data, err := os.ReadFile(doc); err != nil { // #nosec G304 -- destination path derived from layout
		problems = append(problems, "Markdown not found at destination: "+doc)
	} else if err := frontmatter.CheckBlock(data, window); err != nil {
		problems = append(problems, "YAML front matter validation failed: "+err.Error())
	} else {
		sink.Emit(fmt.Sprintf("  [OK] %s has valid YAML front matter", layout.RelToResources(doc)), logger.SuccessLevel)
	}

	for _, img := range []struct{ label, path string }{
		{"Hero", layout.HeroImage(slug, strings.ToLower(heroExt))},
		{"Inline", layout.InlineImage(slug, strings.ToLower(inlineExt))},
	} {
		if !safeio.Exists(img.path) {
			problems = append(problems, fmt.Sprintf("%s image not found at destination: %s", img.label, img.path))
			continue
		}
		sink.Emit(fmt.Sprintf("  [OK] %s exists", layout.RelToResources(img.path)), logger.SuccessLevel)
	}

	if len(problems) > 0 {
		sink.Emit("Pre-generator validation FAILED", logger.ErrorLevel)
	} else {
		sink.Emit("Pre-generator validation PASSED", logger.SuccessLevel)
	}
	return problems
}

// Expect is what the rendered artifact must agree with.
type Expect struct {
	Slug    string
	TagType string
	// Canonical is the expected canonical URL; empty skips the check.
	Canonical string
}

// PostGeneration inspects generated html. Problems are returned in a fixed
// order: header, hero, canonical, tag, body headings.
func PostGeneration(doc []byte, expect Expect) []string {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return []string{fmt.Sprintf("Cannot parse generated HTML: %v", err)}
	}

	var (
		headers, heroes, bodyH1 int
		canonicals             []string
	)
	tagClass := tagClassBase + expect.TagType

	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			class, hasClass := attr(n, "class")
			if hasClass {
				if class == headerClass {
					headers++
				}
				if strings.Contains(class, heroClass) {
					heroes++
				}
			}
			switch n.DataAtom {
			case atom.Link:
				if rel, _ := attr(n, "rel"); rel == "canonical" {
					href, _ := attr(n, "href")
					canonicals = append(canonicals, href)
				}
			case atom.H1:
				if inBody {
					bodyH1++
				}
			case atom.Article:
				if strings.Contains(class, bodyClass) {
					inBody = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(root, false)
	// matched anywhere in the page, not only in class attributes
	tagFound := expect.TagType != "" && bytes.Contains(doc, []byte(tagClass))

	var problems []string
	if headers != 1 {
		problems = append(problems, fmt.Sprintf("Expected exactly 1 .%s, found %d", headerClass, headers))
	}
	if heroes != 1 {
		problems = append(problems, fmt.Sprintf("Expected exactly 1 .%s, found %d", heroClass, heroes))
	}
	if expect.Canonical != "" && len(canonicals) > 0 && !contains(canonicals, expect.Canonical) {
		problems = append(problems, fmt.Sprintf("Canonical link URL mismatch (expected: %s)", expect.Canonical))
	}
	if expect.TagType != "" && !tagFound {
		problems = append(problems, "Missing tag class: "+tagClass)
	}
	if bodyH1 > 0 {
		problems = append(problems, fmt.Sprintf("Found %d H1 tag(s) inside article body (should be 0)", bodyH1))
	}
	return problems
}

// PostGenerationFile reads the rendered artifact for expect.Slug and runs
// PostGeneration on it. A missing artifact is itself a problem.
func PostGenerationFile(layout config.Paths, expect Expect, sink logger.Sink) []string {
	if sink == nil {
		sink = logger.Discard
	}
	path := layout.Rendered(expect.Slug)
	sink.Emit("=== HTML Validation ===", logger.InfoLevel)
	sink.Emit("  Expected: "+filepath.ToSlash(filepath.Join(filepath.Base(layout.Resources), filepath.Base(path))), logger.InfoLevel)
	sink.Emit("  Full path: "+path, logger.InfoLevel)

	data, err := os.ReadFile(path) // #nosec G304 -- destination path derived from layout
	if err != nil {
		existing := collision.ListHTML(layout.Resources, 10)
		sink.Emit(fmt.Sprintf("Existing HTML files in %s: %v", filepath.Base(layout.Resources), existing), logger.DebugLevel)
		return []string{"Generated HTML not found: " + path}
	}

	problems := PostGeneration(data, expect)
	if len(problems) > 0 {
		sink.Emit("HTML validation FAILED", logger.ErrorLevel)
	} else {
		sink.Emit("HTML validation PASSED", logger.SuccessLevel)
	}
	return problems
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
