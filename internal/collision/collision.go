// Package collision finds destination artifacts that already exist for a slug.
package collision

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/resload/pkg/config"
)

// OverwriteHint follows a blocking collision message.
const OverwriteHint = "Enable 'Force overwrite' to replace them."

// Report describes the existing artifacts for a slug.
type Report struct {
	// Existing paths, relative to the resources dir with forward slashes.
	Existing []string
	// Blocking is set when artifacts exist and overwrite was not allowed.
	Blocking bool
	// Messages are the operator-facing lines: errors when blocking, otherwise a warning.
	Messages []string
}

// Clean reports whether nothing collides.
func (r Report) Clean() bool { return len(r.Existing) == 0 }

// Check scans the drafts, resources and images directories of layout for
// artifacts named after slug.
func Check(layout config.Paths, slug string, allowOverwrite bool) (Report, error) {
	if strings.TrimSpace(slug) == "" {
		return Report{}, errors.New("collision check: empty slug")
	}

	var existing []string
	for _, p := range []string{layout.Document(slug), layout.Rendered(slug)} {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			existing = append(existing, layout.RelToResources(p))
		}
	}

	for _, role := range []string{"header", "inline"} {
		matches, err := globImages(layout.Images, slug+"-"+role)
		if err != nil {
			return Report{}, err
		}
		for _, name := range matches {
			existing = append(existing, layout.RelToResources(filepath.Join(layout.Images, name)))
		}
	}

	r := Report{Existing: existing}
	if len(existing) == 0 {
		return r, nil
	}
	list := strings.Join(existing, ", ")
	if allowOverwrite {
		r.Messages = []string{fmt.Sprintf("Will overwrite existing files: %s", list)}
		return r, nil
	}
	r.Blocking = true
	r.Messages = []string{
		fmt.Sprintf("Slug collision! These files exist: %s", list),
		OverwriteHint,
	}
	return r, nil
}

// globImages lists regular files in dir named "<prefix>.<any extension>".
func globImages(dir, prefix string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), escapeMeta(prefix)+".*")
	if err != nil {
		return nil, fmt.Errorf("collision check in %s: %w", dir, err)
	}
	return regularFiles(dir, matches), nil
}

func regularFiles(dir string, names []string) []string {
	out := names[:0]
	for _, name := range names {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.Mode().IsRegular() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ListHTML returns up to limit html file names in dir, for diagnostics.
func ListHTML(dir string, limit int) []string {
	matches, err := doublestar.Glob(os.DirFS(dir), "*.html")
	if err != nil {
		return nil
	}
	matches = regularFiles(dir, matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
