package frontmatter

import (
	"regexp"
	"strings"
)

var (
	slugSpace   = regexp.MustCompile(`[\s\p{Zs}]+`)
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugHyphens = regexp.MustCompile(`-+`)
)

// Slugify converts text to a URL-safe slug: lower-case, whitespace runs become
// a hyphen, anything outside [a-z0-9-] is dropped, hyphen runs collapse and
// leading or trailing hyphens are trimmed.
func Slugify(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	s = slugSpace.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
