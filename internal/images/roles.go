package images

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Role is the part an image plays in a resource page.
type Role string

const (
	RoleNone   Role = ""
	RoleHero   Role = "hero"
	RoleInline Role = "inline"
)

// ParseRole accepts "hero" (or "header") and "inline".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hero", "header":
		return RoleHero, nil
	case "inline":
		return RoleInline, nil
	default:
		return RoleNone, fmt.Errorf("unknown image role %q (want hero or inline)", s)
	}
}

// Roles is the outcome of role detection. Hero and Inline are empty when
// Ambiguous is set.
type Roles struct {
	Hero      string
	Inline    string
	Ambiguous bool
}

// Hint reads the role suggested by a filename stem.
func Hint(path string) Role {
	base := filepath.Base(path)
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	switch {
	case strings.Contains(stem, "header"), strings.Contains(stem, "hero"):
		return RoleHero
	case strings.Contains(stem, "inline"):
		return RoleInline
	default:
		return RoleNone
	}
}

// DetectRoles assigns hero and inline from filename hints. It needs exactly
// two images. One hinted image settles the other by elimination; two images
// hinted to the same role, or no hints at all, are ambiguous.
func DetectRoles(paths []string) Roles {
	if len(paths) != 2 {
		return Roles{Ambiguous: true}
	}
	a, b := Hint(paths[0]), Hint(paths[1])

	switch {
	case a == b:
		return Roles{Ambiguous: true}
	case a == RoleHero || b == RoleInline:
		return Roles{Hero: paths[0], Inline: paths[1]}
	default:
		return Roles{Hero: paths[1], Inline: paths[0]}
	}
}

// Resolve applies an explicit operator choice: hero names which of the two
// images is the hero.
func Resolve(paths []string, hero string) (Roles, error) {
	if len(paths) != 2 {
		return Roles{}, fmt.Errorf("need exactly 2 images, got %d", len(paths))
	}
	for i, p := range paths {
		if p == hero || filepath.Base(p) == hero {
			return Roles{Hero: p, Inline: paths[1-i]}, nil
		}
	}
	return Roles{}, fmt.Errorf("hero image %s is not one of the bundle images", hero)
}
