package frontmatter

import "fmt"

// InjectResolvedPaths returns a copy of meta with hero.src and inlineImage.src
// set to the given resources-relative paths. Missing role mappings are created;
// the input is never modified.
func InjectResolvedPaths(meta Metadata, heroRel, inlineRel string) (Metadata, error) {
	if meta.IsZero() {
		return Metadata{}, fmt.Errorf("inject paths: metadata is empty")
	}
	out := meta.Clone()
	for _, p := range []struct{ role, src string }{
		{FieldHero, heroRel},
		{FieldInline, inlineRel},
	} {
		sub, ok := out.Sub(p.role)
		if !ok {
			sub = out.setSub(p.role, NewMetadata())
		}
		if err := sub.Set(FieldSrc, p.src); err != nil {
			return Metadata{}, fmt.Errorf("inject %s.%s: %w", p.role, FieldSrc, err)
		}
	}
	return out, nil
}
