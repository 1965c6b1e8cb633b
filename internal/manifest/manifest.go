// Package manifest reads the set of valid tagType values from the
// publishing repository's resources manifest.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/resload/internal/assets"
	"github.com/fulmenhq/resload/internal/schema"
)

// DefaultTags is used whenever the manifest cannot supply a tag set.
var DefaultTags = []string{"fleet", "construction", "critical", "decision", "healthcare", "manufacturing"}

// Tags is the resolved tag set.
type Tags struct {
	Values []string
	// Fallback is set when Values came from DefaultTags.
	Fallback bool
	// Reason explains a fallback.
	Reason string
}

// Load reads the manifest at path and returns the keys of categoryTags in
// document order. Any problem with the manifest yields the default set with
// Fallback set; it is never an error.
func Load(path string) Tags {
	tags, err := load(path)
	if err != nil {
		return Tags{
			Values:   append([]string(nil), DefaultTags...),
			Fallback: true,
			Reason:   err.Error(),
		}
	}
	return Tags{Values: tags}
}

func load(path string) ([]string, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- manifest path comes from repository layout config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read manifest: %w", err)
	}

	res, err := schema.ValidateJSON(raw, assets.ManifestSchema)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	if !res.Valid {
		return nil, fmt.Errorf("manifest %s failed schema validation: %s", path, strings.Join(res.Messages(), "; "))
	}

	keys, err := categoryKeys(raw)
	if err != nil {
		return nil, fmt.Errorf("manifest %s categoryTags: %w", path, err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("manifest %s has no categoryTags", path)
	}
	return keys, nil
}

// categoryKeys returns the keys of the top-level categoryTags object in
// source order. JSON is read as YAML so mapping nodes keep their order.
func categoryKeys(raw []byte) ([]string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected an object")
	}
	top := root.Content[0]
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value != "categoryTags" {
			continue
		}
		tags := top.Content[i+1]
		if tags.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("expected an object")
		}
		keys := make([]string, 0, len(tags.Content)/2)
		for j := 0; j+1 < len(tags.Content); j += 2 {
			keys = append(keys, tags.Content[j].Value)
		}
		return keys, nil
	}
	return nil, nil
}
