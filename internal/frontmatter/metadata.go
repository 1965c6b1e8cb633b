// Package frontmatter parses, validates and re-serializes the YAML metadata
// block at the top of a resource document.
package frontmatter

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Field names of the metadata block.
const (
	FieldTitle       = "title"
	FieldShortTitle  = "shortTitle"
	FieldDescription = "description"
	FieldSlug        = "slug"
	FieldPublishDate = "publishDate"
	FieldReadTime    = "readTimeMinutes"
	FieldCategory    = "category"
	FieldTagType     = "tagType"
	FieldHero        = "hero"
	FieldInline      = "inlineImage"
	FieldAlt         = "alt"
	FieldSrc         = "src"
)

// RequiredFields lists the top-level keys every document must carry, in report order.
var RequiredFields = []string{
	FieldTitle, FieldShortTitle, FieldDescription, FieldSlug,
	FieldPublishDate, FieldReadTime, FieldCategory, FieldTagType,
}

// Metadata is an ordered YAML mapping. Key order survives a parse/render cycle.
type Metadata struct {
	node *yaml.Node
}

// NewMetadata returns an empty mapping.
func NewMetadata() Metadata {
	return Metadata{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// FromNode wraps a decoded YAML node. Document nodes are unwrapped; anything
// other than a mapping with unique keys is rejected.
func FromNode(n *yaml.Node) (Metadata, error) {
	if n != nil && n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return Metadata{}, fmt.Errorf("front matter is empty")
		}
		n = n.Content[0]
	}
	if n == nil || n.Kind == 0 {
		return Metadata{}, fmt.Errorf("front matter is empty")
	}
	if n.Kind != yaml.MappingNode {
		return Metadata{}, fmt.Errorf("front matter must be a YAML mapping")
	}
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if seen[key] {
			return Metadata{}, fmt.Errorf("duplicate front matter key: %s", key)
		}
		seen[key] = true
	}
	return Metadata{node: n}, nil
}

// IsZero reports whether m wraps no mapping at all.
func (m Metadata) IsZero() bool { return m.node == nil }

// Node exposes the underlying mapping node.
func (m Metadata) Node() *yaml.Node { return m.node }

// Keys returns the top-level keys in document order.
func (m Metadata) Keys() []string {
	if m.node == nil {
		return nil
	}
	keys := make([]string, 0, len(m.node.Content)/2)
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		keys = append(keys, m.node.Content[i].Value)
	}
	return keys
}

// Lookup returns the value node for key.
func (m Metadata) Lookup(key string) (*yaml.Node, bool) {
	if m.node == nil {
		return nil, false
	}
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		if m.node.Content[i].Value == key {
			return m.node.Content[i+1], true
		}
	}
	return nil, false
}

// Has reports whether key is present with a non-null value.
func (m Metadata) Has(key string) bool {
	v, ok := m.Lookup(key)
	return ok && !isNull(v)
}

// String returns the scalar text of key, or "" when it is absent, null or not a scalar.
func (m Metadata) String(key string) string {
	v, ok := m.Lookup(key)
	if !ok || isNull(v) || v.Kind != yaml.ScalarNode {
		return ""
	}
	return v.Value
}

// Sub returns the nested mapping under key. ok is false when key is absent,
// null or holds something other than a mapping.
func (m Metadata) Sub(key string) (Metadata, bool) {
	v, found := m.Lookup(key)
	if !found || v.Kind != yaml.MappingNode {
		return Metadata{}, false
	}
	return Metadata{node: v}, true
}

// Set stores value under key, appending the key when it is new.
func (m Metadata) Set(key string, value any) error {
	if m.node == nil {
		return fmt.Errorf("set %s on empty metadata", key)
	}
	var vn yaml.Node
	if err := vn.Encode(value); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if existing, ok := m.Lookup(key); ok {
		*existing = vn
		return nil
	}
	m.node.Content = append(m.node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&vn,
	)
	return nil
}

// setSub stores child as the mapping under key and returns the stored mapping.
func (m Metadata) setSub(key string, child Metadata) Metadata {
	if existing, ok := m.Lookup(key); ok {
		*existing = *child.node
		return Metadata{node: existing}
	}
	m.node.Content = append(m.node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		child.node,
	)
	return child
}

// Clone returns a deep copy so callers can mutate without touching m.
func (m Metadata) Clone() Metadata {
	if m.node == nil {
		return Metadata{}
	}
	return Metadata{node: cloneNode(m.node)}
}

// Decode unmarshals the mapping into v.
func (m Metadata) Decode(v any) error {
	if m.node == nil {
		return fmt.Errorf("decode empty metadata")
	}
	return m.node.Decode(v)
}

// Slug is shorthand for String(FieldSlug).
func (m Metadata) Slug() string { return m.String(FieldSlug) }

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func cloneNode(n *yaml.Node) *yaml.Node {
	c := *n
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	return &c
}
