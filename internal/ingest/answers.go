package ingest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/resload/internal/assets"
	"github.com/fulmenhq/resload/internal/frontmatter"
	"github.com/fulmenhq/resload/internal/schema"
)

// LoadAnswers reads a metadata answers file (YAML or JSON) and checks it
// against the answers schema before decoding.
func LoadAnswers(path string) (frontmatter.Answers, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-supplied answers file
	if err != nil {
		return frontmatter.Answers{}, fmt.Errorf("cannot read metadata answers: %w", err)
	}
	return ParseAnswers(raw)
}

// ParseAnswers is LoadAnswers on bytes. Empty string values count as not
// supplied so the derived defaults still apply to them.
func ParseAnswers(raw []byte) (frontmatter.Answers, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return frontmatter.Answers{}, fmt.Errorf("invalid metadata answers: %w", err)
	}
	doc, err := schemaView(&root)
	if err != nil {
		return frontmatter.Answers{}, fmt.Errorf("invalid metadata answers: %w", err)
	}
	if doc == nil {
		return frontmatter.Answers{}, fmt.Errorf("invalid metadata answers: empty document")
	}

	res, err := schema.Validate(doc, assets.AnswersSchema)
	if err != nil {
		return frontmatter.Answers{}, err
	}
	if !res.Valid {
		return frontmatter.Answers{}, fmt.Errorf("invalid metadata answers: %s", strings.Join(res.Messages(), "; "))
	}

	var a frontmatter.Answers
	if err := root.Decode(&a); err != nil {
		return frontmatter.Answers{}, fmt.Errorf("invalid metadata answers: %w", err)
	}
	return a, nil
}

// schemaView converts a node tree into plain values for schema checking.
// Timestamps keep their source text and empty strings are dropped from
// mappings.
func schemaView(n *yaml.Node) (interface{}, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return schemaView(n.Content[0])
	case yaml.AliasNode:
		return schemaView(n.Alias)
	case yaml.MappingNode:
		out := make(map[string]interface{}, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := schemaView(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			out[n.Content[i].Value] = v
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]interface{}, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := schemaView(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	if n.ShortTag() == "!!timestamp" {
		return n.Value, nil
	}
	var v interface{}
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
