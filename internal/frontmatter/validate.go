package frontmatter

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// DateLayout is the publishDate format.
const DateLayout = "2006-01-02"

// Validate runs every metadata check and returns all problems found, in a
// stable order. An empty result means the metadata passed. validTags is the
// allowed set for tagType.
func Validate(meta Metadata, validTags []string) []string {
	var problems []string

	for _, field := range RequiredFields {
		if !meta.Has(field) {
			problems = append(problems, fmt.Sprintf("Missing required field: %s", field))
		}
	}

	problems = append(problems, checkRole(meta, FieldHero)...)
	problems = append(problems, checkRole(meta, FieldInline)...)

	if date := meta.String(FieldPublishDate); date != "" {
		if err := validation.Validate(date, validation.Match(datePattern)); err != nil {
			problems = append(problems, fmt.Sprintf("publishDate must be YYYY-MM-DD format, got: %s", date))
		} else if err := validation.Validate(date, validation.Date(DateLayout)); err != nil {
			problems = append(problems, fmt.Sprintf("publishDate is not a valid calendar date: %s", date))
		}
	} else if v, ok := meta.Lookup(FieldPublishDate); ok && !isNull(v) && v.Kind != yaml.ScalarNode {
		problems = append(problems, fmt.Sprintf("publishDate must be YYYY-MM-DD format, got: %s", describe(v)))
	}

	if v, ok := meta.Lookup(FieldReadTime); ok && !isNull(v) {
		if !positiveInt(v) {
			problems = append(problems, fmt.Sprintf("readTimeMinutes must be a positive integer, got: %s", describe(v)))
		}
	}

	if tag := meta.String(FieldTagType); tag != "" {
		allowed := make([]interface{}, len(validTags))
		for i, t := range validTags {
			allowed[i] = t
		}
		if err := validation.Validate(tag, validation.In(allowed...)); err != nil {
			problems = append(problems, fmt.Sprintf("Invalid tagType '%s'. Must be one of: %s", tag, strings.Join(validTags, ", ")))
		}
	}

	if slug := meta.Slug(); slug != "" {
		if err := validation.Validate(slug, validation.Match(slugPattern)); err != nil {
			problems = append(problems, fmt.Sprintf("Slug must be lowercase alphanumeric with hyphens only: %s", slug))
		}
	}

	return problems
}

// checkRole requires a non-empty alt text under the image role sub-mapping.
func checkRole(meta Metadata, role string) []string {
	v, ok := meta.Lookup(role)
	if ok && !isNull(v) && v.Kind != yaml.MappingNode {
		return []string{fmt.Sprintf("'%s' must be a mapping with 'alt' field", role)}
	}
	sub, _ := meta.Sub(role)
	if err := validation.Validate(sub.String(FieldAlt), validation.Required); err != nil {
		return []string{fmt.Sprintf("Missing required field: %s.%s", role, FieldAlt)}
	}
	return nil
}

// positiveInt accepts only YAML integers greater than zero. Booleans, floats
// and quoted numbers are rejected.
func positiveInt(v *yaml.Node) bool {
	if v.Kind != yaml.ScalarNode || v.ShortTag() != "!!int" {
		return false
	}
	var n int64
	if err := v.Decode(&n); err != nil {
		return false
	}
	return validation.Validate(n, validation.Required, validation.Min(int64(1))) == nil
}

func describe(v *yaml.Node) string {
	switch v.Kind {
	case yaml.ScalarNode:
		return v.Value
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "list"
	default:
		return "unknown"
	}
}
