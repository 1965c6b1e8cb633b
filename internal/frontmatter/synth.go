package frontmatter

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Categories maps each authoring category to its tagType.
var Categories = map[string]string{
	"Construction":        "construction",
	"Fleet Operations":    "fleet",
	"Critical Facilities": "critical",
	"Decision Guide":      "decision",
	"Manufacturing":       "manufacturing",
	"Healthcare":          "healthcare",
}

const (
	// DefaultCategory is used when an answers file names none.
	DefaultCategory = "Construction"
	// DefaultReadTime is the read-time estimate offered when none is given.
	DefaultReadTime = 6
	// DefaultInlineAlt is the inline image alt text offered when none is given.
	DefaultInlineAlt = "Fuel planning documentation and on-site operational review"

	shortTitleLimit = 40
)

// Answers carries operator-supplied metadata for a document that has none.
// Empty fields are derived where a sensible default exists.
type Answers struct {
	Title           string `yaml:"title" json:"title"`
	ShortTitle      string `yaml:"shortTitle" json:"shortTitle"`
	Description     string `yaml:"description" json:"description"`
	Slug            string `yaml:"slug" json:"slug"`
	PublishDate     string `yaml:"publishDate" json:"publishDate"`
	ReadTimeMinutes int    `yaml:"readTimeMinutes" json:"readTimeMinutes"`
	Category        string `yaml:"category" json:"category"`
	TagType         string `yaml:"tagType" json:"tagType"`
	HeroAlt         string `yaml:"heroAlt" json:"heroAlt"`
	InlineAlt       string `yaml:"inlineAlt" json:"inlineAlt"`
}

// ShortTitle truncates title to 40 characters plus an ellipsis.
func ShortTitle(title string) string {
	r := []rune(title)
	if len(r) > shortTitleLimit {
		return string(r[:shortTitleLimit]) + "..."
	}
	return title
}

// HeroAlt is the default hero alt text for category.
func HeroAlt(category string) string {
	return fmt.Sprintf("Operational fueling activity supporting %s operations", category)
}

// WithDefaults fills derivable fields. fallbackTitle (usually the document's
// first heading) is used when no title was given; now dates the publication.
func (a Answers) WithDefaults(fallbackTitle string, now time.Time) Answers {
	trim := func(s *string) { *s = strings.TrimSpace(*s) }
	for _, f := range []*string{&a.Title, &a.ShortTitle, &a.Description, &a.Slug,
		&a.PublishDate, &a.Category, &a.TagType, &a.HeroAlt, &a.InlineAlt} {
		trim(f)
	}

	if a.Title == "" {
		a.Title = strings.TrimSpace(fallbackTitle)
	}
	if a.Slug == "" {
		a.Slug = Slugify(a.Title)
	}
	if a.ShortTitle == "" {
		a.ShortTitle = ShortTitle(a.Title)
	}
	if a.PublishDate == "" {
		a.PublishDate = now.Format(DateLayout)
	}
	if a.ReadTimeMinutes == 0 {
		a.ReadTimeMinutes = DefaultReadTime
	}
	if a.Category == "" {
		a.Category = DefaultCategory
	}
	if a.TagType == "" {
		if tag, ok := Categories[a.Category]; ok {
			a.TagType = tag
		} else {
			a.TagType = "fleet"
		}
	}
	if a.HeroAlt == "" {
		a.HeroAlt = HeroAlt(a.Category)
	}
	if a.InlineAlt == "" {
		a.InlineAlt = DefaultInlineAlt
	}
	return a
}

// Validate checks the answers the way the authoring form does before the
// metadata is built.
func (a Answers) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Title, validation.Required),
		validation.Field(&a.Slug, validation.Required, validation.Match(slugPattern)),
		validation.Field(&a.ShortTitle, validation.Required),
		validation.Field(&a.Description, validation.Required),
		validation.Field(&a.PublishDate, validation.Required, validation.Date(DateLayout)),
		validation.Field(&a.ReadTimeMinutes, validation.Required, validation.Min(1)),
		validation.Field(&a.HeroAlt, validation.Required),
		validation.Field(&a.InlineAlt, validation.Required),
	)
}

// Synthesize builds a document from answers and the body of a document that
// had no metadata block. Keys are emitted in the canonical order.
func Synthesize(a Answers, body string) (Document, error) {
	if err := a.Validate(); err != nil {
		return Document{}, fmt.Errorf("metadata answers: %w", err)
	}

	meta := NewMetadata()
	fields := []struct {
		key   string
		value any
	}{
		{FieldTitle, a.Title},
		{FieldShortTitle, a.ShortTitle},
		{FieldDescription, a.Description},
		{FieldSlug, a.Slug},
		{FieldPublishDate, a.PublishDate},
		{FieldReadTime, a.ReadTimeMinutes},
		{FieldCategory, a.Category},
		{FieldTagType, a.TagType},
	}
	for _, f := range fields {
		if err := meta.Set(f.key, f.value); err != nil {
			return Document{}, err
		}
	}
	for _, role := range []struct{ key, alt string }{
		{FieldHero, a.HeroAlt},
		{FieldInline, a.InlineAlt},
	} {
		sub := meta.setSub(role.key, NewMetadata())
		if err := sub.Set(FieldAlt, role.alt); err != nil {
			return Document{}, err
		}
	}

	return Document{
		Metadata: meta,
		Body:     NormalizeNewlines(body),
		Injected: true,
	}, nil
}
