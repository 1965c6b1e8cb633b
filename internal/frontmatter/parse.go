package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// Delimiter opens and closes the metadata block.
const Delimiter = "---"

var yamlFormat = frontmatter.NewFormat(Delimiter, Delimiter, yaml.Unmarshal)

var h1Pattern = regexp.MustCompile(`^\s*#\s+(.+)`)

// Kind tags the outcome of Parse.
type Kind int

const (
	// KindOK means the document carried a well-formed metadata block.
	KindOK Kind = iota
	// KindNeedsMetadata means no block was found; the metadata has to be authored.
	KindNeedsMetadata
	// KindParseError means a block was found but could not be read as a mapping.
	KindParseError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNeedsMetadata:
		return "needs-metadata"
	case KindParseError:
		return "parse-error"
	default:
		return "unknown"
	}
}

// Document is a parsed resource document.
type Document struct {
	Metadata Metadata
	Body     string
	// Injected is set when the metadata was synthesized rather than read from the source.
	Injected bool
}

// Result is the tagged outcome of Parse. Exactly one of the variant fields
// is meaningful, selected by Kind.
type Result struct {
	Kind Kind

	// KindOK
	Document Document

	// KindNeedsMetadata
	Title string
	Body  string

	// KindParseError
	Err error
}

// IngestError is a generic failure to read a document.
type IngestError struct {
	Msg string
	Err error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *IngestError) Unwrap() error { return e.Err }

// Normalize converts raw document bytes to canonical text: UTF-8 without a
// byte-order mark (UTF-16 input with a BOM is transcoded) and LF line endings.
func Normalize(raw []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", fmt.Errorf("decode document: %w", err)
	}
	return NormalizeNewlines(strings.TrimPrefix(string(out), "\ufeff")), nil
}

// NormalizeNewlines converts CRLF and lone CR to LF.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Parse splits raw into metadata and body.
func Parse(raw []byte) Result {
	text, err := Normalize(raw)
	if err != nil {
		return Result{Kind: KindParseError, Err: &IngestError{Msg: "cannot read markdown", Err: err}}
	}

	if !strings.HasPrefix(text, Delimiter) {
		return needsMetadata(text)
	}

	var node yaml.Node
	body, err := frontmatter.MustParse(strings.NewReader(text), &node, yamlFormat)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return needsMetadata(text)
		}
		return Result{Kind: KindParseError, Err: &IngestError{Msg: "Invalid YAML front matter", Err: err}}
	}

	meta, err := FromNode(&node)
	if err != nil {
		return Result{Kind: KindParseError, Err: &IngestError{Msg: err.Error()}}
	}

	return Result{
		Kind:     KindOK,
		Document: Document{Metadata: meta, Body: string(body)},
	}
}

func needsMetadata(text string) Result {
	return Result{Kind: KindNeedsMetadata, Title: ExtractTitle(text), Body: text}
}

// ExtractTitle returns the text of the first level-1 heading, or "" if the
// document does not open with one.
func ExtractTitle(body string) string {
	m := h1Pattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Render serializes doc in canonical form: the metadata block between
// delimiter lines, one blank line, then the body. Output is BOM-free UTF-8
// with LF line endings.
func Render(doc Document) ([]byte, error) {
	if doc.Metadata.IsZero() {
		return nil, fmt.Errorf("render: document has no metadata")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc.Metadata.Node()); err != nil {
		return nil, fmt.Errorf("render metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render metadata: %w", err)
	}

	body := strings.TrimLeft(NormalizeNewlines(doc.Body), "\n")
	out := Delimiter + "\n" + buf.String() + Delimiter + "\n\n" + body
	return []byte(NormalizeNewlines(strings.TrimPrefix(out, "\ufeff"))), nil
}

// CheckBlock verifies the structural shape of a metadata block without
// parsing it: content opens with "---\n" (or "---\r\n"), a closing delimiter
// line appears within the first window characters, and something sits between.
func CheckBlock(content []byte, window int) error {
	text := strings.TrimPrefix(string(content), "\ufeff")

	if !strings.HasPrefix(text, Delimiter+"\n") && !strings.HasPrefix(text, Delimiter+"\r\n") {
		return fmt.Errorf("file does not start with '---\\n'")
	}

	search := text
	if r := []rune(text); len(r) > window {
		search = string(r[:window])
	}
	end := strings.Index(search[len(Delimiter):], "\n"+Delimiter)
	if end == -1 {
		return fmt.Errorf("no closing '---' found within first %d chars", window)
	}
	end += len(Delimiter)

	start := len(Delimiter) + 1
	if start > end {
		start = end
	}
	if strings.TrimSpace(text[start:end]) == "" {
		return fmt.Errorf("empty YAML front matter")
	}
	return nil
}
