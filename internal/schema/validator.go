package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fulmenhq/resload/internal/assets"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Path    string `json:"path,omitempty"` // Single string path (e.g., "categoryTags")
	Message string `json:"message"`
}

// Result holds the validation result.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Messages flattens the errors as "path: message" lines.
func (r *Result) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, fmt.Sprintf("%s: %s", e.Path, e.Message))
	}
	return out
}

// registry holds pre-compiled schemas keyed by assets.Registry name.
var registry = make(map[string]*gojsonschema.Schema)

func init() {
	for _, info := range assets.Registry {
		schemaBytes, ok := assets.GetSchema(info.Path)
		if !ok {
			continue
		}
		compiled, err := compile(schemaBytes)
		if err != nil {
			// Skip on error; Validate reports the schema as unknown
			continue
		}
		registry[info.Name] = compiled
	}
}

// compile converts a YAML schema to JSON for gojsonschema.
func compile(schemaBytes []byte) (*gojsonschema.Schema, error) {
	var schemaData interface{}
	if err := yaml.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, err
	}
	jsonBytes, err := json.Marshal(schemaData)
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jsonBytes))
}

// Known returns the registered schema names.
func Known() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate validates data (interface{}) against the named schema.
func Validate(data interface{}, schemaName string) (*Result, error) {
	schema, ok := registry[schemaName]
	if !ok {
		return nil, fmt.Errorf("schema %s not found in registry", schemaName)
	}

	docLoader := gojsonschema.NewGoLoader(data)
	result, err := schema.Validate(docLoader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	res := &Result{Valid: result.Valid()}
	if !result.Valid() {
		for _, verr := range result.Errors() {
			field := verr.Field()
			if field == "" {
				field = "root"
			}
			res.Errors = append(res.Errors, ValidationError{
				Path:    field,
				Message: verr.Description(),
			})
		}
	}

	return res, nil
}

// ValidateJSON decodes raw JSON and validates it against the named schema.
func ValidateJSON(raw []byte, schemaName string) (*Result, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return Validate(doc, schemaName)
}
