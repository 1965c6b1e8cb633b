package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/resload/internal/assets"
	"github.com/fulmenhq/resload/internal/schema"
)

// SchemaError lists the places where a config file breaks the config schema.
type SchemaError struct {
	Path     string
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s does not match the resload config schema: %s", e.Path, strings.Join(e.Problems, "; "))
}

// ValidateFile checks a .resload.yaml against the embedded config schema.
// Unknown keys are rejected so a misspelt setting is not silently ignored.
func ValidateFile(path string) error {
	raw, err := os.ReadFile(path) // #nosec G304 -- config file found at the repository root
	if err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("error parsing config %s: %w", path, err)
	}
	if doc == nil {
		return nil
	}
	res, err := schema.Validate(doc, assets.ConfigSchema)
	if err != nil {
		return err
	}
	if !res.Valid {
		return &SchemaError{Path: path, Problems: res.Messages()}
	}
	return nil
}
