package assets

import (
	"embed"
	"io/fs"
)

//go:embed embedded_schemas
var Schemas embed.FS

// GetSchemasFS returns the embedded schemas rooted at embedded_schemas.
func GetSchemasFS() fs.FS {
	if sub, err := fs.Sub(Schemas, "embedded_schemas"); err == nil {
		return sub
	}
	return Schemas
}

// GetSchema returns the embedded schema bytes by path relative to
// embedded_schemas (e.g., "manifest/resources-manifest-v1.yaml").
func GetSchema(relPath string) ([]byte, bool) {
	data, err := fs.ReadFile(GetSchemasFS(), relPath)
	return data, err == nil && len(data) > 0
}
