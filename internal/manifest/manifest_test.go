package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resources.manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPreservesOrder(t *testing.T) {
	path := writeManifest(t, `{
  "categoryTags": {
    "manufacturing": {"label": "Manufacturing"},
    "fleet": {"label": "Fleet Operations"},
    "aviation": {"label": "Aviation"}
  },
  "resources": [{"slug": "legacy-guide", "title": "Legacy"}]
}`)

	tags := Load(path)
	assert.False(t, tags.Fallback)
	assert.Equal(t, []string{"manufacturing", "fleet", "aviation"}, tags.Values)
}

func TestLoadFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantMsg string
	}{
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }, "manifest not found"},
		{"not json", func(t *testing.T) string { return writeManifest(t, "{broken") }, "invalid JSON"},
		{"no categoryTags", func(t *testing.T) string { return writeManifest(t, `{"resources": []}`) }, "failed schema validation"},
		{"empty categoryTags", func(t *testing.T) string { return writeManifest(t, `{"categoryTags": {}}`) }, "failed schema validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := Load(tt.path(t))
			assert.True(t, tags.Fallback)
			assert.Equal(t, DefaultTags, tags.Values)
			assert.Contains(t, tags.Reason, tt.wantMsg)
		})
	}
}

func TestLoadFallbackIsACopy(t *testing.T) {
	tags := Load(filepath.Join(t.TempDir(), "nope.json"))
	tags.Values[0] = "mutated"
	assert.Equal(t, "fleet", DefaultTags[0])
}

func TestCategoryKeys(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{"after other keys", `{"resources": [{"categoryTags": {"x": 1}}], "categoryTags": {"decision": {}, "critical": {}}}`, []string{"decision", "critical"}, false},
		{"nested keys ignored", `{"categoryTags": {"fleet": {"label": "Fleet", "order": 1}}}`, []string{"fleet"}, false},
		{"absent", `{"resources": []}`, nil, false},
		{"not an object", `{"categoryTags": ["fleet"]}`, nil, true},
		{"top level array", `[1, 2]`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := categoryKeys([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
