package assets

// Registry lists embedded schemas available at runtime.
// Update this when adding/removing curated assets.

type AssetInfo struct {
	Name    string // registry key used by internal/schema
	Version string
	Path    string // relative to embedded_schemas
	Draft   string
}

const (
	// ManifestSchema validates resources/resources.manifest.json.
	ManifestSchema = "resources-manifest-v1"
	// AnswersSchema validates a metadata answers file.
	AnswersSchema = "metadata-answers-v1"
	// ConfigSchema validates a repository's .resload.yaml.
	ConfigSchema = "resload-config-v1"
)

var Registry = []AssetInfo{
	{
		Name:    ManifestSchema,
		Version: "v1",
		Path:    "manifest/resources-manifest-v1.yaml",
		Draft:   "draft-07",
	},
	{
		Name:    AnswersSchema,
		Version: "v1",
		Path:    "answers/metadata-answers-v1.yaml",
		Draft:   "draft-07",
	},
	{
		Name:    ConfigSchema,
		Version: "v1",
		Path:    "config/resload-config-v1.yaml",
		Draft:   "draft-07",
	},
}

// Lookup returns the registry entry for name.
func Lookup(name string) (AssetInfo, bool) {
	for _, info := range Registry {
		if info.Name == name {
			return info, true
		}
	}
	return AssetInfo{}, false
}
