package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fulmenhq/resload/pkg/safeio"
)

// FileName is the optional per-repository config file, looked up at the repo root.
const FileName = ".resload"

// Config holds all configuration for resload
type Config struct {
	Layout     LayoutConfig     `mapstructure:"layout"`
	Validation ValidationConfig `mapstructure:"validation"`
	Generators GeneratorsConfig `mapstructure:"generators"`
	Git        GitConfig        `mapstructure:"git"`
}

// LayoutConfig names the repository-relative destination directories.
type LayoutConfig struct {
	ResourcesDir string `mapstructure:"resources_dir"`
	DraftsDir    string `mapstructure:"drafts_dir"`
	ImagesDir    string `mapstructure:"images_dir"`
	Manifest     string `mapstructure:"manifest"`
	TmpDir       string `mapstructure:"tmp_dir"`
}

// ValidationConfig holds the thresholds used by the validators and gates.
type ValidationConfig struct {
	MinImageWidth     int      `mapstructure:"min_image_width"`
	FrontMatterWindow int      `mapstructure:"frontmatter_window"`
	CanonicalTemplate string   `mapstructure:"canonical_template"`
	DefaultTagTypes   []string `mapstructure:"default_tag_types"`
}

// GeneratorsConfig describes the two external generation commands.
type GeneratorsConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Renderer CommandConfig `mapstructure:"renderer"`
	Indexer  CommandConfig `mapstructure:"indexer"`
}

// CommandConfig is one external command; Script is resolved against the repo root.
type CommandConfig struct {
	Command string   `mapstructure:"command"`
	Script  string   `mapstructure:"script"`
	Args    []string `mapstructure:"args"`
}

// GitConfig holds version-control step options.
type GitConfig struct {
	Binary         string        `mapstructure:"binary"`
	Timeout        time.Duration `mapstructure:"timeout"`
	CommitTemplate string        `mapstructure:"commit_template"`
	Push           bool          `mapstructure:"push"`
}

var defaultConfig = Config{
	Layout: LayoutConfig{
		ResourcesDir: "resources",
		DraftsDir:    "resources/drafts",
		ImagesDir:    "resources/images",
		Manifest:     "resources/resources.manifest.json",
		TmpDir:       "tools/resource_loader/tmp",
	},
	Validation: ValidationConfig{
		MinImageWidth:     1024,
		FrontMatterWindow: 2000,
		CanonicalTemplate: "https://pro.foxfuel.com/resources/{{slug}}.html",
		DefaultTagTypes:   []string{"fleet", "construction", "critical", "decision", "healthcare", "manufacturing"},
	},
	Generators: GeneratorsConfig{
		Timeout:  parseDurationDefault("60s"),
		Renderer: CommandConfig{Command: "node", Script: "scripts/generate-resources.js"},
		Indexer:  CommandConfig{Command: "node", Script: "scripts/regenerate-index.js"},
	},
	Git: GitConfig{
		Binary:         "git",
		Timeout:        parseDurationDefault("2m"),
		CommitTemplate: "Add scheduled resource: {{slug}}",
		Push:           true,
	},
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	c := defaultConfig
	c.Validation.DefaultTagTypes = append([]string(nil), defaultConfig.Validation.DefaultTagTypes...)
	c.Generators.Renderer.Args = append([]string(nil), defaultConfig.Generators.Renderer.Args...)
	c.Generators.Indexer.Args = append([]string(nil), defaultConfig.Generators.Indexer.Args...)
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("layout.resources_dir", defaultConfig.Layout.ResourcesDir)
	v.SetDefault("layout.drafts_dir", defaultConfig.Layout.DraftsDir)
	v.SetDefault("layout.images_dir", defaultConfig.Layout.ImagesDir)
	v.SetDefault("layout.manifest", defaultConfig.Layout.Manifest)
	v.SetDefault("layout.tmp_dir", defaultConfig.Layout.TmpDir)

	v.SetDefault("validation.min_image_width", defaultConfig.Validation.MinImageWidth)
	v.SetDefault("validation.frontmatter_window", defaultConfig.Validation.FrontMatterWindow)
	v.SetDefault("validation.canonical_template", defaultConfig.Validation.CanonicalTemplate)
	v.SetDefault("validation.default_tag_types", defaultConfig.Validation.DefaultTagTypes)

	v.SetDefault("generators.timeout", defaultConfig.Generators.Timeout)
	v.SetDefault("generators.renderer.command", defaultConfig.Generators.Renderer.Command)
	v.SetDefault("generators.renderer.script", defaultConfig.Generators.Renderer.Script)
	v.SetDefault("generators.renderer.args", []string{})
	v.SetDefault("generators.indexer.command", defaultConfig.Generators.Indexer.Command)
	v.SetDefault("generators.indexer.script", defaultConfig.Generators.Indexer.Script)
	v.SetDefault("generators.indexer.args", []string{})

	v.SetDefault("git.binary", defaultConfig.Git.Binary)
	v.SetDefault("git.timeout", defaultConfig.Git.Timeout)
	v.SetDefault("git.commit_template", defaultConfig.Git.CommitTemplate)
	v.SetDefault("git.push", defaultConfig.Git.Push)
}

// LoadConfig loads configuration for the repository at repoRoot: defaults,
// then an optional .resload.yaml at the root, then RESLOAD_* environment variables.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if repoRoot != "" {
		v.AddConfigPath(repoRoot)
	}

	v.SetEnvPrefix("RESLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	} else if err := ValidateFile(v.ConfigFileUsed()); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects layouts that would escape the repository and non-positive limits.
func (c *Config) Validate() error {
	dirs := []struct{ key, val string }{
		{"layout.resources_dir", c.Layout.ResourcesDir},
		{"layout.drafts_dir", c.Layout.DraftsDir},
		{"layout.images_dir", c.Layout.ImagesDir},
		{"layout.manifest", c.Layout.Manifest},
		{"layout.tmp_dir", c.Layout.TmpDir},
	}
	for _, d := range dirs {
		key, val := d.key, d.val
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
		if filepath.IsAbs(val) {
			return fmt.Errorf("%s must be relative to the repository root: %s", key, val)
		}
		if _, err := safeio.CleanUserPath(val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if c.Validation.MinImageWidth <= 0 {
		return fmt.Errorf("validation.min_image_width must be positive, got %d", c.Validation.MinImageWidth)
	}
	if c.Validation.FrontMatterWindow <= 0 {
		return fmt.Errorf("validation.frontmatter_window must be positive, got %d", c.Validation.FrontMatterWindow)
	}
	if c.Generators.Timeout <= 0 {
		return fmt.Errorf("generators.timeout must be positive")
	}
	if c.Git.Timeout <= 0 {
		return fmt.Errorf("git.timeout must be positive")
	}
	return nil
}

// Resolve anchors the configured directories against repoRoot.
func (c *Config) Resolve(repoRoot string) Paths {
	return Paths{
		Root:      repoRoot,
		Resources: filepath.Join(repoRoot, filepath.FromSlash(c.Layout.ResourcesDir)),
		Drafts:    filepath.Join(repoRoot, filepath.FromSlash(c.Layout.DraftsDir)),
		Images:    filepath.Join(repoRoot, filepath.FromSlash(c.Layout.ImagesDir)),
		Manifest:  filepath.Join(repoRoot, filepath.FromSlash(c.Layout.Manifest)),
		Tmp:       filepath.Join(repoRoot, filepath.FromSlash(c.Layout.TmpDir)),
	}
}

// Paths is the absolute destination layout of one repository.
type Paths struct {
	Root      string `json:"root"`
	Resources string `json:"resources"`
	Drafts    string `json:"drafts"`
	Images    string `json:"images"`
	Manifest  string `json:"manifest"`
	Tmp       string `json:"tmp"`
}

// Document returns the destination markdown path for slug.
func (p Paths) Document(slug string) string {
	return filepath.Join(p.Drafts, slug+".md")
}

// Rendered returns the generated html path for slug.
func (p Paths) Rendered(slug string) string {
	return filepath.Join(p.Resources, slug+".html")
}

// HeroImage returns the destination hero path; ext includes the dot.
func (p Paths) HeroImage(slug, ext string) string {
	return filepath.Join(p.Images, slug+"-header"+ext)
}

// InlineImage returns the destination inline path; ext includes the dot.
func (p Paths) InlineImage(slug, ext string) string {
	return filepath.Join(p.Images, slug+"-inline"+ext)
}

// LastFailed is where debug mode copies the artifacts of a failed gate.
func (p Paths) LastFailed() string {
	return filepath.Join(p.Tmp, "last_failed")
}

// RelToResources renders path relative to the resources dir with forward slashes.
func (p Paths) RelToResources(path string) string {
	rel, err := filepath.Rel(p.Resources, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// parseDurationDefault is a helper to create default duration values from string literal
func parseDurationDefault(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// FindRepoRoot walks up from start looking for a .git directory or package.json.
func FindRepoRoot(start string) (string, error) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if safeio.Exists(filepath.Join(current, ".git")) || safeio.Exists(filepath.Join(current, "package.json")) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no repository root found above %s", start)
		}
		current = parent
	}
}

// EnsureDir creates dir with the permissions used for destination trees.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
