// Package config loads the agentmem YAML configuration: embedding provider
// selection, hybrid search tuning, and on-disk store paths. The CLI
// front-end and harness config generator are external collaborators; this
// package only owns the schema and its defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"agentmem/internal/memerr"
)

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "ollama" | "openai"
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// SearchConfig tunes hybrid search fusion.
type SearchConfig struct {
	Alpha    float64 `yaml:"alpha"`
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"`
}

// PathsConfig locates the on-disk stores, relative to the agents-home
// directory unless absolute.
type PathsConfig struct {
	Database string `yaml:"database"`
	Vectors  string `yaml:"vectors"`
}

// Config is the full enumerated configuration surface.
type Config struct {
	Embeddings EmbeddingConfig `yaml:"embeddings"`
	Search     SearchConfig    `yaml:"search"`
	Paths      PathsConfig     `yaml:"paths"`

	// home is the resolved agents-home directory; not serialized.
	home string `yaml:"-"`
}

// Default returns the out-of-the-box configuration, matching what a fresh
// `agentmem init` would write.
func Default() Config {
	return Config{
		Embeddings: EmbeddingConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			BaseURL:    "http://localhost:11434",
		},
		Search: SearchConfig{
			Alpha:    0.7,
			TopK:     20,
			MinScore: 0.3,
		},
		Paths: PathsConfig{
			Database: "memory/memories.db",
			Vectors:  "memory/vectors.db",
		},
	}
}

// Load reads config.yaml from the given agents-home directory. A missing
// file is not an error: it yields Default() so a freshly installed harness
// still works. A malformed file is fatal (KindConfigInvalid) per the
// propagation policy: configuration errors are surfaced, never degraded.
func Load(agentsHome string) (Config, error) {
	cfg := Default()
	cfg.home = agentsHome

	path := filepath.Join(agentsHome, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, memerr.Wrap(memerr.KindConfigInvalid, "config.Load", "cannot read config.yaml", err)
	}

	// Unmarshal over the defaults so partial files still fill in the rest.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, memerr.Wrap(memerr.KindConfigInvalid, "config.Load", "cannot parse config.yaml", err)
	}
	cfg.home = agentsHome

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the enumerated ranges from the spec.
func (c Config) Validate() error {
	switch c.Embeddings.Provider {
	case "ollama", "openai":
	default:
		return memerr.New(memerr.KindConfigInvalid, "config.Validate",
			fmt.Sprintf("unsupported embeddings.provider %q (use ollama or openai)", c.Embeddings.Provider))
	}
	if c.Embeddings.Dimensions <= 0 {
		return memerr.New(memerr.KindConfigInvalid, "config.Validate", "embeddings.dimensions must be positive")
	}
	if c.Search.Alpha < 0 || c.Search.Alpha > 1 {
		return memerr.New(memerr.KindConfigInvalid, "config.Validate", "search.alpha must be in [0,1]")
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 1 {
		return memerr.New(memerr.KindConfigInvalid, "config.Validate", "search.min_score must be in [0,1]")
	}
	if c.Search.TopK <= 0 {
		return memerr.New(memerr.KindConfigInvalid, "config.Validate", "search.top_k must be positive")
	}
	return nil
}

// APIKey resolves the OpenAI-compatible API key, falling back to the
// OPENAI_API_KEY environment variable per spec §6.
func (c Config) APIKey() string {
	if c.Embeddings.APIKey != "" {
		return c.Embeddings.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// DatabasePath resolves paths.database against the agents-home directory.
func (c Config) DatabasePath() string {
	return c.resolvePath(c.Paths.Database)
}

// VectorsPath resolves paths.vectors against the agents-home directory.
func (c Config) VectorsPath() string {
	return c.resolvePath(c.Paths.Vectors)
}

// Home returns the resolved agents-home directory.
func (c Config) Home() string { return c.home }

func (c Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.home, p)
}
