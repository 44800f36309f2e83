package memory

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Config holds Store configuration.
type Config struct {
	// MaxResults is the retrieval limit applied when the caller passes a
	// non-positive limit. Default: 10.
	MaxResults int `yaml:"max_results"`

	// MinScore drops retrieval results scoring below this threshold [0.0-1.0].
	// Default: 0 (no filtering). Local models produce lower absolute scores
	// than API embedders, so tune per backend.
	MinScore float64 `yaml:"min_score"`

	// Namespace prefixes durable keys so multiple stores can share one
	// substrate. Default: "recall".
	Namespace string `yaml:"namespace"`

	// LogLevel is consumed by binaries when building the logger
	// ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns sensible defaults for local use.
var DefaultConfig = &Config{
	MaxResults: 10,
	MinScore:   0,
	Namespace:  "recall",
	LogLevel:   "info",
}

// LoadConfig reads a YAML config file and fills unset fields with defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxResults == 0 {
		c.MaxResults = DefaultConfig.MaxResults
	}
	if c.Namespace == "" {
		c.Namespace = DefaultConfig.Namespace
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultConfig.LogLevel
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.MaxResults < 1 {
		return goerr.New("max_results must be positive", goerr.V("max_results", c.MaxResults))
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return goerr.New("min_score must be within [0,1]", goerr.V("min_score", c.MinScore))
	}
	return nil
}
