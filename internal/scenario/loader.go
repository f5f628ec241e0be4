package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML scenario file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse scenario yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads a scenario and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads a scenario, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate scenario: %w", err)
	}
	return cfg, nil
}

// Resolve returns a built-in scenario by name, or loads the file at
// nameOrPath when no built-in matches. A non-zero seed overrides the
// file's seed.
func Resolve(nameOrPath string, seed int64) (*Config, error) {
	if cfg := GetConfig(nameOrPath, seed); cfg != nil {
		return cfg, nil
	}
	cfg, err := LoadAndValidate(nameOrPath)
	if err != nil {
		return nil, err
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	return cfg, nil
}
