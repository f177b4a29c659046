// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load loads configuration from a YAML file with environment variable expansion.
// Files ending in .json are read as JSON with comments.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return Decode(filename, data, target)
}

// Decode parses data as the file named filename would be parsed by Load.
// The name only selects the syntax; nothing is read from disk.
func Decode[T any](filename string, data []byte, target *T) error {
	expandedData := []byte(os.ExpandEnv(string(data)))

	if strings.EqualFold(filepath.Ext(filename), ".json") {
		std, err := hujson.Standardize(expandedData)
		if err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", filename, err)
		}
		// JSON is a subset of YAML, so the yaml tags keep working.
		expandedData = std
	}

	if err := yaml.Unmarshal(expandedData, target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// LoadWithDefaults loads configuration with fallback to a default file.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target)
		}
		return fmt.Errorf("config file not found: %s", filename)
	}
	return Load(filename, target)
}
