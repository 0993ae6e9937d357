// Package config loads YAML or TOML configuration files with environment
// variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Format is a supported configuration file encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the decoder for filename by extension. Anything that is
// not .toml is treated as YAML.
func FormatOf(filename string) Format {
	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads filename, expands ${VAR} references, decodes it into target
// and runs target's Validate method when it has one.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := Decode(FormatOf(filename), data, target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return validate(target)
}

// Decode expands environment references in data and decodes it as format.
// Keys missing from data keep the values already in target.
func Decode[T any](format Format, data []byte, target *T) error {
	expanded := os.ExpandEnv(string(data))
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(expanded, target); err != nil {
			return err
		}
	case FormatYAML:
		if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
	return nil
}

// LoadWithDefaults loads filename, or defaultFile when filename does not
// exist. With no default file the target is validated as is.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target)
		}
		return validate(target)
	}
	return Load(filename, target)
}

func validate(target any) error {
	if v, ok := target.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
