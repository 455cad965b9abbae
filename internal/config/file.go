package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML (.yaml, .yml) or TOML (.toml) defaults file and
// overlays the keys it sets onto base.
func LoadFile(path string, base Settings) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}

	s := base
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return base, fmt.Errorf("failed to parse config: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &s); err != nil {
			return base, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return base, fmt.Errorf("unsupported config file type %q (want .yaml, .yml or .toml)", ext)
	}

	return s, nil
}

// Merge returns s with every field whose flag was not set on the command line
// taken from file. changed reports whether the named flag was given.
func (s Settings) Merge(file Settings, changed func(flag string) bool) Settings {
	out := s
	if !changed("file") {
		out.Target = file.Target
	}
	if !changed("recursive") {
		out.Recursive = file.Recursive
	}
	if !changed("width") {
		out.Width = file.Width
	}
	if !changed("height") {
		out.Height = file.Height
	}
	if !changed("override") {
		out.Override = file.Override
	}
	if !changed("ext") {
		out.Ext = file.Ext
	}
	if !changed("filter") {
		out.Filter = file.Filter
	}
	if !changed("quiet") {
		out.Quiet = file.Quiet
	}
	if !changed("angle") {
		out.Angle = file.Angle
	}
	if !changed("quality") {
		out.Quality = file.Quality
	}
	if !changed("resample") {
		out.Resample = file.Resample
	}
	return out
}
