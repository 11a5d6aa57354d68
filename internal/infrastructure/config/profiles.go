package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/framehost/internal/shared/utils"
)

// Profile is a named set of frame session defaults.
type Profile struct {
	Origin      string `yaml:"origin" toml:"origin"`
	Language    string `yaml:"language" toml:"language"`
	IndentWidth *int   `yaml:"indent_width" toml:"indent_width"`
	Writable    bool   `yaml:"writable" toml:"writable"`
}

type profilesFile struct {
	Profiles map[string]Profile `yaml:"profiles" toml:"profiles"`
}

// LoadProfiles reads frame profiles from a .yaml, .yml or .toml file.
func LoadProfiles(path string) (map[string]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return ParseProfiles(data, filepath.Ext(path))
}

// ParseProfiles decodes profiles in the format named by ext.
func ParseProfiles(data []byte, ext string) (map[string]Profile, error) {
	var f profilesFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("TOML parse error: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported profiles format %q", ext)
	}

	for name, p := range f.Profiles {
		if err := utils.ValidateID(name, "profile name", true); err != nil {
			return nil, err
		}
		if p.Origin == "" {
			return nil, fmt.Errorf("profile %q: origin is required", name)
		}
		if err := utils.ValidateOrigin(p.Origin); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
	}
	if f.Profiles == nil {
		f.Profiles = map[string]Profile{}
	}
	return f.Profiles, nil
}
