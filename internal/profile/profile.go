// Package profile loads per-model overrides for rendering and repacking.
package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry holds one model's overrides. Pointer fields distinguish an
// absent key from an explicit zero.
type Entry struct {
	ScaleExponent *uint32  `yaml:"scale_exponent"` // rescale the model on repack
	Uncompressed  []string `yaml:"uncompressed"`   // texture names kept out of block compression, "*" for all
	TextureDir    string   `yaml:"texture_dir"`    // directory of replacement images
	Yaw           *float64 `yaml:"yaw"`
	Pitch         *float64 `yaml:"pitch"`
	FOV           *float64 `yaml:"fov"`
	FillRatio     *float64 `yaml:"fill_ratio"`
}

// ForcesUncompressed reports whether the named texture must be stored
// without block compression.
func (e Entry) ForcesUncompressed(name string) bool {
	for _, n := range e.Uncompressed {
		if n == "*" || n == name {
			return true
		}
	}
	return false
}

// Profile maps model file stems to their entries.
type Profile struct {
	Models map[string]Entry `yaml:"models"`
}

// Load reads a YAML profile. An empty path yields an empty profile.
func Load(path string) (*Profile, error) {
	if path == "" {
		return &Profile{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	return &p, nil
}

// Lookup returns the entry for a model stem, or a zero entry.
func (p *Profile) Lookup(stem string) Entry {
	if p == nil {
		return Entry{}
	}
	return p.Models[stem]
}
