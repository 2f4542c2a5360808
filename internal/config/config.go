package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config holds all configurable paths and render settings.
type Config struct {
	// Paths
	BaseDir   string `json:"base_dir"`
	ModelsDir string `json:"models_dir"`
	OutputDir string `json:"output_dir"`
	Profile   string `json:"profile"`

	// Render settings
	RenderSize  int     `json:"render_size"`
	Supersample int     `json:"supersample"`
	Workers     int     `json:"workers"`
	Yaw         float64 `json:"yaw"`
	Pitch       float64 `json:"pitch"`
	FOV         float64 `json:"fov"`
	FillRatio   float64 `json:"fill_ratio"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	ModelsDir string
	OutputDir string
	Profile   string
	Workers   int
	LogLevel  string
	LogFile   string
}

// Load reads a JSON config file. Fields not set in the file keep
// their zero values until Resolve fills them.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve fills in any empty fields with defaults. CLI flags take
// priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.ModelsDir != "" {
		c.ModelsDir = flags.ModelsDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Profile != "" {
		c.Profile = flags.Profile
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.LogFile != "" {
		c.LogFile = flags.LogFile
	}

	if c.BaseDir == "" {
		c.BaseDir, _ = os.Getwd()
	}
	if c.BaseDir != "" {
		if c.ModelsDir == "" {
			c.ModelsDir = filepath.Join(c.BaseDir, "models")
		} else if !filepath.IsAbs(c.ModelsDir) {
			c.ModelsDir = filepath.Join(c.BaseDir, c.ModelsDir)
		}
		if c.OutputDir == "" {
			c.OutputDir = filepath.Join(c.BaseDir, "renders")
		} else if !filepath.IsAbs(c.OutputDir) {
			c.OutputDir = filepath.Join(c.BaseDir, c.OutputDir)
		}
		if c.Profile == "" {
			// A profile is optional; pick it up only when present.
			p := filepath.Join(c.BaseDir, "models.yaml")
			if _, err := os.Stat(p); err == nil {
				c.Profile = p
			}
		} else if !filepath.IsAbs(c.Profile) {
			c.Profile = filepath.Join(c.BaseDir, c.Profile)
		}
	}

	if c.RenderSize <= 0 {
		c.RenderSize = 256
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.FillRatio <= 0 || c.FillRatio > 1 {
		c.FillRatio = 0.85
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
