package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadAndResolve(t *testing.T) {
	dir := t.TempDir()
	body := `{
		"base_dir": "` + dir + `",
		"models_dir": "data",
		"render_size": 128,
		"yaw": 45,
		"log_level": "debug"
	}`
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Resolve(Flags{})

	if cfg.ModelsDir != filepath.Join(dir, "data") {
		t.Errorf("ModelsDir = %q, want resolved against base dir", cfg.ModelsDir)
	}
	if cfg.OutputDir != filepath.Join(dir, "renders") {
		t.Errorf("OutputDir = %q, want default under base dir", cfg.OutputDir)
	}
	if cfg.Profile != "" {
		t.Errorf("Profile = %q, want empty without models.yaml", cfg.Profile)
	}
	if cfg.RenderSize != 128 {
		t.Errorf("RenderSize = %d, want 128 from file", cfg.RenderSize)
	}
	if cfg.Supersample != 2 {
		t.Errorf("Supersample = %d, want default 2", cfg.Supersample)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want NumCPU", cfg.Workers)
	}
	if cfg.Yaw != 45 {
		t.Errorf("Yaw = %v, want 45", cfg.Yaw)
	}
	if cfg.FillRatio != 0.85 {
		t.Errorf("FillRatio = %v, want default 0.85", cfg.FillRatio)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{BaseDir: dir, ModelsDir: "data", Workers: 8}
	cfg.Resolve(Flags{
		ModelsDir: filepath.Join(dir, "other"),
		Workers:   3,
		LogLevel:  "warn",
	})

	if cfg.ModelsDir != filepath.Join(dir, "other") {
		t.Errorf("ModelsDir = %q, want flag value", cfg.ModelsDir)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestProfileAutoDetect(t *testing.T) {
	dir := t.TempDir()
	prof := filepath.Join(dir, "models.yaml")
	if err := os.WriteFile(prof, []byte("models: {}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := Config{BaseDir: dir}
	cfg.Resolve(Flags{})
	if cfg.Profile != prof {
		t.Errorf("Profile = %q, want auto-detected %q", cfg.Profile, prof)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("missing file should error")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("malformed JSON should error")
	}
}
