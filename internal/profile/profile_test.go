package profile

import (
	"os"
	"path/filepath"
	"testing"
)

const sample = `
models:
  goblin:
    scale_exponent: 3
    uncompressed: [face, face_pl]
    texture_dir: retex/goblin
    yaw: 45
    fill_ratio: 0.8
  slime:
    uncompressed: ["*"]
`

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	p, err := Load(writeProfile(t, sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	e := p.Lookup("goblin")
	if e.ScaleExponent == nil || *e.ScaleExponent != 3 {
		t.Fatalf("ScaleExponent = %v, want 3", e.ScaleExponent)
	}
	if e.TextureDir != "retex/goblin" {
		t.Fatalf("TextureDir = %q", e.TextureDir)
	}
	if e.Yaw == nil || *e.Yaw != 45 {
		t.Fatalf("Yaw = %v, want 45", e.Yaw)
	}
	if e.Pitch != nil {
		t.Fatalf("Pitch = %v, want absent", e.Pitch)
	}
	if e.FillRatio == nil || *e.FillRatio != 0.8 {
		t.Fatalf("FillRatio = %v, want 0.8", e.FillRatio)
	}

	if !e.ForcesUncompressed("face") || !e.ForcesUncompressed("face_pl") {
		t.Fatal("listed textures should be forced uncompressed")
	}
	if e.ForcesUncompressed("body") {
		t.Fatal("unlisted texture forced uncompressed")
	}
	if !p.Lookup("slime").ForcesUncompressed("anything") {
		t.Fatal("wildcard entry should match every texture")
	}
}

func TestLookupMissing(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	e := p.Lookup("unknown")
	if e.ScaleExponent != nil || e.TextureDir != "" || len(e.Uncompressed) != 0 {
		t.Fatalf("zero entry expected, got %+v", e)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file should error")
	}
	if _, err := Load(writeProfile(t, "models: [not, a, map]")); err == nil {
		t.Fatal("malformed YAML should error")
	}
}
