package batch

import (
	"encoding/json"
	"os"
)

// ManifestEntry summarizes one processed model in the output manifest.
type ManifestEntry struct {
	Model     string `json:"model"`
	File      string `json:"file"`
	Image     string `json:"image,omitempty"`
	Bones     int    `json:"bones"`
	Materials int    `json:"materials"`
	Textures  int    `json:"textures"`
	Faces     int    `json:"faces"`
	Error     string `json:"error,omitempty"`
}

// WriteManifest writes manifest.json next to the rendered images.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = ManifestEntry{
			Model:     r.Model,
			File:      r.File,
			Image:     r.Image,
			Bones:     r.Bones,
			Materials: r.Materials,
			Textures:  r.Textures,
			Faces:     r.Faces,
			Error:     r.Error,
		}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
