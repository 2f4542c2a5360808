package texture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Index maps lowercase texture stems to filesystem paths of replacement
// images. Lossless formats take priority over lossy ones for the same
// stem.
type Index struct {
	entries map[string]string
}

var imagePriority = map[string]int{
	".png":  4,
	".tga":  3,
	".bmp":  2,
	".jpg":  1,
	".jpeg": 1,
}

// BuildIndex scans dir recursively for replacement images.
func BuildIndex(dir string) (*Index, error) {
	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("texture: index %s: %w", dir, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("texture: index %s: not a directory", dir)
	}

	idx := &Index{entries: make(map[string]string)}
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		prio, ok := imagePriority[ext]
		if !ok {
			return nil
		}
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if existing, exists := idx.entries[stem]; exists {
			if prio <= imagePriority[strings.ToLower(filepath.Ext(existing))] {
				return nil
			}
		}
		idx.entries[stem] = path
		return nil
	})
	return idx, nil
}

// ResolvePath returns the replacement image path for a texture name, or
// ("", false). Any directory prefix or extension in the name is ignored.
func (idx *Index) ResolvePath(texName string) (string, bool) {
	texName = strings.ReplaceAll(texName, "\\", "/")
	base := filepath.Base(texName)
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	path, ok := idx.entries[stem]
	return path, ok
}

// Len returns the number of indexed images.
func (idx *Index) Len() int {
	return len(idx.entries)
}
