package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nds-bmd-codec/internal/bmd"
	"nds-bmd-codec/internal/lz"
	"nds-bmd-codec/internal/profile"
	"nds-bmd-codec/internal/texture"
)

func main() {
	output := flag.String("o", "", "Output path (default: <stem>_repacked.bmd)")
	profilePath := flag.String("profile", "", "Per-model profile YAML")
	textureDir := flag.String("textures", "", "Directory of replacement images")
	scale := flag.Int("scale", -1, "Rescale to this world scale exponent")
	uncompressed := flag.Bool("uncompressed", false, "Re-encode every texture without block compression")
	compress := flag.Bool("z", false, "LZ77-compress the output")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: repack [flags] model.bmd")
		os.Exit(2)
	}
	in := flag.Arg(0)
	stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))

	m, err := bmd.ParseFile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	prof, err := profile.Load(*profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	entry := prof.Lookup(stem)

	texDir := entry.TextureDir
	if *textureDir != "" {
		texDir = *textureDir
	}
	replaced, err := replaceTextures(m, texDir, entry, *uncompressed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	target := *scale
	if target < 0 && entry.ScaleExponent != nil {
		target = int(*entry.ScaleExponent)
	}
	if target >= 0 && uint32(target) != m.ScaleExponent {
		fmt.Printf("rescale: 2^%d -> 2^%d\n", m.ScaleExponent, target)
		bmd.Rescale(m, uint32(target))
	}

	data, err := bmd.Write(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	raw := len(data)
	if *compress {
		if data, err = lz.Compress(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	out := *output
	if out == "" {
		out = filepath.Join(filepath.Dir(in), stem+"_repacked.bmd")
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *compress {
		fmt.Printf("OK  %s -> %s  (%d textures replaced, %d -> %d bytes)\n",
			in, out, replaced, raw, len(data))
	} else {
		fmt.Printf("OK  %s -> %s  (%d textures replaced, %d bytes)\n",
			in, out, replaced, len(data))
	}
}

// replaceTextures swaps in replacement images found under dir and
// re-encodes any texture the profile pins to an uncompressed format.
// It reports how many textures were rebuilt from image files.
func replaceTextures(m *bmd.Model, dir string, entry profile.Entry, forceAll bool) (int, error) {
	var idx *texture.Index
	if dir != "" {
		var err error
		if idx, err = texture.BuildIndex(dir); err != nil {
			return 0, err
		}
	}

	replaced := 0
	for i, t := range m.Textures {
		force := forceAll || entry.ForcesUncompressed(t.Name)
		w, h, pixels := t.Width, t.Height, t.Pixels
		fromFile := false

		if idx != nil {
			if path, ok := idx.ResolvePath(t.Name); ok {
				img, err := texture.LoadImage(path)
				if err != nil {
					return replaced, err
				}
				w, h, pixels = texture.PixelsFromNRGBA(img)
				fromFile = true
			}
		}
		if !fromFile && !force {
			continue
		}

		nt, err := texture.FromPixels(t.Name, w, h, pixels, force)
		if err != nil {
			return replaced, err
		}
		// Keep the original palette name so palettes shared across
		// textures stay shared in the rebuilt file.
		if t.PaletteName != "" && len(nt.PalData) > 0 {
			nt.PaletteName = t.PaletteName
		}
		m.Textures[i] = nt
		if fromFile {
			replaced++
		}
	}
	return replaced, nil
}
