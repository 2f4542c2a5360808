package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"

	"nds-bmd-codec/internal/bmd"
	"nds-bmd-codec/internal/texture"
)

func main() {
	outDir := flag.String("out", ".", "Directory to write decoded images into")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: texdump [-out dir] model.bmd [model.bmd ...]")
		os.Exit(2)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "ERR %v\n", err)
		os.Exit(1)
	}

	errors := 0
	for _, arg := range flag.Args() {
		m, err := bmd.ParseFile(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERR parse %s: %v\n", arg, err)
			errors++
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
		for i, t := range m.Textures {
			if err := dumpTexture(*outDir, stem, i, t); err != nil {
				fmt.Fprintf(os.Stderr, "ERR %v\n", err)
				errors++
			}
		}
	}

	if errors > 0 {
		fmt.Printf("\nDone with %d error(s).\n", errors)
		os.Exit(1)
	}
	fmt.Println("\nDone. All textures extracted.")
}

func dumpTexture(outDir, stem string, i int, t *texture.Texture) error {
	name := t.Name
	if name == "" {
		name = fmt.Sprintf("tex%d", i)
	}
	dst := filepath.Join(outDir, fmt.Sprintf("%s_%s.webp", stem, name))

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, t.ToNRGBA(), nil); err != nil {
		return fmt.Errorf("encode %s: %w", dst, err)
	}
	fmt.Printf("OK  %s -> %s  (%dx%d %s)\n", name, dst, t.Width, t.Height, t.Format)
	return nil
}
