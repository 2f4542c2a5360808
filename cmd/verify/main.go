package main

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strings"

	"nds-bmd-codec/internal/bmd"
	"nds-bmd-codec/internal/geometry"
)

// verify re-encodes models and checks that nothing survives the trip
// changed: same skeleton, same materials, same texture pixels, and the
// same faces up to strip rotation. It also checks that a second encode
// reproduces the first byte for byte.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: verify model.bmd [model.bmd ...]")
		os.Exit(2)
	}

	failed := 0
	for _, arg := range os.Args[1:] {
		problems, err := verifyModel(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERR %s: %v\n", arg, err)
			failed++
			continue
		}
		if len(problems) == 0 {
			fmt.Printf("OK  %s\n", arg)
			continue
		}
		failed++
		fmt.Printf("BAD %s\n", arg)
		for _, p := range problems {
			fmt.Printf("    %s\n", p)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func verifyModel(path string) ([]string, error) {
	m, err := bmd.ParseFile(path)
	if err != nil {
		return nil, err
	}
	first, err := bmd.Write(m)
	if err != nil {
		return nil, err
	}
	n, err := bmd.Parse(first)
	if err != nil {
		return nil, fmt.Errorf("re-parse: %w", err)
	}
	second, err := bmd.Write(n)
	if err != nil {
		return nil, fmt.Errorf("re-encode: %w", err)
	}

	var problems []string
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if n.ScaleExponent != m.ScaleExponent {
		bad("scale exponent 2^%d became 2^%d", m.ScaleExponent, n.ScaleExponent)
	}
	compareBones(m, n, bad)
	compareMaterials(m, n, bad)
	compareTextures(m, n, bad)
	compareFaces(m, n, bad)
	if !bytes.Equal(first, second) {
		bad("unstable encoding: second encode differs (%d vs %d bytes)", len(first), len(second))
	}
	return problems, nil
}

func compareBones(m, n *bmd.Model, bad func(string, ...any)) {
	if len(n.Bones) != len(m.Bones) {
		bad("bone count %d became %d", len(m.Bones), len(n.Bones))
		return
	}
	for i := range m.Bones {
		a, b := m.Bones[i], n.Bones[i]
		if a.Name != b.Name || a.Parent != b.Parent || a.Sibling != b.Sibling ||
			a.Scale != b.Scale || a.Rotation != b.Rotation || a.Translation != b.Translation {
			bad("bone %d %q changed", i, a.Name)
		}
	}
}

func compareMaterials(m, n *bmd.Model, bad func(string, ...any)) {
	if len(n.Materials) != len(m.Materials) {
		bad("material count %d became %d", len(m.Materials), len(n.Materials))
		return
	}
	for i := range m.Materials {
		if m.Materials[i] != n.Materials[i] {
			bad("material %d %q changed", i, m.Materials[i].Name)
		}
	}
}

func compareTextures(m, n *bmd.Model, bad func(string, ...any)) {
	if len(n.Textures) != len(m.Textures) {
		bad("texture count %d became %d", len(m.Textures), len(n.Textures))
		return
	}
	for i := range m.Textures {
		a, b := m.Textures[i], n.Textures[i]
		if a.Name != b.Name || a.Width != b.Width || a.Height != b.Height ||
			a.Format != b.Format || a.Color0Transparent != b.Color0Transparent {
			bad("texture %d %q header changed", i, a.Name)
			continue
		}
		if !reflect.DeepEqual(a.Pixels, b.Pixels) {
			bad("texture %d %q pixels changed", i, a.Name)
		}
	}
}

func compareFaces(m, n *bmd.Model, bad func(string, ...any)) {
	if len(n.Geometries) != len(m.Geometries) {
		bad("geometry count %d became %d", len(m.Geometries), len(n.Geometries))
		return
	}
	for i := range m.Geometries {
		want := faceMultiset(m.Geometries[i])
		got := faceMultiset(n.Geometries[i])
		if len(want) != len(got) {
			bad("bone %d face count %d became %d", i, len(want), len(got))
			continue
		}
		for k, c := range want {
			if got[k] != c {
				bad("bone %d faces changed", i)
				break
			}
		}
	}
}

// faceMultiset canonicalizes each face to its smallest ring rotation so
// strip-rebuilt geometry compares equal.
func faceMultiset(g *geometry.Geometry) map[string]int {
	out := make(map[string]int)
	if g == nil {
		return out
	}
	for _, f := range g.Faces {
		out[faceKey(f)]++
	}
	return out
}

func faceKey(f geometry.Face) string {
	n := len(f.Vertices)
	best := ""
	for r := 0; r < n; r++ {
		parts := make([]string, 0, n)
		for i := 0; i < n; i++ {
			parts = append(parts, fmt.Sprintf("%+v", f.Vertices[(r+i)%n]))
		}
		k := fmt.Sprintf("m%d|%s", f.Material, strings.Join(parts, ";"))
		if best == "" || k < best {
			best = k
		}
	}
	return best
}
