package main

import (
	"fmt"
	"math"
	"os"
	"strings"

	"nds-bmd-codec/internal/bmd"
	"nds-bmd-codec/internal/mathutil"
	"nds-bmd-codec/internal/scene"
	"nds-bmd-codec/internal/skeleton"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: inspect model.bmd [model.bmd ...]")
		os.Exit(2)
	}

	exitCode := 0
	for _, arg := range os.Args[1:] {
		m, err := bmd.ParseFile(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Parse error %s: %v\n", arg, err)
			exitCode = 1
			continue
		}

		fmt.Printf("\n=== %s ===\n", arg)
		fmt.Printf("scale: 2^%d  bones: %d  materials: %d  textures: %d\n",
			m.ScaleExponent, len(m.Bones), len(m.Materials), len(m.Textures))

		printBones(m)
		printMaterials(m)
		printTextures(m)
		printWorld(m)
	}
	os.Exit(exitCode)
}

func printBones(m *bmd.Model) {
	fmt.Println("--- BONES ---")
	depth := boneDepths(m.Bones)
	skeleton.Traverse(m.Bones, func(i int) {
		b := m.Bones[i]
		faces := 0
		if i < len(m.Geometries) && m.Geometries[i] != nil {
			faces = len(m.Geometries[i].Faces)
		}
		fmt.Printf("  %s[%d] %s: rot=(%.1f,%.1f,%.1f) trans=(%.2f,%.2f,%.2f) faces=%d pairs=%d\n",
			strings.Repeat("  ", depth[i]), i, b.Name,
			deg(b.Rotation[0]), deg(b.Rotation[1]), deg(b.Rotation[2]),
			b.Translation[0], b.Translation[1], b.Translation[2],
			faces, len(b.MaterialIDs))
	})
}

// boneDepths walks parent chains; out-of-range parents count as roots,
// matching how the world transforms treat them.
func boneDepths(bones []bmd.Bone) []int {
	depth := make([]int, len(bones))
	for i := range bones {
		d, j := 0, i
		for {
			p := bones[j].Parent
			if p < 0 || p >= len(bones) || d >= len(bones) {
				break
			}
			d++
			j = p
		}
		depth[i] = d
	}
	return depth
}

func printMaterials(m *bmd.Model) {
	fmt.Println("--- MATERIALS ---")
	for i, mat := range m.Materials {
		texInfo := "untextured"
		if mat.Texture >= 0 {
			texInfo = fmt.Sprintf("tex=%d", mat.Texture)
			if mat.Texture < len(m.Textures) {
				texInfo += fmt.Sprintf(" %q", m.Textures[mat.Texture].Name)
			} else {
				texInfo += " MISSING"
			}
		}
		fmt.Printf("  Mat[%d] %q: %s alpha=%d/31%s\n", i, mat.Name, texInfo, mat.Alpha, matFlags(mat))
	}
}

func matFlags(mat bmd.Material) string {
	var flags []string
	if mat.RepeatS || mat.RepeatT {
		flags = append(flags, "repeat="+axes(mat.RepeatS, mat.RepeatT))
	}
	if mat.MirrorS || mat.MirrorT {
		flags = append(flags, "mirror="+axes(mat.MirrorS, mat.MirrorT))
	}
	if mat.EnvMap {
		flags = append(flags, "envmap")
	}
	if mat.CullBack {
		flags = append(flags, "cull")
	}
	if mat.DepthEqual {
		flags = append(flags, "depth-equal")
	}
	if mat.BlendMode != 0 {
		flags = append(flags, fmt.Sprintf("blend=%d", mat.BlendMode))
	}
	if mat.VertexColored {
		flags = append(flags, "vertex-colored")
	}
	if len(flags) == 0 {
		return ""
	}
	return " [" + strings.Join(flags, " ") + "]"
}

func axes(s, t bool) string {
	out := ""
	if s {
		out += "S"
	}
	if t {
		out += "T"
	}
	return out
}

func printTextures(m *bmd.Model) {
	fmt.Println("--- TEXTURES ---")
	for i, t := range m.Textures {
		c0t := ""
		if t.Color0Transparent {
			c0t = " c0t"
		}
		trans := ""
		if t.Translucent() {
			trans = " translucent"
		}
		fmt.Printf("  Tex[%d] %q: %dx%d %s%s tex=%dB pal=%dB%s\n",
			i, t.Name, t.Width, t.Height, t.Format, c0t,
			len(t.TexData), len(t.PalData), trans)
	}
}

// printWorld flattens the model and reports the world-space bounds of
// each renderable object.
func printWorld(m *bmd.Model) {
	var s scene.Scene
	if err := scene.Build(m, &s); err != nil {
		fmt.Fprintf(os.Stderr, "  world transform: %v\n", err)
		return
	}
	if len(s.Objects) == 0 {
		fmt.Println("--- WORLD: no renderable faces ---")
		return
	}
	fmt.Println("--- WORLD ---")
	for _, obj := range s.Objects {
		lo := mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
		hi := mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
		verts := 0
		for _, f := range obj.Geo.Faces {
			for _, v := range f.Vertices {
				verts++
				for k := 0; k < 3; k++ {
					lo[k] = math.Min(lo[k], v.Position[k])
					hi[k] = math.Max(hi[k], v.Position[k])
				}
			}
		}
		fmt.Printf("  %s: faces=%d verts=%d min=(%.2f,%.2f,%.2f) max=(%.2f,%.2f,%.2f)\n",
			obj.Name, len(obj.Geo.Faces), verts,
			lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
	}
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }
