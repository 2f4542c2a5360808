// Package texture implements the console texture formats: classification
// of decoded images into the tightest storable format, the per-format
// encoders and decoders, and the shared-palette allocator used by the
// 4×4 block compressor.
package texture

import (
	"encoding/binary"
	"image/color"
	"sort"

	"nds-bmd-codec/internal/fixed"
)

// Format enumerates the hardware texture formats. The values match the
// 3-bit field stored in texture parameter words.
type Format int

const (
	FormatNone       Format = iota // unused slot in the hardware enum
	FormatA3I5                     // 32 palette colors, 3-bit alpha
	FormatColor4                   // 4-color palette, 2 bits/pixel
	FormatColor16                  // 16-color palette, 4 bits/pixel
	FormatColor256                 // 256-color palette, 8 bits/pixel
	FormatCompressed               // 4×4 texel blocks over a shared palette
	FormatA5I3                     // 8 palette colors, 5-bit alpha
	FormatDirect                   // raw 16-bit pixels
)

func (f Format) String() string {
	switch f {
	case FormatA3I5:
		return "a3i5"
	case FormatColor4:
		return "color4"
	case FormatColor16:
		return "color16"
	case FormatColor256:
		return "color256"
	case FormatCompressed:
		return "compressed"
	case FormatA5I3:
		return "a5i3"
	case FormatDirect:
		return "direct"
	}
	return "none"
}

// Color is an RGBA color quantized to the hardware's five bits per
// channel; every channel is in [0,31]. Alpha 0 means fully transparent,
// and the zero value is the canonical transparent color.
type Color [4]int

// IsTransparent reports whether the color is fully transparent.
func (c Color) IsTransparent() bool { return c[3] == 0 }

func (c Color) rgb555() uint16 {
	return uint16(c[0]&31) | uint16(c[1]&31)<<5 | uint16(c[2]&31)<<10
}

// NRGBA expands the color to 8 bits per channel.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: uint8(fixed.RoundHalfUp(float64(c[0]) * 255 / 31)),
		G: uint8(fixed.RoundHalfUp(float64(c[1]) * 255 / 31)),
		B: uint8(fixed.RoundHalfUp(float64(c[2]) * 255 / 31)),
		A: uint8(fixed.RoundHalfUp(float64(c[3]) * 255 / 31)),
	}
}

func quantize(c color.NRGBA) Color {
	return Color{
		fixed.RoundHalfUp(float64(c.R) * 31 / 255),
		fixed.RoundHalfUp(float64(c.G) * 31 / 255),
		fixed.RoundHalfUp(float64(c.B) * 31 / 255),
		fixed.RoundHalfUp(float64(c.A) * 31 / 255),
	}
}

func colorLess(a, b Color) bool {
	for k := 0; k < 4; k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return false
}

// sortedColors flattens a color set into ascending order.
func sortedColors(set map[Color]struct{}) []Color {
	out := make([]Color, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return colorLess(out[i], out[j]) })
	return out
}

func smallestColors(set map[Color]struct{}, n int) []Color {
	s := sortedColors(set)
	if n < len(s) {
		s = s[:n]
	}
	return s
}

func paletteBytes(palette []Color) []byte {
	out := make([]byte, 0, 2*len(palette))
	for _, c := range palette {
		out = binary.LittleEndian.AppendUint16(out, c.rgb555())
	}
	return out
}

func paletteFromBytes(b []byte) []Color {
	out := make([]Color, len(b)/2)
	for i := range out {
		v := binary.LittleEndian.Uint16(b[2*i:])
		out[i] = Color{int(v & 31), int(v >> 5 & 31), int(v >> 10 & 31), 31}
	}
	return out
}

// paletteAt reads a palette entry, padding past-the-end reads with
// opaque black so trimmed trailing entries stay harmless.
func paletteAt(p []Color, i int) Color {
	if i < 0 || i >= len(p) {
		return Color{0, 0, 0, 31}
	}
	return p[i]
}

// permutations returns every ordering of [0,n) in lexicographic order.
func permutations(n int) [][]int {
	var out [][]int
	cur := make([]int, 0, n)
	used := make([]bool, n)
	var rec func()
	rec = func() {
		if len(cur) == n {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			cur = append(cur, i)
			rec()
			cur = cur[:len(cur)-1]
			used[i] = false
		}
	}
	rec()
	return out
}
