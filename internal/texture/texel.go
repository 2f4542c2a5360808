package texture

import "fmt"

// texel is one 4×4 block of a compressed texture: its pixels reduced to
// at most four colors, plus the mode flags that decide how many palette
// positions the block claims.
//
// Blocks with exactly three colors where one is the midpoint of the
// other two, or four colors matching the hardware's 5:3 and 3:5 blends,
// store only the two endpoints and set the interpolation flag.
type texel struct {
	colors       []Color // 16 remapped pixels
	place        []Color // distinct opaque colors needing palette slots
	need         int     // positions claimed: 2, 3 or 4
	rank         int     // allocation priority, most constrained first
	interp       bool
	transparency bool
	index        int // assigned palette base position
}

func newTexel(pixels []Color) *texel {
	norm := make([]Color, len(pixels))
	for i, c := range pixels {
		if c[3] != 0 {
			norm[i] = c
		}
	}
	mapped, palette := ReduceColors(norm, 4)
	t := &texel{colors: mapped}
	for _, c := range mapped {
		if c[3] == 0 {
			t.transparency = true
			break
		}
	}
	set := make(map[Color]struct{}, len(palette))
	for _, c := range palette {
		if c[3] != 0 {
			set[c] = struct{}{}
		}
	}
	t.place = sortedColors(set)
	switch len(t.place) {
	case 3:
		if a, b, ok := findMidpoint(t.place); ok {
			t.place = []Color{a, b}
			t.interp = true
			t.transparency = true
		}
	case 4:
		if a, b, ok := findEndpoints(t.place); ok {
			t.place = []Color{a, b}
			t.interp = true
		}
	}
	switch {
	case len(t.place) < 2 || t.interp:
		t.need = 2
	case t.transparency:
		t.need = 3
	default:
		t.need = 4
	}
	t.rank = blockRank(len(t.place), t.transparency, t.interp)
	return t
}

// findMidpoint looks for an ordering (c0, c1, c2) of three colors where
// c2 is the channelwise floor midpoint of c0 and c1. Orderings are tried
// in lexicographic order and the first match wins.
func findMidpoint(set []Color) (Color, Color, bool) {
	for _, p := range permutations(3) {
		c0, c1, c2 := set[p[0]], set[p[1]], set[p[2]]
		if c2 == blend(c0, c1, 1, 1, 2) {
			return c0, c1, true
		}
	}
	return Color{}, Color{}, false
}

// findEndpoints looks for an ordering (c0..c3) of four colors where c2
// and c3 are the hardware 5:3 and 3:5 blends of c0 and c1.
func findEndpoints(set []Color) (Color, Color, bool) {
	for _, p := range permutations(4) {
		c0, c1 := set[p[0]], set[p[1]]
		if set[p[2]] == blend(c0, c1, 5, 3, 8) && set[p[3]] == blend(c0, c1, 3, 5, 8) {
			return c0, c1, true
		}
	}
	return Color{}, Color{}, false
}

func blend(a, b Color, wa, wb, div int) Color {
	var out Color
	for k := 0; k < 4; k++ {
		out[k] = (a[k]*wa + b[k]*wb) / div
	}
	return out
}

// blockRank orders blocks most-constrained-first for palette allocation.
func blockRank(colors int, transparency, interp bool) int {
	switch {
	case colors == 4:
		return 0
	case colors == 3 && transparency:
		return 1
	case colors == 3:
		return 2
	case colors == 2 && interp:
		return 3
	case colors == 2 && transparency:
		return 4
	case colors == 2:
		return 5
	case colors == 1:
		return 6
	}
	return 7
}

// encode packs the block against the final palette: a 32-bit word of 16
// two-bit indices plus the 16-bit mode word addressing the palette.
func (t *texel) encode(palette []Color) (uint32, uint16, error) {
	var win [4]Color
	var ok [4]bool
	for k := 0; k < 4; k++ {
		if t.index+k < len(palette) {
			win[k] = palette[t.index+k]
			ok[k] = true
		}
	}
	if t.transparency {
		win[3] = Color{}
		ok[3] = true
	}
	if t.interp {
		if !ok[0] || !ok[1] {
			return 0, 0, fmt.Errorf("texture: block at slot %d lost an endpoint: %w", t.index, ErrPaletteOverflow)
		}
		if t.transparency {
			win[2] = blend(win[0], win[1], 1, 1, 2)
			ok[2] = true
		} else {
			win[2] = blend(win[0], win[1], 5, 3, 8)
			win[3] = blend(win[0], win[1], 3, 5, 8)
			ok[2], ok[3] = true, true
		}
	}
	var word uint32
	for i, c := range t.colors {
		idx := -1
		for k := 0; k < 4; k++ {
			if ok[k] && win[k] == c {
				idx = k
				break
			}
		}
		if idx < 0 {
			return 0, 0, fmt.Errorf("texture: block at slot %d cannot reach color %v: %w", t.index, c, ErrPaletteOverflow)
		}
		word |= uint32(idx) << (2 * uint(i))
	}
	mode := uint16(t.index / 2)
	if t.interp {
		mode |= 1 << 14
	}
	if !t.transparency {
		mode |= 1 << 15
	}
	return word, mode, nil
}
