package texture

import (
	"encoding/binary"
	"fmt"

	"nds-bmd-codec/internal/fixed"
)

// Decode expands encoded texture and palette payloads back into 5-bit
// pixels. Palette reads past the stored palette yield opaque black,
// matching the writer's habit of trimming unused trailing entries.
func Decode(format Format, w, h int, tex, pal []byte, color0Transparent bool) ([]Color, error) {
	switch format {
	case FormatA3I5:
		return decodeAlpha(w, h, tex, pal, 3)
	case FormatA5I3:
		return decodeAlpha(w, h, tex, pal, 5)
	case FormatColor4:
		return decodeIndexed(w, h, tex, pal, 2, color0Transparent)
	case FormatColor16:
		return decodeIndexed(w, h, tex, pal, 4, color0Transparent)
	case FormatColor256:
		return decodeIndexed(w, h, tex, pal, 8, color0Transparent)
	case FormatCompressed:
		return decodeCompressed(w, h, tex, pal)
	case FormatDirect:
		return decodeDirect(w, h, tex)
	}
	return nil, fmt.Errorf("texture: unknown format %d", int(format))
}

func decodeAlpha(w, h int, tex, pal []byte, alphaBits int) ([]Color, error) {
	if len(tex) < w*h {
		return nil, fmt.Errorf("texture: alpha payload holds %d bytes, need %d", len(tex), w*h)
	}
	palette := paletteFromBytes(pal)
	indexBits := 8 - alphaBits
	mask := 1<<indexBits - 1
	maxA := 1<<alphaBits - 1
	out := make([]Color, w*h)
	for i := range out {
		b := int(tex[i])
		c := paletteAt(palette, b&mask)
		c[3] = fixed.RoundHalfUp(float64(b>>indexBits) * 31 / float64(maxA))
		out[i] = c
	}
	return out, nil
}

func decodeIndexed(w, h int, tex, pal []byte, indexBits int, color0Transparent bool) ([]Color, error) {
	stride := 8 / indexBits
	if need := (w*h + stride - 1) / stride; len(tex) < need {
		return nil, fmt.Errorf("texture: indexed payload holds %d bytes, need %d", len(tex), need)
	}
	palette := paletteFromBytes(pal)
	mask := 1<<indexBits - 1
	out := make([]Color, w*h)
	for i := range out {
		idx := int(tex[i/stride]>>(uint(i%stride)*uint(indexBits))) & mask
		if color0Transparent && idx == 0 {
			out[i] = Color{}
		} else {
			out[i] = paletteAt(palette, idx)
		}
	}
	return out, nil
}

func decodeDirect(w, h int, tex []byte) ([]Color, error) {
	if len(tex) < 2*w*h {
		return nil, fmt.Errorf("texture: direct payload holds %d bytes, need %d", len(tex), 2*w*h)
	}
	out := make([]Color, w*h)
	for i := range out {
		v := binary.LittleEndian.Uint16(tex[2*i:])
		a := 0
		if v>>15 != 0 {
			a = 31
		}
		out[i] = Color{int(v & 31), int(v >> 5 & 31), int(v >> 10 & 31), a}
	}
	return out, nil
}

func decodeCompressed(w, h int, tex, pal []byte) ([]Color, error) {
	qw := w / 4
	nb := qw * (h / 4)
	if len(tex) < nb*6 {
		return nil, fmt.Errorf("texture: compressed payload holds %d bytes, need %d", len(tex), nb*6)
	}
	palette := paletteFromBytes(pal)
	out := make([]Color, w*h)
	for i := 0; i < nb; i++ {
		word := binary.LittleEndian.Uint32(tex[4*i:])
		mode := binary.LittleEndian.Uint16(tex[nb*4+2*i:])
		base := int(mode&0x3fff) * 2
		interp := mode&(1<<14) != 0
		opaque := mode&(1<<15) != 0

		var win [4]Color
		win[0] = paletteAt(palette, base)
		win[1] = paletteAt(palette, base+1)
		switch {
		case opaque && interp:
			win[2] = blend(win[0], win[1], 5, 3, 8)
			win[3] = blend(win[0], win[1], 3, 5, 8)
		case opaque:
			win[2] = paletteAt(palette, base+2)
			win[3] = paletteAt(palette, base+3)
		case interp:
			win[2] = blend(win[0], win[1], 1, 1, 2)
			win[3] = Color{}
		default:
			win[2] = paletteAt(palette, base+2)
			win[3] = Color{}
		}

		bx, by := i%qw*4, i/qw*4
		for j := 0; j < 16; j++ {
			out[(by+j/4)*w+bx+j%4] = win[word>>(2*uint(j))&3]
		}
	}
	return out, nil
}
