package texture

import (
	"encoding/binary"
	"fmt"
	"sort"

	"nds-bmd-codec/internal/fixed"
)

// encodeAlpha packs one byte per pixel: a palette index in the low bits
// and the quantized alpha in the top alphaBits. Fully transparent pixels
// borrow the first opaque color as a stand-in so their index stays
// harmless; their stored alpha is zero either way.
func encodeAlpha(pixels []Color, alphaBits int) (tex, pal []byte, err error) {
	stand := Color{0, 0, 0, 31}
	for _, c := range pixels {
		if c[3] != 0 {
			stand = Color{c[0], c[1], c[2], 31}
			break
		}
	}
	work := make([]Color, len(pixels))
	for i, c := range pixels {
		if c[3] != 0 {
			work[i] = Color{c[0], c[1], c[2], 31}
		} else {
			work[i] = stand
		}
	}
	mapped, palette := ReduceColors(work, 1<<(8-alphaBits))
	maxA := 1<<alphaBits - 1
	tex = make([]byte, len(pixels))
	for i, c := range mapped {
		idx := paletteIndex(palette, c)
		if idx < 0 {
			return nil, nil, fmt.Errorf("texture: reduced color %v missing from palette", c)
		}
		a := fixed.RoundHalfUp(float64(pixels[i][3]) * float64(maxA) / 31)
		tex[i] = byte(idx | a<<(8-alphaBits))
	}
	return tex, paletteBytes(palette), nil
}

// encodeIndexed packs palette indices at indexBits per pixel, low bits
// first within each byte. Transparent pixels collapse onto palette slot
// 0, which sorts ahead of every opaque color.
func encodeIndexed(pixels []Color, indexBits int) (tex, pal []byte, err error) {
	norm := make([]Color, len(pixels))
	for i, c := range pixels {
		if c[3] != 0 {
			norm[i] = c
		}
	}
	mapped, palette := ReduceColors(norm, 1<<indexBits)
	sort.SliceStable(palette, func(i, j int) bool { return palette[i][3] < palette[j][3] })
	stride := 8 / indexBits
	tex = make([]byte, (len(pixels)+stride-1)/stride)
	for i, c := range mapped {
		idx := paletteIndex(palette, c)
		if idx < 0 {
			return nil, nil, fmt.Errorf("texture: reduced color %v missing from palette", c)
		}
		tex[i/stride] |= byte(idx << (uint(i%stride) * uint(indexBits)))
	}
	return tex, paletteBytes(palette), nil
}

func encodeDirect(pixels []Color) []byte {
	out := make([]byte, 2*len(pixels))
	for i, c := range pixels {
		v := c.rgb555()
		if c[3] != 0 {
			v |= 1 << 15
		}
		binary.LittleEndian.PutUint16(out[2*i:], v)
	}
	return out
}

// encodeCompressed reduces each 4×4 block to at most four colors,
// allocates all blocks into one shared palette (most constrained blocks
// first), then emits per block a 32-bit index word plus a 16-bit mode
// word. The mode words follow the index words in the returned payload.
func encodeCompressed(w, h int, pixels []Color) (tex, pal []byte, err error) {
	qw := w / 4
	blocks := make([]*texel, qw*(h/4))
	for i := range blocks {
		bx, by := i%qw*4, i/qw*4
		px := make([]Color, 16)
		for j := 0; j < 16; j++ {
			px[j] = pixels[(by+j/4)*w+bx+j%4]
		}
		blocks[i] = newTexel(px)
	}

	cm := newColorMap(4 * len(blocks))
	ordered := append([]*texel(nil), blocks...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].rank < ordered[j].rank })
	for _, b := range ordered {
		base, err := cm.place(b.place, b.need)
		if err != nil {
			return nil, nil, err
		}
		b.index = base
	}
	palette, err := cm.compact()
	if err != nil {
		return nil, nil, err
	}

	idxBuf := make([]byte, 0, 4*len(blocks))
	modeBuf := make([]byte, 0, 2*len(blocks))
	for _, b := range blocks {
		word, mode, err := b.encode(palette)
		if err != nil {
			return nil, nil, err
		}
		idxBuf = binary.LittleEndian.AppendUint32(idxBuf, word)
		modeBuf = binary.LittleEndian.AppendUint16(modeBuf, mode)
	}
	return append(idxBuf, modeBuf...), paletteBytes(palette), nil
}
