package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var (
	// ErrBadDimensions rejects images the hardware cannot address.
	ErrBadDimensions = errors.New("texture: dimensions must be powers of two between 8 and 1024")
	// ErrPaletteOverflow reports a shared-palette allocation that could
	// not be completed; it indicates an internal invariant breach rather
	// than bad input.
	ErrPaletteOverflow = errors.New("texture: shared palette allocation failed")
)

// Texture couples a decoded 5-bit image with its encoded payloads. The
// two representations are kept consistent by the constructors: FromPixels
// encodes, FromEncoded decodes.
type Texture struct {
	Name        string
	PaletteName string
	Width       int
	Height      int
	Format      Format

	// Color0Transparent marks palette slot 0 as fully transparent in
	// the flat paletted formats.
	Color0Transparent bool

	// Pixels is the decoded image, row-major.
	Pixels []Color

	// TexData and PalData are the encoded payloads as stored on disk.
	TexData []byte
	PalData []byte
}

// ValidateSize enforces the hardware limits on texture dimensions.
func ValidateSize(w, h int) error {
	for _, v := range [2]int{w, h} {
		if v < 8 || v > 1024 || v&(v-1) != 0 {
			return fmt.Errorf("%w: got %dx%d", ErrBadDimensions, w, h)
		}
	}
	return nil
}

// FromPixels classifies and encodes a decoded image.
func FromPixels(name string, w, h int, pixels []Color, forceUncompressed bool) (*Texture, error) {
	if err := ValidateSize(w, h); err != nil {
		return nil, fmt.Errorf("texture: %q: %w", name, err)
	}
	if len(pixels) != w*h {
		return nil, fmt.Errorf("texture: %q: %d pixels for %dx%d image", name, len(pixels), w, h)
	}
	format, transparent := Classify(pixels, forceUncompressed)
	t := &Texture{
		Name:              name,
		Width:             w,
		Height:            h,
		Format:            format,
		Color0Transparent: transparent,
		Pixels:            pixels,
	}
	var err error
	switch format {
	case FormatA3I5:
		t.TexData, t.PalData, err = encodeAlpha(pixels, 3)
	case FormatA5I3:
		t.TexData, t.PalData, err = encodeAlpha(pixels, 5)
	case FormatColor4:
		t.TexData, t.PalData, err = encodeIndexed(pixels, 2)
	case FormatColor16:
		t.TexData, t.PalData, err = encodeIndexed(pixels, 4)
	case FormatColor256:
		t.TexData, t.PalData, err = encodeIndexed(pixels, 8)
	case FormatCompressed:
		t.TexData, t.PalData, err = encodeCompressed(w, h, pixels)
	case FormatDirect:
		t.TexData = encodeDirect(pixels)
	}
	if err != nil {
		return nil, fmt.Errorf("texture: %q: %w", name, err)
	}
	if len(t.PalData) > 0 {
		t.PaletteName = name + "_pl"
	}
	return t, nil
}

// FromEncoded decodes stored payloads into a full texture.
func FromEncoded(name, paletteName string, w, h int, format Format, color0Transparent bool, tex, pal []byte) (*Texture, error) {
	pixels, err := Decode(format, w, h, tex, pal, color0Transparent)
	if err != nil {
		return nil, fmt.Errorf("texture: %q: %w", name, err)
	}
	return &Texture{
		Name:              name,
		PaletteName:       paletteName,
		Width:             w,
		Height:            h,
		Format:            format,
		Color0Transparent: color0Transparent,
		Pixels:            pixels,
		TexData:           tex,
		PalData:           pal,
	}, nil
}

// Translucent reports whether any pixel uses a partial alpha level.
func (t *Texture) Translucent() bool {
	for _, c := range t.Pixels {
		if c[3] != 0 && c[3] != 31 {
			return true
		}
	}
	return false
}

// ToNRGBA expands the decoded pixels to an 8-bit image.
func (t *Texture) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	for i, c := range t.Pixels {
		n := c.NRGBA()
		img.Pix[4*i+0] = n.R
		img.Pix[4*i+1] = n.G
		img.Pix[4*i+2] = n.B
		img.Pix[4*i+3] = n.A
	}
	return img
}

// PixelsFromNRGBA quantizes an 8-bit image to the 5-bit pixel grid.
func PixelsFromNRGBA(img *image.NRGBA) (int, int, []Color) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]Color, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			out = append(out, quantize(color.NRGBA{
				R: img.Pix[i+0], G: img.Pix[i+1], B: img.Pix[i+2], A: img.Pix[i+3],
			}))
		}
	}
	return w, h, out
}
