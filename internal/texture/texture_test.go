package texture

import (
	"errors"
	"fmt"
	"testing"
)

// samePixel treats all fully transparent colors as equal: the alpha
// formats forget the RGB of transparent pixels by design.
func samePixel(a, b Color) bool {
	if a[3] == 0 && b[3] == 0 {
		return true
	}
	return a == b
}

func checkPixels(t *testing.T, got, want []Color) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("pixel count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !samePixel(got[i], want[i]) {
			t.Fatalf("pixel %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func roundTrip(t *testing.T, name string, w, h int, pixels []Color, force bool, want Format) {
	t.Helper()
	tex, err := FromPixels(name, w, h, pixels, force)
	if err != nil {
		t.Fatalf("FromPixels: %v", err)
	}
	if tex.Format != want {
		t.Fatalf("format = %v, want %v", tex.Format, want)
	}
	back, err := FromEncoded(name, tex.PaletteName, w, h, tex.Format, tex.Color0Transparent, tex.TexData, tex.PalData)
	if err != nil {
		t.Fatalf("FromEncoded: %v", err)
	}
	checkPixels(t, back.Pixels, pixels)
}

func fill(w, h int, pick func(i int) Color) []Color {
	out := make([]Color, w*h)
	for i := range out {
		out[i] = pick(i)
	}
	return out
}

func TestValidateSize(t *testing.T) {
	tests := []struct {
		w, h int
		ok   bool
	}{
		{8, 8, true},
		{1024, 8, true},
		{64, 256, true},
		{4, 8, false},
		{8, 2048, false},
		{48, 8, false},
		{0, 0, false},
	}
	for _, tt := range tests {
		err := ValidateSize(tt.w, tt.h)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateSize(%d, %d) = %v, want ok=%v", tt.w, tt.h, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrBadDimensions) {
			t.Errorf("ValidateSize(%d, %d) error %v is not ErrBadDimensions", tt.w, tt.h, err)
		}
	}
}

func TestClassify(t *testing.T) {
	opaque := func(n, i int) Color { return Color{i % n, i / n % 32, 0, 31} }
	tests := []struct {
		name        string
		pixels      []Color
		force       bool
		want        Format
		transparent bool
	}{
		{
			name:   "two colors",
			pixels: fill(8, 8, func(i int) Color { return opaque(2, i%2) }),
			want:   FormatColor4,
		},
		{
			name: "three colors plus transparent",
			pixels: fill(8, 8, func(i int) Color {
				if i%4 == 3 {
					return Color{}
				}
				return opaque(3, i%3)
			}),
			want:        FormatColor4,
			transparent: true,
		},
		{
			name:   "five colors compress",
			pixels: fill(8, 8, func(i int) Color { return opaque(5, i%5) }),
			want:   FormatCompressed,
		},
		{
			name:   "five colors forced flat",
			pixels: fill(8, 8, func(i int) Color { return opaque(5, i%5) }),
			force:  true,
			want:   FormatColor16,
		},
		{
			name:   "twenty colors forced flat",
			pixels: fill(8, 8, func(i int) Color { return opaque(20, i%20) }),
			force:  true,
			want:   FormatColor256,
		},
		{
			name: "translucent few colors",
			pixels: fill(8, 8, func(i int) Color {
				return Color{i % 4, 0, 0, 15}
			}),
			want: FormatA5I3,
		},
		{
			name: "translucent many colors",
			pixels: fill(8, 8, func(i int) Color {
				return Color{i % 16, 8, 0, 15}
			}),
			want: FormatA3I5,
		},
		{
			name: "palette overflow direct",
			pixels: fill(32, 32, func(i int) Color {
				return Color{i % 32, i / 32, 16, 31}
			}),
			want: FormatDirect,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, transparent := Classify(tt.pixels, tt.force)
			if format != tt.want || transparent != tt.transparent {
				t.Fatalf("Classify = %v/%v, want %v/%v", format, transparent, tt.want, tt.transparent)
			}
		})
	}
}

func TestReduceColorsByFrequency(t *testing.T) {
	a := Color{10, 0, 0, 31}
	b := Color{12, 0, 0, 31}
	c := Color{0, 31, 0, 31}
	var colors []Color
	for i := 0; i < 5; i++ {
		colors = append(colors, a)
	}
	for i := 0; i < 3; i++ {
		colors = append(colors, b)
	}
	colors = append(colors, c)

	mapped, palette := ReduceColors(colors, 2)
	if len(palette) != 2 {
		t.Fatalf("palette size = %d, want 2", len(palette))
	}
	na, nc := 0, 0
	for _, col := range mapped {
		switch col {
		case a:
			na++
		case c:
			nc++
		default:
			t.Fatalf("unexpected survivor %v", col)
		}
	}
	if na != 8 || nc != 1 {
		t.Fatalf("survivor counts = %d/%d, want 8/1", na, nc)
	}
}

func TestReduceColorsKeepsTransparencyApart(t *testing.T) {
	tr := Color{}
	near := Color{0, 0, 1, 31}
	far := Color{30, 30, 30, 31}
	_, palette := ReduceColors([]Color{tr, near, far}, 2)
	if len(palette) != 2 {
		t.Fatalf("palette size = %d, want 2", len(palette))
	}
	hasTransparent := false
	for _, c := range palette {
		if c.IsTransparent() {
			hasTransparent = true
		}
	}
	if !hasTransparent {
		t.Fatalf("transparent color merged away: %v", palette)
	}
}

func TestRoundTripColor4(t *testing.T) {
	colors := []Color{{31, 0, 0, 31}, {0, 31, 0, 31}, {0, 0, 31, 31}, {}}
	px := fill(8, 8, func(i int) Color { return colors[i%4] })
	roundTrip(t, "flag", 8, 8, px, false, FormatColor4)
}

func TestRoundTripColor16(t *testing.T) {
	px := fill(16, 8, func(i int) Color {
		if i%16 == 0 {
			return Color{}
		}
		return Color{i % 16, 31 - i%16, 7, 31}
	})
	roundTrip(t, "tiles", 16, 8, px, true, FormatColor16)
}

func TestRoundTripColor256(t *testing.T) {
	px := fill(16, 16, func(i int) Color {
		return Color{i % 32, i / 8 % 32, 3, 31}
	})
	roundTrip(t, "sky", 16, 16, px, true, FormatColor256)
}

func TestRoundTripDirect(t *testing.T) {
	px := fill(32, 32, func(i int) Color {
		if i%97 == 0 {
			return Color{}
		}
		return Color{i % 32, i / 32 % 32, i / 7 % 32, 31}
	})
	roundTrip(t, "photo", 32, 32, px, false, FormatDirect)
}

func TestRoundTripA5I3(t *testing.T) {
	px := fill(8, 8, func(i int) Color {
		if i == 63 {
			return Color{}
		}
		return Color{i % 4 * 8, 16, 0, i % 32}
	})
	roundTrip(t, "glass", 8, 8, px, false, FormatA5I3)
}

func TestRoundTripA3I5AlphaGrid(t *testing.T) {
	// Alpha values on the 3-bit grid survive the encode exactly.
	grid := []int{0, 4, 9, 13, 18, 22, 27, 31}
	px := fill(16, 8, func(i int) Color {
		return Color{i % 12, 0, 2, grid[i%8]}
	})
	roundTrip(t, "smoke", 16, 8, px, false, FormatA3I5)
}

func TestFromPixelsRejectsBadInput(t *testing.T) {
	if _, err := FromPixels("tiny", 4, 4, make([]Color, 16), false); !errors.Is(err, ErrBadDimensions) {
		t.Fatalf("4x4 error = %v, want ErrBadDimensions", err)
	}
	if _, err := FromPixels("short", 8, 8, make([]Color, 10), false); err == nil {
		t.Fatal("expected error for pixel count mismatch")
	}
}

func TestDecodeShortPayload(t *testing.T) {
	tests := []struct {
		format Format
		tex    int
		pal    int
	}{
		{FormatA5I3, 10, 16},
		{FormatColor16, 4, 32},
		{FormatColor256, 32, 16},
		{FormatDirect, 64, 0},
		{FormatCompressed, 10, 8},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.format), func(t *testing.T) {
			_, err := Decode(tt.format, 8, 8, make([]byte, tt.tex), make([]byte, tt.pal), false)
			if err == nil {
				t.Fatal("expected error for short payload")
			}
		})
	}
}

func TestCacheSlots(t *testing.T) {
	c := NewCache()
	t1 := &Texture{Name: "a"}
	t2 := &Texture{Name: "b"}
	if i := c.Add(Key{"a", "a_pl"}, t1); i != 0 {
		t.Fatalf("first Add slot = %d, want 0", i)
	}
	if i := c.Add(Key{"b", "b_pl"}, t2); i != 1 {
		t.Fatalf("second Add slot = %d, want 1", i)
	}
	if i := c.Add(Key{"a", "a_pl"}, t1); i != 0 {
		t.Fatalf("repeated Add slot = %d, want 0", i)
	}

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if i, ok := c.Lookup(Key{"a", "a_pl"}); !ok || i != 0 {
		t.Fatalf("Lookup returned %d/%v", i, ok)
	}
	if _, ok := c.Lookup(Key{"a", "other"}); ok {
		t.Fatal("unexpected hit for different palette")
	}
	order := c.Textures()
	if len(order) != 2 || order[0] != t1 || order[1] != t2 {
		t.Fatalf("Textures order = %v", order)
	}
}
