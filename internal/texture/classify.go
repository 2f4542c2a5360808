package texture

// Classify picks the tightest storable format for a decoded image.
// Any partially transparent pixel forces one of the two alpha formats,
// sized by the opaque color count. Otherwise the distinct color count
// decides: up to four colors fit the 2-bit palette directly, anything
// bigger is block-compressed unless forceUncompressed is set or the
// palette would overflow 256 entries, in which case the flat paletted
// formats (or raw 16-bit pixels) are used. The second result reports
// whether palette slot 0 must decode as transparent.
func Classify(pixels []Color, forceUncompressed bool) (Format, bool) {
	rgbs := make(map[[3]int]struct{})
	translucent, transparent := false, false
	for _, c := range pixels {
		if c[3] == 0 {
			transparent = true
			continue
		}
		rgbs[[3]int{c[0], c[1], c[2]}] = struct{}{}
		if c[3] != 31 {
			translucent = true
		}
	}
	n := len(rgbs)
	if translucent {
		if n > 8 {
			return FormatA3I5, false
		}
		return FormatA5I3, false
	}
	if transparent {
		n++
	}
	switch {
	case n <= 4:
		return FormatColor4, transparent
	case !forceUncompressed && n <= 256:
		return FormatCompressed, transparent
	case n <= 16:
		return FormatColor16, transparent
	case n <= 256:
		return FormatColor256, transparent
	default:
		return FormatDirect, transparent
	}
}
