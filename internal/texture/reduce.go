package texture

// ReduceColors caps the number of distinct colors by repeatedly merging
// the closest pair. Pairs mixing a transparent and an opaque color are
// penalized behind every same-kind pair so transparency survives as long
// as possible. The survivor of a merge is whichever color occurs more
// often in the original input, ties going to the smaller color. Returns
// the remapped pixels and the surviving distinct colors in first-use
// order.
func ReduceColors(colors []Color, max int) ([]Color, []Color) {
	mapped := append([]Color(nil), colors...)
	counts := make(map[Color]int, len(colors))
	for _, c := range colors {
		counts[c]++
	}
	distinct := make(map[Color]struct{}, len(counts))
	for c := range counts {
		distinct[c] = struct{}{}
	}

	for len(distinct) > max {
		sorted := sortedColors(distinct)
		var pa, pb Color
		bestMix, bestDist := false, -1
		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				mix := (sorted[i][3] == 0) != (sorted[j][3] == 0)
				d := 0
				for k := 0; k < 4; k++ {
					dk := sorted[i][k] - sorted[j][k]
					d += dk * dk
				}
				if bestDist < 0 || (mix != bestMix && !mix) || (mix == bestMix && d < bestDist) {
					pa, pb, bestMix, bestDist = sorted[i], sorted[j], mix, d
				}
			}
		}
		survivor, victim := pa, pb
		if counts[pb] > counts[pa] {
			survivor, victim = pb, pa
		}
		delete(distinct, victim)
		for i, c := range mapped {
			if c == victim {
				mapped[i] = survivor
			}
		}
	}

	var palette []Color
	seen := make(map[Color]bool, len(distinct))
	for _, c := range mapped {
		if !seen[c] {
			seen[c] = true
			palette = append(palette, c)
		}
	}
	return mapped, palette
}

// paletteIndex finds the first occurrence of c, or -1.
func paletteIndex(palette []Color, c Color) int {
	for i, p := range palette {
		if p == c {
			return i
		}
	}
	return -1
}
