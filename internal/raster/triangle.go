package raster

import (
	"image"
	"math"
)

// Vertex is one projected triangle corner: screen position, view depth,
// normalized texture coordinates, and a color in [0,1] per channel.
type Vertex struct {
	X, Y, Z float64
	U, V    float64
	R, G, B float64
}

// Style selects how a triangle's pixels are colored.
type Style struct {
	Tex          *image.NRGBA
	WrapS, WrapT Wrap
	Base         [3]float64 // linear fill color when untextured
	Unlit        bool       // modulate by vertex color, skip the light rig
	Shade        float64    // flat shade scalar for lit fills
	Alpha        float64    // material opacity in [0,1]
}

// FillTriangle rasterizes one triangle into fb. Depth increases toward
// the viewer; larger z wins. The inner loop allocates nothing.
func FillTriangle(fb *FrameBuffer, v0, v1, v2 Vertex, st *Style, lc *LightConfig) {
	x0, y0, z0 := v0.X, v0.Y, v0.Z
	x1, y1, z1 := v1.X, v1.Y, v1.Z
	x2, y2, z2 := v2.X, v2.Y, v2.Z

	size := fb.Width
	minX := int(math.Min(math.Min(x0, x1), x2))
	maxX := int(math.Max(math.Max(x0, x1), x2)) + 1
	minY := int(math.Min(math.Min(y0, y1), y2))
	maxY := int(math.Max(math.Max(y0, y1), y2)) + 1

	if minX < 0 {
		minX = 0
	}
	if maxX >= size {
		maxX = size - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= fb.Height {
		maxY = fb.Height - 1
	}
	if minX >= maxX || minY >= maxY {
		return
	}

	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	exposure := lc.Exposure
	invGamma := lc.InvGamma
	shade := st.Shade

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) - y2
		rowOff := sy * size
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1

			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}

			var cr, cg, cb, ca float64
			if st.Tex != nil {
				u := w0*v0.U + w1*v1.U + w2*v2.U
				v := w0*v0.V + w1*v1.V + w2*v2.V
				r8, g8, b8, a8 := SampleTexture(st.Tex, u, v, st.WrapS, st.WrapT)
				cr, cg, cb, ca = float64(r8), float64(g8), float64(b8), float64(a8)
			} else if st.Unlit {
				cr, cg, cb, ca = 255, 255, 255, 255
			} else {
				// Base is linear; route it through the lit path below.
				ca = 255
			}

			ca *= st.Alpha
			if ca < 8 {
				continue
			}
			fb.ZBuf[zIdx] = z

			var fr, fg, ffb float64
			if st.Unlit {
				// Vertex colors modulate the texel the way the
				// hardware does, with no tone mapping on top.
				vr := w0*v0.R + w1*v1.R + w2*v2.R
				vg := w0*v0.G + w1*v1.G + w2*v2.G
				vb := w0*v0.B + w1*v1.B + w2*v2.B
				fr = cr * vr
				fg = cg * vg
				ffb = cb * vb
			} else {
				var lr, lg, lb float64
				if st.Tex != nil {
					lr = srgbToLinear[uint8(cr)]
					lg = srgbToLinear[uint8(cg)]
					lb = srgbToLinear[uint8(cb)]
				} else {
					lr, lg, lb = st.Base[0], st.Base[1], st.Base[2]
				}
				fr = math.Pow(ACESTonemap(lr*shade*exposure), invGamma) * 255
				fg = math.Pow(ACESTonemap(lg*shade*exposure), invGamma) * 255
				ffb = math.Pow(ACESTonemap(lb*shade*exposure), invGamma) * 255
			}

			pxIdx := zIdx * 4
			fb.Color[pxIdx] = clamp255(fr)
			fb.Color[pxIdx+1] = clamp255(fg)
			fb.Color[pxIdx+2] = clamp255(ffb)
			fb.Color[pxIdx+3] = clamp255(ca)
		}
	}
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
