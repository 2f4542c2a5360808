package raster

import (
	"image"
	"math"
)

// Wrap selects how texture coordinates behave outside [0,1].
type Wrap int

const (
	WrapClamp Wrap = iota
	WrapRepeat
	WrapMirror
)

// WrapOf maps the hardware repeat and flip bits to a sampling mode.
// The flip bit only takes effect while repeat is set.
func WrapOf(repeat, mirror bool) Wrap {
	switch {
	case !repeat:
		return WrapClamp
	case mirror:
		return WrapMirror
	default:
		return WrapRepeat
	}
}

func wrapCoord(u float64, mode Wrap) float64 {
	switch mode {
	case WrapRepeat:
		u -= math.Floor(u)
	case WrapMirror:
		u = math.Mod(u, 2)
		if u < 0 {
			u += 2
		}
		if u > 1 {
			u = 2 - u
		}
	default:
		u = math.Min(math.Max(u, 0), 1)
	}
	return u
}

// SampleTexture bilinearly filters tex at normalized coordinates,
// wrapping each axis independently. Accesses tex.Pix directly.
func SampleTexture(tex *image.NRGBA, u, v float64, wrapS, wrapT Wrap) (r, g, b, a uint8) {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()

	u = wrapCoord(u, wrapS)
	v = wrapCoord(v, wrapT)

	fx := u * float64(w-1)
	fy := v * float64(h-1)
	x0 := int(fx)
	y0 := int(fy)
	x1 := x0 + 1
	y1 := y0 + 1
	if wrapS == WrapRepeat {
		x1 %= w
	} else if x1 >= w {
		x1 = w - 1
	}
	if wrapT == WrapRepeat {
		y1 %= h
	} else if y1 >= h {
		y1 = h - 1
	}
	dx := fx - float64(x0)
	dy := fy - float64(y0)

	stride := tex.Stride
	pix := tex.Pix

	i00 := y0*stride + x0*4
	i10 := y0*stride + x1*4
	i01 := y1*stride + x0*4
	i11 := y1*stride + x1*4

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	fr := float64(pix[i00])*w00 + float64(pix[i10])*w10 + float64(pix[i01])*w01 + float64(pix[i11])*w11
	fg := float64(pix[i00+1])*w00 + float64(pix[i10+1])*w10 + float64(pix[i01+1])*w01 + float64(pix[i11+1])*w11
	fb := float64(pix[i00+2])*w00 + float64(pix[i10+2])*w10 + float64(pix[i01+2])*w01 + float64(pix[i11+2])*w11
	fa := float64(pix[i00+3])*w00 + float64(pix[i10+3])*w10 + float64(pix[i01+3])*w01 + float64(pix[i11+3])*w11

	return uint8(fr + 0.5), uint8(fg + 0.5), uint8(fb + 0.5), uint8(fa + 0.5)
}
