package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample resizes a supersampled frame to the target size with
// CatmullRom filtering. Resampling runs on premultiplied alpha so fully
// transparent neighbors cannot bleed dark fringes into visible edges.
func Downsample(img *image.NRGBA, target int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= target && b.Dy() <= target {
		return img
	}

	premul := image.NewRGBA(b)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		a := float64(img.Pix[i+3]) / 255
		premul.Pix[i+0] = uint8(float64(img.Pix[i+0])*a + 0.5)
		premul.Pix[i+1] = uint8(float64(img.Pix[i+1])*a + 0.5)
		premul.Pix[i+2] = uint8(float64(img.Pix[i+2])*a + 0.5)
		premul.Pix[i+3] = img.Pix[i+3]
	}

	dst := image.NewRGBA(image.Rect(0, 0, target, target))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	out := image.NewNRGBA(dst.Bounds())
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		a := float64(dst.Pix[i+3])
		if a > 1 {
			inv := 255 / a
			out.Pix[i+0] = clamp8(float64(dst.Pix[i+0]) * inv)
			out.Pix[i+1] = clamp8(float64(dst.Pix[i+1]) * inv)
			out.Pix[i+2] = clamp8(float64(dst.Pix[i+2]) * inv)
		}
		out.Pix[i+3] = dst.Pix[i+3]
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
