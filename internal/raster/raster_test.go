package raster

import (
	"image"
	"image/color"
	"math"
	"testing"

	"nds-bmd-codec/internal/bmd"
	"nds-bmd-codec/internal/geometry"
	"nds-bmd-codec/internal/scene"
)

func TestWrapOf(t *testing.T) {
	cases := []struct {
		repeat, mirror bool
		want           Wrap
	}{
		{false, false, WrapClamp},
		{false, true, WrapClamp},
		{true, false, WrapRepeat},
		{true, true, WrapMirror},
	}
	for _, tc := range cases {
		if got := WrapOf(tc.repeat, tc.mirror); got != tc.want {
			t.Errorf("WrapOf(%v, %v) = %v, want %v", tc.repeat, tc.mirror, got, tc.want)
		}
	}
}

func TestWrapCoord(t *testing.T) {
	cases := []struct {
		u    float64
		mode Wrap
		want float64
	}{
		{1.25, WrapRepeat, 0.25},
		{-0.25, WrapRepeat, 0.75},
		{1.5, WrapClamp, 1},
		{-0.5, WrapClamp, 0},
		{0.5, WrapMirror, 0.5},
		{1.25, WrapMirror, 0.75},
		{-0.25, WrapMirror, 0.25},
	}
	for _, tc := range cases {
		if got := wrapCoord(tc.u, tc.mode); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("wrapCoord(%v, %v) = %v, want %v", tc.u, tc.mode, got, tc.want)
		}
	}
}

func sampleQuad() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 255})
	img.SetNRGBA(0, 1, color.NRGBA{0, 0, 255, 255})
	img.SetNRGBA(1, 1, color.NRGBA{255, 255, 255, 255})
	return img
}

func TestSampleTexture(t *testing.T) {
	tex := sampleQuad()

	r, g, b, a := SampleTexture(tex, 0, 0, WrapClamp, WrapClamp)
	if r != 255 || g != 0 || b != 0 || a != 255 {
		t.Fatalf("corner texel = %d %d %d %d, want red", r, g, b, a)
	}
	r, g, _, _ = SampleTexture(tex, 2.5, 0, WrapClamp, WrapClamp)
	if r != 0 || g != 255 {
		t.Fatalf("clamped texel = %d %d, want green", r, g)
	}
	r, g, _, _ = SampleTexture(tex, 0.5, 0, WrapClamp, WrapClamp)
	if r != 128 || g != 128 {
		t.Fatalf("midpoint texel = %d %d, want even red/green blend", r, g)
	}
	r, _, _, _ = SampleTexture(tex, 1, 0, WrapRepeat, WrapRepeat)
	if r != 255 {
		t.Fatalf("repeat texel r = %d, want wrap back to red", r)
	}
	r, g, _, _ = SampleTexture(tex, 1.75, 0, WrapMirror, WrapMirror)
	if r != 191 || g != 64 {
		t.Fatalf("mirror texel = %d %d, want reflected blend", r, g)
	}
}

func TestCameraMatrix(t *testing.T) {
	checkVec := func(got, want [3]float64) {
		t.Helper()
		for k := 0; k < 3; k++ {
			if math.Abs(got[k]-want[k]) > 1e-12 {
				t.Fatalf("rotated = %v, want %v", got, want)
			}
		}
	}
	r := Camera{Yaw: 90}.Matrix()
	checkVec(r.MulVec3([3]float64{1, 0, 0}), [3]float64{0, 0, -1})
	r = Camera{Pitch: 90}.Matrix()
	checkVec(r.MulVec3([3]float64{0, 1, 0}), [3]float64{0, 0, 1})
}

// flatTri builds a single-face object in the z=0 plane. Winding is
// counterclockwise seen from +z, the front side.
func flatTri(z float64, col [3]float64, hasColor bool) scene.Object {
	v := func(x, y float64) geometry.Vertex {
		return geometry.Vertex{Position: [3]float64{x, y, z}, Color: col, HasColor: hasColor}
	}
	return scene.Object{
		Geo: geometry.New(nil, []geometry.Face{{
			Vertices: []geometry.Vertex{v(-1, -1), v(1, -1), v(0, 1)},
		}}),
	}
}

func TestRenderVertexColors(t *testing.T) {
	objs := []scene.Object{flatTri(0, [3]float64{1, 0, 0}, true)}
	mats := []bmd.Material{{Name: "flat", Texture: -1, VertexColored: true, Alpha: 31}}

	img := Render(objs, mats, nil, Options{Size: 64, Supersample: 1})
	if got := img.NRGBAAt(32, 32); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Fatalf("center pixel = %v, want opaque red", got)
	}
	if got := img.NRGBAAt(1, 1); got.A != 0 {
		t.Fatalf("background alpha = %d, want 0", got.A)
	}
}

func TestRenderDepthOrder(t *testing.T) {
	near := flatTri(1, [3]float64{0, 0, 1}, true)
	far := flatTri(0, [3]float64{1, 0, 0}, true)
	objs := []scene.Object{near, far}
	mats := []bmd.Material{{Name: "flat", Texture: -1, VertexColored: true, Alpha: 31}}

	img := Render(objs, mats, nil, Options{Size: 64, Supersample: 1})
	if got := img.NRGBAAt(32, 32); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Fatalf("center pixel = %v, want the nearer blue face", got)
	}
}

func TestRenderCullBack(t *testing.T) {
	front := flatTri(0, [3]float64{1, 0, 0}, true)
	back := flatTri(0, [3]float64{1, 0, 0}, true)
	vs := back.Geo.Faces[0].Vertices
	vs[0], vs[1] = vs[1], vs[0]

	mats := []bmd.Material{{Name: "flat", Texture: -1, VertexColored: true, CullBack: true, Alpha: 31}}

	img := Render([]scene.Object{front}, mats, nil, Options{Size: 64, Supersample: 1})
	if got := img.NRGBAAt(32, 32); got.A != 255 {
		t.Fatalf("front face culled: center = %v", got)
	}
	img = Render([]scene.Object{back}, mats, nil, Options{Size: 64, Supersample: 1})
	if got := img.NRGBAAt(32, 32); got.A != 0 {
		t.Fatalf("back face drawn: center = %v", got)
	}
}

func TestRenderTexturedLit(t *testing.T) {
	tex := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range tex.Pix {
		tex.Pix[i] = 255
	}

	obj := flatTri(0, [3]float64{}, false)
	vs := obj.Geo.Faces[0].Vertices
	vs[0].UV, vs[0].HasUV = [2]float64{0, 0}, true
	vs[1].UV, vs[1].HasUV = [2]float64{1, 0}, true
	vs[2].UV, vs[2].HasUV = [2]float64{0, 1}, true

	mats := []bmd.Material{{Name: "skin", Texture: 0, RepeatS: true, RepeatT: true, Alpha: 31}}

	img := Render([]scene.Object{obj}, mats, []*image.NRGBA{tex}, Options{Size: 64, Supersample: 1})
	got := img.NRGBAAt(32, 32)
	if got.A != 255 {
		t.Fatalf("center alpha = %d, want opaque", got.A)
	}
	if got.R != got.G || got.G != got.B {
		t.Fatalf("white texel shaded unevenly: %v", got)
	}
	if got.R < 100 {
		t.Fatalf("center = %v, want a lit gray", got)
	}
}

func TestRenderSkipsInvisible(t *testing.T) {
	hidden := flatTri(0, [3]float64{1, 0, 0}, true)
	mats := []bmd.Material{{Name: "ghost", Texture: -1, VertexColored: true, Alpha: 0}}

	img := Render([]scene.Object{hidden}, mats, nil, Options{Size: 64, Supersample: 1})
	if got := img.NRGBAAt(32, 32); got.A != 0 {
		t.Fatalf("alpha-0 material drawn: center = %v", got)
	}
}

func TestProjectorPerspective(t *testing.T) {
	objs := []scene.Object{{
		Geo: geometry.New(nil, []geometry.Face{{
			Vertices: []geometry.Vertex{
				{Position: [3]float64{1, 0, 1}},
				{Position: [3]float64{1, 0, -1}},
				{Position: [3]float64{-1, 0, 1}},
				{Position: [3]float64{-1, 0, -1}},
			},
		}}),
	}}
	cam := Camera{}.Matrix()

	ortho := newProjector(objs, cam, 64, 16, 0)
	ox1, _, oz1 := ortho.point([3]float64{1, 0, 1})
	ox2, _, oz2 := ortho.point([3]float64{1, 0, -1})
	if ox1 != ox2 {
		t.Fatalf("orthographic x depends on depth: %v vs %v", ox1, ox2)
	}
	if oz1 <= oz2 {
		t.Fatalf("depth order wrong: near %v, far %v", oz1, oz2)
	}

	persp := newProjector(objs, cam, 64, 16, 90)
	px1, _, _ := persp.point([3]float64{1, 0, 1})
	px2, _, _ := persp.point([3]float64{1, 0, -1})
	if px1 <= px2 {
		t.Fatalf("perspective should push the near vertex outward: near %v, far %v", px1, px2)
	}
}
