package raster

import (
	"image"

	"nds-bmd-codec/internal/bmd"
	"nds-bmd-codec/internal/geometry"
	"nds-bmd-codec/internal/mathutil"
	"nds-bmd-codec/internal/scene"
)

// Options controls a preview render.
type Options struct {
	Size        int // output edge in pixels
	Supersample int
	Yaw         float64 // degrees
	Pitch       float64
	FOV         float64 // degrees; 0 projects orthographically
}

// Render draws world-space objects to an NRGBA image. Textures are the
// decoded images for the model's texture table, indexed by material
// Texture fields; nil entries fall back to the material diffuse color.
func Render(objs []scene.Object, mats []bmd.Material, textures []*image.NRGBA, opts Options) *image.NRGBA {
	size := opts.Size
	if size <= 0 {
		size = 256
	}
	ss := opts.Supersample
	if ss <= 0 {
		ss = 1
	}
	renderSize := size * ss

	r := Camera{Yaw: opts.Yaw, Pitch: opts.Pitch}.Matrix()
	proj := newProjector(objs, r, renderSize, 16*ss, opts.FOV)
	if proj == nil {
		return image.NewNRGBA(image.Rect(0, 0, renderSize, renderSize))
	}

	fb := NewFrameBuffer(renderSize, renderSize)
	lc := DefaultLightConfig()

	for _, obj := range objs {
		for _, f := range obj.Geo.Faces {
			if f.Material < 0 || f.Material >= len(mats) {
				continue
			}
			mat := &mats[f.Material]
			if mat.Alpha == 0 {
				continue
			}

			var tex *image.NRGBA
			if mat.Texture >= 0 && mat.Texture < len(textures) {
				tex = textures[mat.Texture]
			}
			st := Style{
				Tex:   tex,
				WrapS: WrapOf(mat.RepeatS, mat.MirrorS),
				WrapT: WrapOf(mat.RepeatT, mat.MirrorT),
				Base:  mat.Diffuse,
				Unlit: mat.VertexColored,
				Alpha: float64(mat.Alpha) / 31,
			}

			vs := make([]Vertex, len(f.Vertices))
			for i, v := range f.Vertices {
				x, y, z := proj.point(v.Position)
				vs[i] = Vertex{
					X: x, Y: y, Z: z,
					U: v.UV[0], V: v.UV[1],
					R: v.Color[0], G: v.Color[1], B: v.Color[2],
				}
				if !v.HasColor {
					vs[i].R, vs[i].G, vs[i].B = 1, 1, 1
				}
			}
			if mat.CullBack && backFacing(vs[0], vs[1], vs[2]) {
				continue
			}
			if !st.Unlit {
				st.Shade = lc.ComputeShade(faceNormal(f, vs, r))
			}

			FillTriangle(fb, vs[0], vs[1], vs[2], &st, &lc)
			if len(vs) == 4 {
				FillTriangle(fb, vs[0], vs[2], vs[3], &st, &lc)
			}
		}
	}

	return fb.Image()
}

// backFacing reports a clockwise screen winding. The projection flips
// y, so triangles counterclockwise in model space land here negative.
func backFacing(v0, v1, v2 Vertex) bool {
	return (v1.Y-v2.Y)*(v0.X-v2.X)+(v2.X-v1.X)*(v0.Y-v2.Y) > 0
}

// faceNormal prefers the model's vertex normals rotated into view space
// and falls back to the screen-space cross product for faces without.
func faceNormal(f geometry.Face, vs []Vertex, r mathutil.Mat3) mathutil.Vec3 {
	var sum mathutil.Vec3
	withNormals := true
	for _, v := range f.Vertices {
		if !v.HasNormal {
			withNormals = false
			break
		}
		sum = sum.Add(mathutil.Vec3(v.Normal))
	}
	if withNormals && sum.Len() > 1e-8 {
		return r.MulVec3(sum).Normalize()
	}

	e1 := mathutil.Vec3{vs[1].X - vs[0].X, vs[1].Y - vs[0].Y, vs[1].Z - vs[0].Z}
	e2 := mathutil.Vec3{vs[2].X - vs[0].X, vs[2].Y - vs[0].Y, vs[2].Z - vs[0].Z}
	n := e1.Cross(e2)
	if n.Len() < 1e-8 {
		return mathutil.Vec3{0, 0, 1}
	}
	return n.Normalize()
}
