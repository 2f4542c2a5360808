// Package scene flattens a parsed model into world-space objects and
// rebuilds serializable models from such objects.
package scene

import (
	"fmt"
	"math"
	"sort"

	"nds-bmd-codec/internal/bmd"
	"nds-bmd-codec/internal/geometry"
	"nds-bmd-codec/internal/mathutil"
	"nds-bmd-codec/internal/skeleton"
	"nds-bmd-codec/internal/texture"
)

// Object is one bone's geometry in world space. UV coordinates are
// normalized to [0,1] texture space when the face material is textured.
type Object struct {
	Name      string
	Bone      int
	Geo       *geometry.Geometry
	Materials []int
}

// Sink receives objects in traversal order, parents before children.
type Sink interface {
	AddObject(Object)
}

// Scene is an in-memory sink.
type Scene struct {
	Objects []Object
}

func (s *Scene) AddObject(o Object) {
	s.Objects = append(s.Objects, o)
}

// Build flattens the model: every vertex moves through the world matrix
// of its transform group, then the model's global power-of-two scale.
// Bones without faces produce no object.
func Build(m *bmd.Model, sink Sink) error {
	if err := skeleton.Validate(m.Bones); err != nil {
		return err
	}
	if len(m.Geometries) != len(m.Bones) {
		return fmt.Errorf("scene: model carries %d geometries for %d bones", len(m.Geometries), len(m.Bones))
	}
	worlds, err := skeleton.WorldMatrices(m.Bones)
	if err != nil {
		return err
	}
	scale := math.Ldexp(1, int(m.ScaleExponent))

	var buildErr error
	skeleton.Traverse(m.Bones, func(bi int) {
		if buildErr != nil {
			return
		}
		g := m.Geometries[bi]
		if g == nil || g.Empty() {
			return
		}

		faces := make([]geometry.Face, len(g.Faces))
		seen := map[int]bool{}
		var mats []int
		for fi, f := range g.Faces {
			texW, texH, err := faceTexture(m, f.Material)
			if err != nil {
				buildErr = err
				return
			}
			if !seen[f.Material] {
				seen[f.Material] = true
				mats = append(mats, f.Material)
			}

			vs := make([]geometry.Vertex, len(f.Vertices))
			for vi, v := range f.Vertices {
				if v.Group < 0 || v.Group >= len(worlds) {
					buildErr = fmt.Errorf("scene: vertex binds transform group %d of %d", v.Group, len(worlds))
					return
				}
				w := worlds[v.Group].MulPoint(mathutil.Vec3(v.Position)).Scale(scale)
				v.Position = [3]float64(w)
				if v.HasNormal {
					n := worlds[v.Group].MulDir(mathutil.Vec3(v.Normal)).Normalize()
					v.Normal = [3]float64(n)
				}
				if v.HasUV && texW > 0 {
					v.UV[0] /= float64(texW)
					v.UV[1] /= float64(texH)
				}
				vs[vi] = v
			}
			faces[fi] = geometry.Face{Vertices: vs, Material: f.Material}
		}
		sort.Ints(mats)

		sink.AddObject(Object{
			Name:      m.Bones[bi].Name,
			Bone:      bi,
			Geo:       geometry.New(nil, faces),
			Materials: mats,
		})
	})
	return buildErr
}

func faceTexture(m *bmd.Model, mat int) (w, h int, err error) {
	if mat < 0 || mat >= len(m.Materials) {
		return 0, 0, fmt.Errorf("scene: face references material %d of %d", mat, len(m.Materials))
	}
	ti := m.Materials[mat].Texture
	if ti < 0 {
		return 0, 0, nil
	}
	if ti >= len(m.Textures) {
		return 0, 0, fmt.Errorf("scene: material %d references texture %d of %d", mat, ti, len(m.Textures))
	}
	t := m.Textures[ti]
	return t.Width, t.Height, nil
}

// FromScene rebuilds a model from world-space objects. Bone transforms
// are given in world units; the scale exponent is chosen as the smallest
// power of two that brings every bone-local coordinate into the signed
// 4.12 range, and bone translations are divided down to match.
func FromScene(s *Scene, bones []bmd.Bone, materials []bmd.Material, textures []*texture.Texture) (*bmd.Model, error) {
	if err := skeleton.Validate(bones); err != nil {
		return nil, err
	}
	worlds, err := skeleton.WorldMatrices(bones)
	if err != nil {
		return nil, err
	}
	inv := make([]mathutil.Mat4, len(worlds))
	for i := range worlds {
		inv[i] = worlds[i].AffineInverse()
	}

	perBone := make([][]geometry.Face, len(bones))
	maxMag := 0.0
	for _, obj := range s.Objects {
		if obj.Bone < 0 || obj.Bone >= len(bones) {
			return nil, fmt.Errorf("scene: object %q names bone %d of %d", obj.Name, obj.Bone, len(bones))
		}
		for _, f := range obj.Geo.Faces {
			if f.Material < 0 || f.Material >= len(materials) {
				return nil, fmt.Errorf("scene: object %q references material %d of %d", obj.Name, f.Material, len(materials))
			}
			texW, texH := 0, 0
			if ti := materials[f.Material].Texture; ti >= 0 {
				if ti >= len(textures) {
					return nil, fmt.Errorf("scene: material %d references texture %d of %d", f.Material, ti, len(textures))
				}
				texW, texH = textures[ti].Width, textures[ti].Height
			}

			vs := make([]geometry.Vertex, len(f.Vertices))
			for vi, v := range f.Vertices {
				if v.Group < 0 || v.Group >= len(bones) {
					return nil, fmt.Errorf("scene: vertex binds transform group %d of %d", v.Group, len(bones))
				}
				u := inv[v.Group].MulPoint(mathutil.Vec3(v.Position))
				for k := 0; k < 3; k++ {
					if mag := math.Abs(u[k]); mag > maxMag {
						maxMag = mag
					}
				}
				v.Position = [3]float64(u)
				if v.HasNormal {
					n := inv[v.Group].MulDir(mathutil.Vec3(v.Normal)).Normalize()
					v.Normal = [3]float64(n)
				}
				if v.HasUV && texW > 0 {
					v.UV[0] *= float64(texW)
					v.UV[1] *= float64(texH)
				}
				vs[vi] = v
			}
			perBone[obj.Bone] = append(perBone[obj.Bone], geometry.Face{Vertices: vs, Material: f.Material})
		}
	}

	exp := 0
	for maxMag > math.Ldexp(32767.0/4096, exp) {
		exp++
	}
	f := math.Ldexp(1, -exp)

	outBones := make([]bmd.Bone, len(bones))
	copy(outBones, bones)
	for i := range outBones {
		for k := 0; k < 3; k++ {
			outBones[i].Translation[k] *= f
		}
		// Pair lists describe display lists, which the writer derives
		// from the geometry again.
		outBones[i].MaterialIDs = nil
		outBones[i].DisplayListIDs = nil
	}
	geos := make([]*geometry.Geometry, len(bones))
	for i, faces := range perBone {
		for fi := range faces {
			for vi := range faces[fi].Vertices {
				for k := 0; k < 3; k++ {
					faces[fi].Vertices[vi].Position[k] *= f
				}
			}
		}
		geos[i] = geometry.New(nil, faces)
	}

	return &bmd.Model{
		ScaleExponent: uint32(exp),
		Bones:         outBones,
		Geometries:    geos,
		Materials:     materials,
		Textures:      textures,
	}, nil
}
