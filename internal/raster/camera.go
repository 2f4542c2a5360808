package raster

import (
	"math"

	"nds-bmd-codec/internal/mathutil"
	"nds-bmd-codec/internal/scene"
)

// Camera fixes the preview orientation: yaw spins the model about the
// vertical axis, pitch then tilts it toward the viewer.
type Camera struct {
	Yaw   float64 // degrees
	Pitch float64
}

func (c Camera) Matrix() mathutil.Mat3 {
	return mathutil.Mat3Mul(
		mathutil.RotX(mathutil.Deg2Rad(c.Pitch)),
		mathutil.RotY(mathutil.Deg2Rad(c.Yaw)),
	)
}

// projector maps world points to screen coordinates. The model is
// fitted so its rotated bounding box fills the frame minus the margin.
// A zero camDist projects orthographically.
type projector struct {
	r       mathutil.Mat3
	center  mathutil.Vec3
	scale   float64
	half    float64
	camDist float64
	zCenter float64
}

func newProjector(objs []scene.Object, r mathutil.Mat3, renderSize, margin int, fov float64) *projector {
	min := mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max := mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	seen := false
	for _, obj := range objs {
		for _, f := range obj.Geo.Faces {
			for _, v := range f.Vertices {
				seen = true
				t := r.MulVec3(mathutil.Vec3(v.Position))
				for k := 0; k < 3; k++ {
					if t[k] < min[k] {
						min[k] = t[k]
					}
					if t[k] > max[k] {
						max[k] = t[k]
					}
				}
			}
		}
	}
	if !seen {
		return nil
	}

	center := min.Add(max).Scale(0.5)
	span := max[0] - min[0]
	if s := max[1] - min[1]; s > span {
		span = s
	}
	if span < 0.001 {
		span = 0.001
	}

	p := &projector{
		r:      r,
		center: center,
		scale:  float64(renderSize-2*margin) / span,
		half:   float64(renderSize) / 2,
	}
	if fov > 0 {
		xyMax := 0.001
		for k := 0; k < 2; k++ {
			if d := (max[k] - min[k]) / 2; d > xyMax {
				xyMax = d
			}
		}
		p.camDist = xyMax / math.Tan(mathutil.Deg2Rad(fov/2))
		p.zCenter = center[2]
	}
	return p
}

func (p *projector) point(v [3]float64) (x, y, z float64) {
	t := p.r.MulVec3(mathutil.Vec3(v))
	if p.camDist > 0 {
		depth := math.Max(p.camDist-(t[2]-p.zCenter), 0.1)
		factor := p.camDist / depth
		t[0] = p.center[0] + (t[0]-p.center[0])*factor
		t[1] = p.center[1] + (t[1]-p.center[1])*factor
	}
	x = (t[0]-p.center[0])*p.scale + p.half
	y = -(t[1]-p.center[1])*p.scale + p.half
	z = t[2]
	return x, y, z
}
