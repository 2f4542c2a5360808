// Package skeleton derives world transforms from a model's bone table.
package skeleton

import (
	"fmt"

	"nds-bmd-codec/internal/bmd"
	"nds-bmd-codec/internal/mathutil"
)

// LocalMatrix builds one bone's transform relative to its parent: scale,
// then rotation about X, Y and Z, then translation.
func LocalMatrix(b bmd.Bone) mathutil.Mat4 {
	rot := mathutil.EulerXYZToMat3(b.Rotation[0], b.Rotation[1], b.Rotation[2])
	rs := mathutil.Mat3Mul(rot, mathutil.Mat3Diag(b.Scale[0], b.Scale[1], b.Scale[2]))
	return mathutil.FromMat3Translation(rs, mathutil.Vec3(b.Translation))
}

// WorldMatrices chains every bone's local transform through its parents.
// Parents may sit anywhere in the table, including after their children;
// a bone whose parent index falls outside the table acts as a root.
// Parent cycles are an error.
func WorldMatrices(bones []bmd.Bone) ([]mathutil.Mat4, error) {
	const (
		unresolved = iota
		resolving
		done
	)
	state := make([]int, len(bones))
	worlds := make([]mathutil.Mat4, len(bones))

	var resolve func(i int) error
	resolve = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case resolving:
			return fmt.Errorf("skeleton: bone %d sits on a parent cycle", i)
		}
		state[i] = resolving
		local := LocalMatrix(bones[i])
		if p := bones[i].Parent; p >= 0 && p < len(bones) {
			if err := resolve(p); err != nil {
				return err
			}
			worlds[i] = mathutil.Mat4Mul(worlds[p], local)
		} else {
			worlds[i] = local
		}
		state[i] = done
		return nil
	}

	for i := range bones {
		if err := resolve(i); err != nil {
			return nil, err
		}
	}
	return worlds, nil
}

// Traverse visits every bone parent first: roots in table order, each
// followed by its subtree, children in table order.
func Traverse(bones []bmd.Bone, visit func(i int)) {
	children := make([][]int, len(bones))
	var roots []int
	for i, b := range bones {
		if b.Parent >= 0 && b.Parent < len(bones) {
			children[b.Parent] = append(children[b.Parent], i)
		} else {
			roots = append(roots, i)
		}
	}

	var walk func(i int)
	walk = func(i int) {
		visit(i)
		for _, c := range children[i] {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
}

// Validate checks the bone links a file parse does not guarantee: index
// ranges, self references and parent cycles.
func Validate(bones []bmd.Bone) error {
	if len(bones) == 0 {
		return fmt.Errorf("skeleton: no bones")
	}
	for i, b := range bones {
		if b.Parent < -1 || b.Parent >= len(bones) || b.Parent == i {
			return fmt.Errorf("skeleton: bone %d parent %d invalid", i, b.Parent)
		}
		if b.Sibling < -1 || b.Sibling >= len(bones) || b.Sibling == i {
			return fmt.Errorf("skeleton: bone %d sibling %d invalid", i, b.Sibling)
		}
	}
	if _, err := WorldMatrices(bones); err != nil {
		return err
	}
	return nil
}
