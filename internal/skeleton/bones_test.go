package skeleton

import (
	"math"
	"testing"

	"nds-bmd-codec/internal/bmd"
	"nds-bmd-codec/internal/mathutil"
)

func near(a, b mathutil.Vec3) bool {
	for k := 0; k < 3; k++ {
		if math.Abs(a[k]-b[k]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestLocalMatrixOrder(t *testing.T) {
	b := bmd.Bone{
		Scale:       [3]float64{2, 1, 1},
		Rotation:    [3]float64{0, 0, math.Pi / 2},
		Translation: [3]float64{1, 2, 3},
	}
	// Scale doubles x, the quarter turn moves it onto y, then translate.
	got := LocalMatrix(b).MulPoint(mathutil.Vec3{1, 0, 0})
	if want := (mathutil.Vec3{1, 4, 3}); !near(got, want) {
		t.Errorf("transformed point = %v, want %v", got, want)
	}
}

func TestWorldMatricesChain(t *testing.T) {
	bones := []bmd.Bone{
		{Parent: -1, Sibling: -1, Scale: [3]float64{1, 1, 1}, Translation: [3]float64{0, 1, 0}},
		{Parent: 0, Sibling: -1, Scale: [3]float64{1, 1, 1}, Translation: [3]float64{1, 0, 0}},
	}
	worlds, err := WorldMatrices(bones)
	if err != nil {
		t.Fatalf("WorldMatrices: %v", err)
	}
	if got := worlds[1].MulPoint(mathutil.Vec3{}); !near(got, mathutil.Vec3{1, 1, 0}) {
		t.Errorf("child origin = %v, want [1 1 0]", got)
	}
}

func TestWorldMatricesForwardParent(t *testing.T) {
	// The child sits before its parent in the table.
	bones := []bmd.Bone{
		{Parent: 1, Sibling: -1, Scale: [3]float64{1, 1, 1}, Translation: [3]float64{1, 0, 0}},
		{Parent: -1, Sibling: -1, Scale: [3]float64{1, 1, 1}, Translation: [3]float64{0, 0, 4}},
	}
	worlds, err := WorldMatrices(bones)
	if err != nil {
		t.Fatalf("WorldMatrices: %v", err)
	}
	if got := worlds[0].MulPoint(mathutil.Vec3{}); !near(got, mathutil.Vec3{1, 0, 4}) {
		t.Errorf("child origin = %v, want [1 0 4]", got)
	}
}

func TestWorldMatricesCycle(t *testing.T) {
	bones := []bmd.Bone{
		{Parent: 1, Sibling: -1, Scale: [3]float64{1, 1, 1}},
		{Parent: 0, Sibling: -1, Scale: [3]float64{1, 1, 1}},
	}
	if _, err := WorldMatrices(bones); err == nil {
		t.Fatal("parent cycle went undetected")
	}
}

func TestTraverseOrder(t *testing.T) {
	bones := []bmd.Bone{
		{Parent: -1, Sibling: 2},
		{Parent: 0, Sibling: 3},
		{Parent: -1, Sibling: -1},
		{Parent: 0, Sibling: -1},
	}
	var order []int
	Traverse(bones, func(i int) { order = append(order, i) })

	want := []int{0, 1, 3, 2}
	if len(order) != len(want) {
		t.Fatalf("visited %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("visited %v, want %v", order, want)
		}
	}
}

func TestValidate(t *testing.T) {
	ok := []bmd.Bone{
		{Parent: -1, Sibling: -1},
		{Parent: 0, Sibling: -1},
	}
	if err := Validate(ok); err != nil {
		t.Errorf("Validate: %v", err)
	}

	cases := []struct {
		name  string
		bones []bmd.Bone
	}{
		{"empty", nil},
		{"self parent", []bmd.Bone{{Parent: 0, Sibling: -1}}},
		{"parent out of range", []bmd.Bone{{Parent: 5, Sibling: -1}}},
		{"sibling out of range", []bmd.Bone{{Parent: -1, Sibling: 9}}},
		{"cycle", []bmd.Bone{{Parent: 1, Sibling: -1}, {Parent: 0, Sibling: -1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(tc.bones); err == nil {
				t.Fatal("invalid skeleton accepted")
			}
		})
	}
}
