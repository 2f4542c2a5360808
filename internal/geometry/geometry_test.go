package geometry

import (
	"fmt"
	"sort"
	"testing"
)

func pv(x, y, z float64) Vertex {
	return Vertex{Position: [3]float64{x, y, z}}
}

func tri(a, b, c Vertex) Face { return Face{Vertices: []Vertex{a, b, c}} }

func quad(a, b, c, d Vertex) Face {
	return Face{Vertices: []Vertex{a, b, c, d}}
}

// canonical renders a face rotated so its smallest vertex comes first,
// which makes faces comparable across strip relinearization.
func canonical(vs []Vertex) string {
	keys := make([]string, len(vs))
	for i, v := range vs {
		keys[i] = fmt.Sprintf("%v/%v/%v/%v/%d", v.Position, v.Normal, v.UV, v.Color, v.Group)
	}
	best := 0
	for i := 1; i < len(keys); i++ {
		if keys[i] < keys[best] {
			best = i
		}
	}
	out := ""
	for i := range keys {
		out += keys[(best+i)%len(keys)] + ";"
	}
	return out
}

func facesFromTriStrip(vs []Vertex) [][]Vertex {
	var out [][]Vertex
	for c := 3; c <= len(vs); c++ {
		if c%2 == 0 {
			out = append(out, []Vertex{vs[c-2], vs[c-3], vs[c-1]})
		} else {
			out = append(out, []Vertex{vs[c-3], vs[c-2], vs[c-1]})
		}
	}
	return out
}

func facesFromQuadStrip(vs []Vertex) [][]Vertex {
	var out [][]Vertex
	for c := 4; c <= len(vs); c += 2 {
		out = append(out, []Vertex{vs[c-4], vs[c-3], vs[c-1], vs[c-2]})
	}
	return out
}

// rebuild decodes the full Strip output back into faces.
func rebuild(triStrips, quadStrips [][]Vertex, tris, quads []Vertex) [][]Vertex {
	var out [][]Vertex
	for _, s := range triStrips {
		out = append(out, facesFromTriStrip(s)...)
	}
	for _, s := range quadStrips {
		out = append(out, facesFromQuadStrip(s)...)
	}
	for i := 0; i+3 <= len(tris); i += 3 {
		out = append(out, []Vertex{tris[i], tris[i+1], tris[i+2]})
	}
	for i := 0; i+4 <= len(quads); i += 4 {
		out = append(out, []Vertex{quads[i], quads[i+1], quads[i+2], quads[i+3]})
	}
	return out
}

func sortedCanon(faces [][]Vertex) []string {
	out := make([]string, len(faces))
	for i, f := range faces {
		out[i] = canonical(f)
	}
	sort.Strings(out)
	return out
}

func checkRoundTrip(t *testing.T, g *Geometry) {
	t.Helper()
	ts, qs, lt, lq := g.Strip()
	got := rebuild(ts, qs, lt, lq)
	if len(got) != len(g.Faces) {
		t.Fatalf("rebuilt %d faces, want %d", len(got), len(g.Faces))
	}
	want := make([][]Vertex, len(g.Faces))
	for i, f := range g.Faces {
		want[i] = f.Vertices
	}
	gotC, wantC := sortedCanon(got), sortedCanon(want)
	for i := range wantC {
		if gotC[i] != wantC[i] {
			t.Fatalf("face %d:\n got %s\nwant %s", i, gotC[i], wantC[i])
		}
	}
}

func TestCanConnectTo(t *testing.T) {
	a, b, c, d := pv(0, 0, 0), pv(1, 0, 0), pv(1, 1, 0), pv(0, 1, 0)
	x, y := pv(2, 0, 0), pv(2, 1, 0)

	tests := []struct {
		name string
		f, g Face
		want bool
	}{
		{"arity mismatch", tri(a, b, c), quad(a, b, c, d), false},
		{"one shared vertex", tri(a, b, c), tri(a, x, y), false},
		{"opposite winding edge", tri(a, b, c), tri(b, a, x), true},
		{"same winding edge", tri(a, b, c), tri(a, b, x), false},
		{"quad shared edge", quad(a, b, c, d), quad(b, x, y, c), true},
		{"quad diagonal pair", quad(a, b, c, d), quad(a, x, c, y), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.CanConnectTo(&tt.g); got != tt.want {
				t.Fatalf("CanConnectTo = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripRun(t *testing.T) {
	// Four triangles forming one zig-zag band.
	a, b := pv(0, 0, 0), pv(0, 1, 0)
	c, d := pv(1, 0, 0), pv(1, 1, 0)
	e, f := pv(2, 0, 0), pv(2, 1, 0)
	g := New(nil, []Face{
		tri(a, b, c),
		tri(c, b, d),
		tri(c, d, e),
		tri(e, d, f),
	})
	ts, qs, lt, lq := g.Strip()
	if len(ts) != 1 || len(qs) != 0 || len(lt) != 0 || len(lq) != 0 {
		t.Fatalf("got %d tri strips, %d quad strips, %d loose tri verts, %d loose quad verts",
			len(ts), len(qs), len(lt), len(lq))
	}
	if len(ts[0]) != 6 {
		t.Fatalf("strip length = %d, want 6", len(ts[0]))
	}
	checkRoundTrip(t, g)
}

func TestStripQuadRing(t *testing.T) {
	// Four quads closed into a ring: the walk must terminate and emit
	// every face exactly once.
	var av, bv [4]Vertex
	for i := 0; i < 4; i++ {
		av[i] = pv(float64(i), 0, 0)
		bv[i] = pv(float64(i), 1, 0)
	}
	var faces []Face
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		faces = append(faces, quad(av[i], av[j], bv[j], bv[i]))
	}
	g := New(nil, faces)
	ts, qs, lt, lq := g.Strip()
	if len(qs) != 1 || len(ts) != 0 || len(lt) != 0 || len(lq) != 0 {
		t.Fatalf("got %d quad strips, %d tri strips, %d/%d loose", len(qs), len(ts), len(lt), len(lq))
	}
	if len(qs[0]) != 10 {
		t.Fatalf("ring strip length = %d, want 10", len(qs[0]))
	}
	checkRoundTrip(t, g)
}

func TestStripTriangleRing(t *testing.T) {
	// Eight triangles zig-zagging around a closed band. The forward walk
	// wraps the whole cycle and must stop when it meets the seed again,
	// so the strip revisits its first two vertices.
	a, b := pv(0, 0, 0), pv(0, 1, 0)
	c, d := pv(1, 0, 0), pv(1, 1, 0)
	e, f := pv(2, 0, 0), pv(2, 1, 0)
	gg, h := pv(3, 0, 0), pv(3, 1, 0)
	g := New(nil, []Face{
		tri(a, b, c),
		tri(c, b, d),
		tri(c, d, e),
		tri(e, d, f),
		tri(e, f, gg),
		tri(gg, f, h),
		tri(gg, h, a),
		tri(a, h, b),
	})
	ts, qs, lt, lq := g.Strip()
	if len(ts) != 1 || len(qs) != 0 || len(lt) != 0 || len(lq) != 0 {
		t.Fatalf("got %d tri strips, %d quad strips, %d/%d loose", len(ts), len(qs), len(lt), len(lq))
	}
	if len(ts[0]) != 10 {
		t.Fatalf("ring strip length = %d, want 10", len(ts[0]))
	}
	checkRoundTrip(t, g)
}

func TestStripLoneFaces(t *testing.T) {
	g := New(nil, []Face{
		tri(pv(0, 0, 0), pv(1, 0, 0), pv(0, 1, 0)),
		tri(pv(5, 0, 0), pv(6, 0, 0), pv(5, 1, 0)),
		quad(pv(9, 0, 0), pv(10, 0, 0), pv(10, 1, 0), pv(9, 1, 0)),
	})
	ts, qs, lt, lq := g.Strip()
	if len(ts) != 0 || len(qs) != 0 {
		t.Fatalf("expected no strips, got %d tri and %d quad strips", len(ts), len(qs))
	}
	if len(lt) != 6 || len(lq) != 4 {
		t.Fatalf("loose verts = %d tri, %d quad; want 6 and 4", len(lt), len(lq))
	}
	checkRoundTrip(t, g)
}

func TestStripMixedArity(t *testing.T) {
	a, b := pv(0, 0, 0), pv(0, 1, 0)
	c, d := pv(1, 0, 0), pv(1, 1, 0)
	e, f := pv(2, 0, 0), pv(2, 1, 0)
	g := New(nil, []Face{
		quad(a, c, d, b),
		quad(c, e, f, d),
		tri(e, pv(3, 0, 0), f),
	})
	ts, qs, lt, lq := g.Strip()
	if len(qs) != 1 || len(lt) != 3 {
		t.Fatalf("got %d quad strips and %d loose tri verts", len(qs), len(lt))
	}
	if len(ts) != 0 || len(lq) != 0 {
		t.Fatalf("unexpected tri strips %d or loose quads %d", len(ts), len(lq))
	}
	checkRoundTrip(t, g)
}

func TestStripAttributesPreserved(t *testing.T) {
	mk := func(x, y float64, group int) Vertex {
		return Vertex{
			Position: [3]float64{x, y, 0},
			UV:       [2]float64{x / 2, y},
			HasUV:    true,
			Color:    [3]float64{1, x / 4, y},
			HasColor: true,
			Group:    group,
		}
	}
	a, b := mk(0, 0, 0), mk(0, 1, 0)
	c, d := mk(1, 0, 1), mk(1, 1, 1)
	g := New(nil, []Face{tri(a, b, c), tri(c, b, d)})
	checkRoundTrip(t, g)
}

func TestAdjacencySymmetric(t *testing.T) {
	a, b := pv(0, 0, 0), pv(0, 1, 0)
	c, d := pv(1, 0, 0), pv(1, 1, 0)
	g := New(nil, []Face{tri(a, b, c), tri(c, b, d)})
	adj := g.Adjacency()
	if len(adj[0]) != 1 || adj[0][0] != 1 {
		t.Fatalf("adj[0] = %v, want [1]", adj[0])
	}
	if len(adj[1]) != 1 || adj[1][0] != 0 {
		t.Fatalf("adj[1] = %v, want [0]", adj[1])
	}
}
