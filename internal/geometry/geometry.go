// Package geometry models shared-vertex meshes and relinearizes their
// faces into hardware triangle and quad strips.
package geometry

// Vertex carries the full per-vertex attribute set. It is a value type:
// two vertices compare equal when every attribute matches, which is what
// the strip connectivity rules key on.
type Vertex struct {
	Position [3]float64
	Normal   [3]float64
	UV       [2]float64
	Color    [3]float64

	HasNormal bool
	HasUV     bool
	HasColor  bool

	// Group is the transform group (bone index) the vertex binds to.
	Group int
}

// Face is a triangle or quad. Winding order is significant: it defines
// the facing direction and constrains how faces may join into strips.
type Face struct {
	Vertices []Vertex
	Material int
}

// Geometry is an immutable bag of faces plus the connectivity graph the
// strip builder walks. The graph is built on first use.
type Geometry struct {
	Vertices []Vertex
	Faces    []Face

	graph [][]int
}

func New(vertices []Vertex, faces []Face) *Geometry {
	return &Geometry{Vertices: vertices, Faces: faces}
}

// Empty reports whether the geometry holds no faces.
func (g *Geometry) Empty() bool {
	return len(g.Faces) == 0
}

func indexOf(vs []Vertex, v Vertex) int {
	for i := range vs {
		if vs[i] == v {
			return i
		}
	}
	return -1
}

func posMod(a, n int) int {
	return ((a % n) + n) % n
}

// CanConnectTo reports whether f and g could be adjacent faces of one
// strip: same arity, at least two shared vertices forming a usable edge,
// and relative index offsets that do not force a degenerate joint. The
// shared pair is taken in f's own vertex order.
func (f *Face) CanConnectTo(g *Face) bool {
	n := len(f.Vertices)
	if f == g || n != len(g.Vertices) {
		return false
	}
	var shared []Vertex
	for i, v := range f.Vertices {
		if indexOf(f.Vertices[:i], v) >= 0 {
			continue
		}
		if indexOf(g.Vertices, v) >= 0 {
			shared = append(shared, v)
			if len(shared) == 2 {
				break
			}
		}
	}
	if len(shared) < 2 {
		return false
	}
	d0 := posMod(indexOf(f.Vertices, shared[0])-indexOf(f.Vertices, shared[1]), n)
	d1 := posMod(indexOf(g.Vertices, shared[0])-indexOf(g.Vertices, shared[1]), n)
	if n != 3 && (d0 == 2 || d1 == 2) {
		return false
	}
	return d0 != d1
}

// Adjacency returns, per face, the indices of connectable faces in
// ascending order.
func (g *Geometry) Adjacency() [][]int {
	if g.graph == nil {
		g.graph = make([][]int, len(g.Faces))
		for i := range g.Faces {
			for j := range g.Faces {
				if i != j && g.Faces[i].CanConnectTo(&g.Faces[j]) {
					g.graph[i] = append(g.graph[i], j)
				}
			}
		}
	}
	return g.graph
}

// adjacentByEdge finds the first neighbour of face fi (ascending index)
// containing both edge vertices, and the index of the edge start within
// that neighbour, adjusted so the walk continues with its off-edge
// vertices. Returns -1 when no neighbour qualifies.
func (g *Geometry) adjacentByEdge(fi int, a, b Vertex) (int, int) {
	for _, j := range g.graph[fi] {
		ov := g.Faces[j].Vertices
		ia := indexOf(ov, a)
		ib := indexOf(ov, b)
		if ia < 0 || ib < 0 {
			continue
		}
		if (ia+1)%len(ov) == ib {
			return j, ia
		}
		return j, ib
	}
	return -1, 0
}

// extendStrip grows a strip from seed face fi linearized with the given
// vertex order, first forwards off its trailing edge, then backwards off
// its leading edge. Only faces still present in left join. A backwards
// extension of an odd number of triangles would flip the strip's parity,
// so the last backwards face is dropped in that case.
func (g *Geometry) extendStrip(fi int, order []int, left map[int]bool) ([]Vertex, map[int]bool) {
	face := g.Faces[fi]
	n := len(face.Vertices)
	verts := make([]Vertex, len(order))
	for i, e := range order {
		verts[i] = face.Vertices[e]
	}
	used := map[int]bool{fi: true}

	next, vi := g.adjacentByEdge(fi, verts[len(verts)-2], verts[len(verts)-1])
	for next >= 0 && left[next] && !used[next] {
		used[next] = true
		ov := g.Faces[next].Vertices
		for i := n - 1; i >= 2; i-- {
			verts = append(verts, ov[(vi+i)%n])
		}
		next, vi = g.adjacentByEdge(next, verts[len(verts)-2], verts[len(verts)-1])
	}

	next, vi = g.adjacentByEdge(fi, verts[0], verts[1])
	numExts := 0
	last := -1
	for next >= 0 && left[next] && !used[next] {
		used[next] = true
		ov := g.Faces[next].Vertices
		head := make([]Vertex, 0, n)
		for i := 2; i < n; i++ {
			head = append(head, ov[(vi+i)%n])
		}
		verts = append(head, verts...)
		numExts++
		last = next
		next, vi = g.adjacentByEdge(next, verts[0], verts[1])
	}
	if numExts%2 != 0 && n == 3 {
		delete(used, last)
		verts = verts[1:]
	}
	return verts, used
}

// Strip partitions the faces into triangle strips, quad strips, lone
// triangles and lone quads. Every face is consumed exactly once. Seeds
// are taken in ascending face order; for each seed every linearization
// of the face is tried and the longest resulting strip wins, with later
// tries breaking ties. Lone faces land in the flat tris/quads lists
// (quads reordered back to ring order).
func (g *Geometry) Strip() (triStrips, quadStrips [][]Vertex, tris, quads []Vertex) {
	g.Adjacency()
	left := make(map[int]bool, len(g.Faces))
	for i := range g.Faces {
		left[i] = true
	}
	triOrders := [][]int{{0, 1, 2}, {1, 2, 0}, {2, 0, 1}}
	quadOrders := [][]int{{0, 1, 3, 2}, {1, 2, 0, 3}}

	for i := range g.Faces {
		if !left[i] {
			continue
		}
		quad := len(g.Faces[i].Vertices) == 4
		orders := triOrders
		if quad {
			orders = quadOrders
		}
		var bestVerts []Vertex
		var bestUsed map[int]bool
		for _, order := range orders {
			v, u := g.extendStrip(i, order, left)
			if len(v) >= len(bestVerts) {
				bestVerts, bestUsed = v, u
			}
		}
		for j := range bestUsed {
			delete(left, j)
		}
		switch {
		case len(bestUsed) > 1 && quad:
			quadStrips = append(quadStrips, bestVerts)
		case len(bestUsed) > 1:
			triStrips = append(triStrips, bestVerts)
		case quad:
			quads = append(quads, bestVerts[0], bestVerts[1], bestVerts[3], bestVerts[2])
		default:
			tris = append(tris, bestVerts...)
		}
	}
	return triStrips, quadStrips, tris, quads
}
