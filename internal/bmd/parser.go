package bmd

import (
	"encoding/binary"
	"fmt"
	"os"

	"nds-bmd-codec/internal/fixed"
	"nds-bmd-codec/internal/geometry"
	"nds-bmd-codec/internal/lz"
	"nds-bmd-codec/internal/texture"
)

// ParseFile reads and decodes one model file.
func ParseFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bmd: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a raw model image. LZ77-wrapped files are transparently
// unwrapped first; if unwrapping fails the data is treated as plain.
func Parse(data []byte) (*Model, error) {
	if lz.IsCompressed(data) {
		if plain, err := lz.Decompress(data); err == nil {
			data = plain
		}
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("bmd: file holds %d bytes, need a %#x byte header: %w",
			len(data), headerSize, ErrMalformed)
	}

	r := &reader{data: data}
	r.checkTable(offBoneCount, offBoneTable, boneStride)
	r.checkTable(offDLCount, offDLTable, dlStride)
	r.checkTable(offMatCount, offMatTable, matStride)

	m := &Model{ScaleExponent: r.u32(offScale)}
	dlMaterial := parseBones(r, m)
	parseMaterials(r, m)
	parseGeometries(r, m, dlMaterial)
	if r.err != nil {
		return nil, r.err
	}

	for i := range m.Materials {
		m.Materials[i].VertexColored = !materialHasNormals(m, i)
	}
	return m, nil
}

// reader provides bounds-checked absolute reads over the file image.
// The first out-of-range access latches an error; later reads return
// zero values so parse code can stay linear.
type reader struct {
	data []byte
	err  error
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		args = append(args, ErrMalformed)
		r.err = fmt.Errorf("bmd: "+format+": %w", args...)
	}
}

func (r *reader) bytes(off, n int) []byte {
	if r.err != nil {
		return nil
	}
	if off < 0 || n < 0 || off+n > len(r.data) {
		r.fail("%d bytes at %#x outside file", n, off)
		return nil
	}
	return r.data[off : off+n]
}

func (r *reader) u16(off int) uint16 {
	b := r.bytes(off, 2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32(off int) uint32 {
	b := r.bytes(off, 4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) i16(off int) int16 { return int16(r.u16(off)) }
func (r *reader) i32(off int) int32 { return int32(r.u32(off)) }

func (r *reader) fix32(off int, frac uint) float64 {
	return fixed.FromFix(r.i32(off), frac)
}

func (r *reader) cstr(off int) string {
	if r.err != nil {
		return ""
	}
	if off < 0 || off >= len(r.data) {
		r.fail("string at %#x outside file", off)
		return ""
	}
	end := off
	for end < len(r.data) && r.data[end] != 0 {
		end++
	}
	if end == len(r.data) {
		r.fail("unterminated string at %#x", off)
		return ""
	}
	return string(r.data[off:end])
}

// checkTable validates that a whole count×stride table fits the file
// before any per-record reads happen.
func (r *reader) checkTable(offCount, offTable, stride int) {
	if count := int(r.u32(offCount)); count > 0 {
		r.bytes(int(r.u32(offTable)), count*stride)
	}
}

func relIndex(own int, rel int16) int {
	if rel == 0 {
		return -1
	}
	return own + int(rel)
}

// parseBones fills m.Bones and returns the merged display-list to
// material assignment. Later bones win when two claim the same list.
func parseBones(r *reader, m *Model) map[int]int {
	count := int(r.u32(offBoneCount))
	table := int(r.u32(offBoneTable))
	if count == 0 {
		r.fail("model has no bones")
		return nil
	}

	dlMaterial := make(map[int]int)
	m.Bones = make([]Bone, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		off := table + i*boneStride
		own := int(r.u32(off))
		b := Bone{
			Name:    r.cstr(int(r.u32(off + 4))),
			Parent:  relIndex(own, r.i16(off+8)),
			Sibling: relIndex(own, r.i16(off+0xc)),
		}
		for k := 0; k < 3; k++ {
			b.Scale[k] = r.fix32(off+0x10+4*k, 12)
			b.Rotation[k] = fixed.FromAngle(r.i16(off + 0x1c + 2*k))
			b.Translation[k] = r.fix32(off+0x24+4*k, 12)
		}
		if b.Parent < -1 || b.Parent >= count || b.Sibling < -1 || b.Sibling >= count {
			r.fail("bone %d links outside the %d entry bone table", i, count)
			break
		}

		pairs := int(r.u32(off + 0x30))
		matIDs := r.bytes(int(r.u32(off+0x34)), pairs)
		dlIDs := r.bytes(int(r.u32(off+0x38)), pairs)
		for p := 0; p < len(matIDs) && p < len(dlIDs); p++ {
			b.MaterialIDs = append(b.MaterialIDs, int(matIDs[p]))
			b.DisplayListIDs = append(b.DisplayListIDs, int(dlIDs[p]))
			dlMaterial[int(dlIDs[p])] = int(matIDs[p])
		}
		m.Bones = append(m.Bones, b)
	}
	return dlMaterial
}

func parseMaterials(r *reader, m *Model) {
	count := int(r.u32(offMatCount))
	table := int(r.u32(offMatTable))
	cache := texture.NewCache()
	for i := 0; i < count && r.err == nil; i++ {
		off := table + i*matStride
		mat := parseMaterial(r, off)
		mat.Texture = resolveTexture(r, cache, int(r.i32(off+4)), int(r.i32(off+8)))
		m.Materials = append(m.Materials, mat)
	}
	m.Textures = cache.Textures()
}

// resolveTexture decodes the (texture, palette) pair behind a material
// reference and returns its slot in the model texture list. Pairs are
// deduplicated by name through the cache.
func resolveTexture(r *reader, cache *texture.Cache, texID, palID int) int {
	if texID < 0 || r.err != nil {
		return -1
	}
	// Texture and palette references are pointer-table driven; the
	// header stores no authoritative counts for them, so bounds come
	// from record reads alone.
	rec := int(r.u32(offTexTable)) + texID*texStride
	r.bytes(rec, texStride)

	palRec := -1
	palName := ""
	if palID >= 0 {
		palRec = int(r.u32(offPalTable)) + palID*palStride
		r.bytes(palRec, palStride)
		palName = r.cstr(int(r.u32(palRec)))
	}

	name := r.cstr(int(r.u32(rec)))
	key := texture.Key{Name: name, Palette: palName}
	if slot, ok := cache.Lookup(key); ok {
		return slot
	}

	size := int(r.u32(rec + 8))
	w := int(r.u16(rec + 0xc))
	h := int(r.u16(rec + 0xe))
	param := r.u32(rec + 0x10)
	format := texture.Format(param >> 26 & 7)
	if format == texture.FormatCompressed {
		// The stored size covers the index words only; the mode words
		// add another half.
		size = size * 3 / 2
	}

	texData := r.bytes(int(r.u32(rec+4)), size)
	var palData []byte
	if palRec >= 0 {
		palData = r.bytes(int(r.u32(palRec+4)), int(r.u32(palRec+8)))
	}
	if r.err != nil {
		return -1
	}

	tex, err := texture.FromEncoded(name, palName, w, h, format, param>>29&1 != 0, texData, palData)
	if err != nil {
		r.fail("texture %q: %v", name, err)
		return -1
	}
	return cache.Add(key, tex)
}

// parseGeometries decodes every display list each bone owns into that
// bone's geometry. A list referenced by several bones decodes into each.
func parseGeometries(r *reader, m *Model, dlMaterial map[int]int) {
	count := int(r.u32(offDLCount))
	table := int(r.u32(offDLTable))
	m.Geometries = make([]*geometry.Geometry, len(m.Bones))
	for bi := range m.Bones {
		var verts []geometry.Vertex
		var faces []geometry.Face
		for _, dl := range m.Bones[bi].DisplayListIDs {
			if dl >= count {
				r.fail("bone %d references display list %d beyond the %d entry table", bi, dl, count)
				break
			}
			v, f := parseDisplayList(r, table+dl*dlStride, bi, dlMaterial[dl])
			verts = append(verts, v...)
			faces = append(faces, f...)
		}
		m.Geometries[bi] = geometry.New(verts, faces)
		if r.err != nil {
			return
		}
	}
}

func materialHasNormals(m *Model, mat int) bool {
	for _, g := range m.Geometries {
		for _, f := range g.Faces {
			if f.Material != mat {
				continue
			}
			for _, v := range f.Vertices {
				if v.HasNormal {
					return true
				}
			}
		}
	}
	return false
}
