package bmd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"nds-bmd-codec/internal/blob"
	"nds-bmd-codec/internal/fixed"
	"nds-bmd-codec/internal/geometry"
	"nds-bmd-codec/internal/texture"
)

// Write serializes a model into the binary container layout. Geometry is
// restripped from scratch: each bone's faces are split by material in
// ascending order and every (bone, material) pair becomes one display
// list, so the per-bone id pair arrays are regenerated rather than
// copied from the model.
func Write(m *Model) ([]byte, error) {
	if len(m.Bones) == 0 {
		return nil, errors.New("bmd: model has no bones")
	}
	if len(m.Geometries) != len(m.Bones) {
		return nil, fmt.Errorf("bmd: model carries %d geometries for %d bones", len(m.Geometries), len(m.Bones))
	}

	lists, pairs, err := buildDisplayLists(m)
	if err != nil {
		return nil, err
	}

	var asm blob.Assembler
	strs := newStringTable()

	header := blob.NewSegment(4)
	header.Data = make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header.Data[offScale:], m.ScaleExponent)
	binary.LittleEndian.PutUint32(header.Data[offBoneCount:], uint32(len(m.Bones)))
	binary.LittleEndian.PutUint32(header.Data[offDLCount:], uint32(len(lists)))
	binary.LittleEndian.PutUint32(header.Data[offMatCount:], uint32(len(m.Materials)))
	asm.Add(header)

	boneTable := blob.NewSegment(4)
	boneTable.Data = make([]byte, len(m.Bones)*boneStride)
	asm.Add(boneTable)

	pairSeg := blob.NewSegment(4)
	asm.Add(pairSeg)

	groupTable := blob.NewSegment(4)
	groupTable.Data = make([]byte, len(m.Bones)*2)
	asm.Add(groupTable)
	asm.AddPointer(blob.Pointer{Src: header, SrcOff: offGroupTable, Dst: groupTable, Width: 4})

	for i, b := range m.Bones {
		off := i * boneStride
		binary.LittleEndian.PutUint32(boneTable.Data[off:], uint32(i))
		asm.AddPointer(blob.Pointer{Src: boneTable, SrcOff: off + 4, Dst: strs.seg, DstOff: strs.add(b.Name), Width: 4})

		parent, err := relEncode(b.Parent, i, len(m.Bones))
		if err != nil {
			return nil, fmt.Errorf("bmd: bone %d parent: %w", i, err)
		}
		sibling, err := relEncode(b.Sibling, i, len(m.Bones))
		if err != nil {
			return nil, fmt.Errorf("bmd: bone %d sibling: %w", i, err)
		}
		binary.LittleEndian.PutUint16(boneTable.Data[off+8:], uint16(parent))
		binary.LittleEndian.PutUint16(boneTable.Data[off+0xc:], uint16(sibling))

		for k := 0; k < 3; k++ {
			binary.LittleEndian.PutUint32(boneTable.Data[off+0x10+4*k:], uint32(fixed.ToFix(b.Scale[k], 12)))
			binary.LittleEndian.PutUint16(boneTable.Data[off+0x1c+2*k:], uint16(fixed.ToAngle(b.Rotation[k])))
			binary.LittleEndian.PutUint32(boneTable.Data[off+0x24+4*k:], uint32(fixed.ToFix(b.Translation[k], 12)))
		}

		binary.LittleEndian.PutUint32(boneTable.Data[off+0x30:], uint32(len(pairs[i].mats)))
		if len(pairs[i].mats) > 0 {
			matOff := len(pairSeg.Data)
			pairSeg.Data = append(pairSeg.Data, pairs[i].mats...)
			dlOff := len(pairSeg.Data)
			pairSeg.Data = append(pairSeg.Data, pairs[i].dls...)
			asm.AddPointer(blob.Pointer{Src: boneTable, SrcOff: off + 0x34, Dst: pairSeg, DstOff: matOff, Width: 4})
			asm.AddPointer(blob.Pointer{Src: boneTable, SrcOff: off + 0x38, Dst: pairSeg, DstOff: dlOff, Width: 4})
		}
	}
	asm.AddPointer(blob.Pointer{Src: header, SrcOff: offBoneTable, Dst: boneTable, Width: 4})

	// Transform groups map one to one onto bones.
	for i := range m.Bones {
		binary.LittleEndian.PutUint16(groupTable.Data[2*i:], uint16(i))
	}

	dlTable := blob.NewSegment(4)
	dlTable.Data = make([]byte, len(lists)*dlStride)
	asm.Add(dlTable)
	asm.AddPointer(blob.Pointer{Src: header, SrcOff: offDLTable, Dst: dlTable, Width: 4})

	for i, dl := range lists {
		hdr := blob.NewSegment(4)
		hdr.Data = make([]byte, dlHeaderSize)
		binary.LittleEndian.PutUint32(hdr.Data, uint32(len(dl.tids)))
		binary.LittleEndian.PutUint32(hdr.Data[8:], uint32(len(dl.cmds)))
		asm.Add(hdr)
		asm.AddPointer(blob.Pointer{Src: dlTable, SrcOff: i*dlStride + 4, Dst: hdr, Width: 4})

		tids := blob.NewSegment(4)
		tids.Data = dl.tids
		asm.Add(tids)
		asm.AddPointer(blob.Pointer{Src: hdr, SrcOff: 4, Dst: tids, Width: 4})

		cmds := blob.NewSegment(4)
		cmds.Data = dl.cmds
		asm.Add(cmds)
		asm.AddPointer(blob.Pointer{Src: hdr, SrcOff: 0xc, Dst: cmds, Width: 4})
	}

	palettes, palIndex := gatherPalettes(m.Textures)
	binary.LittleEndian.PutUint32(header.Data[offTexCount:], uint32(len(m.Textures)))
	binary.LittleEndian.PutUint32(header.Data[offPalCount:], uint32(len(palettes)))

	matTable := blob.NewSegment(4)
	matTable.Data = make([]byte, len(m.Materials)*matStride)
	asm.Add(matTable)
	asm.AddPointer(blob.Pointer{Src: header, SrcOff: offMatTable, Dst: matTable, Width: 4})
	for i, mt := range m.Materials {
		if mt.Texture < -1 || mt.Texture >= len(m.Textures) {
			return nil, fmt.Errorf("bmd: material %d references texture %d of %d", i, mt.Texture, len(m.Textures))
		}
		palID := -1
		if mt.Texture >= 0 {
			if name := m.Textures[mt.Texture].PaletteName; name != "" {
				palID = palIndex[name]
			}
		}
		copy(matTable.Data[i*matStride:], encodeMaterialFields(mt, mt.Texture, palID))
		asm.AddPointer(blob.Pointer{Src: matTable, SrcOff: i * matStride, Dst: strs.seg, DstOff: strs.add(mt.Name), Width: 4})
	}

	texTable := blob.NewSegment(4)
	texTable.Data = make([]byte, len(m.Textures)*texStride)
	asm.Add(texTable)
	asm.AddPointer(blob.Pointer{Src: header, SrcOff: offTexTable, Dst: texTable, Width: 4})

	palTable := blob.NewSegment(4)
	palTable.Data = make([]byte, len(palettes)*palStride)
	asm.Add(palTable)
	asm.AddPointer(blob.Pointer{Src: header, SrcOff: offPalTable, Dst: palTable, Width: 4})

	for i, t := range m.Textures {
		off := i * texStride
		ws, ok := sizeShift(t.Width)
		if !ok {
			return nil, fmt.Errorf("bmd: texture %q width %d is not a hardware size", t.Name, t.Width)
		}
		hs, ok := sizeShift(t.Height)
		if !ok {
			return nil, fmt.Errorf("bmd: texture %q height %d is not a hardware size", t.Name, t.Height)
		}

		// Compressed data is stored as the index words alone; the mode
		// words ride along after them and are recovered from the size.
		size := len(t.TexData)
		if t.Format == texture.FormatCompressed {
			size = size * 2 / 3
		}
		binary.LittleEndian.PutUint32(texTable.Data[off+8:], uint32(size))
		binary.LittleEndian.PutUint16(texTable.Data[off+0xc:], uint16(t.Width))
		binary.LittleEndian.PutUint16(texTable.Data[off+0xe:], uint16(t.Height))

		param := uint32(t.Format)<<26 | ws<<20 | hs<<23
		if t.Color0Transparent {
			param |= 1 << 29
		}
		binary.LittleEndian.PutUint32(texTable.Data[off+0x10:], param)

		asm.AddPointer(blob.Pointer{Src: texTable, SrcOff: off, Dst: strs.seg, DstOff: strs.add(t.Name), Width: 4})
		data := blob.NewSegment(4)
		data.Data = t.TexData
		asm.Add(data)
		asm.AddPointer(blob.Pointer{Src: texTable, SrcOff: off + 4, Dst: data, Width: 4})
	}

	for i, p := range palettes {
		off := i * palStride
		binary.LittleEndian.PutUint32(palTable.Data[off+8:], uint32(len(p.data)))
		asm.AddPointer(blob.Pointer{Src: palTable, SrcOff: off, Dst: strs.seg, DstOff: strs.add(p.name), Width: 4})
		data := blob.NewSegment(4)
		data.Data = p.data
		asm.Add(data)
		asm.AddPointer(blob.Pointer{Src: palTable, SrcOff: off + 4, Dst: data, Width: 4})
	}

	asm.Add(strs.seg)

	out, err := asm.Assemble()
	if err != nil {
		return nil, fmt.Errorf("bmd: %w", err)
	}
	return out, nil
}

// WriteFile serializes the model to path without compression.
func WriteFile(path string, m *Model) error {
	data, err := Write(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("bmd: write %s: %w", path, err)
	}
	return nil
}

// Rescale re-expresses the model under a new scale exponent, keeping
// world-space positions unchanged. Bone scales are ratios and stay as
// they are; translations and vertex positions carry the factor.
func Rescale(m *Model, exponent uint32) {
	if exponent == m.ScaleExponent {
		return
	}
	f := math.Ldexp(1, int(m.ScaleExponent)-int(exponent))
	for i := range m.Bones {
		for k := 0; k < 3; k++ {
			m.Bones[i].Translation[k] *= f
		}
	}
	for _, g := range m.Geometries {
		if g == nil {
			continue
		}
		for i := range g.Vertices {
			for k := 0; k < 3; k++ {
				g.Vertices[i].Position[k] *= f
			}
		}
		for i := range g.Faces {
			for j := range g.Faces[i].Vertices {
				for k := 0; k < 3; k++ {
					g.Faces[i].Vertices[j].Position[k] *= f
				}
			}
		}
	}
	m.ScaleExponent = exponent
}

type displayList struct {
	tids []byte
	cmds []byte
}

type bonePairs struct {
	mats []byte
	dls  []byte
}

func buildDisplayLists(m *Model) ([]displayList, []bonePairs, error) {
	var lists []displayList
	pairs := make([]bonePairs, len(m.Bones))

	for bi, g := range m.Geometries {
		if g == nil || g.Empty() {
			continue
		}
		var mats []int
		seen := map[int]bool{}
		for fi := range g.Faces {
			f := &g.Faces[fi]
			if n := len(f.Vertices); n != 3 && n != 4 {
				return nil, nil, fmt.Errorf("bmd: bone %d carries a %d vertex face", bi, n)
			}
			if f.Material < 0 || f.Material >= len(m.Materials) {
				return nil, nil, fmt.Errorf("bmd: bone %d references material %d of %d", bi, f.Material, len(m.Materials))
			}
			if !seen[f.Material] {
				seen[f.Material] = true
				mats = append(mats, f.Material)
			}
		}
		sort.Ints(mats)

		for _, mat := range mats {
			var faces []geometry.Face
			for _, f := range g.Faces {
				if f.Material == mat {
					faces = append(faces, f)
				}
			}
			dl, err := emitDisplayList(faces, len(m.Bones))
			if err != nil {
				return nil, nil, fmt.Errorf("bmd: bone %d material %d: %w", bi, mat, err)
			}
			if len(lists) > 255 {
				return nil, nil, errors.New("bmd: more than 256 display lists")
			}
			if mat > 255 {
				return nil, nil, fmt.Errorf("bmd: material %d does not fit an 8-bit id", mat)
			}
			pairs[bi].mats = append(pairs[bi].mats, byte(mat))
			pairs[bi].dls = append(pairs[bi].dls, byte(len(lists)))
			lists = append(lists, dl)
		}
	}
	return lists, pairs, nil
}

// emitDisplayList strips the faces and encodes them as one command
// stream. Strips get a begin command each; leftover triangles and quads
// share one section per primitive type.
func emitDisplayList(faces []geometry.Face, bones int) (displayList, error) {
	triStrips, quadStrips, tris, quads := geometry.New(nil, faces).Strip()

	e := newDLEmitter(bones)
	for _, s := range triStrips {
		if err := e.section(2, s); err != nil {
			return displayList{}, err
		}
	}
	for _, s := range quadStrips {
		if err := e.section(3, s); err != nil {
			return displayList{}, err
		}
	}
	if len(tris) > 0 {
		if err := e.section(0, tris); err != nil {
			return displayList{}, err
		}
	}
	if len(quads) > 0 {
		if err := e.section(1, quads); err != nil {
			return displayList{}, err
		}
	}
	return displayList{tids: e.tids, cmds: e.stream()}, nil
}

// dlEmitter builds a command stream, tracking the GPU state so repeated
// attributes are not re-sent and positions take the shortest encoding.
type dlEmitter struct {
	bones int
	ops   []byte
	args  [][]byte

	tids  []byte
	slots map[int]int
	group int

	hasColor  bool
	colorRaw  uint16
	hasNormal bool
	normalRaw uint32
	hasUV     bool
	uvRaw     [2]int32
	hasPos    bool
	posRaw    [3]int32
}

func newDLEmitter(bones int) *dlEmitter {
	return &dlEmitter{bones: bones, slots: map[int]int{}, group: -1}
}

func (e *dlEmitter) emit(op byte, arg []byte) {
	e.ops = append(e.ops, op)
	e.args = append(e.args, arg)
}

func (e *dlEmitter) section(ptype int, verts []geometry.Vertex) error {
	e.emit(opBegin, u32word(uint32(ptype)))
	for _, v := range verts {
		if err := e.vertex(v); err != nil {
			return err
		}
	}
	return nil
}

func (e *dlEmitter) vertex(v geometry.Vertex) error {
	if v.Group != e.group {
		slot, ok := e.slots[v.Group]
		if !ok {
			if v.Group < 0 || v.Group >= e.bones {
				return fmt.Errorf("vertex binds transform group %d of %d", v.Group, e.bones)
			}
			if v.Group > 255 {
				return fmt.Errorf("transform group %d does not fit an 8-bit id", v.Group)
			}
			if len(e.tids) == 32 {
				return errors.New("display list binds more than 32 transform groups")
			}
			slot = len(e.tids)
			e.tids = append(e.tids, byte(v.Group))
			e.slots[v.Group] = slot
		}
		e.emit(opRestore, u32word(uint32(slot)))
		e.group = v.Group
	}

	if v.HasColor {
		raw := fixed.ToRGB555(v.Color[0], v.Color[1], v.Color[2], 1)
		if !e.hasColor || raw != e.colorRaw {
			e.emit(opColor, u32word(uint32(raw)))
			e.colorRaw, e.hasColor = raw, true
		}
	}
	if v.HasNormal {
		raw := fixed.PackVec10(v.Normal[0], v.Normal[1], v.Normal[2], 9)
		if !e.hasNormal || raw != e.normalRaw {
			e.emit(opNormal, u32word(raw))
			e.normalRaw, e.hasNormal = raw, true
		}
	}
	if v.HasUV {
		var raw [2]int32
		for k := 0; k < 2; k++ {
			raw[k] = fixed.ToFix(v.UV[k], 4)
			if raw[k] < math.MinInt16 || raw[k] > math.MaxInt16 {
				return fmt.Errorf("texcoord %g overflows 12.4 fixed point", v.UV[k])
			}
		}
		if !e.hasUV || raw != e.uvRaw {
			e.emit(opTexCoord, i16pair(raw[0], raw[1]))
			e.uvRaw, e.hasUV = raw, true
		}
	}
	return e.position(v.Position)
}

// position picks the shortest encoding that reproduces the quantized
// coordinates exactly: reuse one unchanged axis, then the packed 10-bit
// form, then a delta, then the full 16-bit triple.
func (e *dlEmitter) position(p [3]float64) error {
	var raw [3]int32
	var q [3]float64
	for k := 0; k < 3; k++ {
		raw[k] = fixed.ToFix(p[k], 12)
		if raw[k] < math.MinInt16 || raw[k] > math.MaxInt16 {
			return fmt.Errorf("position %g overflows 4.12 fixed point", p[k])
		}
		q[k] = fixed.FromFix(raw[k], 12)
	}

	fits10 := fixed.Fits10(q[0], 6) && fixed.Fits10(q[1], 6) && fixed.Fits10(q[2], 6)

	var d [3]int32
	fitsDelta := e.hasPos
	for k := 0; k < 3 && fitsDelta; k++ {
		d[k] = raw[k] - e.posRaw[k]
		fitsDelta = fixed.Fits10(fixed.FromFix(d[k], 12), 12)
	}

	switch {
	case e.hasPos && raw[2] == e.posRaw[2]:
		e.emit(opVtxXY, i16pair(raw[0], raw[1]))
	case e.hasPos && raw[1] == e.posRaw[1]:
		e.emit(opVtxXZ, i16pair(raw[0], raw[2]))
	case e.hasPos && raw[0] == e.posRaw[0]:
		e.emit(opVtxYZ, i16pair(raw[1], raw[2]))
	case fits10:
		e.emit(opVtx10, u32word(fixed.PackVec10(q[0], q[1], q[2], 6)))
	case fitsDelta:
		e.emit(opVtxDiff, u32word(fixed.PackVec10(
			fixed.FromFix(d[0], 12), fixed.FromFix(d[1], 12), fixed.FromFix(d[2], 12), 12)))
	default:
		arg := make([]byte, 8)
		for k := 0; k < 3; k++ {
			binary.LittleEndian.PutUint16(arg[2*k:], uint16(int16(raw[k])))
		}
		e.emit(opVtx16, arg)
	}
	e.posRaw, e.hasPos = raw, true
	return nil
}

// stream packs the recorded opcodes four to a word, each word followed
// by its operands, padding the last word with nops.
func (e *dlEmitter) stream() []byte {
	var out []byte
	for i := 0; i < len(e.ops); i += 4 {
		var word [4]byte
		end := i + 4
		if end > len(e.ops) {
			end = len(e.ops)
		}
		copy(word[:], e.ops[i:end])
		out = append(out, word[:]...)
		for j := i; j < end; j++ {
			out = append(out, e.args[j]...)
		}
	}
	return out
}

func u32word(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

func i16pair(a, b int32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint16(out, uint16(int16(a)))
	binary.LittleEndian.PutUint16(out[2:], uint16(int16(b)))
	return out
}

// relEncode turns an absolute bone index into the relative form stored
// on the wire, where zero stands for no link.
func relEncode(target, own, count int) (int16, error) {
	if target == -1 {
		return 0, nil
	}
	if target < 0 || target >= count || target == own {
		return 0, fmt.Errorf("index %d is not encodable from bone %d", target, own)
	}
	rel := target - own
	if rel < math.MinInt16 || rel > math.MaxInt16 {
		return 0, fmt.Errorf("index %d is too far from bone %d", target, own)
	}
	return int16(rel), nil
}

type palette struct {
	name string
	data []byte
}

// gatherPalettes collects the distinct palettes of the texture list in
// first-use order. Textures sharing a palette name share one entry.
func gatherPalettes(textures []*texture.Texture) ([]palette, map[string]int) {
	var out []palette
	index := map[string]int{}
	for _, t := range textures {
		if t.PaletteName == "" {
			continue
		}
		if _, ok := index[t.PaletteName]; !ok {
			index[t.PaletteName] = len(out)
			out = append(out, palette{t.PaletteName, t.PalData})
		}
	}
	return out, index
}

// sizeShift maps a hardware texture dimension to its 3-bit register
// encoding.
func sizeShift(v int) (uint32, bool) {
	for s := uint32(0); s < 8; s++ {
		if 8<<s == v {
			return s, true
		}
	}
	return 0, false
}

type stringTable struct {
	seg  *blob.Segment
	offs map[string]int
}

func newStringTable() *stringTable {
	return &stringTable{seg: blob.NewSegment(1), offs: map[string]int{}}
}

// add interns s and returns its offset inside the string segment.
func (t *stringTable) add(s string) int {
	if off, ok := t.offs[s]; ok {
		return off
	}
	off := len(t.seg.Data)
	t.seg.Data = append(t.seg.Data, s...)
	t.seg.Data = append(t.seg.Data, 0)
	t.offs[s] = off
	return off
}
