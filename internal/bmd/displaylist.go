package bmd

import (
	"encoding/binary"

	"nds-bmd-codec/internal/fixed"
	"nds-bmd-codec/internal/geometry"
)

// Display-list opcodes. Each command word packs four opcodes; their
// operands follow the word in opcode order.
const (
	opNop      = 0x00
	opRestore  = 0x14
	opColor    = 0x20
	opNormal   = 0x21
	opTexCoord = 0x22
	opVtx16    = 0x23
	opVtx10    = 0x24
	opVtxXY    = 0x25
	opVtxXZ    = 0x26
	opVtxYZ    = 0x27
	opVtxDiff  = 0x28
	opBegin    = 0x40
)

// skipWidths lists the operand sizes of GPU state commands the decoder
// carries no semantics for. They must still be skipped exactly.
var skipWidths = map[byte]int{
	0x34: 128,
	0x16: 64, 0x18: 64,
	0x17: 48, 0x19: 48,
	0x1a: 36,
	0x1b: 12, 0x1c: 12, 0x70: 12,
	0x71: 8,
	0x10: 4, 0x12: 4, 0x13: 4, 0x29: 4, 0x2a: 4, 0x2b: 4,
	0x30: 4, 0x31: 4, 0x32: 4, 0x33: 4, 0x50: 4, 0x60: 4, 0x72: 4,
	opNop: 0, 0x11: 0, 0x15: 0, 0x41: 0,
}

// dlState is the mutable interpreter state threaded through one command
// stream: the current vertex attributes, the active primitive type and
// the vertices and faces accumulated so far.
type dlState struct {
	r        *reader
	tids     []byte // transform-id table of this list
	material int

	cmds []byte
	off  int

	begun bool
	ptype int
	group int

	pos       [3]float64
	hasPos    bool
	normal    [3]float64
	hasNormal bool
	uv        [2]float64
	hasUV     bool
	color     [3]float64
	hasColor  bool

	// cur holds the section since the last begin; done collects
	// flushed sections.
	cur       []geometry.Vertex
	curFaces  []geometry.Face
	done      []geometry.Vertex
	doneFaces []geometry.Face
}

// parseDisplayList decodes the display list behind one 8-byte table
// record into vertices and faces. Vertices bind to owner's transform
// group until a restore command selects another.
func parseDisplayList(r *reader, recOff, owner, material int) ([]geometry.Vertex, []geometry.Face) {
	header := int(r.u32(recOff + 4))
	r.bytes(header, dlHeaderSize)

	st := &dlState{
		r:        r,
		tids:     r.bytes(int(r.u32(header+4)), int(r.u32(header))),
		material: material,
		cmds:     r.bytes(int(r.u32(header+0xc)), int(r.u32(header+8))),
		group:    owner,
	}

	for st.off < len(st.cmds) && r.err == nil {
		word := st.operand(4)
		if word == nil {
			break
		}
		ops := [4]byte{word[0], word[1], word[2], word[3]}
		for _, op := range ops {
			if r.err != nil {
				break
			}
			st.exec(op)
		}
	}
	st.flush()
	return st.done, st.doneFaces
}

// operand consumes n bytes from the command stream.
func (st *dlState) operand(n int) []byte {
	if st.r.err != nil {
		return nil
	}
	if st.off+n > len(st.cmds) {
		st.r.fail("display list truncated %d bytes into its command stream", st.off)
		return nil
	}
	b := st.cmds[st.off : st.off+n]
	st.off += n
	return b
}

func (st *dlState) exec(op byte) {
	switch op {
	case opBegin:
		b := st.operand(4)
		if b == nil {
			return
		}
		st.flush()
		st.ptype = int(b[0]) % 4
		st.begun = true

	case opRestore:
		b := st.operand(4)
		if b == nil {
			return
		}
		slot := int(binary.LittleEndian.Uint32(b) % 32)
		if slot >= len(st.tids) {
			st.r.fail("restore selects slot %d of a %d entry transform table", slot, len(st.tids))
			return
		}
		st.group = int(st.r.u16(int(st.r.u32(offGroupTable)) + int(st.tids[slot])*2))

	case opColor:
		b := st.operand(4)
		if b == nil {
			return
		}
		raw := binary.LittleEndian.Uint16(b)
		st.color[0], st.color[1], st.color[2] = fixed.FromRGB555(raw, 1)
		st.hasColor = true

	case opNormal:
		b := st.operand(4)
		if b == nil {
			return
		}
		raw := binary.LittleEndian.Uint32(b)
		st.normal[0], st.normal[1], st.normal[2] = fixed.UnpackVec10(raw, 9)
		st.hasNormal = true

	case opTexCoord:
		b := st.operand(4)
		if b == nil {
			return
		}
		st.uv[0] = fixed.FromFix(int32(int16(binary.LittleEndian.Uint16(b))), 4)
		st.uv[1] = fixed.FromFix(int32(int16(binary.LittleEndian.Uint16(b[2:]))), 4)
		st.hasUV = true

	case opVtx16, opVtx10, opVtxXY, opVtxXZ, opVtxYZ, opVtxDiff:
		st.vertex(op)

	default:
		if w, ok := skipWidths[op]; ok {
			st.operand(w)
			return
		}
		st.r.fail("unknown display list opcode %#x at stream offset %#x", op, st.off)
	}
}

func (st *dlState) vertex(op byte) {
	if op != opVtx16 && op != opVtx10 && !st.hasPos {
		st.r.fail("opcode %#x updates a position no earlier command set", op)
		return
	}

	switch op {
	case opVtx16:
		b := st.operand(8)
		if b == nil {
			return
		}
		for k := 0; k < 3; k++ {
			st.pos[k] = fixed.FromFix(int32(int16(binary.LittleEndian.Uint16(b[2*k:]))), 12)
		}

	case opVtx10:
		b := st.operand(4)
		if b == nil {
			return
		}
		raw := binary.LittleEndian.Uint32(b)
		st.pos[0], st.pos[1], st.pos[2] = fixed.UnpackVec10(raw, 6)

	case opVtxXY, opVtxXZ, opVtxYZ:
		b := st.operand(4)
		if b == nil {
			return
		}
		u := fixed.FromFix(int32(int16(binary.LittleEndian.Uint16(b))), 12)
		v := fixed.FromFix(int32(int16(binary.LittleEndian.Uint16(b[2:]))), 12)
		switch op {
		case opVtxXY:
			st.pos[0], st.pos[1] = u, v
		case opVtxXZ:
			st.pos[0], st.pos[2] = u, v
		case opVtxYZ:
			st.pos[1], st.pos[2] = u, v
		}

	case opVtxDiff:
		b := st.operand(4)
		if b == nil {
			return
		}
		raw := binary.LittleEndian.Uint32(b)
		dx, dy, dz := fixed.UnpackVec10(raw, 12)
		st.pos[0] += dx
		st.pos[1] += dy
		st.pos[2] += dz
	}
	st.hasPos = true

	if !st.begun {
		st.r.fail("opcode %#x emits a vertex before any begin command", op)
		return
	}
	st.append()
}

// append records the current state as a vertex and emits a face when the
// active primitive type has gathered enough vertices.
func (st *dlState) append() {
	st.cur = append(st.cur, geometry.Vertex{
		Position:  st.pos,
		Normal:    st.normal,
		UV:        st.uv,
		Color:     st.color,
		HasNormal: st.hasNormal,
		HasUV:     st.hasUV,
		HasColor:  st.hasColor,
		Group:     st.group,
	})

	c := len(st.cur)
	switch st.ptype {
	case 0:
		if c%3 == 0 {
			st.face(c-3, c-2, c-1)
		}
	case 1:
		if c%4 == 0 {
			st.face(c-4, c-3, c-2, c-1)
		}
	case 2:
		if c >= 3 {
			if c%2 == 0 {
				st.face(c-2, c-3, c-1)
			} else {
				st.face(c-3, c-2, c-1)
			}
		}
	case 3:
		if c%2 == 0 && c >= 4 {
			st.face(c-4, c-3, c-1, c-2)
		}
	}
}

func (st *dlState) face(idx ...int) {
	vs := make([]geometry.Vertex, len(idx))
	for i, j := range idx {
		vs[i] = st.cur[j]
	}
	st.curFaces = append(st.curFaces, geometry.Face{Vertices: vs, Material: st.material})
}

func (st *dlState) flush() {
	st.done = append(st.done, st.cur...)
	st.doneFaces = append(st.doneFaces, st.curFaces...)
	st.cur = nil
	st.curFaces = nil
}
