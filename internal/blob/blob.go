// Package blob assembles binary files from aligned segments joined by
// absolute little-endian pointers.
package blob

import "fmt"

// Segment is one chunk of output data with an alignment requirement for
// its own start offset.
type Segment struct {
	Data  []byte
	Align int
}

// NewSegment returns an empty segment with the given alignment.
func NewSegment(align int) *Segment {
	return &Segment{Align: align}
}

// Pointer records that Width bytes at SrcOff inside Src must hold the
// absolute file offset of DstOff bytes into Dst.
type Pointer struct {
	Src    *Segment
	SrcOff int
	Dst    *Segment
	DstOff int
	Width  int
}

// Assembler lays segments out in insertion order and patches pointers once
// every absolute position is known.
type Assembler struct {
	segments []*Segment
	pointers []Pointer
}

// Add appends a segment to the layout.
func (a *Assembler) Add(s *Segment) {
	a.segments = append(a.segments, s)
}

// AddPointer registers a pointer to patch during Assemble.
func (a *Assembler) AddPointer(p Pointer) {
	a.pointers = append(a.pointers, p)
}

// Assemble concatenates all segments and resolves every pointer. Each
// segment's tail is zero padded so that the following segment starts at a
// multiple of its own alignment; the final segment pads to a multiple of 4.
func (a *Assembler) Assemble() ([]byte, error) {
	for i, s := range a.segments {
		if s.Align < 1 {
			return nil, fmt.Errorf("blob: segment %d has alignment %d", i, s.Align)
		}
	}

	pos := make(map[*Segment]int, len(a.segments))
	total := 0
	for i, s := range a.segments {
		if _, dup := pos[s]; dup {
			return nil, fmt.Errorf("blob: segment %d added twice", i)
		}
		pos[s] = total
		total += len(s.Data)
		next := 4
		if i+1 < len(a.segments) {
			next = a.segments[i+1].Align
		}
		total += (next - total%next) % next
	}

	out := make([]byte, total)
	for _, s := range a.segments {
		copy(out[pos[s]:], s.Data)
	}

	for _, p := range a.pointers {
		srcPos, ok := pos[p.Src]
		if !ok {
			return nil, fmt.Errorf("blob: pointer source segment not registered")
		}
		dstPos, ok := pos[p.Dst]
		if !ok {
			return nil, fmt.Errorf("blob: pointer destination segment not registered")
		}
		if p.SrcOff < 0 || p.SrcOff+p.Width > len(p.Src.Data) {
			return nil, fmt.Errorf("blob: pointer patch at %#x outside segment data", p.SrcOff)
		}
		v := uint64(dstPos + p.DstOff)
		if p.Width < 8 && v>>(8*uint(p.Width)) != 0 {
			return nil, fmt.Errorf("blob: offset %#x does not fit in %d bytes", v, p.Width)
		}
		for i := 0; i < p.Width; i++ {
			out[srcPos+p.SrcOff+i] = byte(v >> (8 * uint(i)))
		}
	}
	return out, nil
}
