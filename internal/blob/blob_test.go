package blob

import (
	"bytes"
	"testing"
)

func TestAssembleAlignment(t *testing.T) {
	// The first segment pads so that the second starts on its own
	// alignment; the last segment pads the file to a multiple of 4.
	var a Assembler
	s1 := &Segment{Data: []byte{1, 2, 3}, Align: 1}
	s2 := &Segment{Data: []byte{4}, Align: 8}
	a.Add(s1)
	a.Add(s2)

	out, err := a.Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []byte{1, 2, 3, 0, 0, 0, 0, 0, 4, 0, 0, 0}
	if !bytes.Equal(out, want) {
		t.Fatalf("Assemble = % x, want % x", out, want)
	}
}

func TestAssemblePointers(t *testing.T) {
	var a Assembler
	head := &Segment{Data: make([]byte, 8), Align: 4}
	body := &Segment{Data: []byte{0xaa, 0xbb}, Align: 4}
	a.Add(head)
	a.Add(body)
	a.AddPointer(Pointer{Src: head, SrcOff: 0, Dst: body, DstOff: 1, Width: 4})
	a.AddPointer(Pointer{Src: head, SrcOff: 4, Dst: head, DstOff: 0, Width: 2})

	out, err := a.Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// body starts at 8, so the first pointer holds 9.
	if got := uint32(out[0]) | uint32(out[1])<<8 | uint32(out[2])<<16 | uint32(out[3])<<24; got != 9 {
		t.Errorf("pointer[0] = %d, want 9", got)
	}
	if got := uint16(out[4]) | uint16(out[5])<<8; got != 0 {
		t.Errorf("pointer[1] = %d, want 0", got)
	}
	if out[8] != 0xaa || out[9] != 0xbb {
		t.Errorf("body bytes misplaced: % x", out[8:10])
	}
}

func TestAssembleUnregisteredSegment(t *testing.T) {
	var a Assembler
	head := &Segment{Data: make([]byte, 4), Align: 4}
	a.Add(head)
	a.AddPointer(Pointer{Src: head, SrcOff: 0, Dst: &Segment{Align: 1}, Width: 4})
	if _, err := a.Assemble(); err == nil {
		t.Fatal("expected error for pointer into unregistered segment")
	}
}

func TestAssembleBadAlignment(t *testing.T) {
	var a Assembler
	a.Add(&Segment{Data: []byte{1}})
	if _, err := a.Assemble(); err == nil {
		t.Fatal("expected error for zero alignment")
	}
}

func TestAssemblePatchOutsideData(t *testing.T) {
	var a Assembler
	s := &Segment{Data: []byte{0}, Align: 1}
	a.Add(s)
	a.AddPointer(Pointer{Src: s, SrcOff: 0, Dst: s, DstOff: 0, Width: 4})
	if _, err := a.Assemble(); err == nil {
		t.Fatal("expected error for patch beyond segment data")
	}
}
