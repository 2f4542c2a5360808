package lz

import (
	"bytes"
	"testing"
)

func TestDecompressKnown(t *testing.T) {
	// "abcabcabcabc": 3 literals then one fully overlapping backreference
	// of length 9 at displacement 3.
	stream := []byte{
		0x10, 12, 0, 0,
		0x10, // flags: fourth chunk is a backreference
		'a', 'b', 'c',
		0x60, 0x02, // count 6+3=9, disp 2+1=3
	}
	out, err := Decompress(stream)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if want := []byte("abcabcabcabc"); !bytes.Equal(out, want) {
		t.Fatalf("Decompress = %q, want %q", out, want)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"single byte", []byte{0x42}},
		{"repetition", bytes.Repeat([]byte{0xab}, 1000)},
		{"pattern", bytes.Repeat([]byte("0123456789abcdef"), 64)},
		{"mixed", append(bytes.Repeat([]byte{7}, 100), []byte("incompressible tail 1234")...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := Compress(tt.data)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			out, err := Decompress(packed)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(out, tt.data) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d", len(out), len(tt.data))
			}
		})
	}
}

func TestDecompressErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short", []byte{0x10, 1}},
		{"bad magic", []byte{0x11, 1, 0, 0, 'x'}},
		{"zero size", []byte{0x10, 0, 0, 0, 'x'}},
		{"truncated stream", []byte{0x10, 10, 0, 0, 0x00, 'a'}},
		{"backref past start", []byte{0x10, 4, 0, 0, 0x80, 0x00, 0x05}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decompress(tt.data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestIsCompressed(t *testing.T) {
	packed, err := Compress([]byte("some model data to wrap up"))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !IsCompressed(packed) {
		t.Error("IsCompressed(packed) = false")
	}
	if IsCompressed([]byte{0, 0, 0, 0, 0}) {
		t.Error("IsCompressed(raw header) = true")
	}
}
