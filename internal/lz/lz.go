// Package lz implements the console's type 0x10 LZ77 file compression:
// a one-byte magic, a 24-bit decompressed size, then groups of eight
// literal-or-backreference chunks described by a flag byte.
package lz

import "fmt"

// Magic is the header byte identifying a type 0x10 stream.
const Magic = 0x10

const (
	windowSize = 0x1000
	minMatch   = 3
	maxMatch   = 18
)

// IsCompressed reports whether data plausibly starts a type 0x10 stream.
// A definite answer requires decompressing; callers that can fall back to
// the raw bytes should just try Decompress.
func IsCompressed(data []byte) bool {
	if len(data) < 5 || data[0] != Magic {
		return false
	}
	size := int(data[1]) | int(data[2])<<8 | int(data[3])<<16
	return size > 0
}

// Decompress expands a type 0x10 stream.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("lz: stream too short (%d bytes)", len(data))
	}
	if data[0] != Magic {
		return nil, fmt.Errorf("lz: bad magic %#02x", data[0])
	}
	size := int(data[1]) | int(data[2])<<8 | int(data[3])<<16
	if size == 0 {
		return nil, fmt.Errorf("lz: zero decompressed size")
	}

	out := make([]byte, 0, size)
	pos := 4
	for len(out) < size {
		if pos >= len(data) {
			return nil, fmt.Errorf("lz: truncated stream at %#x", pos)
		}
		flags := data[pos]
		pos++
		for i := 0; i < 8 && len(out) < size; i++ {
			if flags&0x80 == 0 {
				if pos >= len(data) {
					return nil, fmt.Errorf("lz: truncated literal at %#x", pos)
				}
				out = append(out, data[pos])
				pos++
			} else {
				if pos+1 >= len(data) {
					return nil, fmt.Errorf("lz: truncated backreference at %#x", pos)
				}
				n := int(data[pos])<<8 | int(data[pos+1])
				pos += 2
				count := (n >> 12) + minMatch
				disp := (n & 0xfff) + 1
				if disp > len(out) {
					return nil, fmt.Errorf("lz: backreference past start (disp %d at %d)", disp, len(out))
				}
				for j := 0; j < count; j++ {
					out = append(out, out[len(out)-disp])
				}
			}
			flags <<= 1
		}
	}
	return out[:size], nil
}

// Compress encodes data as a type 0x10 stream using a greedy longest-match
// search. Anything Compress produces round-trips through Decompress; the
// output is not guaranteed to be smaller than the input.
func Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("lz: nothing to compress")
	}
	if len(data) >= 1<<24 {
		return nil, fmt.Errorf("lz: input too large (%d bytes)", len(data))
	}

	out := make([]byte, 4, len(data)/2+8)
	out[0] = Magic
	out[1] = byte(len(data))
	out[2] = byte(len(data) >> 8)
	out[3] = byte(len(data) >> 16)

	pos := 0
	for pos < len(data) {
		flagAt := len(out)
		out = append(out, 0)
		var flags byte
		for i := 0; i < 8 && pos < len(data); i++ {
			length, disp := findMatch(data, pos)
			if length >= minMatch {
				flags |= 0x80 >> uint(i)
				n := (length-minMatch)<<12 | (disp - 1)
				out = append(out, byte(n>>8), byte(n))
				pos += length
			} else {
				out = append(out, data[pos])
				pos++
			}
		}
		out[flagAt] = flags
	}
	return out, nil
}

// findMatch returns the longest backreference for data[pos:] within the
// sliding window, preferring the smallest displacement on ties.
func findMatch(data []byte, pos int) (length, disp int) {
	limit := len(data) - pos
	if limit > maxMatch {
		limit = maxMatch
	}
	start := pos - windowSize
	if start < 0 {
		start = 0
	}
	for j := pos - 1; j >= start; j-- {
		n := 0
		for n < limit && data[j+n%(pos-j)] == data[pos+n] {
			n++
		}
		if n > length {
			length, disp = n, pos-j
			if length == maxMatch {
				break
			}
		}
	}
	return length, disp
}
