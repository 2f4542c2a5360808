// Package fixed converts between the console's fixed-point wire encodings
// and float64 values.
package fixed

import "math"

// RoundHalfUp rounds to the nearest integer with exact halves rounding
// toward positive infinity: 2.5 -> 3, -2.5 -> -2.
func RoundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// ToFix encodes v as signed fixed-point with frac fractional bits.
func ToFix(v float64, frac uint) int32 {
	return int32(RoundHalfUp(v * float64(int64(1)<<frac)))
}

// FromFix decodes signed fixed-point with frac fractional bits.
func FromFix(raw int32, frac uint) float64 {
	return float64(raw) / float64(int64(1)<<frac)
}

// A full turn is 4096 angle units; the wire stores a signed 16-bit value.

// FromAngle decodes a wire angle to radians.
func FromAngle(raw int16) float64 {
	return float64(raw) * 16 / 65536 * 2 * math.Pi
}

// ToAngle encodes radians as a wire angle. Values beyond half a turn in
// either direction alias, which leaves the rotation unchanged.
func ToAngle(rad float64) int16 {
	return int16(RoundHalfUp(rad * 2048 / math.Pi))
}

// Sign10 reinterprets the low 10 bits of v as a signed value.
func Sign10(v uint32) int32 {
	n := int32(v & 0x3ff)
	if n >= 0x200 {
		n -= 0x400
	}
	return n
}

// PackVec10 packs three fixed-point components into 10-bit fields at bits
// 0, 10 and 20. Components clamp to the representable [-512,511] raw range.
func PackVec10(x, y, z float64, frac uint) uint32 {
	var raw uint32
	for i, v := range [3]float64{x, y, z} {
		n := RoundHalfUp(v * float64(int64(1)<<frac))
		if n < -512 {
			n = -512
		} else if n > 511 {
			n = 511
		}
		raw |= uint32(n&0x3ff) << (10 * uint(i))
	}
	return raw
}

// UnpackVec10 is the inverse of PackVec10.
func UnpackVec10(raw uint32, frac uint) (x, y, z float64) {
	div := float64(int64(1) << frac)
	x = float64(Sign10(raw)) / div
	y = float64(Sign10(raw>>10)) / div
	z = float64(Sign10(raw>>20)) / div
	return
}

// Fits10 reports whether v is exactly representable as a signed 10-bit
// fixed-point value with frac fractional bits.
func Fits10(v float64, frac uint) bool {
	n := v * float64(int64(1)<<frac)
	return n == math.Trunc(n) && n >= -512 && n <= 511
}

// FromRGB555 decodes a 15-bit color to float channels through gamma.
func FromRGB555(raw uint16, gamma float64) (r, g, b float64) {
	r = math.Pow(float64(raw&0x1f)/31, gamma)
	g = math.Pow(float64(raw>>5&0x1f)/31, gamma)
	b = math.Pow(float64(raw>>10&0x1f)/31, gamma)
	return
}

// ToRGB555 quantizes float channels to a 15-bit color through gamma.
// Channels clamp to [0,1].
func ToRGB555(r, g, b, gamma float64) uint16 {
	enc := func(c float64) uint16 {
		n := RoundHalfUp(math.Pow(c, 1/gamma) * 31)
		if n < 0 {
			n = 0
		} else if n > 31 {
			n = 31
		}
		return uint16(n)
	}
	return enc(r) | enc(g)<<5 | enc(b)<<10
}
