// Package f16 implements IEEE-754 binary16 (float16) encoding/decoding.
//
// This package is internal: it exists to support float16 as a storage format
// for layer weights while keeping execution in float32.
package f16

import "math"

// Bits is the raw IEEE-754 binary16 bit-pattern:
// 1 sign bit, 5 exponent bits (bias 15), 10 fraction bits.
type Bits uint16

const (
	signMask Bits = 0x8000
	expMask  Bits = 0x7C00
	fracMask Bits = 0x03FF

	f32ExpMask  uint32 = 0x7F800000
	f32FracMask uint32 = 0x007FFFFF
)

// ToFloat32 converts a binary16 bit-pattern to float32.
func ToFloat32(h Bits) float32 {
	sign := uint32(h&signMask) << 16
	exp := uint32(h&expMask) >> 10
	frac := uint32(h & fracMask)

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: exponent -14, no implicit leading 1. Normalize into a
		// float32 normal.
		e := int32(-14)
		m := frac
		for (m & 0x0400) == 0 {
			m <<= 1
			e--
		}
		m &= 0x03FF
		return math.Float32frombits(sign | uint32(int32(127)+e)<<23 | m<<13)
	case 0x1F:
		if frac == 0 {
			return math.Float32frombits(sign | f32ExpMask)
		}
		return math.Float32frombits(sign | f32ExpMask | (frac << 13))
	default:
		return math.Float32frombits(sign | uint32(int32(exp)-15+127)<<23 | frac<<13)
	}
}

// FromFloat32 converts a float32 value into a binary16 bit-pattern.
//
// Rounding mode: round-to-nearest, ties-to-even.
func FromFloat32(f float32) Bits {
	bits := math.Float32bits(f)
	sign := Bits((bits >> 16) & uint32(signMask))
	exp := int32((bits & f32ExpMask) >> 23)
	frac := bits & f32FracMask

	if exp == 0xFF {
		if frac == 0 {
			return sign | expMask
		}
		payload := Bits(frac>>13) | 0x0200 // quiet, non-zero
		return sign | expMask | (payload & fracMask)
	}
	if exp == 0 {
		// float32 subnormals underflow to zero in binary16.
		return sign
	}

	e16 := exp - 127 + 15
	if e16 >= 0x1F {
		return sign | expMask
	}
	if e16 <= 0 {
		if e16 < -10 {
			return sign
		}
		mant := frac | 0x00800000
		shift := uint32(1-e16) + 13
		m := mant >> shift
		remainder := mant & (uint32(1)<<shift - 1)
		half := uint32(1) << (shift - 1)
		if remainder > half || (remainder == half && m&1 == 1) {
			m++
		}
		return sign | Bits(m)
	}

	m := frac >> 13
	remainder := frac & 0x1FFF
	if remainder > 0x1000 || (remainder == 0x1000 && m&1 == 1) {
		m++
		if m == 0x400 {
			m = 0
			e16++
			if e16 >= 0x1F {
				return sign | expMask
			}
		}
	}
	return sign | Bits(e16)<<10 | Bits(m)
}

// Encode converts src into binary16 bit-patterns, appending to dst.
func Encode(dst []Bits, src []float32) []Bits {
	for _, v := range src {
		dst = append(dst, FromFloat32(v))
	}
	return dst
}

// Decode converts binary16 bit-patterns into float32, appending to dst.
func Decode(dst []float32, src []Bits) []float32 {
	for _, h := range src {
		dst = append(dst, ToFloat32(h))
	}
	return dst
}
