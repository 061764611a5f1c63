// Package math32 provides float32 vector kernels for the reference layer
// backend. This is an internal package - external users should go through the
// layer and tensor packages.
package math32

import "math"

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}
	return ret
}

// Axpy computes dst[i] += alpha * x[i].
func Axpy(dst, x []float32, alpha float32) {
	for i := range dst {
		dst[i] += alpha * x[i]
	}
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

// AddInPlace computes dst[i] += x[i].
func AddInPlace(dst, x []float32) {
	for i := range dst {
		dst[i] += x[i]
	}
}

// MulInPlace computes dst[i] *= x[i].
func MulInPlace(dst, x []float32) {
	for i := range dst {
		dst[i] *= x[i]
	}
}

// Sum returns the sum of all elements.
func Sum(a []float32) float32 {
	var s float32
	for _, v := range a {
		s += v
	}
	return s
}

// Sqrt returns the square root of x.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// SiLUInPlace applies x*sigmoid(x) element-wise.
func SiLUInPlace(a []float32) {
	for i, v := range a {
		a[i] = v / (1 + float32(math.Exp(float64(-v))))
	}
}

// SoftmaxInPlace applies a numerically stable softmax over a.
// A zero-length slice is a no-op.
func SoftmaxInPlace(a []float32) {
	if len(a) == 0 {
		return
	}
	maxv := a[0]
	for _, v := range a[1:] {
		if v > maxv {
			maxv = v
		}
	}
	var sum float32
	for i, v := range a {
		e := float32(math.Exp(float64(v - maxv)))
		a[i] = e
		sum += e
	}
	inv := 1 / sum
	for i := range a {
		a[i] *= inv
	}
}

// MeanVar returns the mean and (population) variance of a.
func MeanVar(a []float32) (mean, variance float32) {
	if len(a) == 0 {
		return 0, 0
	}
	inv := 1 / float32(len(a))
	mean = Sum(a) * inv
	for _, v := range a {
		d := v - mean
		variance += d * d
	}
	variance *= inv
	return mean, variance
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := Dot(v, v)
	if norm2 == 0 {
		return false
	}
	ScaleInPlace(v, 1/Sqrt(norm2))
	return true
}
