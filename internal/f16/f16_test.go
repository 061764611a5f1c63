package f16

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []float32{0, -0, 1, -1, 0.5, 2, 65504, -65504, 0.000061035156, 1.5, 3.140625}
	for _, f := range cases {
		got := ToFloat32(FromFloat32(f))
		assert.Equal(t, f, got, "value %v", f)
	}
}

func TestSpecials(t *testing.T) {
	t.Run("Infinity", func(t *testing.T) {
		assert.True(t, math.IsInf(float64(ToFloat32(FromFloat32(float32(math.Inf(1))))), 1))
		assert.True(t, math.IsInf(float64(ToFloat32(FromFloat32(float32(math.Inf(-1))))), -1))
	})

	t.Run("NaN", func(t *testing.T) {
		assert.True(t, math.IsNaN(float64(ToFloat32(FromFloat32(float32(math.NaN()))))))
	})

	t.Run("Overflow", func(t *testing.T) {
		assert.True(t, math.IsInf(float64(ToFloat32(FromFloat32(1e10))), 1))
	})

	t.Run("Underflow", func(t *testing.T) {
		assert.Equal(t, float32(0), ToFloat32(FromFloat32(1e-10)))
	})
}

func TestPrecision(t *testing.T) {
	// binary16 has 11 significant bits, so relative error stays under 2^-11.
	for _, f := range []float32{0.1, 0.3, 123.456, 1e-3, 999.9} {
		got := ToFloat32(FromFloat32(f))
		relErr := math.Abs(float64(got-f)) / float64(f)
		assert.Less(t, relErr, 1.0/2048, "value %v", f)
	}
}

func TestSlices(t *testing.T) {
	src := []float32{1, 2, 3.5, -0.25}
	enc := Encode(nil, src)
	require.Len(t, enc, len(src))
	dec := Decode(nil, enc)
	assert.Equal(t, src, dec)
}
