package math32

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	assert.InDelta(t, 32.0, Dot([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-6)
	assert.InDelta(t, 0.0, Dot(nil, nil), 1e-6)
}

func TestAxpy(t *testing.T) {
	dst := []float32{1, 1, 1}
	Axpy(dst, []float32{1, 2, 3}, 2)
	assert.Equal(t, []float32{3, 5, 7}, dst)
}

func TestSoftmaxInPlace(t *testing.T) {
	t.Run("SumsToOne", func(t *testing.T) {
		a := []float32{1, 2, 3, 4}
		SoftmaxInPlace(a)
		assert.InDelta(t, 1.0, float64(Sum(a)), 1e-5)
		assert.True(t, a[3] > a[2] && a[2] > a[1])
	})

	t.Run("LargeValuesStable", func(t *testing.T) {
		a := []float32{1000, 1001}
		SoftmaxInPlace(a)
		require.False(t, math.IsNaN(float64(a[0])))
		assert.InDelta(t, 1.0, float64(Sum(a)), 1e-5)
	})

	t.Run("Empty", func(t *testing.T) {
		SoftmaxInPlace(nil)
	})
}

func TestMeanVar(t *testing.T) {
	mean, variance := MeanVar([]float32{1, 2, 3, 4})
	assert.InDelta(t, 2.5, float64(mean), 1e-6)
	assert.InDelta(t, 1.25, float64(variance), 1e-6)
}

func TestSiLUInPlace(t *testing.T) {
	a := []float32{0, 10, -10}
	SiLUInPlace(a)
	assert.InDelta(t, 0.0, float64(a[0]), 1e-6)
	assert.InDelta(t, 10.0, float64(a[1]), 1e-3)
	assert.InDelta(t, 0.0, float64(a[2]), 1e-3)
}

func TestNormalizeL2InPlace(t *testing.T) {
	v := []float32{3, 4}
	require.True(t, NormalizeL2InPlace(v))
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	assert.False(t, NormalizeL2InPlace([]float32{0, 0}))
	assert.False(t, NormalizeL2InPlace(nil))
}
