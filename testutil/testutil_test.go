package testutil

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNG(t *testing.T) {
	t.Run("deterministic per seed", func(t *testing.T) {
		a := NewRNG(42).UnitVectors(3, 8)
		b := NewRNG(42).UnitVectors(3, 8)
		assert.Equal(t, a, b)
	})

	t.Run("reset replays the sequence", func(t *testing.T) {
		rng := NewRNG(7)
		first := rng.UnitVector(8)
		rng.Reset()
		assert.Equal(t, first, rng.UnitVector(8))
	})

	t.Run("unit vectors are normalized", func(t *testing.T) {
		for _, vec := range NewRNG(1).UnitVectors(10, 16) {
			var norm float64
			for _, v := range vec {
				norm += float64(v) * float64(v)
			}
			assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
		}
	})
}

func TestWriteWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unit", "tone.wav")
	WriteWAV(t, path, 440, 8000, 0.25)
	assert.FileExists(t, path)
}

func TestStubModel(t *testing.T) {
	m := &StubModel{Dim: 8}

	emb, err := m.Embed([][]float32{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	require.Len(t, emb, 8)

	again, err := m.Embed([][]float32{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, emb, again)

	assert.False(t, m.Closed())
	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
}
