package vocoder

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sonigo/tensor"
)

// testOptions returns a deliberately tiny configuration so forward passes
// stay cheap: three levels, stride 4, code conditioning at the stem
// resolution and attention at the deepest one.
func testOptions() Options {
	return Options{
		ModelChannels:        8,
		NumResBlocks:         1,
		InChannels:           1,
		OutChannels:          2,
		DiscreteCodes:        16,
		ChannelMult:          []int{1, 2, 4},
		CodeResolutions:      []int{1},
		AttentionResolutions: []int{4},
		NumHeads:             2,
		KernelSize:           3,
		ScaleFactor:          2,
		Seed:                 7,
	}
}

func testSignal(t *testing.T, batch, channels, length int, seed int64) *tensor.Tensor {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	x := tensor.New(batch, channels, length)
	data := x.Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return x
}

func testCodes(t *testing.T, batch, n int, vocab int64) *tensor.Int {
	t.Helper()
	codes := tensor.NewInt(batch, n)
	for b := 0; b < batch; b++ {
		row := codes.Row(b)
		for i := range row {
			row[i] = int64(i) % vocab
		}
	}
	return codes
}

func TestVocoderForward(t *testing.T) {
	t.Run("output shape", func(t *testing.T) {
		v, err := New(testOptions())
		require.NoError(t, err)
		assert.Equal(t, 4, v.TotalStride())

		x := testSignal(t, 2, 1, 8, 1)
		out, err := v.Forward(x, []int64{0, 100}, testCodes(t, 2, 4, 16), nil)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2, 8}, out.Shape())
	})

	t.Run("deterministic per seed", func(t *testing.T) {
		a, err := New(testOptions())
		require.NoError(t, err)
		b, err := New(testOptions())
		require.NoError(t, err)

		x := testSignal(t, 1, 1, 8, 2)
		codes := testCodes(t, 1, 4, 16)
		outA, err := a.Forward(x, []int64{10}, codes, nil)
		require.NoError(t, err)
		outB, err := b.Forward(x, []int64{10}, codes, nil)
		require.NoError(t, err)
		assert.Equal(t, outA.Data(), outB.Data())
	})

	t.Run("stride mismatch", func(t *testing.T) {
		v, err := New(testOptions())
		require.NoError(t, err)

		x := testSignal(t, 1, 1, 10, 3)
		_, err = v.Forward(x, []int64{0}, testCodes(t, 1, 4, 16), nil)

		var serr *ErrStrideMismatch
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, 10, serr.Length)
		assert.Equal(t, 4, serr.Stride)
	})

	t.Run("wrong input channels", func(t *testing.T) {
		v, err := New(testOptions())
		require.NoError(t, err)

		x := testSignal(t, 1, 3, 8, 4)
		_, err = v.Forward(x, []int64{0}, testCodes(t, 1, 4, 16), nil)

		var merr *tensor.ErrShapeMismatch
		assert.ErrorAs(t, err, &merr)
	})

	t.Run("timestep count mismatch", func(t *testing.T) {
		v, err := New(testOptions())
		require.NoError(t, err)

		x := testSignal(t, 2, 1, 8, 5)
		_, err = v.Forward(x, []int64{0}, testCodes(t, 2, 4, 16), nil)
		assert.Error(t, err)
	})

	t.Run("codes required", func(t *testing.T) {
		v, err := New(testOptions())
		require.NoError(t, err)

		x := testSignal(t, 1, 1, 8, 6)
		_, err = v.Forward(x, []int64{0}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("codes longer than signal", func(t *testing.T) {
		v, err := New(testOptions())
		require.NoError(t, err)

		x := testSignal(t, 1, 1, 8, 7)
		_, err = v.Forward(x, []int64{0}, testCodes(t, 1, 16, 16), nil)

		var cerr *ErrCodesTooLong
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, 16, cerr.Codes)
		assert.Equal(t, 8, cerr.Signal)
	})
}

func TestVocoderConditioning(t *testing.T) {
	opts := testOptions()
	opts.Conditioned = true
	opts.ConditioningDim = 4

	t.Run("conditioning required", func(t *testing.T) {
		v, err := New(opts)
		require.NoError(t, err)

		x := testSignal(t, 1, 1, 8, 8)
		_, err = v.Forward(x, []int64{0}, testCodes(t, 1, 4, 16), nil)
		assert.True(t, errors.Is(err, ErrConditioningRequired))
	})

	t.Run("reference signals combined", func(t *testing.T) {
		v, err := New(opts)
		require.NoError(t, err)

		x := testSignal(t, 1, 1, 8, 9)
		cond := testSignal(t, 1, 2*4, 12, 10)
		cond, err = cond.Reshape(1, 2, 4, 12)
		require.NoError(t, err)

		out, err := v.Forward(x, []int64{50}, testCodes(t, 1, 4, 16), cond)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 8}, out.Shape())
	})

	t.Run("conditioning shape checked", func(t *testing.T) {
		v, err := New(opts)
		require.NoError(t, err)

		x := testSignal(t, 1, 1, 8, 11)
		cond := testSignal(t, 1, 4, 12, 12) // rank 3, not [B,S,C,T]
		_, err = v.Forward(x, []int64{0}, testCodes(t, 1, 4, 16), cond)

		var merr *tensor.ErrShapeMismatch
		assert.ErrorAs(t, err, &merr)
	})
}

func TestVocoderPrecision(t *testing.T) {
	v, err := New(testOptions())
	require.NoError(t, err)

	x := testSignal(t, 1, 1, 8, 13)
	codes := testCodes(t, 1, 4, 16)

	full, err := v.Forward(x, []int64{20}, codes, nil)
	require.NoError(t, err)

	v.ConvertToFP16()
	assert.True(t, v.FP16())
	half, err := v.Forward(x, []int64{20}, codes, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, full.Data(), half.Data(), 0.05)

	v.ConvertToFP32()
	assert.False(t, v.FP16())
	back, err := v.Forward(x, []int64{20}, codes, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, full.Data(), back.Data(), 0.01)
}

func TestTimestepEmbedding(t *testing.T) {
	emb := TimestepEmbedding([]int64{0, 1000}, 8)
	require.Equal(t, []int{2, 8}, emb.Shape())

	// t=0 yields cos(0)=1 in the first half and sin(0)=0 in the second.
	row := emb.Row(0)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 1.0, row[i], 1e-6)
		assert.InDelta(t, 0.0, row[4+i], 1e-6)
	}

	for _, v := range emb.Row(1) {
		assert.LessOrEqual(t, float64(v), 1.0)
		assert.GreaterOrEqual(t, float64(v), -1.0)
	}
}
