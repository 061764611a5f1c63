package vocoder

import (
	"math"

	"github.com/hupe1980/sonigo/tensor"
)

const timestepMaxPeriod = 10000

// TimestepEmbedding builds sinusoidal embeddings for a batch of diffusion
// timesteps, one [dim] row per timestep. Odd dims get a trailing zero column.
func TimestepEmbedding(timesteps []int64, dim int) *tensor.Tensor {
	half := dim / 2
	out := tensor.New(len(timesteps), dim)
	for b, ts := range timesteps {
		row := out.Row(b)
		for i := 0; i < half; i++ {
			freq := math.Exp(-math.Log(timestepMaxPeriod) * float64(i) / float64(half))
			arg := float64(ts) * freq
			row[i] = float32(math.Cos(arg))
			row[half+i] = float32(math.Sin(arg))
		}
	}
	return out
}
