package vocoder

import (
	"math/rand"

	"github.com/hupe1980/sonigo/internal/math32"
	"github.com/hupe1980/sonigo/layer"
	"github.com/hupe1980/sonigo/tensor"
)

// ConditioningEncoder maps a reference signal [B,C,T] to one embedding row
// per batch element ([B,D]). The production encoder is trained elsewhere;
// MiniEncoder below is the built-in reference implementation.
type ConditioningEncoder interface {
	Encode(x *tensor.Tensor) (*tensor.Tensor, error)
}

// MiniEncoderConfig configures the built-in reference encoder.
type MiniEncoderConfig struct {
	// In is the input channel count (mel bands, or raw signal channels).
	In int
	// Dim is the output embedding width.
	Dim int
	// BaseChannels is the stem width. Defaults to 16.
	BaseChannels int
	// Depth is the number of downsampling stages. Defaults to 4.
	Depth int
	// ResBlocks is the residual block count per stage. Defaults to 1.
	ResBlocks int
	// AttnBlocks is the attention block count after the stages. Defaults to 1.
	AttnBlocks int
	// Heads is the attention head count. Defaults to 2.
	Heads int
	// Factor is the per-stage downsampling factor. Defaults to 2.
	Factor int
	// Kernel is the convolution kernel size. Defaults to 3.
	Kernel int
}

func (c *MiniEncoderConfig) normalize() {
	if c.BaseChannels <= 0 {
		c.BaseChannels = 16
	}
	if c.Depth <= 0 {
		c.Depth = 4
	}
	if c.ResBlocks <= 0 {
		c.ResBlocks = 1
	}
	if c.AttnBlocks <= 0 {
		c.AttnBlocks = 1
	}
	if c.Heads <= 0 {
		c.Heads = 2
	}
	if c.Factor <= 0 {
		c.Factor = 2
	}
	if c.Kernel <= 0 {
		c.Kernel = 3
	}
}

// MiniEncoder is a small convolutional encoder: a strided conv pyramid with
// residual blocks, a few attention blocks, and a pooled linear head. It
// doubles as the query generator for the embedding combiner.
type MiniEncoder struct {
	cfg   MiniEncoderConfig
	torso *layer.Sequential
	head  *layer.Linear
	outCh int
}

var _ ConditioningEncoder = (*MiniEncoder)(nil)

// NewMiniEncoder creates a reference conditioning encoder.
func NewMiniEncoder(cfg MiniEncoderConfig, rng *rand.Rand) (*MiniEncoder, error) {
	cfg.normalize()

	ch := cfg.BaseChannels
	layers := []layer.Layer{
		layer.NewConv1D(layer.Conv1DConfig{In: cfg.In, Out: ch, Kernel: cfg.Kernel, Padding: cfg.Kernel / 2}, rng),
	}
	for d := 0; d < cfg.Depth; d++ {
		out := ch * 2
		layers = append(layers, layer.NewDownsample(layer.ResampleConfig{
			Channels: ch,
			Out:      out,
			Conv:     true,
			Factor:   cfg.Factor,
			Kernel:   cfg.Kernel,
		}, rng))
		ch = out
		for r := 0; r < cfg.ResBlocks; r++ {
			layers = append(layers, layer.NewResBlock(layer.ResBlockConfig{Channels: ch, Kernel: cfg.Kernel}, rng))
		}
	}
	for a := 0; a < cfg.AttnBlocks; a++ {
		attn, err := layer.NewAttention(layer.AttentionConfig{Channels: ch, NumHeads: cfg.Heads}, rng)
		if err != nil {
			return nil, err
		}
		layers = append(layers, attn)
	}
	layers = append(layers, layer.NewGroupNorm(ch), layer.SiLU{})

	return &MiniEncoder{
		cfg:   cfg,
		torso: layer.NewSequential(layers...),
		head:  layer.NewLinear(ch, cfg.Dim, rng),
		outCh: ch,
	}, nil
}

// Encode implements ConditioningEncoder.
func (m *MiniEncoder) Encode(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() != 3 || x.Dim(1) != m.cfg.In {
		return nil, &tensor.ErrShapeMismatch{Op: "vocoder.MiniEncoder", Want: []int{-1, m.cfg.In, -1}, Got: x.Shape()}
	}
	h, err := m.torso.Apply(x, nil)
	if err != nil {
		return nil, err
	}

	// Global average pool over time.
	pooled := tensor.New(h.Dim(0), h.Dim(1))
	for b := 0; b < h.Dim(0); b++ {
		row := pooled.Row(b)
		for c := 0; c < h.Dim(1); c++ {
			ch := h.Channel(b, c)
			row[c] = math32.Sum(ch) / float32(len(ch))
		}
	}
	return m.head.Apply(pooled, nil)
}

// combineEmbeddings attends over the candidate embeddings (rows of embs,
// [B,S,D] flattened as S tensors of [B,D]) with a per-batch query vector,
// returning the attention-weighted sum [B,D].
func combineEmbeddings(embs []*tensor.Tensor, query *tensor.Tensor) *tensor.Tensor {
	batch := query.Dim(0)
	dim := query.Dim(1)
	out := tensor.New(batch, dim)
	scale := 1 / math32.Sqrt(float32(dim))
	scores := make([]float32, len(embs))
	for b := 0; b < batch; b++ {
		q := query.Row(b)
		for i, e := range embs {
			scores[i] = math32.Dot(q, e.Row(b)) * scale
		}
		math32.SoftmaxInPlace(scores)
		dst := out.Row(b)
		for i, e := range embs {
			math32.Axpy(dst, e.Row(b), scores[i])
		}
	}
	return out
}
