package layer

import (
	"fmt"
	"math/rand"

	"github.com/hupe1980/sonigo/internal/math32"
	"github.com/hupe1980/sonigo/tensor"
)

// AttentionConfig configures a self-attention block.
type AttentionConfig struct {
	Channels int
	// NumHeads is the attention head count. Defaults to 1.
	NumHeads int
	// HeadChannels, when positive, overrides NumHeads with a fixed channel
	// width per head.
	HeadChannels int
}

// AttentionBlock applies multi-head QKV self-attention over the temporal
// dimension of a [B,C,T] signal, with a residual connection.
type AttentionBlock struct {
	channels int
	heads    int
	norm     *GroupNorm
	qkv      *Conv1D // [B,C,T] -> [B,3C,T], q|k|v channel layout
	proj     *Conv1D // zero-init output projection
}

var _ Layer = (*AttentionBlock)(nil)
var _ Precision = (*AttentionBlock)(nil)

// NewAttention creates an attention block. The channel count must be
// divisible by the head count.
func NewAttention(cfg AttentionConfig, rng *rand.Rand) (*AttentionBlock, error) {
	heads := cfg.NumHeads
	if heads <= 0 {
		heads = 1
	}
	if cfg.HeadChannels > 0 {
		if cfg.Channels%cfg.HeadChannels != 0 {
			return nil, fmt.Errorf("layer: channels %d not divisible by head channels %d", cfg.Channels, cfg.HeadChannels)
		}
		heads = cfg.Channels / cfg.HeadChannels
	}
	if cfg.Channels%heads != 0 {
		return nil, fmt.Errorf("layer: channels %d not divisible by %d heads", cfg.Channels, heads)
	}
	return &AttentionBlock{
		channels: cfg.Channels,
		heads:    heads,
		norm:     NewGroupNorm(cfg.Channels),
		qkv:      NewConv1D(Conv1DConfig{In: cfg.Channels, Out: 3 * cfg.Channels, Kernel: 1}, rng),
		proj:     NewConv1D(Conv1DConfig{In: cfg.Channels, Out: cfg.Channels, Kernel: 1, ZeroInit: true}, rng),
	}, nil
}

// Heads returns the effective head count.
func (a *AttentionBlock) Heads() int { return a.heads }

// Apply implements Layer.
func (a *AttentionBlock) Apply(x, _ *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() != 3 || x.Dim(1) != a.channels {
		return nil, &tensor.ErrShapeMismatch{Op: "layer.AttentionBlock", Want: []int{-1, a.channels, -1}, Got: x.Shape()}
	}
	batch, T := x.Dim(0), x.Dim(2)

	h, err := a.norm.Apply(x, nil)
	if err != nil {
		return nil, err
	}
	qkv, err := a.qkv.Apply(h, nil)
	if err != nil {
		return nil, err
	}

	hc := a.channels / a.heads
	scale := 1 / math32.Sqrt(float32(hc))
	attn := tensor.New(batch, a.channels, T)
	scores := make([]float32, T)
	for b := 0; b < batch; b++ {
		for head := 0; head < a.heads; head++ {
			base := head * hc
			q := make([][]float32, hc)
			k := make([][]float32, hc)
			v := make([][]float32, hc)
			for c := 0; c < hc; c++ {
				q[c] = qkv.Channel(b, base+c)
				k[c] = qkv.Channel(b, a.channels+base+c)
				v[c] = qkv.Channel(b, 2*a.channels+base+c)
			}
			for t1 := 0; t1 < T; t1++ {
				for t2 := 0; t2 < T; t2++ {
					var dot float32
					for c := 0; c < hc; c++ {
						dot += q[c][t1] * k[c][t2]
					}
					scores[t2] = dot * scale
				}
				math32.SoftmaxInPlace(scores)
				for c := 0; c < hc; c++ {
					attn.Channel(b, base+c)[t1] = math32.Dot(scores, v[c])
				}
			}
		}
	}

	out, err := a.proj.Apply(attn, nil)
	if err != nil {
		return nil, err
	}
	res := x.Clone()
	math32.AddInPlace(res.Data(), out.Data())
	return res, nil
}

// ToFP16 implements Precision.
func (a *AttentionBlock) ToFP16() {
	a.norm.ToFP16()
	a.qkv.ToFP16()
	a.proj.ToFP16()
}

// ToFP32 implements Precision.
func (a *AttentionBlock) ToFP32() {
	a.norm.ToFP32()
	a.qkv.ToFP32()
	a.proj.ToFP32()
}
