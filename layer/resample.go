package layer

import (
	"math/rand"

	"github.com/hupe1980/sonigo/tensor"
)

// ResampleConfig configures an Upsample or Downsample layer.
type ResampleConfig struct {
	Channels int
	// Out is the output channel count. Only honored when Conv is set;
	// otherwise the layer is channel-preserving.
	Out int
	// Conv selects a learned convolution instead of plain nearest/average
	// resampling.
	Conv bool
	// Factor is the temporal resampling factor. Defaults to 2.
	Factor int
	// Kernel is the convolution kernel size. Defaults to 3.
	Kernel int
}

func (c *ResampleConfig) normalize() {
	if c.Factor <= 0 {
		c.Factor = 2
	}
	if c.Kernel <= 0 {
		c.Kernel = 3
	}
	if !c.Conv || c.Out <= 0 {
		c.Out = c.Channels
	}
}

// Upsample grows the temporal dimension by Factor using nearest-neighbor
// interpolation, optionally followed by a learned convolution.
type Upsample struct {
	cfg  ResampleConfig
	conv *Conv1D
}

var _ Layer = (*Upsample)(nil)
var _ Precision = (*Upsample)(nil)

// NewUpsample creates an upsampling layer.
func NewUpsample(cfg ResampleConfig, rng *rand.Rand) *Upsample {
	cfg.normalize()
	u := &Upsample{cfg: cfg}
	if cfg.Conv {
		u.conv = NewConv1D(Conv1DConfig{
			In:      cfg.Channels,
			Out:     cfg.Out,
			Kernel:  cfg.Kernel,
			Padding: cfg.Kernel / 2,
		}, rng)
	}
	return u
}

// Apply implements Layer.
func (u *Upsample) Apply(x, emb *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() != 3 || x.Dim(1) != u.cfg.Channels {
		return nil, &tensor.ErrShapeMismatch{Op: "layer.Upsample", Want: []int{-1, u.cfg.Channels, -1}, Got: x.Shape()}
	}
	h := InterpolateNearest(x, x.Dim(2)*u.cfg.Factor)
	if u.conv != nil {
		return u.conv.Apply(h, emb)
	}
	return h, nil
}

// ToFP16 implements Precision.
func (u *Upsample) ToFP16() {
	if u.conv != nil {
		u.conv.ToFP16()
	}
}

// ToFP32 implements Precision.
func (u *Upsample) ToFP32() {
	if u.conv != nil {
		u.conv.ToFP32()
	}
}

// Downsample shrinks the temporal dimension by Factor using a strided
// convolution, or average pooling when Conv is unset.
type Downsample struct {
	cfg  ResampleConfig
	conv *Conv1D
}

var _ Layer = (*Downsample)(nil)
var _ Precision = (*Downsample)(nil)

// NewDownsample creates a downsampling layer.
func NewDownsample(cfg ResampleConfig, rng *rand.Rand) *Downsample {
	cfg.normalize()
	d := &Downsample{cfg: cfg}
	if cfg.Conv {
		d.conv = NewConv1D(Conv1DConfig{
			In:      cfg.Channels,
			Out:     cfg.Out,
			Kernel:  cfg.Kernel,
			Stride:  cfg.Factor,
			Padding: cfg.Kernel / 2,
		}, rng)
	}
	return d
}

// Apply implements Layer.
func (d *Downsample) Apply(x, emb *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() != 3 || x.Dim(1) != d.cfg.Channels {
		return nil, &tensor.ErrShapeMismatch{Op: "layer.Downsample", Want: []int{-1, d.cfg.Channels, -1}, Got: x.Shape()}
	}
	if d.conv != nil {
		return d.conv.Apply(x, emb)
	}

	// Average pooling.
	batch, C, T := x.Dim(0), x.Dim(1), x.Dim(2)
	to := T / d.cfg.Factor
	if to == 0 {
		return nil, &tensor.ErrShapeMismatch{Op: "layer.Downsample", Want: []int{-1, C, d.cfg.Factor}, Got: x.Shape()}
	}
	out := tensor.New(batch, C, to)
	inv := 1 / float32(d.cfg.Factor)
	for b := 0; b < batch; b++ {
		for c := 0; c < C; c++ {
			src := x.Channel(b, c)
			dst := out.Channel(b, c)
			for t := 0; t < to; t++ {
				var acc float32
				for k := 0; k < d.cfg.Factor; k++ {
					acc += src[t*d.cfg.Factor+k]
				}
				dst[t] = acc * inv
			}
		}
	}
	return out, nil
}

// ToFP16 implements Precision.
func (d *Downsample) ToFP16() {
	if d.conv != nil {
		d.conv.ToFP16()
	}
}

// ToFP32 implements Precision.
func (d *Downsample) ToFP32() {
	if d.conv != nil {
		d.conv.ToFP32()
	}
}

// InterpolateNearest resamples a [B,C,T] tensor to temporal length to using
// nearest-neighbor interpolation.
func InterpolateNearest(x *tensor.Tensor, to int) *tensor.Tensor {
	batch, C, T := x.Dim(0), x.Dim(1), x.Dim(2)
	if to == T {
		return x.Clone()
	}
	out := tensor.New(batch, C, to)
	for b := 0; b < batch; b++ {
		for c := 0; c < C; c++ {
			src := x.Channel(b, c)
			dst := out.Channel(b, c)
			for t := 0; t < to; t++ {
				dst[t] = src[t*T/to]
			}
		}
	}
	return out
}
