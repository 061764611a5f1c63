package layer

import (
	"math/rand"

	"github.com/hupe1980/sonigo/internal/math32"
	"github.com/hupe1980/sonigo/tensor"
)

// Conv1DConfig configures a 1D convolution.
type Conv1DConfig struct {
	In      int // input channels
	Out     int // output channels
	Kernel  int // kernel size
	Stride  int // defaults to 1
	Padding int // symmetric zero padding

	// ZeroInit zero-fills the weights. Used for output heads and residual
	// projections so freshly built blocks start as identities.
	ZeroInit bool
}

// Conv1D is a 1D convolution over [B,C,T] signals.
type Conv1D struct {
	cfg    Conv1DConfig
	weight *tensor.Tensor // [Out, In, Kernel]
	bias   *tensor.Tensor // [Out]
}

var _ Layer = (*Conv1D)(nil)
var _ Precision = (*Conv1D)(nil)

// NewConv1D creates a 1D convolution with gaussian-initialized weights.
func NewConv1D(cfg Conv1DConfig, rng *rand.Rand) *Conv1D {
	if cfg.Stride <= 0 {
		cfg.Stride = 1
	}
	c := &Conv1D{
		cfg:    cfg,
		weight: tensor.New(cfg.Out, cfg.In, cfg.Kernel),
		bias:   tensor.New(cfg.Out),
	}
	if !cfg.ZeroInit {
		initWeights(rng, c.weight.Data(), cfg.In*cfg.Kernel)
	}
	return c
}

// OutLen returns the output temporal length for an input of length t.
func (c *Conv1D) OutLen(t int) int {
	return (t+2*c.cfg.Padding-c.cfg.Kernel)/c.cfg.Stride + 1
}

// Apply implements Layer.
func (c *Conv1D) Apply(x, _ *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() != 3 || x.Dim(1) != c.cfg.In {
		return nil, &tensor.ErrShapeMismatch{Op: "layer.Conv1D", Want: []int{-1, c.cfg.In, -1}, Got: x.Shape()}
	}
	batch, T := x.Dim(0), x.Dim(2)
	to := c.OutLen(T)
	if to <= 0 {
		return nil, &tensor.ErrShapeMismatch{Op: "layer.Conv1D", Want: []int{-1, c.cfg.In, c.cfg.Kernel}, Got: x.Shape()}
	}

	wd := c.weight.Data()
	bd := c.bias.Data()
	out := tensor.New(batch, c.cfg.Out, to)
	for b := 0; b < batch; b++ {
		for co := 0; co < c.cfg.Out; co++ {
			dst := out.Channel(b, co)
			for ci := 0; ci < c.cfg.In; ci++ {
				src := x.Channel(b, ci)
				w := wd[((co*c.cfg.In)+ci)*c.cfg.Kernel : ((co*c.cfg.In)+ci+1)*c.cfg.Kernel]
				for ti := 0; ti < to; ti++ {
					start := ti*c.cfg.Stride - c.cfg.Padding
					var acc float32
					for k := 0; k < c.cfg.Kernel; k++ {
						p := start + k
						if p < 0 || p >= T {
							continue
						}
						acc += w[k] * src[p]
					}
					dst[ti] += acc
				}
			}
			for ti := range dst {
				dst[ti] += bd[co]
			}
		}
	}
	return out, nil
}

// ToFP16 implements Precision.
func (c *Conv1D) ToFP16() {
	c.weight.Quantize()
	c.bias.Quantize()
}

// ToFP32 implements Precision.
func (c *Conv1D) ToFP32() {
	c.weight.Dequantize()
	c.bias.Dequantize()
}

// Linear is a dense layer over [B,D] tensors.
type Linear struct {
	in, out int
	weight  *tensor.Tensor // [Out, In]
	bias    *tensor.Tensor // [Out]
}

var _ Layer = (*Linear)(nil)
var _ Precision = (*Linear)(nil)

// NewLinear creates a dense layer with gaussian-initialized weights.
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		in:     in,
		out:    out,
		weight: tensor.New(out, in),
		bias:   tensor.New(out),
	}
	initWeights(rng, l.weight.Data(), in)
	return l
}

// Apply implements Layer.
func (l *Linear) Apply(x, _ *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() != 2 || x.Dim(1) != l.in {
		return nil, &tensor.ErrShapeMismatch{Op: "layer.Linear", Want: []int{-1, l.in}, Got: x.Shape()}
	}
	batch := x.Dim(0)
	wd := l.weight.Data()
	bd := l.bias.Data()
	out := tensor.New(batch, l.out)
	for b := 0; b < batch; b++ {
		src := x.Row(b)
		dst := out.Row(b)
		for o := 0; o < l.out; o++ {
			dst[o] = math32.Dot(wd[o*l.in:(o+1)*l.in], src) + bd[o]
		}
	}
	return out, nil
}

// ToFP16 implements Precision.
func (l *Linear) ToFP16() {
	l.weight.Quantize()
	l.bias.Quantize()
}

// ToFP32 implements Precision.
func (l *Linear) ToFP32() {
	l.weight.Dequantize()
	l.bias.Dequantize()
}
