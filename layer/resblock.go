package layer

import (
	"math/rand"

	"github.com/hupe1980/sonigo/internal/math32"
	"github.com/hupe1980/sonigo/tensor"
)

// ResBlockConfig configures a residual block.
type ResBlockConfig struct {
	Channels int
	// EmbDim is the conditioning embedding width. Zero disables the
	// embedding path (used by encoder-only stacks).
	EmbDim  int
	Dropout float32
	// Out is the output channel count. Zero keeps Channels.
	Out int
	// ScaleShiftNorm selects FiLM-style conditioning: the embedding
	// projection is split into a scale and a shift applied around the
	// output normalization instead of being added to the signal.
	ScaleShiftNorm bool
	// Up / Down resample the signal (and the residual path) by Factor.
	Up, Down bool
	Kernel   int // defaults to 3
	Factor   int // defaults to 2
}

// ResBlock is a residual block with optional embedding conditioning and
// optional built-in temporal resampling.
type ResBlock struct {
	cfg ResBlockConfig

	inNorm *GroupNorm
	inConv *Conv1D

	embLinear *Linear // nil when EmbDim == 0

	outNorm *GroupNorm
	dropout Dropout
	outConv *Conv1D // zero-init

	skip *Conv1D // nil when channel counts match

	hResample Layer // nil unless Up or Down
	xResample Layer
}

var _ Layer = (*ResBlock)(nil)
var _ Precision = (*ResBlock)(nil)

// NewResBlock creates a residual block.
func NewResBlock(cfg ResBlockConfig, rng *rand.Rand) *ResBlock {
	if cfg.Out <= 0 {
		cfg.Out = cfg.Channels
	}
	if cfg.Kernel <= 0 {
		cfg.Kernel = 3
	}
	if cfg.Factor <= 0 {
		cfg.Factor = 2
	}
	pad := cfg.Kernel / 2

	r := &ResBlock{
		cfg:     cfg,
		inNorm:  NewGroupNorm(cfg.Channels),
		inConv:  NewConv1D(Conv1DConfig{In: cfg.Channels, Out: cfg.Out, Kernel: cfg.Kernel, Padding: pad}, rng),
		outNorm: NewGroupNorm(cfg.Out),
		dropout: Dropout{Rate: cfg.Dropout},
		outConv: NewConv1D(Conv1DConfig{In: cfg.Out, Out: cfg.Out, Kernel: cfg.Kernel, Padding: pad, ZeroInit: true}, rng),
	}
	if cfg.EmbDim > 0 {
		embOut := cfg.Out
		if cfg.ScaleShiftNorm {
			embOut *= 2
		}
		r.embLinear = NewLinear(cfg.EmbDim, embOut, rng)
	}
	switch {
	case cfg.Up:
		r.hResample = NewUpsample(ResampleConfig{Channels: cfg.Channels, Factor: cfg.Factor}, rng)
		r.xResample = NewUpsample(ResampleConfig{Channels: cfg.Channels, Factor: cfg.Factor}, rng)
	case cfg.Down:
		r.hResample = NewDownsample(ResampleConfig{Channels: cfg.Channels, Factor: cfg.Factor}, rng)
		r.xResample = NewDownsample(ResampleConfig{Channels: cfg.Channels, Factor: cfg.Factor}, rng)
	}
	if cfg.Out != cfg.Channels {
		r.skip = NewConv1D(Conv1DConfig{In: cfg.Channels, Out: cfg.Out, Kernel: 1}, rng)
	}
	return r
}

// OutChannels returns the block's output channel count.
func (r *ResBlock) OutChannels() int { return r.cfg.Out }

// Apply implements Layer.
func (r *ResBlock) Apply(x, emb *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() != 3 || x.Dim(1) != r.cfg.Channels {
		return nil, &tensor.ErrShapeMismatch{Op: "layer.ResBlock", Want: []int{-1, r.cfg.Channels, -1}, Got: x.Shape()}
	}

	h, err := r.inNorm.Apply(x, nil)
	if err != nil {
		return nil, err
	}
	math32.SiLUInPlace(h.Data())

	res := x
	if r.hResample != nil {
		if h, err = r.hResample.Apply(h, nil); err != nil {
			return nil, err
		}
		if res, err = r.xResample.Apply(x, nil); err != nil {
			return nil, err
		}
	}
	if h, err = r.inConv.Apply(h, nil); err != nil {
		return nil, err
	}

	var scale, shift *tensor.Tensor
	if r.embLinear != nil {
		if emb == nil {
			return nil, &tensor.ErrShapeMismatch{Op: "layer.ResBlock(emb)", Want: []int{-1, r.cfg.EmbDim}, Got: nil}
		}
		e := emb.Clone()
		math32.SiLUInPlace(e.Data())
		proj, err := r.embLinear.Apply(e, nil)
		if err != nil {
			return nil, err
		}
		if r.cfg.ScaleShiftNorm {
			scale, shift = splitEmb(proj, r.cfg.Out)
		} else {
			// Broadcast-add over the temporal dimension.
			for b := 0; b < h.Dim(0); b++ {
				row := proj.Row(b)
				for c := 0; c < r.cfg.Out; c++ {
					ch := h.Channel(b, c)
					for t := range ch {
						ch[t] += row[c]
					}
				}
			}
		}
	}

	if h, err = r.outNorm.applyScaleShift(h, scale, shift); err != nil {
		return nil, err
	}
	math32.SiLUInPlace(h.Data())
	if h, err = r.dropout.Apply(h, nil); err != nil {
		return nil, err
	}
	if h, err = r.outConv.Apply(h, nil); err != nil {
		return nil, err
	}

	if r.skip != nil {
		if res, err = r.skip.Apply(res, nil); err != nil {
			return nil, err
		}
	} else if res == x {
		res = x.Clone()
	}
	math32.AddInPlace(res.Data(), h.Data())
	return res, nil
}

// splitEmb splits a [B,2C] projection into scale and shift halves ([B,C] each).
func splitEmb(proj *tensor.Tensor, c int) (scale, shift *tensor.Tensor) {
	batch := proj.Dim(0)
	scale = tensor.New(batch, c)
	shift = tensor.New(batch, c)
	for b := 0; b < batch; b++ {
		row := proj.Row(b)
		copy(scale.Row(b), row[:c])
		copy(shift.Row(b), row[c:])
	}
	return scale, shift
}

// ToFP16 implements Precision.
func (r *ResBlock) ToFP16() { r.convertPrecision(true) }

// ToFP32 implements Precision.
func (r *ResBlock) ToFP32() { r.convertPrecision(false) }

func (r *ResBlock) convertPrecision(f16 bool) {
	for _, p := range []Precision{r.inNorm, r.inConv, r.outNorm, r.outConv} {
		if f16 {
			p.ToFP16()
		} else {
			p.ToFP32()
		}
	}
	var optional []Precision
	if r.embLinear != nil {
		optional = append(optional, r.embLinear)
	}
	if r.skip != nil {
		optional = append(optional, r.skip)
	}
	if r.hResample != nil {
		optional = append(optional, r.hResample.(Precision), r.xResample.(Precision))
	}
	for _, p := range optional {
		if f16 {
			p.ToFP16()
		} else {
			p.ToFP32()
		}
	}
}
