// Package vocoder builds a UNet-style denoising diffusion vocoder conditioned
// on discrete spectrogram codes and optional reference-audio embeddings.
//
// The graph is constructed in two phases. BuildPlan lays out every block and
// the skip-channel bookkeeping as plain configuration (see Plan); New then
// materializes the plan into layer primitives. Keeping the bookkeeping
// explicit makes the channel arithmetic testable without allocating weights.
//
// The signal flow mirrors the classic diffusion UNet: an input path that
// downsamples while pushing feature maps onto a skip stack, a middle block,
// and an output path that pops and concatenates those maps while upsampling.
// Discrete spectrogram codes are embedded and concatenated onto the signal at
// configured shallow resolutions; self-attention runs at configured deep
// resolutions.
package vocoder

import (
	"fmt"
	"math/rand"

	"github.com/hupe1980/sonigo/layer"
	"github.com/hupe1980/sonigo/tensor"
)

// Option configures optional collaborators of a Vocoder.
type Option func(*config)

type config struct {
	contextual ConditioningEncoder
	queryGen   ConditioningEncoder
}

// WithConditioningEncoder overrides the encoder applied to reference signals.
func WithConditioningEncoder(enc ConditioningEncoder) Option {
	return func(c *config) {
		c.contextual = enc
	}
}

// WithQueryEncoder overrides the encoder that derives the combiner query from
// the noisy input.
func WithQueryEncoder(enc ConditioningEncoder) Option {
	return func(c *config) {
		c.queryGen = enc
	}
}

// Vocoder is the assembled diffusion vocoder graph.
type Vocoder struct {
	opts Options
	plan *Plan

	timeEmbed *layer.Sequential

	contextual ConditioningEncoder
	queryGen   ConditioningEncoder

	input  []pathBlock
	middle *layer.Sequential
	output []pathBlock
	head   *layer.Sequential

	fp16 bool
}

// pathBlock pairs a planned block with its materialized layers. Exactly one
// of seq/code is set.
type pathBlock struct {
	plan BlockPlan
	seq  *layer.Sequential
	code *layer.Embedding
}

// New materializes a vocoder graph from the given options.
func New(opts Options, optFns ...Option) (*Vocoder, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	plan, err := BuildPlan(opts)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	var cfg config
	for _, fn := range optFns {
		fn(&cfg)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	embDim := opts.EmbedDim()

	v := &Vocoder{
		opts: opts,
		plan: plan,
		timeEmbed: layer.NewSequential(
			layer.NewLinear(opts.ModelChannels, embDim, rng),
			layer.SiLU{},
			layer.NewLinear(embDim, embDim, rng),
		),
	}

	if opts.Conditioned {
		v.contextual = cfg.contextual
		if v.contextual == nil {
			v.contextual, err = NewMiniEncoder(MiniEncoderConfig{In: opts.ConditioningDim, Dim: embDim}, rng)
			if err != nil {
				return nil, err
			}
		}
		v.queryGen = cfg.queryGen
		if v.queryGen == nil {
			v.queryGen, err = NewMiniEncoder(MiniEncoderConfig{
				In:     opts.InChannels,
				Dim:    embDim,
				Depth:  6,
				Heads:  2,
				Factor: 4,
				Kernel: 5,
			}, rng)
			if err != nil {
				return nil, err
			}
		}
	}

	for _, bp := range plan.Input {
		blk, err := v.materialize(bp, opts.NumHeads, rng)
		if err != nil {
			return nil, err
		}
		v.input = append(v.input, blk)
	}

	var middle []layer.Layer
	for _, bp := range plan.Middle {
		blk, err := v.materialize(bp, opts.NumHeads, rng)
		if err != nil {
			return nil, err
		}
		middle = append(middle, blk.seq)
	}
	v.middle = layer.NewSequential(middle...)

	for _, bp := range plan.Output {
		blk, err := v.materialize(bp, opts.NumHeadsUpsample, rng)
		if err != nil {
			return nil, err
		}
		v.output = append(v.output, blk)
	}

	v.head = layer.NewSequential(
		layer.NewGroupNorm(plan.OutHeadChannels),
		layer.SiLU{},
		layer.NewConv1D(layer.Conv1DConfig{
			In:       plan.OutHeadChannels,
			Out:      opts.OutChannels,
			Kernel:   opts.KernelSize,
			Padding:  opts.KernelSize / 2,
			ZeroInit: true,
		}, rng),
	)

	return v, nil
}

func (v *Vocoder) materialize(bp BlockPlan, heads int, rng *rand.Rand) (pathBlock, error) {
	o := v.opts
	embDim := o.EmbedDim()

	switch bp.Kind {
	case BlockStem:
		return pathBlock{plan: bp, seq: layer.NewSequential(
			layer.NewConv1D(layer.Conv1DConfig{
				In:      bp.In,
				Out:     bp.Out,
				Kernel:  o.KernelSize,
				Padding: o.KernelSize / 2,
			}, rng),
		)}, nil

	case BlockCodeCond:
		return pathBlock{plan: bp, code: layer.NewEmbedding(o.DiscreteCodes, bp.In, rng)}, nil

	case BlockAttn:
		attn, err := layer.NewAttention(layer.AttentionConfig{
			Channels:     bp.In,
			NumHeads:     heads,
			HeadChannels: o.NumHeadChannels,
		}, rng)
		if err != nil {
			return pathBlock{}, err
		}
		return pathBlock{plan: bp, seq: layer.NewSequential(attn)}, nil

	case BlockDown:
		var l layer.Layer
		if o.ResBlockUpDown {
			l = layer.NewResBlock(layer.ResBlockConfig{
				Channels:       bp.In,
				EmbDim:         embDim,
				Dropout:        o.Dropout,
				Out:            bp.Out,
				ScaleShiftNorm: o.ScaleShiftNorm,
				Down:           true,
				Kernel:         o.KernelSize,
				Factor:         o.ScaleFactor,
			}, rng)
		} else {
			l = layer.NewDownsample(layer.ResampleConfig{
				Channels: bp.In,
				Out:      bp.Out,
				Conv:     o.ConvResample,
				Factor:   o.ScaleFactor,
				Kernel:   o.KernelSize,
			}, rng)
		}
		return pathBlock{plan: bp, seq: layer.NewSequential(l)}, nil

	case BlockRes:
		layers := []layer.Layer{
			layer.NewResBlock(layer.ResBlockConfig{
				Channels:       bp.In,
				EmbDim:         embDim,
				Dropout:        o.Dropout,
				Out:            bp.Out,
				ScaleShiftNorm: o.ScaleShiftNorm,
				Kernel:         o.KernelSize,
			}, rng),
		}
		if bp.Attention {
			attn, err := layer.NewAttention(layer.AttentionConfig{
				Channels:     bp.Out,
				NumHeads:     heads,
				HeadChannels: o.NumHeadChannels,
			}, rng)
			if err != nil {
				return pathBlock{}, err
			}
			layers = append(layers, attn)
		}
		if bp.Upsample {
			if o.ResBlockUpDown {
				layers = append(layers, layer.NewResBlock(layer.ResBlockConfig{
					Channels:       bp.Out,
					EmbDim:         embDim,
					Dropout:        o.Dropout,
					ScaleShiftNorm: o.ScaleShiftNorm,
					Up:             true,
					Kernel:         o.KernelSize,
					Factor:         o.ScaleFactor,
				}, rng))
			} else {
				layers = append(layers, layer.NewUpsample(layer.ResampleConfig{
					Channels: bp.Out,
					Conv:     o.ConvResample,
					Factor:   o.ScaleFactor,
					Kernel:   o.KernelSize,
				}, rng))
			}
		}
		return pathBlock{plan: bp, seq: layer.NewSequential(layers...)}, nil

	default:
		return pathBlock{}, fmt.Errorf("vocoder: unknown block kind %v", bp.Kind)
	}
}

// Plan returns the channel bookkeeping the graph was built from.
func (v *Vocoder) Plan() *Plan { return v.plan }

// Options returns the normalized options the graph was built from.
func (v *Vocoder) Options() Options { return v.opts }

// TotalStride returns the temporal granularity Forward inputs must align to.
func (v *Vocoder) TotalStride() int { return v.plan.TotalStride }

// FP16 reports whether the torso weights are in float16 storage.
func (v *Vocoder) FP16() bool { return v.fp16 }

// ConvertToFP16 converts the torso (input, middle and output paths) to
// float16 weight storage. The time embedding and output head stay float32.
func (v *Vocoder) ConvertToFP16() {
	v.convertTorso(true)
	v.fp16 = true
}

// ConvertToFP32 converts the torso back to float32 weight storage.
func (v *Vocoder) ConvertToFP32() {
	v.convertTorso(false)
	v.fp16 = false
}

func (v *Vocoder) convertTorso(f16 bool) {
	apply := func(p layer.Precision) {
		if f16 {
			p.ToFP16()
		} else {
			p.ToFP32()
		}
	}
	for _, blk := range v.input {
		if blk.code != nil {
			apply(blk.code)
		} else {
			apply(blk.seq)
		}
	}
	apply(v.middle)
	for _, blk := range v.output {
		apply(blk.seq)
	}
}

// Forward applies the model to a batch.
//
// x is the noisy signal [B,InChannels,T]; T must be a multiple of
// TotalStride. timesteps holds one diffusion timestep per batch element.
// codes is the discrete spectrogram code grid [B,N] with N <= T. cond holds
// reference conditioning signals [B,S,ConditioningDim,Tc] and is required
// iff the model was built with Conditioned.
//
// The result has shape [B,OutChannels,T].
func (v *Vocoder) Forward(x *tensor.Tensor, timesteps []int64, codes *tensor.Int, cond *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() != 3 || x.Dim(1) != v.opts.InChannels {
		return nil, &tensor.ErrShapeMismatch{Op: "vocoder.Forward", Want: []int{-1, v.opts.InChannels, -1}, Got: x.Shape()}
	}
	if x.Dim(2)%v.plan.TotalStride != 0 {
		return nil, &ErrStrideMismatch{Length: x.Dim(2), Stride: v.plan.TotalStride}
	}
	if len(timesteps) != x.Dim(0) {
		return nil, fmt.Errorf("vocoder: %d timesteps for batch of %d", len(timesteps), x.Dim(0))
	}

	emb, err := v.buildEmbedding(x, timesteps, cond)
	if err != nil {
		return nil, err
	}

	var hs []*tensor.Tensor
	h := x
	for _, blk := range v.input {
		if blk.code != nil {
			if h, err = v.applyCodeCond(blk, h, codes); err != nil {
				return nil, err
			}
			continue
		}
		if h, err = blk.seq.Apply(h, emb); err != nil {
			return nil, err
		}
		hs = append(hs, h)
	}

	if h, err = v.middle.Apply(h, emb); err != nil {
		return nil, err
	}

	for _, blk := range v.output {
		skip := hs[len(hs)-1]
		hs = hs[:len(hs)-1]
		if h, err = tensor.ConcatChannels(h, skip); err != nil {
			return nil, err
		}
		if h, err = blk.seq.Apply(h, emb); err != nil {
			return nil, err
		}
	}

	return v.head.Apply(h, emb)
}

func (v *Vocoder) buildEmbedding(x *tensor.Tensor, timesteps []int64, cond *tensor.Tensor) (*tensor.Tensor, error) {
	emb1, err := v.timeEmbed.Apply(TimestepEmbedding(timesteps, v.opts.ModelChannels), nil)
	if err != nil {
		return nil, err
	}
	if !v.opts.Conditioned {
		return emb1, nil
	}
	if cond == nil {
		return nil, ErrConditioningRequired
	}
	if cond.Rank() != 4 || cond.Dim(0) != x.Dim(0) || cond.Dim(2) != v.opts.ConditioningDim {
		return nil, &tensor.ErrShapeMismatch{
			Op:   "vocoder.Forward(cond)",
			Want: []int{x.Dim(0), -1, v.opts.ConditioningDim, -1},
			Got:  cond.Shape(),
		}
	}

	embs := []*tensor.Tensor{emb1}
	for s := 0; s < cond.Dim(1); s++ {
		e, err := v.contextual.Encode(condSignal(cond, s))
		if err != nil {
			return nil, err
		}
		embs = append(embs, e)
	}
	query, err := v.queryGen.Encode(x)
	if err != nil {
		return nil, err
	}
	return combineEmbeddings(embs, query), nil
}

func (v *Vocoder) applyCodeCond(blk pathBlock, h *tensor.Tensor, codes *tensor.Int) (*tensor.Tensor, error) {
	if codes == nil {
		return nil, fmt.Errorf("vocoder: discrete spectrogram codes required but absent")
	}
	if codes.Dim(1) > h.Dim(2) {
		return nil, &ErrCodesTooLong{Codes: codes.Dim(1), Signal: h.Dim(2)}
	}
	emb, err := blk.code.Lookup(codes)
	if err != nil {
		return nil, err
	}
	return tensor.ConcatChannels(h, layer.InterpolateNearest(emb, h.Dim(2)))
}

// condSignal extracts reference signal s from a [B,S,C,T] tensor as [B,C,T].
func condSignal(cond *tensor.Tensor, s int) *tensor.Tensor {
	batch, S, C, T := cond.Dim(0), cond.Dim(1), cond.Dim(2), cond.Dim(3)
	data := cond.Data()
	out := tensor.New(batch, C, T)
	for b := 0; b < batch; b++ {
		for c := 0; c < C; c++ {
			off := ((b*S+s)*C + c) * T
			copy(out.Channel(b, c), data[off:off+T])
		}
	}
	return out
}
