package layer

import (
	"github.com/hupe1980/sonigo/internal/math32"
	"github.com/hupe1980/sonigo/tensor"
)

const normEps = 1e-5

// GroupNorm normalizes [B,C,T] signals over channel groups, with learned
// per-channel scale and shift.
//
// The group count follows the usual 32-group convention but is clamped to the
// largest divisor of C not exceeding 32, so narrow blocks stay valid.
type GroupNorm struct {
	channels int
	groups   int
	gamma    *tensor.Tensor // [C]
	beta     *tensor.Tensor // [C]
}

var _ Layer = (*GroupNorm)(nil)
var _ Precision = (*GroupNorm)(nil)

// NewGroupNorm creates a group normalization layer over channels.
func NewGroupNorm(channels int) *GroupNorm {
	g := &GroupNorm{
		channels: channels,
		groups:   normGroups(channels),
		gamma:    tensor.New(channels),
		beta:     tensor.New(channels),
	}
	for i := range g.gamma.Data() {
		g.gamma.Data()[i] = 1
	}
	return g
}

// normGroups returns the largest divisor of c that is <= 32.
func normGroups(c int) int {
	for g := min(32, c); g > 1; g-- {
		if c%g == 0 {
			return g
		}
	}
	return 1
}

// Groups returns the effective group count.
func (g *GroupNorm) Groups() int { return g.groups }

// Apply implements Layer.
func (g *GroupNorm) Apply(x, _ *tensor.Tensor) (*tensor.Tensor, error) {
	return g.apply(x, nil, nil)
}

// applyScaleShift normalizes x and then applies (1+scale)*h + shift, the
// FiLM-style conditioning used by scale-shift-norm res blocks. scale and shift
// are per-batch per-channel vectors ([B,C]) and may be nil.
func (g *GroupNorm) applyScaleShift(x, scale, shift *tensor.Tensor) (*tensor.Tensor, error) {
	return g.apply(x, scale, shift)
}

func (g *GroupNorm) apply(x, scale, shift *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() != 3 || x.Dim(1) != g.channels {
		return nil, &tensor.ErrShapeMismatch{Op: "layer.GroupNorm", Want: []int{-1, g.channels, -1}, Got: x.Shape()}
	}
	batch, T := x.Dim(0), x.Dim(2)
	chPerGroup := g.channels / g.groups

	gd := g.gamma.Data()
	bd := g.beta.Data()
	out := x.Clone()
	buf := make([]float32, 0, chPerGroup*T)
	for b := 0; b < batch; b++ {
		for grp := 0; grp < g.groups; grp++ {
			buf = buf[:0]
			for c := grp * chPerGroup; c < (grp+1)*chPerGroup; c++ {
				buf = append(buf, out.Channel(b, c)...)
			}
			mean, variance := math32.MeanVar(buf)
			inv := 1 / math32.Sqrt(variance+normEps)
			for c := grp * chPerGroup; c < (grp+1)*chPerGroup; c++ {
				ch := out.Channel(b, c)
				var sc, sh float32
				if scale != nil {
					sc = scale.Row(b)[c]
				}
				if shift != nil {
					sh = shift.Row(b)[c]
				}
				for i, v := range ch {
					n := (v-mean)*inv*gd[c] + bd[c]
					ch[i] = n*(1+sc) + sh
				}
			}
		}
	}
	return out, nil
}

// ToFP16 implements Precision.
func (g *GroupNorm) ToFP16() {
	g.gamma.Quantize()
	g.beta.Quantize()
}

// ToFP32 implements Precision.
func (g *GroupNorm) ToFP32() {
	g.gamma.Dequantize()
	g.beta.Dequantize()
}
