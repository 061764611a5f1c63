// Package layer provides the neural layer primitives the vocoder graph is
// composed of, behind a small backend-independent interface.
//
// Every primitive implements Layer: it maps a signal tensor (and an optional
// conditioning embedding) to a new tensor. The graph builder in the vocoder
// package only ever talks to this interface, so the reference float32 backend
// implemented here can be swapped for an accelerated one without touching the
// graph construction logic.
//
// Weighted layers support float16 weight storage via the Precision interface.
// Execution always happens in float32; float16 is storage only.
package layer

import (
	"math"
	"math/rand"

	"github.com/hupe1980/sonigo/internal/math32"
	"github.com/hupe1980/sonigo/tensor"
)

// Layer transforms a signal tensor. emb is the conditioning embedding [B,D];
// layers that do not consume an embedding ignore it. Implementations must not
// mutate x.
type Layer interface {
	Apply(x, emb *tensor.Tensor) (*tensor.Tensor, error)
}

// Precision is implemented by layers whose weights can be converted between
// float32 and float16 storage.
type Precision interface {
	// ToFP16 converts weight storage to float16.
	ToFP16()
	// ToFP32 converts weight storage back to float32.
	ToFP32()
}

// Sequential chains layers, passing the same embedding to each.
type Sequential struct {
	layers []Layer
}

var _ Layer = (*Sequential)(nil)
var _ Precision = (*Sequential)(nil)

// NewSequential creates a Sequential from the given layers.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

// Apply runs each layer in order.
func (s *Sequential) Apply(x, emb *tensor.Tensor) (*tensor.Tensor, error) {
	h := x
	for _, l := range s.layers {
		var err error
		h, err = l.Apply(h, emb)
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

// ToFP16 converts all weighted children to float16 storage.
func (s *Sequential) ToFP16() {
	for _, l := range s.layers {
		if p, ok := l.(Precision); ok {
			p.ToFP16()
		}
	}
}

// ToFP32 converts all weighted children back to float32 storage.
func (s *Sequential) ToFP32() {
	for _, l := range s.layers {
		if p, ok := l.(Precision); ok {
			p.ToFP32()
		}
	}
}

// SiLU applies x*sigmoid(x) element-wise.
type SiLU struct{}

var _ Layer = SiLU{}

// Apply implements Layer.
func (SiLU) Apply(x, _ *tensor.Tensor) (*tensor.Tensor, error) {
	out := x.Clone()
	math32.SiLUInPlace(out.Data())
	return out, nil
}

// Dropout is the inference-mode dropout layer: an identity. The rate is kept
// so graph configurations round-trip, but no masking happens outside training.
type Dropout struct {
	Rate float32
}

var _ Layer = Dropout{}

// Apply implements Layer.
func (d Dropout) Apply(x, _ *tensor.Tensor) (*tensor.Tensor, error) {
	return x, nil
}

// initWeights fills w with gaussian values scaled by 1/sqrt(fanIn).
func initWeights(rng *rand.Rand, w []float32, fanIn int) {
	std := 1.0
	if fanIn > 0 {
		std = 1.0 / math.Sqrt(float64(fanIn))
	}
	for i := range w {
		w[i] = float32(rng.NormFloat64() * std)
	}
}
