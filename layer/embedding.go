package layer

import (
	"fmt"
	"math/rand"

	"github.com/hupe1980/sonigo/tensor"
)

// Embedding is a lookup table mapping discrete codes to dense channel vectors.
type Embedding struct {
	num   int
	dim   int
	table *tensor.Tensor // [num, dim]
}

var _ Precision = (*Embedding)(nil)

// NewEmbedding creates an embedding table for num codes of width dim.
func NewEmbedding(num, dim int, rng *rand.Rand) *Embedding {
	e := &Embedding{
		num:   num,
		dim:   dim,
		table: tensor.New(num, dim),
	}
	initWeights(rng, e.table.Data(), dim)
	return e
}

// Dim returns the embedding width.
func (e *Embedding) Dim() int { return e.dim }

// Lookup embeds a [B,N] code grid into a channels-first [B,dim,N] tensor.
// Codes must lie in [0, num).
func (e *Embedding) Lookup(codes *tensor.Int) (*tensor.Tensor, error) {
	if len(codes.Shape()) != 2 {
		return nil, &tensor.ErrShapeMismatch{Op: "layer.Embedding", Want: []int{-1, -1}, Got: codes.Shape()}
	}
	batch, n := codes.Dim(0), codes.Dim(1)
	td := e.table.Data()
	out := tensor.New(batch, e.dim, n)
	for b := 0; b < batch; b++ {
		row := codes.Row(b)
		for i, code := range row {
			if code < 0 || code >= int64(e.num) {
				return nil, fmt.Errorf("layer: code %d out of range [0,%d)", code, e.num)
			}
			vec := td[int(code)*e.dim : (int(code)+1)*e.dim]
			for c := 0; c < e.dim; c++ {
				out.Channel(b, c)[i] = vec[c]
			}
		}
	}
	return out, nil
}

// ToFP16 implements Precision.
func (e *Embedding) ToFP16() { e.table.Quantize() }

// ToFP32 implements Precision.
func (e *Embedding) ToFP32() { e.table.Dequantize() }
