// Package tensor provides the minimal dense tensor types the layer backend
// operates on.
//
// Tensors are row-major float32 by design; float16 exists purely as a storage
// format for layer weights (see Quantize/Dequantize). Signals follow the
// [batch, channels, time] layout convention throughout the module.
package tensor

import (
	"fmt"
	"slices"

	"github.com/hupe1980/sonigo/internal/f16"
)

// DType identifies the storage format of a Tensor.
type DType int

const (
	// F32 stores values as float32. All execution happens in this format.
	F32 DType = iota
	// F16 stores values as IEEE-754 binary16. Storage only; values are
	// decoded to float32 before use.
	F16
)

func (d DType) String() string {
	switch d {
	case F32:
		return "f32"
	case F16:
		return "f16"
	default:
		return fmt.Sprintf("DType(%d)", int(d))
	}
}

// ErrShapeMismatch indicates an operation over tensors with incompatible shapes.
type ErrShapeMismatch struct {
	Op   string
	Want []int
	Got  []int
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("%s: shape mismatch: want %v, got %v", e.Op, e.Want, e.Got)
}

// Tensor is a dense row-major tensor.
type Tensor struct {
	shape []int
	f32   []float32
	f16   []f16.Bits
	dtype DType
}

// New creates a zero-filled float32 tensor with the given shape.
// Panics if any dimension is non-positive.
func New(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("tensor: non-positive dimension in shape %v", shape))
		}
		n *= d
	}
	return &Tensor{
		shape: slices.Clone(shape),
		f32:   make([]float32, n),
		dtype: F32,
	}
}

// FromSlice creates a float32 tensor that takes ownership of data.
// len(data) must equal the product of shape.
func FromSlice(data []float32, shape ...int) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if len(data) != n {
		return nil, &ErrShapeMismatch{Op: "tensor.FromSlice", Want: shape, Got: []int{len(data)}}
	}
	return &Tensor{
		shape: slices.Clone(shape),
		f32:   data,
		dtype: F32,
	}, nil
}

// MustFromSlice is FromSlice for static shapes; it panics on length mismatch.
func MustFromSlice(data []float32, shape ...int) *Tensor {
	t, err := FromSlice(data, shape...)
	if err != nil {
		panic(err)
	}
	return t
}

// Shape returns the tensor shape. The returned slice must not be mutated.
func (t *Tensor) Shape() []int { return t.shape }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Len returns the total number of elements.
func (t *Tensor) Len() int {
	n := 1
	for _, d := range t.shape {
		n *= d
	}
	return n
}

// DType returns the storage format.
func (t *Tensor) DType() DType { return t.dtype }

// Data returns the float32 backing slice. For F16 tensors the data is decoded
// into a freshly allocated slice; mutations are then not reflected in storage.
func (t *Tensor) Data() []float32 {
	if t.dtype == F16 {
		return f16.Decode(make([]float32, 0, len(t.f16)), t.f16)
	}
	return t.f32
}

// Channel returns a mutable view of one channel of a [B,C,T] tensor.
// Only valid for rank-3 float32 tensors.
func (t *Tensor) Channel(b, c int) []float32 {
	if len(t.shape) != 3 {
		panic(fmt.Sprintf("tensor: Channel on rank-%d tensor", len(t.shape)))
	}
	T := t.shape[2]
	off := (b*t.shape[1] + c) * T
	return t.f32[off : off+T]
}

// Row returns a mutable view of one row of a [B,D] tensor.
// Only valid for rank-2 float32 tensors.
func (t *Tensor) Row(b int) []float32 {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("tensor: Row on rank-%d tensor", len(t.shape)))
	}
	d := t.shape[1]
	return t.f32[b*d : (b+1)*d]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		shape: slices.Clone(t.shape),
		f32:   slices.Clone(t.f32),
		f16:   slices.Clone(t.f16),
		dtype: t.dtype,
	}
}

// Reshape returns a tensor sharing storage with t but using the new shape.
// The element count must match.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != t.Len() {
		return nil, &ErrShapeMismatch{Op: "tensor.Reshape", Want: t.shape, Got: shape}
	}
	return &Tensor{shape: slices.Clone(shape), f32: t.f32, f16: t.f16, dtype: t.dtype}, nil
}

// Quantize converts storage to float16 in place. No-op for F16 tensors.
func (t *Tensor) Quantize() {
	if t.dtype == F16 {
		return
	}
	t.f16 = f16.Encode(t.f16[:0], t.f32)
	t.f32 = nil
	t.dtype = F16
}

// Dequantize converts storage back to float32 in place. No-op for F32 tensors.
func (t *Tensor) Dequantize() {
	if t.dtype == F32 {
		return
	}
	t.f32 = f16.Decode(t.f32[:0], t.f16)
	t.f16 = nil
	t.dtype = F32
}

// ConcatChannels concatenates two [B,C,T] tensors along the channel dimension.
// Batch and time dimensions must match.
func ConcatChannels(a, b *Tensor) (*Tensor, error) {
	if a.Rank() != 3 || b.Rank() != 3 {
		return nil, &ErrShapeMismatch{Op: "tensor.ConcatChannels", Want: a.shape, Got: b.shape}
	}
	if a.Dim(0) != b.Dim(0) || a.Dim(2) != b.Dim(2) {
		return nil, &ErrShapeMismatch{Op: "tensor.ConcatChannels", Want: a.shape, Got: b.shape}
	}
	batch, ta := a.Dim(0), a.Dim(2)
	out := New(batch, a.Dim(1)+b.Dim(1), ta)
	for i := 0; i < batch; i++ {
		for c := 0; c < a.Dim(1); c++ {
			copy(out.Channel(i, c), a.Channel(i, c))
		}
		for c := 0; c < b.Dim(1); c++ {
			copy(out.Channel(i, a.Dim(1)+c), b.Channel(i, c))
		}
	}
	return out, nil
}

// Int is a dense row-major tensor of discrete codes.
type Int struct {
	shape []int
	data  []int64
}

// NewInt creates a zero-filled integer tensor with the given shape.
func NewInt(shape ...int) *Int {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("tensor: non-positive dimension in shape %v", shape))
		}
		n *= d
	}
	return &Int{shape: slices.Clone(shape), data: make([]int64, n)}
}

// IntFromSlice creates an integer tensor that takes ownership of data.
func IntFromSlice(data []int64, shape ...int) (*Int, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if len(data) != n {
		return nil, &ErrShapeMismatch{Op: "tensor.IntFromSlice", Want: shape, Got: []int{len(data)}}
	}
	return &Int{shape: slices.Clone(shape), data: data}, nil
}

// Shape returns the tensor shape. The returned slice must not be mutated.
func (t *Int) Shape() []int { return t.shape }

// Dim returns the size of dimension i.
func (t *Int) Dim(i int) int { return t.shape[i] }

// Row returns one row of a [B,N] code grid.
func (t *Int) Row(b int) []int64 {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("tensor: Row on rank-%d int tensor", len(t.shape)))
	}
	n := t.shape[1]
	return t.data[b*n : (b+1)*n]
}
