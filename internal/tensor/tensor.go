// Package tensor holds the in-memory image data model shared by every node.
//
// A Tensor is a dense row-major float32 array with an explicit shape. Two
// shapes carry meaning throughout the repository:
//
//   - Image batch: (batch, height, width, channels), channels last, values
//     nominally in [0,1]. Producers do not guarantee the range.
//   - Mask: (batch, height, width), values in [0,1].
//
// Nodes never mutate their inputs; every operation allocates a fresh tensor.
package tensor

import (
	"fmt"
	"math"
	"math/bits"
)

// Tensor is a dense row-major float32 array.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New allocates a zero-filled tensor of the given shape.
// It panics on a negative dimension or when the element count overflows int.
func New(shape ...int) *Tensor {
	n, err := Size(shape...)
	if err != nil {
		panic("tensor: " + err.Error())
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Tensor{Shape: s, Data: make([]float32, n)}
}

// Size returns the element count of shape.
func Size(shape ...int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d in shape %v", d, shape)
		}
		hi, lo := bits.Mul64(uint64(n), uint64(d))
		if hi != 0 || lo > math.MaxInt {
			return 0, fmt.Errorf("shape %v overflows the element count", shape)
		}
		n = int(lo)
	}
	return n, nil
}

// Full allocates a tensor of the given shape with every element set to v.
func Full(v float32, shape ...int) *Tensor {
	t := New(shape...)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

// FromSlice wraps data as a tensor of the given shape. The slice is not copied.
func FromSlice(data []float32, shape ...int) (*Tensor, error) {
	n, err := Size(shape...)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, n, len(data))
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Tensor{Shape: s, Data: data}, nil
}

// NDim returns the number of dimensions.
func (t *Tensor) NDim() int { return len(t.Shape) }

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.Data) }

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int { return t.Shape[i] }

// Offset converts a full index into a position in Data.
func (t *Tensor) Offset(idx ...int) int {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("tensor: index %v has %d dims, tensor has %d", idx, len(idx), len(t.Shape)))
	}
	off := 0
	for i, v := range idx {
		off = off*t.Shape[i] + v
	}
	return off
}

// At returns the element at idx.
func (t *Tensor) At(idx ...int) float32 { return t.Data[t.Offset(idx...)] }

// Set stores v at idx.
func (t *Tensor) Set(v float32, idx ...int) { t.Data[t.Offset(idx...)] = v }

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := New(t.Shape...)
	copy(c.Data, t.Data)
	return c
}

// Index returns a copy of element i along the first axis, dropping that axis.
func (t *Tensor) Index(i int) (*Tensor, error) {
	if t.NDim() == 0 {
		return nil, fmt.Errorf("cannot index a scalar tensor")
	}
	if i < 0 || i >= t.Shape[0] {
		return nil, fmt.Errorf("index %d out of range for first dimension %d", i, t.Shape[0])
	}
	sub := New(t.Shape[1:]...)
	n := sub.Len()
	copy(sub.Data, t.Data[i*n:(i+1)*n])
	return sub, nil
}

// AllZero reports whether every element is exactly zero.
func (t *Tensor) AllZero() bool {
	for _, v := range t.Data {
		if v != 0 {
			return false
		}
	}
	return true
}

// ImageDims returns (batch, height, width, channels) for a 4-D image batch.
func (t *Tensor) ImageDims() (batch, height, width, channels int, err error) {
	if t.NDim() != 4 {
		return 0, 0, 0, 0, fmt.Errorf("image batch must be 4-D (B, H, W, C), got shape %v", t.Shape)
	}
	return t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3], nil
}

// MaskDims returns (batch, height, width) for a 3-D mask.
func (t *Tensor) MaskDims() (batch, height, width int, err error) {
	if t.NDim() != 3 {
		return 0, 0, 0, fmt.Errorf("mask must be 3-D (B, H, W), got shape %v", t.Shape)
	}
	return t.Shape[0], t.Shape[1], t.Shape[2], nil
}

// String implements fmt.Stringer with the shape only.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.Shape)
}
