package imaging

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/image-nodes/internal/tensor"
)

// DefaultBackground is the channel value used when a background component is
// absent or not a finite number (mid-gray).
const DefaultBackground = 0.5

type scalarKind int

const (
	scalarAbsent scalarKind = iota
	scalarNumber
	scalarContainer
)

// Scalar is a background colour component as the host may deliver it: a plain
// number, or a tensor-like container that must hold exactly one element.
//
// The zero value is an absent component.
type Scalar struct {
	kind  scalarKind
	num   float64
	elems []float32
}

// Number wraps a plain numeric component.
func Number(v float64) Scalar {
	return Scalar{kind: scalarNumber, num: v}
}

// Container wraps a tensor-like component. A nil tensor is treated as absent.
func Container(t *tensor.Tensor) Scalar {
	if t == nil {
		return Scalar{}
	}
	return Scalar{kind: scalarContainer, elems: t.Data}
}

// IsSet reports whether the component was supplied at all.
func (s Scalar) IsSet() bool { return s.kind != scalarAbsent }

// Resolve reduces the component to a float, falling back to def when it is
// absent or non-finite. Multi-element containers are rejected.
func (s Scalar) Resolve(def float64) (float64, error) {
	if !s.IsSet() {
		return def, nil
	}
	var v float64
	switch s.kind {
	case scalarNumber:
		v = s.num
	case scalarContainer:
		if len(s.elems) != 1 {
			return 0, fmt.Errorf("%w: background color inputs must be scalar values, got %d elements", ErrInvalidInput, len(s.elems))
		}
		v = float64(s.elems[0])
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def, nil
	}
	return v, nil
}

// Background builds the per-channel fill vector for an image with the given
// channel count.
//
// Components are clamped to [0,1]. A single-channel image takes the mean of
// the three components. Otherwise the first min(3, channels) channels take
// the components directly and a fourth (alpha) channel is forced opaque.
func Background(channels int, r, g, b Scalar) ([]float32, error) {
	var rgb [3]float64
	for i, s := range []Scalar{r, g, b} {
		v, err := s.Resolve(DefaultBackground)
		if err != nil {
			return nil, err
		}
		rgb[i] = math.Max(0, math.Min(v, 1))
	}

	bg := make([]float32, channels)
	for i := range bg {
		bg[i] = DefaultBackground
	}
	if channels == 1 {
		bg[0] = float32((rgb[0] + rgb[1] + rgb[2]) / 3)
		return bg, nil
	}
	for i := 0; i < min(3, channels); i++ {
		bg[i] = float32(rgb[i])
	}
	if channels >= 4 {
		bg[3] = 1
	}
	return bg, nil
}

// ParseBackgroundHex converts a "#RRGGBB" colour into three components.
func ParseBackgroundHex(hex string) (r, g, b Scalar, err error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return Scalar{}, Scalar{}, Scalar{}, fmt.Errorf("%w: background %q: %v", ErrInvalidInput, hex, err)
	}
	return Number(c.R), Number(c.G), Number(c.B), nil
}
