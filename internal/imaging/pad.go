package imaging

import (
	"fmt"

	"github.com/ironsheep/image-nodes/internal/logging"
	"github.com/ironsheep/image-nodes/internal/tensor"
)

// PadOptions configures Pad.
type PadOptions struct {
	// PadWidth and PadHeight are the minimum canvas size. Smaller values
	// leave the axis untouched; padding never shrinks an image.
	PadWidth  int
	PadHeight int

	Position Position

	// Feathering is the falloff radius, in pixels, of the synthesized mask.
	// Zero disables it.
	Feathering int

	// Background components; absent or non-finite components use 0.5.
	BgR, BgG, BgB Scalar

	// Mask is an optional (B, H, W) mask to carry through the padding.
	Mask *tensor.Tensor
}

// PadResult holds the enlarged batch and its companion mask.
type PadResult struct {
	Image   *tensor.Tensor
	Mask    *tensor.Tensor
	Offsets Offsets
}

// Pad enlarges an image batch, anchoring the original at opts.Position and
// filling new area with the background colour.
//
// The returned mask is the supplied mask padded with zeros when one is given
// and not entirely zero. Otherwise a mask is synthesized: 1 over the padding,
// 0 over the original area, with an optional quadratic falloff toward padded
// edges (see featherRegion).
func Pad(img *tensor.Tensor, opts PadOptions) (*PadResult, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: image input is required", ErrPrecondition)
	}
	batch, height, width, channels, err := img.ImageDims()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: image has no channels", ErrInvalidInput)
	}

	off, err := ComputeOffsets(width, height, opts.PadWidth, opts.PadHeight, opts.Position)
	if err != nil {
		return nil, err
	}
	if off.Width <= 0 || off.Height <= 0 {
		return nil, fmt.Errorf("%w: padding produced a non-positive image size %dx%d", ErrInvalidInput, off.Width, off.Height)
	}
	// Padding may not grow an axis past MaxResolution; larger sources pass through.
	if off.Width > max(width, MaxResolution) || off.Height > max(height, MaxResolution) {
		return nil, fmt.Errorf("%w: padded size %dx%d exceeds %d", ErrInvalidInput, off.Width, off.Height, MaxResolution)
	}
	if _, err := tensor.Size(batch, off.Height, off.Width, channels); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	bg, err := Background(channels, opts.BgR, opts.BgG, opts.BgB)
	if err != nil {
		return nil, err
	}

	mask, err := prepareMask(opts.Mask, height, width, off)
	if err != nil {
		return nil, err
	}

	out := tensor.New(batch, off.Height, off.Width, channels)
	for i := 0; i < len(out.Data); i += channels {
		copy(out.Data[i:i+channels], bg)
	}
	rowLen := width * channels
	for b := 0; b < batch; b++ {
		for y := 0; y < height; y++ {
			src := img.Offset(b, y, 0, 0)
			dst := out.Offset(b, off.Top+y, off.Left, 0)
			copy(out.Data[dst:dst+rowLen], img.Data[src:src+rowLen])
		}
	}

	if mask == nil {
		mask = buildMask(batch, height, width, off, opts.Feathering)
	}

	return &PadResult{Image: out, Mask: mask, Offsets: off}, nil
}

// prepareMask validates and pads a supplied mask. It returns nil when there
// is no usable mask.
func prepareMask(mask *tensor.Tensor, height, width int, off Offsets) (*tensor.Tensor, error) {
	if mask == nil {
		return nil, nil
	}
	batch, mh, mw, err := mask.MaskDims()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if mh != height || mw != width {
		return nil, fmt.Errorf("%w: mask size %dx%d does not match image size %dx%d", ErrInvalidInput, mw, mh, width, height)
	}
	if mask.AllZero() {
		logging.L().Warn("incoming mask is fully black, handling it as absent", "shape", mask.Shape)
		return nil, nil
	}

	out := tensor.New(batch, off.Height, off.Width)
	for b := 0; b < batch; b++ {
		for y := 0; y < height; y++ {
			src := mask.Offset(b, y, 0)
			dst := out.Offset(b, off.Top+y, off.Left)
			copy(out.Data[dst:dst+width], mask.Data[src:src+width])
		}
	}
	return out, nil
}

// buildMask synthesizes the padding mask: ones everywhere, with the original
// area replaced by the (possibly feathered) region.
func buildMask(batch, height, width int, off Offsets, feathering int) *tensor.Tensor {
	out := tensor.Full(1, batch, off.Height, off.Width)
	region := featherRegion(height, width, off, feathering)
	for b := 0; b < batch; b++ {
		for y := 0; y < height; y++ {
			dst := out.Offset(b, off.Top+y, off.Left)
			copy(out.Data[dst:dst+width], region[y*width:(y+1)*width])
		}
	}
	return out
}

// featherRegion returns the height×width mask values for the original area.
//
// Without feathering, or when 2*feathering does not fit inside both
// dimensions, the region is all zero. Otherwise each pixel takes
// ((f-d)/f)^2 where d is its distance to the nearest edge that received
// padding; edges without padding are ignored. Pixels with d >= f stay 0.
func featherRegion(height, width int, off Offsets, feathering int) []float32 {
	region := make([]float32, height*width)
	if feathering <= 0 || feathering*2 >= height || feathering*2 >= width {
		return region
	}

	f := float64(feathering)
	for i := 0; i < height; i++ {
		dt, db := height, height
		if off.Top != 0 {
			dt = i
		}
		if off.Bottom != 0 {
			db = height - i
		}
		for j := 0; j < width; j++ {
			dl, dr := width, width
			if off.Left != 0 {
				dl = j
			}
			if off.Right != 0 {
				dr = width - j
			}
			d := min(dt, db, dl, dr)
			if d >= feathering {
				continue
			}
			v := (f - float64(d)) / f
			region[i*width+j] = float32(v * v)
		}
	}
	return region
}
