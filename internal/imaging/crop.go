package imaging

import (
	"fmt"
	"math"

	"github.com/ironsheep/image-nodes/internal/tensor"
)

// CropPercentage removes the given percentage of width or height from each
// edge of an image batch.
//
// Percentages are clamped to [0,100] and converted to pixels with
// round-half-to-even. The result is a plain slice of the input: no
// resampling, batch and channel counts unchanged.
//
// Errors (all wrap ErrInvalidInput unless noted):
//   - a percentage is NaN or infinite
//   - left+right pixels reach the full width, or top+bottom the full height
//   - the resulting window is empty
//   - img is nil (ErrPrecondition)
func CropPercentage(img *tensor.Tensor, left, right, top, bottom float64) (*tensor.Tensor, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: image input is required", ErrPrecondition)
	}
	for _, p := range []float64{left, right, top, bottom} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: crop percentages must be finite numbers", ErrInvalidInput)
		}
	}

	batch, height, width, channels, err := img.ImageDims()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	leftPx := percentageToPixels(width, left)
	rightPx := percentageToPixels(width, right)
	topPx := percentageToPixels(height, top)
	bottomPx := percentageToPixels(height, bottom)

	if leftPx+rightPx >= width {
		return nil, fmt.Errorf("%w: left and right crops remove the entire image width", ErrInvalidInput)
	}
	if topPx+bottomPx >= height {
		return nil, fmt.Errorf("%w: top and bottom crops remove the entire image height", ErrInvalidInput)
	}

	x0, x1 := leftPx, width-rightPx
	y0, y1 := topPx, height-bottomPx
	if x0 >= x1 || y0 >= y1 {
		return nil, fmt.Errorf("%w: computed crop bounds (%d,%d)-(%d,%d) are invalid", ErrInvalidInput, x0, y0, x1, y1)
	}

	outH, outW := y1-y0, x1-x0
	out := tensor.New(batch, outH, outW, channels)
	rowLen := outW * channels
	for b := 0; b < batch; b++ {
		for y := 0; y < outH; y++ {
			src := img.Offset(b, y0+y, x0, 0)
			dst := out.Offset(b, y, 0, 0)
			copy(out.Data[dst:dst+rowLen], img.Data[src:src+rowLen])
		}
	}
	return out, nil
}

func percentageToPixels(size int, percentage float64) int {
	percentage = math.Max(0, math.Min(percentage, 100))
	return int(math.RoundToEven(float64(size) * (percentage / 100)))
}
