package tensor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// FromImage converts a decoded image into a 1×H×W×C batch with values in [0,1].
//
// Grayscale sources produce one channel. Sources with any non-opaque pixel
// produce four channels (RGBA, unassociated alpha); everything else produces
// three.
func FromImage(img image.Image) *Tensor {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return fromGray(img)
	}

	src := imaging.Clone(img)
	h, w := src.Rect.Dy(), src.Rect.Dx()
	channels := 3
	if !src.Opaque() {
		channels = 4
	}

	t := New(1, h, w, channels)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			base := (y*w + x) * channels
			for c := 0; c < channels; c++ {
				t.Data[base+c] = float32(row[x*4+c]) / 255
			}
		}
	}
	return t
}

func fromGray(img image.Image) *Tensor {
	b := img.Bounds()
	t := New(1, b.Dy(), b.Dx(), 1)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			t.Data[y*b.Dx()+x] = float32(g.Y) / 65535
		}
	}
	return t
}

// MaskFromImage converts an image into a 1×H×W mask using its luminance.
func MaskFromImage(img image.Image) *Tensor {
	var gray image.Image = effect.Grayscale(img)
	b := gray.Bounds()
	t := New(1, b.Dy(), b.Dx())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(gray.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			t.Data[y*b.Dx()+x] = float32(g.Y) / 255
		}
	}
	return t
}

// ToByte maps a float sample to 8 bits: NaN and -Inf become 0, +Inf becomes
// 255, everything else is clamped to [0,1] and scaled with round-half-up.
func ToByte(v float32) uint8 {
	f := float64(v)
	switch {
	case math.IsNaN(f), math.IsInf(f, -1):
		return 0
	case math.IsInf(f, 1):
		return 255
	}
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return uint8(f*255 + 0.5)
}

// ToImage converts a single H×W×C frame into an 8-bit *image.NRGBA.
//
// One channel is replicated to gray and two channels are gray plus alpha.
// Three channels are opaque RGB and four are RGBA. Use ToGray for a
// single-channel *image.Gray.
func ToImage(frame *Tensor) (*image.NRGBA, error) {
	if frame.NDim() != 3 {
		return nil, fmt.Errorf("frame must be 3-D (H, W, C), got shape %v", frame.Shape)
	}
	h, w, c := frame.Shape[0], frame.Shape[1], frame.Shape[2]
	if c < 1 || c > 4 {
		return nil, fmt.Errorf("unsupported channel count %d", c)
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := frame.Data[(y*w+x)*c:]
			dst := out.Pix[y*out.Stride+x*4:]
			switch c {
			case 1, 2:
				g := ToByte(src[0])
				dst[0], dst[1], dst[2] = g, g, g
				dst[3] = 255
				if c == 2 {
					dst[3] = ToByte(src[1])
				}
			default:
				dst[0], dst[1], dst[2] = ToByte(src[0]), ToByte(src[1]), ToByte(src[2])
				dst[3] = 255
				if c == 4 {
					dst[3] = ToByte(src[3])
				}
			}
		}
	}
	return out, nil
}

// ToGray converts a single-channel frame into *image.Gray, which the PNG
// encoder writes as an 8-bit grayscale file.
func ToGray(frame *Tensor) (*image.Gray, error) {
	if frame.NDim() != 3 || frame.Shape[2] != 1 {
		return nil, fmt.Errorf("frame must be (H, W, 1), got shape %v", frame.Shape)
	}
	h, w := frame.Shape[0], frame.Shape[1]
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = ToByte(frame.Data[y*w+x])
		}
	}
	return out, nil
}

// MaskToImage renders element i of a mask batch as an 8-bit grayscale image.
func MaskToImage(mask *Tensor, i int) (*image.Gray, error) {
	if _, _, _, err := mask.MaskDims(); err != nil {
		return nil, err
	}
	m, err := mask.Index(i)
	if err != nil {
		return nil, err
	}
	h, w := m.Shape[0], m.Shape[1]
	frame, err := FromSlice(m.Data, h, w, 1)
	if err != nil {
		return nil, err
	}
	return ToGray(frame)
}
