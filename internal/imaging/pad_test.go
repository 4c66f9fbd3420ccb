package imaging

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/ironsheep/image-nodes/internal/logging"
	"github.com/ironsheep/image-nodes/internal/tensor"
)

func approxEqual(a, b float32) bool {
	return math.Abs(float64(a)-float64(b)) < 1e-5
}

func TestComputeOffsets_Table(t *testing.T) {
	// 10x6 image grown to 15x9: ew=5, eh=3.
	tests := []struct {
		position                 Position
		left, right, top, bottom int
	}{
		{Center, 2, 3, 1, 2},
		{TopLeft, 0, 5, 0, 3},
		{TopRight, 5, 0, 0, 3},
		{TopCenter, 2, 3, 0, 3},
		{BottomLeft, 0, 5, 3, 0},
		{BottomRight, 5, 0, 3, 0},
		{CenterLeft, 0, 5, 1, 2},
		{CenterRight, 5, 0, 1, 2},
		{BottomCenter, 2, 3, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.position.String(), func(t *testing.T) {
			o, err := ComputeOffsets(10, 6, 15, 9, tt.position)
			if err != nil {
				t.Fatalf("ComputeOffsets failed: %v", err)
			}
			if o.Left != tt.left || o.Right != tt.right || o.Top != tt.top || o.Bottom != tt.bottom {
				t.Errorf("got l=%d r=%d t=%d b=%d, want l=%d r=%d t=%d b=%d",
					o.Left, o.Right, o.Top, o.Bottom, tt.left, tt.right, tt.top, tt.bottom)
			}
			if o.Width != 15 || o.Height != 9 {
				t.Errorf("canvas: got %dx%d, want 15x9", o.Width, o.Height)
			}
		})
	}
}

func TestComputeOffsets_CenterEvenSplit(t *testing.T) {
	o, err := ComputeOffsets(4, 4, 8, 8, Center)
	if err != nil {
		t.Fatalf("ComputeOffsets failed: %v", err)
	}
	if o.Left != 2 || o.Right != 2 || o.Top != 2 || o.Bottom != 2 {
		t.Errorf("got %+v, want 2 on every edge", o)
	}
}

func TestComputeOffsets_TopLeftTrailing(t *testing.T) {
	o, err := ComputeOffsets(10, 10, 13, 10, TopLeft)
	if err != nil {
		t.Fatalf("ComputeOffsets failed: %v", err)
	}
	if o.Left != 0 || o.Right != 3 {
		t.Errorf("got left=%d right=%d, want 0 and 3", o.Left, o.Right)
	}
}

func TestComputeOffsets_NeverShrinks(t *testing.T) {
	o, err := ComputeOffsets(20, 30, 5, 0, BottomRight)
	if err != nil {
		t.Fatalf("ComputeOffsets failed: %v", err)
	}
	if o.Width != 20 || o.Height != 30 || o.Left+o.Right+o.Top+o.Bottom != 0 {
		t.Errorf("got %+v, want no padding", o)
	}
}

func TestComputeOffsets_UnknownPosition(t *testing.T) {
	_, err := ComputeOffsets(4, 4, 8, 8, Position(42))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}

func TestPad_NoGrowthReturnsOriginal(t *testing.T) {
	img := createGradientBatch(2, 5, 6, 3)

	res, err := Pad(img, PadOptions{PadWidth: 6, PadHeight: 5, Position: Center})
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	for i := range img.Data {
		if res.Image.Data[i] != img.Data[i] {
			t.Fatalf("sample %d differs", i)
		}
	}

	b, h, w, err := res.Mask.MaskDims()
	if err != nil || b != 2 || h != 5 || w != 6 {
		t.Fatalf("mask shape: got %v", res.Mask.Shape)
	}
	if !res.Mask.AllZero() {
		t.Error("mask over an unpadded image should be all zero")
	}
}

func TestPad_CompositeAndMask(t *testing.T) {
	img := tensor.Full(0.25, 1, 4, 4, 3)

	res, err := Pad(img, PadOptions{
		PadWidth: 8, PadHeight: 8, Position: Center,
		BgR: Number(1), BgG: Number(0), BgB: Number(0.5),
	})
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}

	b, h, w, c, _ := res.Image.ImageDims()
	if b != 1 || h != 8 || w != 8 || c != 3 {
		t.Fatalf("image shape: got %v, want [1 8 8 3]", res.Image.Shape)
	}

	// Background corner.
	if res.Image.At(0, 0, 0, 0) != 1 || res.Image.At(0, 0, 0, 1) != 0 || res.Image.At(0, 0, 0, 2) != 0.5 {
		t.Errorf("background: got (%v,%v,%v)", res.Image.At(0, 0, 0, 0), res.Image.At(0, 0, 0, 1), res.Image.At(0, 0, 0, 2))
	}
	// Original content at (2,2)-(6,6).
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			inside := y >= 2 && y < 6 && x >= 2 && x < 6
			m := res.Mask.At(0, y, x)
			if inside && (m != 0 || res.Image.At(0, y, x, 0) != 0.25) {
				t.Errorf("(%d,%d) inside: mask=%v r=%v", x, y, m, res.Image.At(0, y, x, 0))
			}
			if !inside && m != 1 {
				t.Errorf("(%d,%d) outside: mask=%v, want 1", x, y, m)
			}
		}
	}
}

func TestPad_BackgroundChannels(t *testing.T) {
	gray := tensor.New(1, 2, 2, 1)
	res, err := Pad(gray, PadOptions{PadWidth: 4, PadHeight: 2, Position: TopLeft, BgR: Number(0.3), BgG: Number(0.6), BgB: Number(0.9)})
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	if got := res.Image.At(0, 0, 3, 0); !approxEqual(got, 0.6) {
		t.Errorf("gray background: got %v, want mean 0.6", got)
	}

	rgba := tensor.New(1, 2, 2, 4)
	res, err = Pad(rgba, PadOptions{PadWidth: 2, PadHeight: 3, Position: TopLeft, BgR: Number(0.2), BgG: Number(0.4), BgB: Number(0.6)})
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	if a := res.Image.At(0, 2, 0, 3); a != 1 {
		t.Errorf("alpha background: got %v, want 1", a)
	}
	if r := res.Image.At(0, 2, 0, 0); !approxEqual(r, 0.2) {
		t.Errorf("red background: got %v, want 0.2", r)
	}
}

func TestPad_DefaultAndClampedBackground(t *testing.T) {
	img := tensor.New(1, 1, 1, 3)
	res, err := Pad(img, PadOptions{PadWidth: 2, PadHeight: 1, Position: TopLeft, BgG: Number(7), BgB: Number(math.NaN())})
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	got := []float32{res.Image.At(0, 0, 1, 0), res.Image.At(0, 0, 1, 1), res.Image.At(0, 0, 1, 2)}
	want := []float32{0.5, 1, 0.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("channel %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPad_FeatheringTopLeft(t *testing.T) {
	// Content at the top-left: only right and bottom edges are padded.
	img := tensor.New(1, 10, 10, 3)
	res, err := Pad(img, PadOptions{PadWidth: 20, PadHeight: 20, Position: TopLeft, Feathering: 3})
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	if res.Offsets.Right != 10 || res.Offsets.Bottom != 10 {
		t.Fatalf("offsets: got %+v", res.Offsets)
	}

	want := float32((3.0 - 1.0) / 3.0 * (3.0 - 1.0) / 3.0)
	if got := res.Mask.At(0, 5, 9); !approxEqual(got, want) {
		t.Errorf("d=1 from right edge: got %v, want %v", got, want)
	}
	if got := res.Mask.At(0, 9, 5); !approxEqual(got, want) {
		t.Errorf("d=1 from bottom edge: got %v, want %v", got, want)
	}
	if got := res.Mask.At(0, 5, 7); got != 0 {
		t.Errorf("d=3: got %v, want 0", got)
	}
	// Unpadded top and left edges are ignored.
	if got := res.Mask.At(0, 0, 0); got != 0 {
		t.Errorf("corner next to unpadded edges: got %v, want 0", got)
	}
	if got := res.Mask.At(0, 15, 15); got != 1 {
		t.Errorf("padding: got %v, want 1", got)
	}
}

func TestPad_FeatheringBottomRight(t *testing.T) {
	// Content at the bottom-right: left and top edges are padded.
	img := tensor.New(1, 10, 10, 3)
	res, err := Pad(img, PadOptions{PadWidth: 20, PadHeight: 20, Position: BottomRight, Feathering: 3})
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	if res.Offsets.Left != 10 || res.Offsets.Top != 10 {
		t.Fatalf("offsets: got %+v", res.Offsets)
	}

	// Row index 0 of the content touches the padded top edge: d=0 -> 1.
	if got := res.Mask.At(0, 10, 15); got != 1 {
		t.Errorf("d=0: got %v, want 1", got)
	}
	want := float32(4.0 / 9.0)
	if got := res.Mask.At(0, 11, 15); !approxEqual(got, want) {
		t.Errorf("d=1: got %v, want %v", got, want)
	}
	want = float32(1.0 / 9.0)
	if got := res.Mask.At(0, 15, 12); !approxEqual(got, want) {
		t.Errorf("d=2: got %v, want %v", got, want)
	}
	if got := res.Mask.At(0, 19, 19); got != 0 {
		t.Errorf("far corner: got %v, want 0", got)
	}
}

func TestPad_FeatheringTooLargeIsIgnored(t *testing.T) {
	img := tensor.New(1, 10, 10, 3)
	res, err := Pad(img, PadOptions{PadWidth: 20, PadHeight: 20, Position: Center, Feathering: 5})
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			if res.Mask.At(0, y, x) != 0 {
				t.Fatalf("(%d,%d): got %v, want 0", x, y, res.Mask.At(0, y, x))
			}
		}
	}
}

func TestPad_SuppliedMaskIsPadded(t *testing.T) {
	img := tensor.New(2, 3, 3, 3)
	mask := tensor.Full(0.7, 2, 3, 3)

	res, err := Pad(img, PadOptions{PadWidth: 5, PadHeight: 4, Position: BottomRight, Feathering: 1, Mask: mask})
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	b, h, w, _ := res.Mask.MaskDims()
	if b != 2 || h != 4 || w != 5 {
		t.Fatalf("mask shape: got %v, want [2 4 5]", res.Mask.Shape)
	}
	if got := res.Mask.At(1, 0, 0); got != 0 {
		t.Errorf("padding: got %v, want 0", got)
	}
	if got := res.Mask.At(1, 1, 2); got != 0.7 {
		t.Errorf("original: got %v, want 0.7 (no feathering)", got)
	}
}

func TestPad_AllZeroMaskMatchesNoMask(t *testing.T) {
	var buf bytes.Buffer
	logging.Set(slog.New(slog.NewTextHandler(&buf, nil)))
	defer logging.Set(nil)

	img := tensor.New(1, 10, 10, 3)
	opts := PadOptions{PadWidth: 16, PadHeight: 14, Position: CenterRight, Feathering: 2}

	plain, err := Pad(img, opts)
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	opts.Mask = tensor.New(1, 10, 10)
	zeroed, err := Pad(img, opts)
	if err != nil {
		t.Fatalf("Pad with zero mask failed: %v", err)
	}

	for i := range plain.Mask.Data {
		if plain.Mask.Data[i] != zeroed.Mask.Data[i] {
			t.Fatalf("mask sample %d differs: %v vs %v", i, plain.Mask.Data[i], zeroed.Mask.Data[i])
		}
	}
	if !strings.Contains(buf.String(), "fully black") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

func TestPad_Invalid(t *testing.T) {
	img := tensor.New(1, 4, 4, 3)

	tests := []struct {
		name string
		img  *tensor.Tensor
		opts PadOptions
	}{
		{"unknown position", img, PadOptions{Position: Position(-1)}},
		{"mask rank", img, PadOptions{Mask: tensor.New(1, 4, 4, 1)}},
		{"mask size", img, PadOptions{Mask: tensor.Full(1, 1, 3, 4)}},
		{"non-scalar background", img, PadOptions{BgR: Container(tensor.New(3))}},
		{"empty canvas", tensor.New(1, 0, 0, 3), PadOptions{}},
		{"image rank", tensor.New(4, 4, 3), PadOptions{}},
		{"huge canvas", tensor.Full(0.5, 1, 2, 2, 3), PadOptions{PadWidth: 1 << 31, PadHeight: 1 << 31}},
		{"width above max resolution", img, PadOptions{PadWidth: MaxResolution + 1}},
		{"height above max resolution", img, PadOptions{PadHeight: MaxResolution + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Pad(tt.img, tt.opts)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
		})
	}

	if _, err := Pad(nil, PadOptions{}); !errors.Is(err, ErrPrecondition) {
		t.Errorf("nil image: got %v, want ErrPrecondition", err)
	}
}

func TestPad_MaxResolution(t *testing.T) {
	res, err := Pad(tensor.New(1, 1, 1, 1), PadOptions{PadWidth: MaxResolution, Position: TopLeft})
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	if res.Offsets.Width != MaxResolution {
		t.Errorf("width: got %d, want %d", res.Offsets.Width, MaxResolution)
	}
}

func TestPad_SingleElementContainer(t *testing.T) {
	img := tensor.New(1, 1, 1, 3)
	bg := tensor.Full(0.1, 1)
	res, err := Pad(img, PadOptions{PadWidth: 2, PadHeight: 1, Position: TopLeft, BgR: Container(bg)})
	if err != nil {
		t.Fatalf("Pad failed: %v", err)
	}
	if got := res.Image.At(0, 0, 1, 0); !approxEqual(got, 0.1) {
		t.Errorf("red: got %v, want 0.1", got)
	}
}
