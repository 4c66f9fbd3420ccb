package imaging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/ironsheep/image-nodes/internal/logging"
	"github.com/ironsheep/image-nodes/internal/tensor"
)

// Saver writes single images to 8-bit PNG files with optional text metadata.
//
// A Saver holds only configuration and is safe for concurrent use.
type Saver struct {
	// OutputDir resolves relative target paths.
	OutputDir string

	// DisableMetadata suppresses every text chunk.
	DisableMetadata bool

	// Compression is the zlib level for the PNG encoder.
	Compression png.CompressionLevel
}

// SaveRequest carries the inputs of one export.
type SaveRequest struct {
	// Path is the target file, absolute or relative to OutputDir. It must
	// end in ".png" (any case).
	Path      string
	Overwrite bool

	// Image is a (B, H, W, C) batch; only element 0 is written.
	Image *tensor.Tensor

	// Alpha is an optional (B, H, W) or (H, W) mask written as the alpha
	// channel, replacing any alpha the image already carries.
	Alpha *tensor.Tensor

	// Prompt is stored as the "prompt" chunk. ExtraInfo adds one chunk per key.
	Prompt    map[string]any
	ExtraInfo map[string]any
}

// SaveResult describes the outcome of Save. Images lists preview entries for
// the host UI and is always empty.
type SaveResult struct {
	Path    string   `json:"path"`
	Skipped bool     `json:"skipped"`
	Images  []string `json:"images"`
}

// ResolvePath cleans path, anchors relative paths at OutputDir and checks the
// extension.
func (s *Saver) ResolvePath(path string) (string, error) {
	out := filepath.Clean(path)
	if !filepath.IsAbs(out) {
		out = filepath.Join(s.OutputDir, out)
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", out, err)
	}
	if !strings.EqualFold(filepath.Ext(abs), ".png") {
		return "", fmt.Errorf("%w: filepath must point to a .png file, got %q", ErrInvalidInput, path)
	}
	return abs, nil
}

// Save writes req.Image to a PNG file.
//
// When the target exists and Overwrite is false nothing is written and the
// result is marked Skipped; this is not an error. Encode and write failures
// are logged and returned.
func (s *Saver) Save(req SaveRequest) (*SaveResult, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("%w: image is required", ErrPrecondition)
	}

	outPath, err := s.ResolvePath(req.Path)
	if err != nil {
		return nil, err
	}

	img, err := exportImage(req.Image, req.Alpha)
	if err != nil {
		return nil, err
	}

	var chunks []TextChunk
	if !s.DisableMetadata {
		chunks, err = metadataChunks(req.Prompt, req.ExtraInfo)
		if err != nil {
			return nil, err
		}
	}

	result := &SaveResult{Path: outPath, Images: []string{}}
	if _, err := os.Stat(outPath); err == nil && !req.Overwrite {
		logging.L().Info("skipped existing file", "path", outPath)
		result.Skipped = true
		return result, nil
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", outPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := s.write(outPath, img, chunks); err != nil {
		logging.L().Error("failed to save image", "path", outPath, "err", err)
		return nil, err
	}
	return result, nil
}

func (s *Saver) write(path string, img image.Image, chunks []TextChunk) error {
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: s.Compression}
	if err := enc.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	data, err := insertTextChunks(buf.Bytes(), chunks)
	if err != nil {
		return fmt.Errorf("failed to embed metadata in %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// exportImage converts element 0 of the batch, plus optional alpha, into an
// 8-bit image ready for encoding.
func exportImage(batch, alpha *tensor.Tensor) (image.Image, error) {
	if batch.NDim() != 4 {
		return nil, fmt.Errorf("%w: image must be 4-D (B, H, W, C), got shape %v", ErrInvalidInput, batch.Shape)
	}
	frame, err := batch.Index(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	frame = channelsLast(frame)
	h, w, c := frame.Shape[0], frame.Shape[1], frame.Shape[2]

	if alpha == nil && c == 1 {
		g, err := tensor.ToGray(frame)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return g, nil
	}

	out, err := tensor.ToImage(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if alpha == nil {
		return out, nil
	}

	a, err := alphaFrame(alpha)
	if err != nil {
		return nil, err
	}
	if a.Shape[0] != h || a.Shape[1] != w {
		return nil, fmt.Errorf("%w: alpha size %dx%d does not match image size %dx%d", ErrInvalidInput, a.Shape[1], a.Shape[0], w, h)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x*4+3] = alphaByte(a.Data[y*w+x])
		}
	}
	return out, nil
}

// channelsLast transposes a (C, H, W) frame to (H, W, C). A frame counts as
// channel-first when its leading axis is 1, 3 or 4 and its trailing axis is
// not a plausible channel count.
func channelsLast(frame *tensor.Tensor) *tensor.Tensor {
	c, h, w := frame.Shape[0], frame.Shape[1], frame.Shape[2]
	if c != 1 && c != 3 && c != 4 {
		return frame
	}
	if w >= 1 && w <= 4 {
		return frame
	}
	out := tensor.New(h, w, c)
	for ch := 0; ch < c; ch++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Data[(y*w+x)*c+ch] = frame.Data[(ch*h+y)*w+x]
			}
		}
	}
	return out
}

func alphaFrame(alpha *tensor.Tensor) (*tensor.Tensor, error) {
	switch alpha.NDim() {
	case 3:
		a, err := alpha.Index(0)
		if err != nil {
			return nil, fmt.Errorf("%w: alpha: %v", ErrInvalidInput, err)
		}
		return a, nil
	case 2:
		return alpha, nil
	default:
		return nil, fmt.Errorf("%w: alpha must be (B, H, W) or (H, W), got shape %v", ErrInvalidInput, alpha.Shape)
	}
}

// alphaByte scales and truncates without the half-step offset used for
// colour samples.
func alphaByte(v float32) uint8 {
	f := float64(v) * 255
	switch {
	case math.IsNaN(f), f <= 0:
		return 0
	case f >= 255:
		return 255
	}
	return uint8(f)
}

func metadataChunks(prompt, extra map[string]any) ([]TextChunk, error) {
	var chunks []TextChunk
	if prompt != nil {
		text, err := marshalJSON(prompt)
		if err != nil {
			return nil, fmt.Errorf("%w: prompt: %v", ErrInvalidInput, err)
		}
		// The prompt is always plain ASCII, so it is always a tEXt chunk.
		chunks = append(chunks, TextChunk{Keyword: "prompt", Text: escapeNonASCII(text)})
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := encodeKeyword(k); err != nil {
			return nil, err
		}
		text, err := marshalJSON(extra[k])
		if err != nil {
			return nil, fmt.Errorf("%w: metadata %q: %v", ErrInvalidInput, k, err)
		}
		chunks = append(chunks, TextChunk{Keyword: k, Text: text})
	}
	return chunks, nil
}

// escapeNonASCII rewrites every non-ASCII rune of encoded JSON as a \uXXXX
// escape, using surrogate pairs above the BMP. Such runes only occur inside
// JSON strings, so the document keeps its meaning.
func escapeNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&b, "\\u%04x\\u%04x", r1, r2)
		default:
			fmt.Fprintf(&b, "\\u%04x", r)
		}
	}
	return b.String()
}

// marshalJSON serializes v without HTML escaping, leaving non-ASCII text as is.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
