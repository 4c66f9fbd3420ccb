package imaging

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strings"

	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
	"golang.org/x/text/encoding/charmap"
)

// TextChunk is one keyword/text pair embedded in a PNG file.
type TextChunk struct {
	Keyword string
	Text    string
}

// parseChunks splits an encoded PNG stream into its chunks.
func parseChunks(encoded []byte) (*pngstructure.ChunkSlice, error) {
	mc, err := pngstructure.NewPngMediaParser().ParseBytes(encoded)
	if err != nil {
		return nil, fmt.Errorf("not a PNG stream: %w", err)
	}
	cs, ok := mc.(*pngstructure.ChunkSlice)
	if !ok {
		return nil, errors.New("not a PNG stream")
	}
	chunks := cs.Chunks()
	if len(chunks) == 0 || chunks[0].Type != "IHDR" {
		return nil, errors.New("PNG stream does not start with IHDR")
	}
	return cs, nil
}

// insertTextChunks returns a copy of an encoded PNG stream with the given
// text chunks placed directly after IHDR.
//
// Text that Latin-1 can represent is written as tEXt; anything else as an
// uncompressed iTXt chunk holding UTF-8.
func insertTextChunks(encoded []byte, chunks []TextChunk) ([]byte, error) {
	if len(chunks) == 0 {
		return encoded, nil
	}
	text := make([]*pngstructure.Chunk, 0, len(chunks))
	for _, c := range chunks {
		typ, data, err := encodeTextChunk(c)
		if err != nil {
			return nil, err
		}
		chunk := &pngstructure.Chunk{
			Type:   typ,
			Length: uint32(len(data)),
			Data:   data,
		}
		chunk.UpdateCrc32()
		text = append(text, chunk)
	}

	cs, err := parseChunks(encoded)
	if err != nil {
		return nil, err
	}
	orig := cs.Chunks()
	out := make([]*pngstructure.Chunk, 0, len(orig)+len(text))
	out = append(out, orig[0])
	out = append(out, text...)
	out = append(out, orig[1:]...)

	var buf bytes.Buffer
	buf.Grow(len(encoded) + 256)
	if err := pngstructure.NewChunkSlice(out).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PNG chunks: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeKeyword returns the Latin-1 form of a chunk keyword, which must be
// 1-79 bytes without NUL.
func encodeKeyword(keyword string) (string, error) {
	key, err := charmap.ISO8859_1.NewEncoder().String(keyword)
	if err != nil || len(key) == 0 || len(key) > 79 || strings.IndexByte(key, 0) >= 0 {
		return "", fmt.Errorf("%w: invalid PNG text keyword %q", ErrInvalidInput, keyword)
	}
	return key, nil
}

func encodeTextChunk(c TextChunk) (string, []byte, error) {
	key, err := encodeKeyword(c.Keyword)
	if err != nil {
		return "", nil, err
	}

	if text, err := charmap.ISO8859_1.NewEncoder().String(c.Text); err == nil {
		data := make([]byte, 0, len(key)+1+len(text))
		data = append(data, key...)
		data = append(data, 0)
		data = append(data, text...)
		return "tEXt", data, nil
	}

	// keyword, NUL, compression flag, compression method, empty language
	// tag, NUL, empty translated keyword, NUL, text.
	data := make([]byte, 0, len(key)+5+len(c.Text))
	data = append(data, key...)
	data = append(data, 0, 0, 0, 0, 0)
	data = append(data, c.Text...)
	return "iTXt", data, nil
}

// ReadTextChunks returns every tEXt, zTXt and iTXt entry of a PNG stream,
// keyed by keyword. Later chunks win on duplicate keywords.
func ReadTextChunks(r io.Reader) (map[string]string, error) {
	encoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read PNG: %w", err)
	}
	cs, err := parseChunks(encoded)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	for _, c := range cs.Chunks() {
		switch c.Type {
		case "tEXt", "zTXt", "iTXt":
			key, text, err := decodeTextChunk(c.Type, c.Data)
			if err != nil {
				return nil, err
			}
			out[key] = text
		}
	}
	return out, nil
}

func decodeTextChunk(typ string, data []byte) (string, string, error) {
	i := bytes.IndexByte(data, 0)
	if i <= 0 {
		return "", "", fmt.Errorf("malformed %s chunk", typ)
	}
	key, err := charmap.ISO8859_1.NewDecoder().Bytes(data[:i])
	if err != nil {
		return "", "", err
	}
	rest := data[i+1:]

	switch typ {
	case "tEXt":
		text, err := charmap.ISO8859_1.NewDecoder().Bytes(rest)
		return string(key), string(text), err
	case "zTXt":
		if len(rest) < 1 {
			return "", "", fmt.Errorf("malformed zTXt chunk")
		}
		raw, err := inflate(rest[1:])
		if err != nil {
			return "", "", err
		}
		text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		return string(key), string(text), err
	default:
		if len(rest) < 2 {
			return "", "", fmt.Errorf("malformed iTXt chunk")
		}
		compressed := rest[0] == 1
		rest = rest[2:]
		// Skip language tag and translated keyword.
		for n := 0; n < 2; n++ {
			j := bytes.IndexByte(rest, 0)
			if j < 0 {
				return "", "", fmt.Errorf("malformed iTXt chunk")
			}
			rest = rest[j+1:]
		}
		if compressed {
			raw, err := inflate(rest)
			return string(key), string(raw), err
		}
		return string(key), string(rest), nil
	}
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
