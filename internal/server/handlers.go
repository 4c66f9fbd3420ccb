package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/disintegration/imaging"

	nodes "github.com/ironsheep/image-nodes/internal/imaging"
	"github.com/ironsheep/image-nodes/internal/logging"
	"github.com/ironsheep/image-nodes/internal/telemetry"
	"github.com/ironsheep/image-nodes/internal/tensor"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_pad_position").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errUnknownTool is returned by executeTool for names it does not serve.
var errUnknownTool = errors.New("unknown tool")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments, unknown tools and missing images return -32602; any other
// failure returns -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.runTool(params.Name, params.Arguments)
	if err != nil {
		if isClientError(err) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		logging.L().Error("tool execution failed", "tool", params.Name, "err", err)
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// runTool executes a tool, turning a panic into a tool failure so that one
// bad call cannot stop the server.
func (s *Server) runTool(name string, args json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", name, r)
		}
	}()
	return s.executeTool(name, args)
}

func isClientError(err error) bool {
	return errors.Is(err, nodes.ErrInvalidInput) ||
		errors.Is(err, nodes.ErrPrecondition) ||
		errors.Is(err, errUnknownTool)
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each node handler:
//  1. Unmarshals arguments from JSON
//  2. Loads image and mask paths into tensors
//  3. Runs the node
//  4. Records the execution and returns a preview or save result
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_crop_percentage":
		return s.handleCropPercentage(args)
	case "image_pad_position":
		return s.handlePadPosition(args)
	case "image_save":
		return s.handleSave(args)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownTool, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", nodes.ErrInvalidInput, err)
	}
	return nil
}

// NodeResult is returned by the image-producing node tools. The previews
// show the first element of the batch.
type NodeResult struct {
	Batch    int `json:"batch"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	Channels int `json:"channels"`

	ImageBase64 string `json:"image_base64"`
	MaskBase64  string `json:"mask_base64,omitempty"`
	MimeType    string `json:"mime_type"`

	Offsets *nodes.Offsets `json:"offsets,omitempty"`
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", nodes.ErrInvalidInput)
	}
	return nodes.LoadImageInfo(s.cache, a.Path)
}

// === Node Handlers ===

type cropPercentageArgs struct {
	Path   string  `json:"path"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Scale  float64 `json:"scale"`
}

func (s *Server) handleCropPercentage(args json.RawMessage) (res interface{}, err error) {
	const node = "CropImagePercentage"
	defer s.observe(node, time.Now(), &err)

	var a cropPercentageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	out, err := nodes.CropPercentage(img, a.Left, a.Right, a.Top, a.Bottom)
	if err != nil {
		return nil, err
	}
	return preview(out, nil, a.Scale)
}

type padPositionArgs struct {
	Path       string   `json:"path"`
	PadWidth   int      `json:"pad_width"`
	PadHeight  int      `json:"pad_height"`
	Position   string   `json:"position"`
	Feathering int      `json:"feathering"`
	BgR        *float64 `json:"bg_r"`
	BgG        *float64 `json:"bg_g"`
	BgB        *float64 `json:"bg_b"`
	Background string   `json:"background"`
	MaskPath   string   `json:"mask_path"`
	Scale      float64  `json:"scale"`
}

func (s *Server) handlePadPosition(args json.RawMessage) (res interface{}, err error) {
	const node = "PadImagePosition"
	defer s.observe(node, time.Now(), &err)

	var a padPositionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Position == "" {
		a.Position = nodes.Center.String()
	}
	pos, err := nodes.ParsePosition(a.Position)
	if err != nil {
		return nil, err
	}

	opts := nodes.PadOptions{
		PadWidth:   a.PadWidth,
		PadHeight:  a.PadHeight,
		Position:   pos,
		Feathering: a.Feathering,
		BgR:        optionalScalar(a.BgR),
		BgG:        optionalScalar(a.BgG),
		BgB:        optionalScalar(a.BgB),
	}
	if a.Background != "" {
		if opts.BgR, opts.BgG, opts.BgB, err = nodes.ParseBackgroundHex(a.Background); err != nil {
			return nil, err
		}
	}

	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	if a.MaskPath != "" {
		if opts.Mask, err = s.cache.LoadMask(a.MaskPath); err != nil {
			return nil, err
		}
	}

	out, err := nodes.Pad(img, opts)
	if err != nil {
		return nil, err
	}
	r, err := preview(out.Image, out.Mask, a.Scale)
	if err != nil {
		return nil, err
	}
	r.Offsets = &out.Offsets
	return r, nil
}

type saveArgs struct {
	Path         string         `json:"path"`
	Filepath     string         `json:"filepath"`
	Overwrite    *bool          `json:"overwrite"`
	AlphaPath    string         `json:"alpha_path"`
	Prompt       map[string]any `json:"prompt"`
	ExtraPNGInfo map[string]any `json:"extra_pnginfo"`
}

func (s *Server) handleSave(args json.RawMessage) (res interface{}, err error) {
	const node = "SaveImageDynamic"
	start := time.Now()
	var skipped bool
	defer func() {
		outcome := telemetry.Outcome(err)
		if skipped {
			outcome = telemetry.OutcomeSkipped
		}
		s.metrics.Observe(node, outcome, start)
	}()

	var a saveArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	req := nodes.SaveRequest{
		Path:      a.Filepath,
		Overwrite: a.Overwrite == nil || *a.Overwrite,
		Prompt:    a.Prompt,
		ExtraInfo: a.ExtraPNGInfo,
	}
	// A missing image is the node's own precondition failure.
	if a.Path != "" {
		if req.Image, err = s.cache.LoadTensor(a.Path); err != nil {
			return nil, err
		}
	}
	if a.AlphaPath != "" {
		if req.Alpha, err = s.cache.LoadMask(a.AlphaPath); err != nil {
			return nil, err
		}
	}

	out, err := s.saver.Save(req)
	if err != nil {
		return nil, err
	}
	skipped = out.Skipped
	if !out.Skipped {
		s.cache.Evict(out.Path)
		s.cache.Evict(a.Filepath)
	}
	return out, nil
}

func (s *Server) loadImage(path string) (*tensor.Tensor, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: image input is required", nodes.ErrPrecondition)
	}
	return s.cache.LoadTensor(path)
}

func (s *Server) observe(node string, start time.Time, err *error) {
	s.metrics.Observe(node, telemetry.Outcome(*err), start)
}

func optionalScalar(v *float64) nodes.Scalar {
	if v == nil {
		return nodes.Scalar{}
	}
	return nodes.Number(*v)
}

// preview encodes the first element of an image batch, and of its mask when
// given, as base64 PNG. A scale other than 1 resizes both.
func preview(img, mask *tensor.Tensor, scale float64) (*NodeResult, error) {
	batch, height, width, channels, err := img.ImageDims()
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = 1
	}
	frame, err := img.Index(0)
	if err != nil {
		return nil, err
	}
	rgba, err := tensor.ToImage(frame)
	if err != nil {
		return nil, err
	}
	r := &NodeResult{
		Batch:    batch,
		Width:    width,
		Height:   height,
		Channels: channels,
		MimeType: "image/png",
	}
	if r.ImageBase64, err = encodeBase64PNG(rgba, scale); err != nil {
		return nil, err
	}
	if mask != nil {
		gray, err := tensor.MaskToImage(mask, 0)
		if err != nil {
			return nil, err
		}
		if r.MaskBase64, err = encodeBase64PNG(gray, scale); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func encodeBase64PNG(img image.Image, scale float64) (string, error) {
	if scale != 1.0 {
		b := img.Bounds()
		w := max(1, int(float64(b.Dx())*scale))
		h := max(1, int(float64(b.Dy())*scale))
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
