package server

import (
	"github.com/ironsheep/image-nodes/internal/imaging"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// nodeTools maps node names to the tool that runs them.
var nodeTools = map[string]string{
	"CropImagePercentage": "image_crop_percentage",
	"PadImagePosition":    "image_pad_position",
	"SaveImageDynamic":    "image_save",
}

// GetToolDefinitions returns image_load followed by one tool per registered
// node, in registry order.
func GetToolDefinitions() []Tool {
	tools := []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and report its size, tensor shape, format and embedded PNG text keys.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
	}
	for _, n := range imaging.Registry() {
		if name, ok := nodeTools[n.Name]; ok {
			tools = append(tools, nodeTool(name, n))
		}
	}
	return tools
}

// nodeTool derives a tool from a node schema. Image and mask sockets become
// file path arguments; widgets become typed JSON Schema properties.
func nodeTool(name string, n imaging.NodeSchema) Tool {
	props := map[string]interface{}{}
	var required []string

	add := func(in imaging.Input, isRequired bool) {
		key, prop := inputProperty(in)
		props[key] = prop
		if isRequired && needsValue(in) {
			required = append(required, key)
		}
	}
	for _, in := range n.Required {
		add(in, true)
	}
	for _, in := range n.Optional {
		add(in, false)
	}
	for _, in := range n.Hidden {
		add(in, false)
	}

	if len(n.Outputs) > 0 {
		props["scale"] = map[string]interface{}{
			"type":        "number",
			"description": "Optional preview scale factor. Default 1.0",
			"default":     1.0,
		}
	}
	if n.Name == "PadImagePosition" {
		props["background"] = map[string]interface{}{
			"type":        "string",
			"description": "Optional hex background colour (#rrggbb); overrides bg_r, bg_g and bg_b",
		}
	}

	return Tool{
		Name:        name,
		Description: n.Description,
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// argName returns the tool argument carrying an input.
func argName(in imaging.Input) string {
	switch {
	case in.Type == imaging.TypeImage && in.Name == "image":
		return "path"
	case in.Type == imaging.TypeImage, in.Type == imaging.TypeMask:
		return in.Name + "_path"
	}
	return in.Name
}

// needsValue reports whether a required input has no usable default.
// Free-text defaults are placeholders.
func needsValue(in imaging.Input) bool {
	switch in.Type {
	case imaging.TypeImage, imaging.TypeMask, imaging.TypeString:
		return true
	}
	return in.Default == nil
}

func inputProperty(in imaging.Input) (string, map[string]interface{}) {
	p := map[string]interface{}{}
	switch in.Type {
	case imaging.TypeImage:
		p["type"] = "string"
		p["description"] = "Absolute path to the " + in.Name + " image file"
	case imaging.TypeMask:
		p["type"] = "string"
		p["description"] = "Absolute path to a grayscale image used as the " + in.Name + " mask"
	case imaging.TypeFloat, imaging.TypeInt:
		p["type"] = "number"
		if in.Type == imaging.TypeInt {
			p["type"] = "integer"
		}
		if in.Min != nil {
			p["minimum"] = *in.Min
		}
		if in.Max != nil {
			p["maximum"] = *in.Max
		}
		if in.Default != nil {
			p["default"] = in.Default
		}
	case imaging.TypeBoolean:
		p["type"] = "boolean"
		if in.Default != nil {
			p["default"] = in.Default
		}
	case imaging.TypeChoice:
		p["type"] = "string"
		p["enum"] = in.Choices
		if in.Default != nil {
			p["default"] = in.Default
		}
	case imaging.TypePrompt, imaging.TypeExtra:
		p["type"] = "object"
		p["description"] = "Embedded as PNG text metadata"
	default:
		p["type"] = "string"
	}
	return argName(in), p
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
