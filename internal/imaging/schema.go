package imaging

// MaxResolution bounds integer size inputs.
const MaxResolution = 16384

// Socket types understood by the host.
const (
	TypeImage   = "IMAGE"
	TypeMask    = "MASK"
	TypeFloat   = "FLOAT"
	TypeInt     = "INT"
	TypeBoolean = "BOOLEAN"
	TypeString  = "STRING"
	TypeChoice  = "COMBO"
	TypePrompt  = "PROMPT"
	TypeExtra   = "EXTRA_PNGINFO"
)

// Input declares one node input. Min, Max and Step apply to numeric types,
// Choices to TypeChoice.
type Input struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Default any      `json:"default,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    *float64 `json:"step,omitempty"`
	Choices []string `json:"choices,omitempty"`
}

// NodeSchema is what a node publishes to the host for discovery and socket
// wiring.
type NodeSchema struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Required    []Input  `json:"required"`
	Optional    []Input  `json:"optional,omitempty"`
	Hidden      []Input  `json:"hidden,omitempty"`
	Outputs     []string `json:"outputs"`
	OutputNode  bool     `json:"output_node"`
}

func ptr(v float64) *float64 { return &v }

func floatInput(name string, def, lo, hi, step float64) Input {
	return Input{Name: name, Type: TypeFloat, Default: def, Min: ptr(lo), Max: ptr(hi), Step: ptr(step)}
}

func intInput(name string, def, lo, hi int) Input {
	return Input{Name: name, Type: TypeInt, Default: def, Min: ptr(float64(lo)), Max: ptr(float64(hi)), Step: ptr(1)}
}

// CropSchema declares CropPercentage.
func CropSchema() NodeSchema {
	return NodeSchema{
		Name:        "CropImagePercentage",
		DisplayName: "Crop Image Percentage",
		Category:    "image",
		Description: "Crop an image batch by a percentage of its size on each edge.",
		Required: []Input{
			{Name: "image", Type: TypeImage},
			floatInput("left", 0, 0, 100, 0.1),
			floatInput("right", 0, 0, 100, 0.1),
			floatInput("top", 0, 0, 100, 0.1),
			floatInput("bottom", 0, 0, 100, 0.1),
		},
		Outputs: []string{TypeImage},
	}
}

// PadSchema declares Pad.
func PadSchema() NodeSchema {
	return NodeSchema{
		Name:        "PadImagePosition",
		DisplayName: "Pad Image Position",
		Category:    "image",
		Description: "Pad an image batch to a minimum size with a configurable anchor and optional mask feathering.",
		Required: []Input{
			{Name: "image", Type: TypeImage},
			intInput("pad_width", 0, 0, MaxResolution),
			intInput("pad_height", 0, 0, MaxResolution),
			{Name: "position", Type: TypeChoice, Default: Center.String(), Choices: PositionNames()},
			intInput("feathering", 0, 0, MaxResolution),
		},
		Optional: []Input{
			floatInput("bg_r", DefaultBackground, 0, 1, 0.01),
			floatInput("bg_g", DefaultBackground, 0, 1, 0.01),
			floatInput("bg_b", DefaultBackground, 0, 1, 0.01),
			{Name: "mask", Type: TypeMask},
		},
		Outputs: []string{TypeImage, TypeMask},
	}
}

// SaveSchema declares Saver.Save.
func SaveSchema() NodeSchema {
	return NodeSchema{
		Name:        "SaveImageDynamic",
		DisplayName: "Save Image Dynamic",
		Category:    "HQ-Image-Save",
		Description: "Save the first image of a batch as an 8-bit PNG at an exact path, with optional alpha and metadata.",
		Required: []Input{
			{Name: "filepath", Type: TypeString, Default: "absolute or relative .png path"},
			{Name: "overwrite", Type: TypeBoolean, Default: true},
		},
		Optional: []Input{
			{Name: "image", Type: TypeImage},
			{Name: "alpha", Type: TypeMask},
		},
		Hidden: []Input{
			{Name: "prompt", Type: TypePrompt},
			{Name: "extra_pnginfo", Type: TypeExtra},
		},
		Outputs:    []string{},
		OutputNode: true,
	}
}

// Registry lists every node schema in publication order.
func Registry() []NodeSchema {
	return []NodeSchema{SaveSchema(), CropSchema(), PadSchema()}
}
