package imaging

import "fmt"

// Position anchors the original content inside an enlarged canvas.
type Position int

// The nine anchors, in the order the node schema lists them.
const (
	Center Position = iota
	TopLeft
	TopRight
	TopCenter
	BottomLeft
	BottomRight
	CenterLeft
	CenterRight
	BottomCenter
)

var positionNames = [...]string{
	Center:       "center",
	TopLeft:      "top_left",
	TopRight:     "top_right",
	TopCenter:    "top_center",
	BottomLeft:   "bottom_left",
	BottomRight:  "bottom_right",
	CenterLeft:   "center_left",
	CenterRight:  "center_right",
	BottomCenter: "bottom_center",
}

// Positions returns every anchor in schema order.
func Positions() []Position {
	return []Position{Center, TopLeft, TopRight, TopCenter, BottomLeft, BottomRight, CenterLeft, CenterRight, BottomCenter}
}

// PositionNames returns the symbolic names of every anchor in schema order.
func PositionNames() []string {
	names := make([]string, len(positionNames))
	copy(names, positionNames[:])
	return names
}

// String returns the position's wire name, or "Position(n)" when out of range.
func (p Position) String() string {
	if p < 0 || int(p) >= len(positionNames) {
		return fmt.Sprintf("Position(%d)", int(p))
	}
	return positionNames[p]
}

// ParsePosition maps a symbolic name such as "top_left" to its Position.
func ParsePosition(s string) (Position, error) {
	for i, name := range positionNames {
		if name == s {
			return Position(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unsupported position %q", ErrInvalidInput, s)
}

// Offsets is the padding added on each edge plus the resulting canvas size.
type Offsets struct {
	Left   int `json:"left"`
	Right  int `json:"right"`
	Top    int `json:"top"`
	Bottom int `json:"bottom"`

	// Width and Height are the padded canvas size.
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ComputeOffsets splits the growth needed to reach (padWidth, padHeight)
// between the edges according to position.
//
// padWidth and padHeight are a floor on the final canvas: a request smaller
// than the image leaves that axis unpadded. Split axes give the smaller half
// to the leading edge.
func ComputeOffsets(width, height, padWidth, padHeight int, position Position) (Offsets, error) {
	width = max(width, 0)
	height = max(height, 0)
	targetWidth := max(padWidth, width)
	targetHeight := max(padHeight, height)

	ew := targetWidth - width
	eh := targetHeight - height

	o := Offsets{Width: targetWidth, Height: targetHeight}
	switch position {
	case Center:
		o.Left, o.Right = ew/2, ew-ew/2
		o.Top, o.Bottom = eh/2, eh-eh/2
	case TopLeft:
		o.Left, o.Right = 0, ew
		o.Top, o.Bottom = 0, eh
	case TopRight:
		o.Left, o.Right = ew, 0
		o.Top, o.Bottom = 0, eh
	case TopCenter:
		o.Left, o.Right = ew/2, ew-ew/2
		o.Top, o.Bottom = 0, eh
	case BottomLeft:
		o.Left, o.Right = 0, ew
		o.Top, o.Bottom = eh, 0
	case BottomRight:
		o.Left, o.Right = ew, 0
		o.Top, o.Bottom = eh, 0
	case CenterLeft:
		o.Left, o.Right = 0, ew
		o.Top, o.Bottom = eh/2, eh-eh/2
	case CenterRight:
		o.Left, o.Right = ew, 0
		o.Top, o.Bottom = eh/2, eh-eh/2
	case BottomCenter:
		o.Left, o.Right = ew/2, ew-ew/2
		o.Top, o.Bottom = eh, 0
	default:
		return Offsets{}, fmt.Errorf("%w: unsupported position %s", ErrInvalidInput, position)
	}
	return o, nil
}
