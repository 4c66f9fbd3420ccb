// Package imaging implements the image nodes published to the host graph.
//
// Three nodes are provided, each an isolated transform over tensors from
// package tensor:
//   - CropPercentage removes a percentage of width/height from each edge.
//   - Pad grows a batch to a minimum size, anchoring the original at one of
//     nine positions and returning a companion mask with optional feathering.
//   - Saver.Save writes the first image of a batch to an 8-bit PNG file with
//     optional alpha and JSON text metadata.
//
// # Coordinate System
//
// Tensors are indexed (batch, row, column, channel). Row 0 is the top of the
// image and column 0 the left edge. Offsets returned by ComputeOffsets are in
// pixels added on each edge.
//
// # Thread Safety
//
// Nodes hold no state between calls and allocate fresh output tensors, so
// they may run concurrently. ImageCache is safe for concurrent use.
//
// # Error Handling
//
// Rejected arguments wrap ErrInvalidInput; a missing required image wraps
// ErrPrecondition. File system failures wrap the underlying error. Two
// conditions are not errors: an all-zero mask given to Pad is treated as
// absent, and Save with Overwrite false on an existing file is skipped.
//
// # Schemas
//
// CropSchema, PadSchema and SaveSchema describe each node's typed inputs
// (ranges, defaults, choices) and outputs. The host enforces them in its UI;
// the nodes clamp or reject out-of-range values themselves.
package imaging
