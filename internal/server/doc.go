// Package server exposes the image nodes over the MCP (Model Context
// Protocol) so that an MCP client can act as the host graph.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_load: Load an image and report its tensor shape and metadata keys
//   - image_crop_percentage: CropImagePercentage node
//   - image_pad_position: PadImagePosition node
//   - image_save: SaveImageDynamic node
//
// Node tools are generated from the node schemas in the imaging package.
// Image and mask sockets are passed as file paths ("path", "mask_path",
// "alpha_path"); widgets keep their node names. Image-producing tools return
// the first batch element, and the mask when there is one, as base64 PNG.
// The optional "scale" argument only affects these previews.
//
// # Image Caching
//
// Decoded source images are cached by path for the lifetime of the process.
// image_save evicts the path it writes.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses:
//   - -32602: malformed arguments, unknown tool, invalid node input or a
//     missing required image
//   - -32000: any other failure (I/O, decode)
//
// # Usage
//
//	srv := server.New(server.Options{Saver: &imaging.Saver{OutputDir: "./output"}})
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
