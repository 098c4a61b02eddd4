// Package server implements an MCP (Model Context Protocol) server that
// exposes the single-image transformations over stdio.
//
// # Protocol
//
// The server communicates using JSON-RPC 2.0:
//   - Input: JSON-RPC requests, one per line
//   - Output: JSON-RPC responses, one per line
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_load: Load an image and report its metadata
//   - image_grayscale: Luminance projection
//   - image_to_color: Grayscale to three channels
//   - image_gamma: Gamma correction
//   - image_convolve: Zero-padded convolution, optionally with the bild engine
//   - image_edge_detect: Sobel edge magnitude
//   - image_corner_detect: Harris corners marked on a color copy
//
// Every transform tool writes its result through the configured store and
// returns the written path with the result's dimensions and kind. The file
// name is the source stem plus the transformation suffix.
//
// # Image Caching
//
// Source images are decoded once and cached by path for the lifetime of the
// server. A cached entry is evicted whenever a tool writes to that path.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(store, logger, version)
//	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil {
//	    return err
//	}
package server
