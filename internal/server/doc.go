// Package server implements the MCP (Model Context Protocol) server for page
// deskewing.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to the zerolog logger handed to New, never to stdout.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load a page and get metadata
//   - image_dimensions: Get width and height
//
// Skew Estimation:
//   - deskew_detect_lines: Strongest lower-edge Hough lines
//   - deskew_estimate: Skew angle of a page
//   - deskew_estimate_segments: Skew angle of caller-supplied segments
//   - deskew_rotate: Level a page and write it to disk
//
// Diagnostics:
//   - deskew_lines_overlay: Detected lines drawn over the page
//   - deskew_angle_profile: Votes per angle chart
//   - image_edge_detect: Canny edge map
//
// Estimation tools start from the options passed to New and apply any
// non-zero arguments on top for that call only.
//
// # Error Handling
//
// Errors are returned as JSON-RPC error responses:
//   - -32700: a request line was not valid JSON (the id is null)
//   - -32601: the method is unknown
//   - -32602: the arguments were invalid (errors matching skew.ErrInvalidInput)
//   - -32000: the tool failed, e.g. the file could not be decoded
//
// # Usage
//
//	srv := server.New(cfg.Deskew, log)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal().Err(err).Msg("server stopped")
//	}
package server
