// Package server implements the MCP (Model Context Protocol) server for the
// field overlay.
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
// Configuration and session:
//   - overlay_labels: configured labels, colors and tie-break policy
//   - overlay_session_start: publish source size, rotation, mirroring and surface size
//   - overlay_session_reset: end the current session
//
// Matching and drawing:
//   - overlay_find_associations: pair labels with their values
//   - overlay_translate: source to surface coordinates for the current session
//   - overlay_render: draw commands for the current session
//
// Recognition:
//   - overlay_ocr_lines: text lines of a frame image
//   - overlay_annotate_image: recognize, match and draw onto the frame
//
// The session cell may be shared with the frame analyzer (see
// WithSourceCell), in which case the first analyzed frame starts the session
// and overlay_translate and overlay_render follow it.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: the Go error string
//
// # Usage
//
//	srv := server.New(cfg, server.WithEngine(engine), server.WithLogger(log))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
