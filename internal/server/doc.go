// Package server exposes the text spotter as an MCP (Model Context Protocol)
// tool server.
//
// # Protocol
//
// The server speaks JSON-RPC 2.0, one request per line:
//   - Input: requests on stdin
//   - Output: responses on stdout
//
// Logs go to stderr so they never interleave with protocol frames.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Reading and matching:
//   - text_read: Detect and read every word, sorted by position
//   - text_match: Locate a word or phrase, fuzzy and compactness-ranked
//   - text_ocr: Plain text of the whole image, no boxes
//   - text_detect: Candidate text regions only, no OCR
//
// Inspection:
//   - text_annotate: Image with regions, words and the match point drawn on it
//   - text_crop: Extract a region as PNG
//   - image_dimensions: Width and height after configured resizing
//   - image_evict: Drop one image, or all of them, from the cache
//
// Images are cached by path for the lifetime of the process; image_evict
// forces a reread after the file changes on disk.
//
// # Error Handling
//
// Tool failures (unreadable image, cancelled run, rejected search) come back
// as JSON-RPC errors with code -32000 and the Go error string in data. A
// phrase that simply does not occur is not an error: text_match returns
// found=false with point (-1, -1).
//
// # Usage
//
//	srv := server.New(sp, logger, version)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("mcp server stopped", zap.Error(err))
//	}
package server
