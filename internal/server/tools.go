package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func pathOnlySchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": pathProperty(),
		},
		"required": []string{"path"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "text_read",
			Description: "Detect and read every word in an image. Returns each word with its bounding box, sorted top to bottom then left to right.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"include_regions": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the detected regions and the padded regions sent to OCR. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "text_match",
			Description: "Find where a word or phrase appears in an image. Matching is fuzzy (tolerates OCR errors) and for phrases picks the most compact group of words. Returns the center point, or found=false.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"phrase": map[string]interface{}{
						"type":        "string",
						"description": "Word or whitespace-separated phrase to find",
					},
				},
				"required": []string{"path", "phrase"},
			},
		},
		{
			Name:        "text_ocr",
			Description: "Transcribe the whole image as plain text with line breaks, without word boxes. Use text_read when positions matter.",
			InputSchema: pathOnlySchema(),
		},
		{
			Name:        "text_detect",
			Description: "Run only the text region detector and return candidate boxes with confidence scores, highest first.",
			InputSchema: pathOnlySchema(),
		},
		{
			Name:        "text_annotate",
			Description: "Return the image as base64 PNG with detected regions and recognized words drawn on it. If a phrase is given, its match point is marked with a crosshair.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"phrase": map[string]interface{}{
						"type":        "string",
						"description": "Optional phrase to locate and mark",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "text_crop",
			Description: "Crop a region from an image and return it as base64-encoded PNG. Use this to inspect a match or a detected region up close.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Region width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Region height in pixels",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "x", "y", "width", "height"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image as the text spotter sees it (after any configured resize).",
			InputSchema: pathOnlySchema(),
		},
		{
			Name:        "image_evict",
			Description: "Drop an image from the server's cache so the next call rereads it from disk. Set all=true to empty the cache. Returns the number of images still cached.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"all": map[string]interface{}{
						"type":        "boolean",
						"description": "Drop every cached image instead of only path. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
	}
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
