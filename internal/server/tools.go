package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// lineSchema describes one recognized text line as accepted by the tools.
var lineSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"text": map[string]interface{}{
			"type":        "string",
			"description": "Recognized text of the line",
		},
		"corners": map[string]interface{}{
			"type":        "array",
			"description": "Exactly four corner points in upright image coordinates",
			"minItems":    4,
			"maxItems":    4,
			"items":       pointSchema,
		},
	},
	"required": []string{"text", "corners"},
}

var pointSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"x": map[string]interface{}{"type": "integer"},
		"y": map[string]interface{}{"type": "integer"},
	},
	"required": []string{"x", "y"},
}

var rectSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"left":   map[string]interface{}{"type": "integer"},
		"top":    map[string]interface{}{"type": "integer"},
		"right":  map[string]interface{}{"type": "integer"},
		"bottom": map[string]interface{}{"type": "integer"},
	},
	"required": []string{"left", "top", "right", "bottom"},
}

var linesProperty = map[string]interface{}{
	"type":        "array",
	"description": "Text lines of one frame, in any order",
	"items":       lineSchema,
}

func imageFrameProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the frame image",
		},
		"rotation": map[string]interface{}{
			"type":        "integer",
			"enum":        []int{0, 90, 180, 270},
			"description": "Clockwise rotation that makes the frame upright. Default 0",
		},
		"flipped": map[string]interface{}{
			"type":        "boolean",
			"description": "Frame comes from a mirrored (front camera) preview. Default from configuration",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	annotateProps := imageFrameProperties()
	annotateProps["output_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Optional path to also write the annotated image to (.png or .jpg)",
	}

	return []Tool{
		{
			Name:        "overlay_labels",
			Description: "List the configured labels in draw order with their colors and the tie-break policy.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "overlay_session_start",
			Description: "Start a camera session: publish the source frame size, rotation and mirroring, and the drawing surface size. Returns the session ID and scale factors.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Source frame width in sensor orientation",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Source frame height in sensor orientation",
					},
					"rotation": map[string]interface{}{
						"type":        "integer",
						"enum":        []int{0, 90, 180, 270},
						"description": "Clockwise rotation that makes frames upright. Width and height swap for 90 and 270",
					},
					"flipped": map[string]interface{}{
						"type":        "boolean",
						"description": "Mirrored preview. Default from configuration",
					},
					"surface_width": map[string]interface{}{
						"type":        "number",
						"description": "Drawing surface width. Default from configuration, else the source width",
					},
					"surface_height": map[string]interface{}{
						"type":        "number",
						"description": "Drawing surface height. Default from configuration, else the source height",
					},
				},
				"required": []string{"width", "height"},
			},
		},
		{
			Name:        "overlay_session_reset",
			Description: "End the current camera session, for example after switching cameras. Tools that need a session fail until overlay_session_start is called or, when frames are being analyzed, the next frame starts a new session.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "overlay_find_associations",
			Description: "Pair each configured label with the value printed on the same row. A label missing from the lines is simply absent from the result.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"lines": linesProperty,
				},
				"required": []string{"lines"},
			},
		},
		{
			Name:        "overlay_translate",
			Description: "Map points and rectangles from upright source coordinates to drawing surface coordinates for the current session.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points": map[string]interface{}{
						"type":  "array",
						"items": pointSchema,
					},
					"rects": map[string]interface{}{
						"type":  "array",
						"items": rectSchema,
					},
				},
			},
		},
		{
			Name:        "overlay_render",
			Description: "Match labels to values and return the ordered draw commands (box, label background, text) for the current session.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"lines": linesProperty,
				},
				"required": []string{"lines"},
			},
		},
		{
			Name:        "overlay_ocr_lines",
			Description: "Recognize the text lines of a frame image. Coordinates are in the upright image.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": imageFrameProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "overlay_annotate_image",
			Description: "Recognize a frame image, match labels to values and draw the overlay onto the upright image. Returns the associations, draw commands, whether every label was found, and the annotated image as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": annotateProps,
				"required":   []string{"path"},
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
