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
		"description": "Path to a .jpg, .jpeg or .png image file",
	}
}

func outputDirProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Directory for the result. Relative paths resolve against the photo directory; empty writes to the photo directory itself",
	}
}

// transformSchema builds the schema shared by every transform tool: a path,
// an optional output directory and any tool-specific properties.
func transformSchema(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path":       pathProperty(),
		"output_dir": outputDirProperty(),
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   []string{"path"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, kind (grayscale or color) and format.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Color Operations
		{
			Name:        "image_grayscale",
			Description: "Convert an image to single-channel luminance (0.299R + 0.587G + 0.114B) and save it with the _gray suffix.",
			InputSchema: transformSchema(nil),
		},
		{
			Name:        "image_to_color",
			Description: "Replicate a grayscale image into three equal channels and save it with the _rgb suffix.",
			InputSchema: transformSchema(nil),
		},
		{
			Name:        "image_gamma",
			Description: "Apply gamma correction v' = 255 * (v/255)^(1/gamma) and save the result with a _gamma<value> suffix.",
			InputSchema: transformSchema(map[string]interface{}{
				"gamma": map[string]interface{}{
					"type":        "number",
					"description": "Gamma value, must be positive (default 10.0)",
					"default":     10.0,
				},
			}),
		},

		// Filtering
		{
			Name:        "image_convolve",
			Description: "Convolve every channel with a kernel using zero padding, clip to 0-255 and save with the _conv suffix.",
			InputSchema: transformSchema(map[string]interface{}{
				"kernel": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "number"},
					},
					"description": "Kernel rows (default 3x3 with every weight 0.01)",
				},
				"engine": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"naive", "bild"},
					"description": "Convolution engine. bild extends edge pixels instead of zero padding (default naive)",
					"default":     "naive",
				},
			}),
		},

		// Feature Detection
		{
			Name:        "image_edge_detect",
			Description: "Compute the Sobel gradient magnitude normalized to 0-255 and save it as a grayscale image with the _edge suffix.",
			InputSchema: transformSchema(nil),
		},
		{
			Name:        "image_corner_detect",
			Description: "Detect Harris corners, mark them on a color copy saved with the _corn suffix, and return their coordinates.",
			InputSchema: transformSchema(map[string]interface{}{
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Relative response threshold in [0, 1] (default 0.01)",
					"default":     0.01,
				},
				"k": map[string]interface{}{
					"type":        "number",
					"description": "Harris sensitivity (default 0.04)",
					"default":     0.04,
				},
				"sigma": map[string]interface{}{
					"type":        "number",
					"description": "Gaussian window sigma (default 1.0)",
					"default":     1.0,
				},
				"nms_radius": map[string]interface{}{
					"type":        "integer",
					"description": "Non-maximum suppression radius (default 1)",
					"default":     1,
				},
				"marker_radius": map[string]interface{}{
					"type":        "integer",
					"description": "Radius of the corner markers (default 2)",
					"default":     2,
				},
				"marker_color": map[string]interface{}{
					"type":        "string",
					"description": "Marker color as #rrggbb (default #ff0000)",
					"default":     "#ff0000",
				},
			}),
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
