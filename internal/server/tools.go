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
		"description": "Absolute path to the page image (PNG, JPEG, GIF, TIFF or BMP)",
	}
}

// estimateProperties are shared by the tools that run an estimate.
func estimateProperties() map[string]interface{} {
	return withProperties(map[string]interface{}{
		"path": pathProperty(),
		"strategy": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"hough", "segments"},
			"description": "Line source: 'hough' votes lower stroke edges (default), 'segments' runs morphology, Canny and a segment Hough",
		},
		"policy": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"mode", "mean"},
			"description": "How line angles are reduced: most frequent angle (default) or mean rounded to 0.1°",
		},
		"top_k": map[string]interface{}{
			"type":        "integer",
			"description": "Number of strongest Hough lines to aggregate (default 20)",
			"default":     20,
		},
		"luminance_cutoff": map[string]interface{}{
			"type":        "integer",
			"description": "Pixels darker than this count as ink (default 140)",
			"default":     140,
		},
		"blur_radius": map[string]interface{}{
			"type":        "number",
			"description": "Gaussian blur radius applied before the segment strategy's edge detection. 0 disables it",
			"default":     0,
		},
	}, binarizeProperties())
}

// binarizeProperties control how a page is reduced to ink and paper before voting.
func binarizeProperties() map[string]interface{} {
	return map[string]interface{}{
		"binarize": map[string]interface{}{
			"type":        "boolean",
			"description": "Threshold the page to black and white first. Helps with uneven lighting",
			"default":     false,
		},
		"threshold_level": map[string]interface{}{
			"type":        "integer",
			"description": "With binarize, cut at this global grey level (1-255) instead of Sauvola's adaptive threshold. 0 keeps Sauvola",
			"default":     0,
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "image_load",
			Description: "Load a page image and return its dimensions, format and whether it is 1-bit. The decoded image is cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of a page image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Skew Estimation
		{
			Name:        "deskew_detect_lines",
			Description: "Run the lower-edge Hough transform on the middle half of the page and return the strongest (angle, distance, votes) lines. Angles are degrees; positive descends to the right.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"path": pathProperty(),
					"top_k": map[string]interface{}{
						"type":        "integer",
						"description": "Number of lines to return (default 20)",
						"default":     20,
					},
					"angle_start": map[string]interface{}{
						"type":        "number",
						"description": "First angle bucket in degrees. Used together with angle_step and angle_steps (default -20)",
						"default":     -20,
					},
					"angle_step": map[string]interface{}{
						"type":        "number",
						"description": "Angle bucket width in degrees (default 0.2)",
						"default":     0.2,
					},
					"angle_steps": map[string]interface{}{
						"type":        "integer",
						"description": "Number of angle buckets (default 200)",
						"default":     200,
					},
					"luminance_cutoff": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels darker than this count as ink (default 140)",
						"default":     140,
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Parallel voting workers. 0 uses one per CPU",
						"default":     0,
					},
				}, binarizeProperties()),
				"required": []string{"path"},
			},
		},
		{
			Name:        "deskew_estimate",
			Description: "Estimate the skew angle of a scanned page in degrees. Positive means text lines descend to the right. Returns 0 with detected=false when no lines are found.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": withProperties(estimateProperties(), map[string]interface{}{
					"include_lines": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the lines or segments the estimate was built from",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "deskew_estimate_segments",
			Description: "Reduce caller-supplied line segments to a single skew angle. Each segment is classified as 0 (horizontal), 90 (vertical) or its rounded angle.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"segments": map[string]interface{}{
						"type":        "array",
						"description": "Segments as {x1, y1, x2, y2} in image coordinates",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x1": map[string]interface{}{"type": "number"},
								"y1": map[string]interface{}{"type": "number"},
								"x2": map[string]interface{}{"type": "number"},
								"y2": map[string]interface{}{"type": "number"},
							},
							"required": []string{"x1", "y1", "x2", "y2"},
						},
					},
					"policy": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"mode", "mean"},
						"description": "Reduction policy (default mode)",
					},
				},
				"required": []string{"segments"},
			},
		},
		{
			Name:        "deskew_rotate",
			Description: "Estimate the skew of a page, rotate it level and save the result to output_path. Pass angle to skip estimation and rotate by a known amount.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(estimateProperties(), map[string]interface{}{
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Where to write the levelled page. The extension selects the format",
					},
					"angle": map[string]interface{}{
						"type":        "number",
						"description": "Known skew in degrees. Skips estimation when set",
					},
				}),
				"required": []string{"path", "output_path"},
			},
		},

		// Diagnostics
		{
			Name:        "deskew_lines_overlay",
			Description: "Draw the lines behind a skew estimate over the page and return it as base64 PNG, with the angle stamped top-left.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(estimateProperties(), map[string]interface{}{
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Line colour as #RRGGBB (default #FF0000)",
						"default":     "#FF0000",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "deskew_angle_profile",
			Description: "Chart the strongest Hough vote per angle bucket as base64 PNG. A single sharp peak means a confident estimate.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"path": pathProperty(),
					"luminance_cutoff": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels darker than this count as ink (default 140)",
						"default":     140,
					},
				}, binarizeProperties()),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_edge_detect",
			Description: "Return the Canny edge map the segment strategy works on, as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Low threshold for Canny edge detection (default 50)",
						"default":     50,
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "High threshold for Canny edge detection (default 150)",
						"default":     150,
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

func withProperties(base, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
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
