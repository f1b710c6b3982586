package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/deskew-mcp/internal/deskew"
	"github.com/ironsheep/deskew-mcp/internal/imaging"
	"github.com/ironsheep/deskew-mcp/internal/skew"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "deskew_estimate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments return a JSON-RPC error with code -32602. Any other tool
// failure returns code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, skew.ErrInvalidInput) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Merges them over the server's base options
//  3. Loads images from cache as needed
//  4. Calls the estimator or the imaging helpers
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Skew Estimation
	case "deskew_detect_lines":
		return s.handleDetectLines(ctx, args)
	case "deskew_estimate":
		return s.handleEstimate(ctx, args)
	case "deskew_estimate_segments":
		return s.handleEstimateSegments(args)
	case "deskew_rotate":
		return s.handleRotate(ctx, args)

	// Diagnostics
	case "deskew_lines_overlay":
		return s.handleLinesOverlay(ctx, args)
	case "deskew_angle_profile":
		return s.handleAngleProfile(ctx, args)
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)

	default:
		return nil, &skew.InvalidInputError{Field: "name", Reason: fmt.Sprintf("unknown tool: %s", name)}
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, reporting malformed JSON as invalid input.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &skew.InvalidInputError{Field: "arguments", Reason: err.Error()}
	}
	return nil
}

func requirePath(field, path string) error {
	if path == "" {
		return &skew.InvalidInputError{Field: field, Reason: "required"}
	}
	return nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath("path", a.Path); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath("path", a.Path); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Skew Estimation Handlers ===

// estimateArgs are the per-call overrides accepted by every tool that runs
// the estimator. Zero values keep the server's configured defaults.
type estimateArgs struct {
	Path            string  `json:"path"`
	Strategy        string  `json:"strategy"`
	Policy          string  `json:"policy"`
	TopK            int     `json:"top_k"`
	LuminanceCutoff int     `json:"luminance_cutoff"`
	Binarize        bool    `json:"binarize"`
	ThresholdLevel  int     `json:"threshold_level"`
	BlurRadius      float64 `json:"blur_radius"`
}

func (s *Server) options(a estimateArgs) (deskew.Options, error) {
	opts := s.base
	if a.Strategy != "" {
		st, err := deskew.ParseStrategy(a.Strategy)
		if err != nil {
			return opts, err
		}
		opts.Strategy = st
	}
	if a.Policy != "" {
		p, err := skew.ParsePolicy(a.Policy)
		if err != nil {
			return opts, err
		}
		opts.Policy = p
	}
	if a.TopK != 0 {
		opts.TopK = a.TopK
	}
	if a.LuminanceCutoff != 0 {
		opts.LuminanceCutoff = a.LuminanceCutoff
	}
	if a.Binarize {
		opts.Binarize = true
	}
	if a.ThresholdLevel != 0 {
		opts.ThresholdLevel = a.ThresholdLevel
	}
	if a.BlurRadius != 0 {
		opts.BlurRadius = a.BlurRadius
	}
	return opts, nil
}

func (s *Server) estimate(ctx context.Context, a estimateArgs) (*deskew.Result, error) {
	if err := requirePath("path", a.Path); err != nil {
		return nil, err
	}
	opts, err := s.options(a)
	if err != nil {
		return nil, err
	}
	est, err := deskew.NewEstimator(opts, s.log)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return est.Estimate(ctx, img)
}

type detectLinesArgs struct {
	estimateArgs
	AngleStart float64 `json:"angle_start"`
	AngleStep  float64 `json:"angle_step"`
	AngleSteps int     `json:"angle_steps"`
	Workers    int     `json:"workers"`
}

// DetectLinesResult lists the strongest Hough lines of a page.
type DetectLinesResult struct {
	Width        int              `json:"width"`
	Height       int              `json:"height"`
	ScanTop      int              `json:"scan_top"`
	ScanBottom   int              `json:"scan_bottom"`
	AngleStart   float64          `json:"angle_start"`
	AngleEnd     float64          `json:"angle_end"`
	Cells        int              `json:"cells"`
	Binarized    bool             `json:"binarized"`
	Lines        []skew.HoughLine `json:"lines"`
	VotesCast    int              `json:"votes_cast"`
	DroppedVotes int              `json:"dropped_votes"`
}

func (s *Server) handleDetectLines(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectLinesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath("path", a.Path); err != nil {
		return nil, err
	}

	opts, err := s.options(a.estimateArgs)
	if err != nil {
		return nil, err
	}
	// The lines explain a Hough estimate whatever the configured strategy.
	opts.Strategy = deskew.StrategyHough
	if a.AngleSteps > 0 && a.AngleStep > 0 {
		opts.Range = skew.AngleRange{Start: a.AngleStart, Step: a.AngleStep, Steps: a.AngleSteps}
	}
	if a.Workers != 0 {
		opts.Workers = a.Workers
	}
	est, err := deskew.NewEstimator(opts, s.log)
	if err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	acc, err := est.Accumulate(ctx, img)
	if err != nil {
		return nil, err
	}

	used := est.Options()
	b := img.Bounds()
	top, bottom := skew.ScanBand(b.Dy())
	return &DetectLinesResult{
		Width:        b.Dx(),
		Height:       b.Dy(),
		ScanTop:      top,
		ScanBottom:   bottom,
		AngleStart:   used.Range.Start,
		AngleEnd:     used.Range.End(),
		Cells:        acc.Len(),
		Binarized:    used.Binarize,
		Lines:        acc.Top(used.TopK),
		VotesCast:    acc.Cast,
		DroppedVotes: acc.Dropped,
	}, nil
}

type estimateToolArgs struct {
	estimateArgs
	IncludeLines bool `json:"include_lines"`
}

func (s *Server) handleEstimate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a estimateToolArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	res, err := s.estimate(ctx, a.estimateArgs)
	if err != nil {
		return nil, err
	}
	if !a.IncludeLines {
		res.Lines = nil
		res.Segments = nil
	}
	return res, nil
}

type estimateSegmentsArgs struct {
	Segments []skew.LineSegment `json:"segments"`
	Policy   string             `json:"policy"`
}

// EstimateSegmentsResult is the angle reduced from caller-supplied segments.
type EstimateSegmentsResult struct {
	Angle    float64 `json:"angle"`
	Policy   string  `json:"policy"`
	Segments int     `json:"segments"`
}

func (s *Server) handleEstimateSegments(args json.RawMessage) (interface{}, error) {
	var a estimateSegmentsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	policy := s.base.Policy
	if a.Policy != "" {
		p, err := skew.ParsePolicy(a.Policy)
		if err != nil {
			return nil, err
		}
		policy = p
	}
	return &EstimateSegmentsResult{
		Angle:    skew.EstimateSkew(a.Segments, policy),
		Policy:   policy.String(),
		Segments: len(a.Segments),
	}, nil
}

type rotateArgs struct {
	estimateArgs
	OutputPath string   `json:"output_path"`
	Angle      *float64 `json:"angle"`
}

// RotateResult describes a levelled page written to disk.
type RotateResult struct {
	OutputPath string  `json:"output_path"`
	Angle      float64 `json:"angle"`
	Estimated  bool    `json:"estimated"`
	Detected   bool    `json:"detected"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

func (s *Server) handleRotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a rotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath("path", a.Path); err != nil {
		return nil, err
	}
	if err := requirePath("output_path", a.OutputPath); err != nil {
		return nil, err
	}

	out := &RotateResult{OutputPath: a.OutputPath}
	if a.Angle != nil {
		out.Angle = *a.Angle
		out.Detected = true
	} else {
		res, err := s.estimate(ctx, a.estimateArgs)
		if err != nil {
			return nil, err
		}
		out.Angle = res.Angle
		out.Estimated = true
		out.Detected = res.Detected
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	rotated := imaging.Rotate(img, out.Angle)
	if err := imaging.SaveImage(rotated, a.OutputPath); err != nil {
		return nil, err
	}
	// A later load of the output path must see the new file.
	s.cache.Evict(a.OutputPath)

	out.Width = rotated.Rect.Dx()
	out.Height = rotated.Rect.Dy()
	s.log.Info().
		Str("path", a.Path).
		Str("output", a.OutputPath).
		Float64("angle", out.Angle).
		Msg("page deskewed")
	return out, nil
}

// === Diagnostic Handlers ===

type linesOverlayArgs struct {
	estimateArgs
	Color string `json:"color"`
}

func (s *Server) handleLinesOverlay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a linesOverlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Color == "" {
		a.Color = imaging.DefaultLineColor
	}
	if _, err := imaging.ParseColor(a.Color); err != nil {
		return nil, &skew.InvalidInputError{Field: "color", Reason: err.Error()}
	}

	res, err := s.estimate(ctx, a.estimateArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.LinesOverlay(img, res.Lines, res.Segments, a.Color, res.Angle)
}

type angleProfileArgs struct {
	Path            string `json:"path"`
	LuminanceCutoff int    `json:"luminance_cutoff"`
	Binarize        bool   `json:"binarize"`
	ThresholdLevel  int    `json:"threshold_level"`
}

func (s *Server) handleAngleProfile(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a angleProfileArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	// The profile only exists for the accumulator strategy.
	res, err := s.estimate(ctx, estimateArgs{
		Path:            a.Path,
		Strategy:        deskew.StrategyHough.String(),
		LuminanceCutoff: a.LuminanceCutoff,
		Binarize:        a.Binarize,
		ThresholdLevel:  a.ThresholdLevel,
	})
	if err != nil {
		return nil, err
	}
	return imaging.AngleProfilePNG(res.Profile, res.Angle)
}

type imageEdgeDetectArgs struct {
	Path          string `json:"path"`
	ThresholdLow  int    `json:"threshold_low"`
	ThresholdHigh int    `json:"threshold_high"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath("path", a.Path); err != nil {
		return nil, err
	}
	if a.ThresholdLow == 0 {
		a.ThresholdLow = s.base.CannyLow
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = s.base.CannyHigh
	}
	if a.ThresholdLow < 0 || a.ThresholdHigh < a.ThresholdLow {
		return nil, &skew.InvalidInputError{
			Field:  "threshold_high",
			Reason: fmt.Sprintf("need 0 <= threshold_low <= threshold_high, got %d and %d", a.ThresholdLow, a.ThresholdHigh),
		}
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.ThresholdLow, a.ThresholdHigh)
}
