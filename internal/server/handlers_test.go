package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/deskew-mcp/internal/deskew"
	"github.com/ironsheep/deskew-mcp/internal/imaging"
)

// createPageFile writes a white page crossed by black bars that descend to
// the right at angle degrees, and returns its path.
func createPageFile(t *testing.T, width, height int, angle float64) string {
	t.Helper()
	return createPageFileOn(t, width, height, angle, 255)
}

// createPageFileOn is createPageFile on paper of the given grey level.
func createPageFileOn(t *testing.T, width, height int, angle float64, paper uint8) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = paper
		if i%4 == 3 {
			img.Pix[i] = 255
		}
	}
	const spacing, thickness = 20, 3
	slope := math.Tan(angle * math.Pi / 180)
	drift := int(math.Abs(slope)*float64(width)) + spacing
	for base := -drift; base < height+drift; base += spacing {
		for x := 0; x < width; x++ {
			y0 := base + int(math.Round(float64(x)*slope))
			for dy := 0; dy < thickness; dy++ {
				if y := y0 + dy; y >= 0 && y < height {
					img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
				}
			}
		}
	}

	path := filepath.Join(t.TempDir(), "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	}

	resp := s.handleRequest(context.Background(), req)
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolResult unwraps the MCP text content of a successful response into v.
func decodeToolResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	text, ok := content[0]["text"].(string)
	if !ok {
		t.Fatal("content text should be a string")
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 100, 80, 0)

	var info imaging.ImageInfo
	decodeToolResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 200, 150, 0)

	var dims imaging.DimensionsResult
	decodeToolResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}), &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_DetectLines(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 400, 300, 3)

	var res DetectLinesResult
	decodeToolResult(t, callTool(t, s, "deskew_detect_lines", map[string]interface{}{
		"path":  path,
		"top_k": 5,
	}), &res)

	if len(res.Lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(res.Lines))
	}
	for i := 1; i < len(res.Lines); i++ {
		if res.Lines[i].Votes > res.Lines[i-1].Votes {
			t.Errorf("lines not ordered by votes at %d", i)
		}
	}
	if math.Abs(res.Lines[0].Angle-3) > 0.2+1e-9 {
		t.Errorf("strongest line at %v, want about 3", res.Lines[0].Angle)
	}
	if res.ScanTop != 75 || res.ScanBottom != 225 {
		t.Errorf("scan band: got [%d, %d), want [75, 225)", res.ScanTop, res.ScanBottom)
	}
	if res.VotesCast == 0 {
		t.Error("no votes cast")
	}
	if res.AngleStart != -20 || math.Abs(res.AngleEnd-19.8) > 1e-9 {
		t.Errorf("angle range: got [%v, %v]", res.AngleStart, res.AngleEnd)
	}
	if res.Cells == 0 || res.Cells%200 != 0 {
		t.Errorf("cells: got %d, want a multiple of 200 angles", res.Cells)
	}
	if res.Binarized {
		t.Error("binarized without binarize")
	}
}

func TestHandleToolsCall_DetectLinesBinarize(t *testing.T) {
	// Grey paper is darker than the luminance cutoff, so only a binarized
	// page yields lower edges.
	path := createPageFileOn(t, 400, 300, 3, 120)

	tests := []struct {
		name  string
		args  map[string]interface{}
		lines bool
	}{
		{"raw", map[string]interface{}{}, false},
		{"sauvola", map[string]interface{}{"binarize": true}, true},
		{"global", map[string]interface{}{"binarize": true, "threshold_level": 100}, true},
	}

	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{"path": path, "top_k": 5}
			for k, v := range tt.args {
				args[k] = v
			}

			var res DetectLinesResult
			decodeToolResult(t, callTool(t, s, "deskew_detect_lines", args), &res)

			if got := len(res.Lines) > 0; got != tt.lines {
				t.Fatalf("lines found: got %v, want %v", got, tt.lines)
			}
			if !tt.lines {
				return
			}
			if !res.Binarized {
				t.Error("result not marked binarized")
			}

			// The lines must be the ones the estimate is built from.
			estArgs := map[string]interface{}{"path": path, "top_k": 5, "include_lines": true}
			for k, v := range tt.args {
				estArgs[k] = v
			}
			var est deskew.Result
			decodeToolResult(t, callTool(t, s, "deskew_estimate", estArgs), &est)

			if math.Abs(est.Angle-3) > 0.2+1e-9 {
				t.Errorf("estimate: got %v, want about 3", est.Angle)
			}
			if len(est.Lines) != len(res.Lines) {
				t.Fatalf("got %d lines, estimate used %d", len(res.Lines), len(est.Lines))
			}
			for i := range res.Lines {
				if res.Lines[i] != est.Lines[i] {
					t.Errorf("line %d: got %+v, estimate used %+v", i, res.Lines[i], est.Lines[i])
				}
			}
		})
	}
}

func TestHandleToolsCall_DetectLinesCustomRange(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 400, 300, 3)

	var res DetectLinesResult
	decodeToolResult(t, callTool(t, s, "deskew_detect_lines", map[string]interface{}{
		"path":        path,
		"top_k":       3,
		"angle_start": 2,
		"angle_step":  0.5,
		"angle_steps": 5,
		"workers":     2,
	}), &res)

	for _, l := range res.Lines {
		if l.Angle < 2-1e-9 || l.Angle > 4+1e-9 {
			t.Errorf("line angle %v outside [2, 4]", l.Angle)
		}
	}
}

func TestHandleToolsCall_Estimate(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 600, 400, -4)

	var res deskew.Result
	decodeToolResult(t, callTool(t, s, "deskew_estimate", map[string]interface{}{"path": path}), &res)

	if !res.Detected {
		t.Fatal("nothing detected")
	}
	if math.Abs(res.Angle+4) > 0.2+1e-9 {
		t.Errorf("got %v, want about -4", res.Angle)
	}
	if len(res.Lines) != 0 {
		t.Error("lines returned without include_lines")
	}
	if res.Width != 600 || res.Height != 400 {
		t.Errorf("dimensions: got %dx%d", res.Width, res.Height)
	}
}

func TestHandleToolsCall_EstimateOverrides(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 600, 400, 2)

	var res deskew.Result
	decodeToolResult(t, callTool(t, s, "deskew_estimate", map[string]interface{}{
		"path":          path,
		"policy":        "mean",
		"top_k":         7,
		"include_lines": true,
	}), &res)

	if res.Policy != "mean" {
		t.Errorf("Policy: got %s, want mean", res.Policy)
	}
	if len(res.Lines) != 7 {
		t.Errorf("got %d lines, want 7", len(res.Lines))
	}
	if math.Abs(res.Angle-2) > 0.3 {
		t.Errorf("got %v, want about 2", res.Angle)
	}

	// Per-call overrides must not leak into the server's defaults.
	if s.base.Policy.String() != "mode" || s.base.TopK != 20 {
		t.Errorf("base options modified: %+v", s.base)
	}
}

func TestHandleToolsCall_EstimateSegments(t *testing.T) {
	s := newTestServer()

	var res EstimateSegmentsResult
	decodeToolResult(t, callTool(t, s, "deskew_estimate_segments", map[string]interface{}{
		"segments": []map[string]interface{}{
			{"x1": 0, "y1": 0, "x2": 100, "y2": 0},
			{"x1": 0, "y1": 0, "x2": 100, "y2": 0},
			{"x1": 0, "y1": 0, "x2": 0, "y2": 100},
		},
	}), &res)

	if res.Angle != 0 {
		t.Errorf("Angle: got %v, want 0", res.Angle)
	}
	if res.Segments != 3 || res.Policy != "mode" {
		t.Errorf("got %+v", res)
	}
}

func TestHandleToolsCall_EstimateSegmentsEmpty(t *testing.T) {
	s := newTestServer()

	var res EstimateSegmentsResult
	decodeToolResult(t, callTool(t, s, "deskew_estimate_segments", map[string]interface{}{}), &res)

	if res.Angle != 0 || res.Segments != 0 {
		t.Errorf("got %+v, want zero result", res)
	}
}

func TestHandleToolsCall_Rotate(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 500, 400, 5)
	outPath := filepath.Join(t.TempDir(), "level.png")

	var res RotateResult
	decodeToolResult(t, callTool(t, s, "deskew_rotate", map[string]interface{}{
		"path":        path,
		"output_path": outPath,
	}), &res)

	if !res.Estimated || !res.Detected {
		t.Errorf("got %+v, want an estimated detection", res)
	}
	if math.Abs(res.Angle-5) > 0.2+1e-9 {
		t.Errorf("Angle: got %v, want about 5", res.Angle)
	}
	if res.Width != 500 || res.Height != 400 {
		t.Errorf("dimensions: got %dx%d", res.Width, res.Height)
	}

	// The written page should now measure close to level.
	var after deskew.Result
	decodeToolResult(t, callTool(t, s, "deskew_estimate", map[string]interface{}{"path": outPath}), &after)
	if math.Abs(after.Angle) >= 1 {
		t.Errorf("output still skewed by %v", after.Angle)
	}
}

func TestHandleToolsCall_RotateKnownAngle(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 120, 100, 0)
	outPath := filepath.Join(t.TempDir(), "turned.png")

	var res RotateResult
	decodeToolResult(t, callTool(t, s, "deskew_rotate", map[string]interface{}{
		"path":        path,
		"output_path": outPath,
		"angle":       -2.5,
	}), &res)

	if res.Estimated {
		t.Error("explicit angle should skip estimation")
	}
	if res.Angle != -2.5 {
		t.Errorf("Angle: got %v, want -2.5", res.Angle)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestHandleToolsCall_LinesOverlay(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 300, 200, 2)

	var res imaging.OverlayResult
	decodeToolResult(t, callTool(t, s, "deskew_lines_overlay", map[string]interface{}{
		"path":  path,
		"color": "#00FF00",
		"top_k": 4,
	}), &res)

	if res.Width != 300 || res.Height != 200 {
		t.Errorf("dimensions: got %dx%d", res.Width, res.Height)
	}
	if res.Lines != 4 {
		t.Errorf("Lines: got %d, want 4", res.Lines)
	}
	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil || len(data) == 0 {
		t.Errorf("bad image payload: %v", err)
	}
}

func TestHandleToolsCall_AngleProfile(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 300, 200, -3)

	var res imaging.ProfileChartResult
	decodeToolResult(t, callTool(t, s, "deskew_angle_profile", map[string]interface{}{"path": path}), &res)

	if res.MimeType != "image/png" || res.ImageBase64 == "" {
		t.Errorf("bad chart: %+v", res)
	}
	if math.Abs(res.PeakAngle+3) > 0.2+1e-9 {
		t.Errorf("PeakAngle: got %v, want about -3", res.PeakAngle)
	}
}

func TestHandleToolsCall_ImageEdgeDetect(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 120, 100, 0)

	var res imaging.EdgeDetectResult
	decodeToolResult(t, callTool(t, s, "image_edge_detect", map[string]interface{}{"path": path}), &res)

	if res.EdgePixels == 0 {
		t.Error("no edges found on a ruled page")
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	path := createPageFile(t, 50, 50, 0)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"missing path", "deskew_estimate", map[string]interface{}{}},
		{"bad strategy", "deskew_estimate", map[string]interface{}{"path": path, "strategy": "fft"}},
		{"bad policy", "deskew_estimate_segments", map[string]interface{}{"policy": "median"}},
		{"bad cutoff", "deskew_detect_lines", map[string]interface{}{"path": path, "luminance_cutoff": 999}},
		{"bad top k", "deskew_estimate", map[string]interface{}{"path": path, "top_k": -1}},
		{"missing output", "deskew_rotate", map[string]interface{}{"path": path}},
		{"bad color", "deskew_lines_overlay", map[string]interface{}{"path": path, "color": "red"}},
		{"bad thresholds", "image_edge_detect", map[string]interface{}{"path": path, "threshold_low": 200, "threshold_high": 100}},
		{"bad threshold level", "deskew_detect_lines", map[string]interface{}{"path": path, "binarize": true, "threshold_level": 300}},
		{"bad blur", "deskew_estimate", map[string]interface{}{"path": path, "strategy": "segments", "blur_radius": -2}},
		{"wrong type", "deskew_estimate", map[string]interface{}{"path": 42}},
		{"unknown tool", "image_crop", map[string]interface{}{"path": path}},
	}

	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("expected an error")
			}
			if resp.Error.Code != -32602 {
				t.Errorf("Error code: got %d, want -32602 (%v)", resp.Error.Code, resp.Error.Data)
			}
		})
	}
}

func TestHandleToolsCall_MissingFile(t *testing.T) {
	s := newTestServer()

	resp := callTool(t, s, "deskew_estimate", map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "missing.png"),
	})

	if resp.Error == nil {
		t.Fatal("expected an error for a missing file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_MalformedParams(t *testing.T) {
	s := newTestServer()
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`[1, 2]`),
	}

	resp := s.handleRequest(context.Background(), req)
	if resp == nil || resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_Cancelled(t *testing.T) {
	s := newTestServer()
	path := createPageFile(t, 200, 200, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	args, _ := json.Marshal(map[string]interface{}{"path": path})
	if _, err := s.executeTool(ctx, "deskew_estimate", args); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
