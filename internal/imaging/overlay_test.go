package imaging

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"testing"

	"github.com/ironsheep/deskew-mcp/internal/skew"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"", color.RGBA{255, 0, 0, 255}, false},
		{"#00FF00", color.RGBA{0, 255, 0, 255}, false},
		{"#00f", color.RGBA{0, 0, 255, 255}, false},
		{"green", color.RGBA{}, true},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseColor(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDrawLines_HoughLines(t *testing.T) {
	img := createInMemoryImage(100, 60, color.White)
	red := color.RGBA{255, 0, 0, 255}

	lines := []skew.HoughLine{
		{Angle: 0, Distance: 30, Votes: 100},
		{Angle: 90, Distance: -20, Votes: 50},
	}
	out := DrawLines(img, lines, nil, red)

	for x := 0; x < 100; x++ {
		if got := out.RGBAAt(x, 30); got != red {
			t.Fatalf("horizontal line missing at (%d,30): %v", x, got)
		}
	}
	for y := 0; y < 60; y++ {
		if got := out.RGBAAt(20, y); got != red {
			t.Fatalf("vertical line missing at (20,%d): %v", y, got)
		}
	}
	if got := out.RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("background changed at (5,5): %v", got)
	}
}

func TestDrawLines_Segments(t *testing.T) {
	img := createInMemoryImage(80, 50, color.White)
	blue := color.RGBA{0, 0, 255, 255}

	segs := []skew.LineSegment{
		{X1: 10, Y1: 10, X2: 50, Y2: 30},
		{X1: 70, Y1: 45, X2: 90, Y2: 60}, // runs off the image
	}
	out := DrawLines(img, nil, segs, blue)

	for _, p := range [][2]int{{10, 10}, {30, 20}, {50, 30}, {70, 45}} {
		if got := out.RGBAAt(p[0], p[1]); got != blue {
			t.Errorf("segment pixel (%d,%d): got %v, want blue", p[0], p[1], got)
		}
	}
	if got := out.RGBAAt(10, 30); got == blue {
		t.Error("pixel off the segment was drawn")
	}
}

func TestLinesOverlay(t *testing.T) {
	img := createSkewedPage(120, 80, 2, 16, 2)
	lines := []skew.HoughLine{{Angle: 2, Distance: 40, Votes: 90}}
	segs := []skew.LineSegment{{X1: 0, Y1: 0, X2: 119, Y2: 4}}

	result, err := LinesOverlay(img, lines, segs, "#00FF00", 2)
	if err != nil {
		t.Fatalf("LinesOverlay failed: %v", err)
	}
	if result.Lines != 1 || result.Segments != 1 {
		t.Errorf("counts: got %d lines %d segments, want 1 and 1", result.Lines, result.Segments)
	}
	if result.Width != 120 || result.Height != 80 || result.MimeType != "image/png" {
		t.Errorf("unexpected result header: %+v", result)
	}

	raw, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
}

func TestLinesOverlay_InvalidColor(t *testing.T) {
	img := createInMemoryImage(10, 10, color.White)
	if _, err := LinesOverlay(img, nil, nil, "not-a-color", 0); err == nil {
		t.Error("LinesOverlay should fail for an invalid colour")
	}
}

func TestDrawLabel(t *testing.T) {
	img := createInMemoryImage(40, 20, color.Black)
	fg := color.RGBA{255, 255, 255, 255}
	bg := color.RGBA{0, 0, 255, 255}
	dst := DrawLines(img, nil, nil, fg)

	drawLabel(dst, 2, 2, "-1.5", fg, bg)

	// '-' has its middle row lit.
	if got := dst.RGBAAt(3, 4); got != fg {
		t.Errorf("minus glyph pixel: got %v, want %v", got, fg)
	}
	if got := dst.RGBAAt(2, 2); got != bg {
		t.Errorf("label background: got %v, want %v", got, bg)
	}
	if got := dst.RGBAAt(39, 19); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("pixel outside label changed: %v", got)
	}
}
