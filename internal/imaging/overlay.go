package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/deskew-mcp/internal/skew"
)

// DefaultLineColor is the overlay colour used when none is given.
const DefaultLineColor = "#FF0000"

// OverlayResult contains a page with detected lines drawn over it.
type OverlayResult struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Lines       int     `json:"lines"`
	Segments    int     `json:"segments"`
	Angle       float64 `json:"angle"`
	ImageBase64 string  `json:"image_base64"`
	MimeType    string  `json:"mime_type"`
}

// ParseColor parses "#RRGGBB" or "#RGB". An empty string selects
// DefaultLineColor.
func ParseColor(hex string) (color.RGBA, error) {
	if hex == "" {
		hex = DefaultLineColor
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// DrawLines copies img and draws every Hough line across the full image and
// every segment between its endpoints.
func DrawLines(img image.Image, lines []skew.HoughLine, segments []skew.LineSegment, lineColor color.Color) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	for _, l := range lines {
		drawHoughLine(dst, l, lineColor)
	}
	for _, s := range segments {
		drawSegment(dst, s, lineColor)
	}
	return dst
}

// LinesOverlay draws lines and segments in colorHex over img and stamps the
// estimated angle in the top-left corner.
func LinesOverlay(img image.Image, lines []skew.HoughLine, segments []skew.LineSegment, colorHex string, angle float64) (*OverlayResult, error) {
	c, err := ParseColor(colorHex)
	if err != nil {
		return nil, err
	}

	dst := DrawLines(img, lines, segments, c)
	drawLabel(dst, 3, 3, fmt.Sprintf("%.2f", angle), color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 200})

	encoded, err := EncodePNGBase64(dst)
	if err != nil {
		return nil, err
	}

	return &OverlayResult{
		Width:       dst.Rect.Dx(),
		Height:      dst.Rect.Dy(),
		Lines:       len(lines),
		Segments:    len(segments),
		Angle:       angle,
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// drawHoughLine plots the points solving y*cos(a) - x*sin(a) = d, stepping
// along whichever axis the line is closer to so the stroke has no gaps.
func drawHoughLine(dst *image.RGBA, l skew.HoughLine, c color.Color) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	rad := l.Angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	if math.Abs(cos) >= math.Abs(sin) {
		for x := 0; x < w; x++ {
			y := int(math.Round((l.Distance + float64(x)*sin) / cos))
			if y >= 0 && y < h {
				dst.Set(x, y, c)
			}
		}
		return
	}
	for y := 0; y < h; y++ {
		x := int(math.Round((float64(y)*cos - l.Distance) / sin))
		if x >= 0 && x < w {
			dst.Set(x, y, c)
		}
	}
}

// drawSegment plots s with Bresenham's algorithm. Points outside dst are
// skipped.
func drawSegment(dst *image.RGBA, s skew.LineSegment, c color.Color) {
	x0, y0 := int(math.Round(s.X1)), int(math.Round(s.Y1))
	x1, y1 := int(math.Round(s.X2)), int(math.Round(s.Y2))

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	bounds := dst.Bounds()
	e := dx + dy
	for {
		if image.Pt(x0, y0).In(bounds) {
			dst.Set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// drawLabel draws text with a 3x5 pixel font over a filled background.
// Only digits, '-' and '.' have glyphs; other runes leave a blank cell.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		'-': {"000", "000", "111", "000", "000"},
		'.': {"000", "000", "000", "000", "010"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			if p := image.Pt(x+dx, y+dy); p.In(bounds) {
				img.Set(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				if p := image.Pt(cx+col, y+row); p.In(bounds) {
					img.Set(p.X, p.Y, fg)
				}
			}
		}
		cx += charWidth
	}
}
