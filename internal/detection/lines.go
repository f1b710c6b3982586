package detection

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ironsheep/deskew-mcp/internal/skew"
)

// edgeLevel is the value above which an edge map pixel is an edge.
const edgeLevel = 127

// traceTolerance is how far, in pixels, an edge point may sit from a peak's
// line and still belong to it.
const traceTolerance = 1.5

// peakRadius is the half-width of the neighbourhood a peak must dominate.
const peakRadius = 2

// SegmentParams configures DetectSegments.
type SegmentParams struct {
	// Rho is the distance resolution of the accumulator in pixels.
	Rho float64 `json:"rho"`

	// ThetaStep is the angle resolution of the accumulator in degrees.
	ThetaStep float64 `json:"theta_step"`

	// Threshold is the minimum number of votes for a line candidate.
	Threshold int `json:"threshold"`

	// MinLineLength drops segments shorter than this many pixels.
	MinLineLength float64 `json:"min_line_length"`

	// MaxLineGap is the largest run of missing edge pixels bridged within
	// one segment.
	MaxLineGap float64 `json:"max_line_gap"`

	// MaxLines caps the number of segments returned.
	MaxLines int `json:"max_lines"`
}

// DefaultSegmentParams suits 300 dpi page scans after a 5x5 morphological
// open and Canny at 50/150.
var DefaultSegmentParams = SegmentParams{
	Rho:           1,
	ThetaStep:     1,
	Threshold:     90,
	MinLineLength: 100,
	MaxLineGap:    10,
	MaxLines:      200,
}

// Validate reports parameters that cannot describe an accumulator.
func (p SegmentParams) Validate() error {
	switch {
	case p.Rho <= 0:
		return fmt.Errorf("rho %v must be positive", p.Rho)
	case p.ThetaStep <= 0 || p.ThetaStep > 90:
		return fmt.Errorf("theta step %v must be in (0, 90]", p.ThetaStep)
	case p.Threshold < 1:
		return fmt.Errorf("threshold %d must be positive", p.Threshold)
	case p.MinLineLength < 0:
		return fmt.Errorf("min line length %v must not be negative", p.MinLineLength)
	case p.MaxLineGap < 0:
		return fmt.Errorf("max line gap %v must not be negative", p.MaxLineGap)
	case p.MaxLines < 1:
		return fmt.Errorf("max lines %d must be positive", p.MaxLines)
	}
	return nil
}

type peak struct {
	rho   int
	theta int
	votes int32
}

// DetectSegments finds straight segments in a binary edge map.
//
// Edge pixels vote in a full 0-180° (rho, theta) accumulator. Cells with at
// least Threshold votes that dominate their 5x5 neighbourhood become
// candidates, strongest first. Each candidate collects the unclaimed edge
// pixels within 1.5 px of its line, orders them along the line and splits
// the run wherever consecutive pixels are more than MaxLineGap apart. Runs of
// at least MinLineLength become segments and claim their pixels.
//
// Segments are returned with X1 <= X2 (Y1 <= Y2 for vertical ones), so a
// segment's direction never flips its angle sign. An edge map without edges
// yields an empty slice.
func DetectSegments(edges *image.Gray, p SegmentParams) ([]skew.LineSegment, error) {
	if edges == nil {
		return nil, errors.New("nil edge map")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid segment params: %w", err)
	}

	b := edges.Rect
	width, height := b.Dx(), b.Dy()

	points := make([]image.Point, 0, 1024)
	for y := 0; y < height; y++ {
		row := edges.Pix[y*edges.Stride : y*edges.Stride+width]
		for x, v := range row {
			if v > edgeLevel {
				points = append(points, image.Point{X: x, Y: y})
			}
		}
	}
	if len(points) == 0 {
		return []skew.LineSegment{}, nil
	}

	numAngles := int(math.Round(180 / p.ThetaStep))
	sin := make([]float64, numAngles)
	cos := make([]float64, numAngles)
	for t := 0; t < numAngles; t++ {
		a := float64(t) * p.ThetaStep * math.Pi / 180
		sin[t], cos[t] = math.Sin(a), math.Cos(a)
	}

	maxDist := math.Ceil(math.Hypot(float64(width), float64(height)))
	numRho := int(2*maxDist/p.Rho) + 1
	acc := make([]int32, numRho*numAngles)

	for _, pt := range points {
		fx, fy := float64(pt.X), float64(pt.Y)
		for t := 0; t < numAngles; t++ {
			r := int(math.Round((fx*cos[t] + fy*sin[t] + maxDist) / p.Rho))
			if r >= 0 && r < numRho {
				acc[r*numAngles+t]++
			}
		}
	}

	peaks := findPeaks(acc, numRho, numAngles, int32(p.Threshold))

	used := make([]bool, len(points))
	segments := make([]skew.LineSegment, 0)
	for _, pk := range peaks {
		if len(segments) >= p.MaxLines {
			break
		}
		rho := float64(pk.rho)*p.Rho - maxDist
		for _, s := range traceSegments(points, used, rho, sin[pk.theta], cos[pk.theta], p) {
			if len(segments) >= p.MaxLines {
				break
			}
			segments = append(segments, s)
		}
	}

	return segments, nil
}

// findPeaks returns cells with at least threshold votes that are maxima of
// their neighbourhood, ordered by votes. A neighbour with equal votes and a
// lower index suppresses the cell, so a plateau yields one peak.
func findPeaks(acc []int32, numRho, numAngles int, threshold int32) []peak {
	peaks := make([]peak, 0)
	for r := 0; r < numRho; r++ {
		for t := 0; t < numAngles; t++ {
			v := acc[r*numAngles+t]
			if v < threshold {
				continue
			}
			isMax := true
			for dr := -peakRadius; dr <= peakRadius && isMax; dr++ {
				for dt := -peakRadius; dt <= peakRadius && isMax; dt++ {
					nr, nt := r+dr, t+dt
					if (dr == 0 && dt == 0) || nr < 0 || nr >= numRho || nt < 0 || nt >= numAngles {
						continue
					}
					n := acc[nr*numAngles+nt]
					if n > v || (n == v && nr*numAngles+nt < r*numAngles+t) {
						isMax = false
					}
				}
			}
			if isMax {
				peaks = append(peaks, peak{rho: r, theta: t, votes: v})
			}
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].votes > peaks[j].votes
	})
	return peaks
}

// traceSegments collects unclaimed points near the line
// x*cos + y*sin = rho and cuts them into segments.
func traceSegments(points []image.Point, used []bool, rho, sin, cos float64, p SegmentParams) []skew.LineSegment {
	type onLine struct {
		index int
		t     float64
	}
	near := make([]onLine, 0)
	for i, pt := range points {
		if used[i] {
			continue
		}
		fx, fy := float64(pt.X), float64(pt.Y)
		if math.Abs(fx*cos+fy*sin-rho) < traceTolerance {
			near = append(near, onLine{index: i, t: fy*cos - fx*sin})
		}
	}
	if len(near) < 2 {
		return nil
	}
	sort.Slice(near, func(i, j int) bool { return near[i].t < near[j].t })

	var segments []skew.LineSegment
	start := 0
	flush := func(end int) {
		first, last := points[near[start].index], points[near[end].index]
		length := math.Hypot(float64(last.X-first.X), float64(last.Y-first.Y))
		if end == start || length < p.MinLineLength {
			return
		}
		for k := start; k <= end; k++ {
			used[near[k].index] = true
		}
		segments = append(segments, normalize(first, last))
	}
	for k := 1; k < len(near); k++ {
		if near[k].t-near[k-1].t > p.MaxLineGap {
			flush(k - 1)
			start = k
		}
	}
	flush(len(near) - 1)

	return segments
}

// normalize orders endpoints left to right, top to bottom for verticals.
func normalize(a, b image.Point) skew.LineSegment {
	if a.X > b.X || (a.X == b.X && a.Y > b.Y) {
		a, b = b, a
	}
	return skew.LineSegment{
		X1: float64(a.X),
		Y1: float64(a.Y),
		X2: float64(b.X),
		Y2: float64(b.Y),
	}
}
