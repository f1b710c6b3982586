package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ironsheep/deskew-mcp/internal/skew"
)

// Chart dimensions in pixels.
const (
	ProfileChartWidth  = 1200
	ProfileChartHeight = 600
)

// ProfileChartResult contains a rendered angle profile.
type ProfileChartResult struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	PeakAngle   float64 `json:"peak_angle"`
	PeakVotes   int     `json:"peak_votes"`
	ImageBase64 string  `json:"image_base64"`
	MimeType    string  `json:"mime_type"`
}

// AngleProfileChart renders the strongest vote count of each angle bucket as
// a line graph, with a marker at the estimated angle, and writes the PNG to w.
func AngleProfileChart(profile []skew.AngleVotes, estimate float64, w io.Writer) error {
	if len(profile) < 2 {
		return fmt.Errorf("angle profile needs at least 2 buckets, got %d", len(profile))
	}

	xvalues := make([]float64, len(profile))
	yvalues := make([]float64, len(profile))
	peak := 1.0
	for i, p := range profile {
		xvalues[i] = p.Angle
		yvalues[i] = float64(p.Votes)
		if yvalues[i] > peak {
			peak = yvalues[i]
		}
	}

	mainSeries := chart.ContinuousSeries{
		Name: "votes",
		Style: chart.Style{
			StrokeColor: chart.ColorBlue,
			FillColor:   chart.ColorAlternateBlue,
		},
		XValues: xvalues,
		YValues: yvalues,
	}

	estimateSeries := chart.ContinuousSeries{
		Name: "estimate",
		Style: chart.Style{
			StrokeColor:     drawing.ColorRed,
			StrokeWidth:     2,
			StrokeDashArray: []float64{5.0, 5.0},
		},
		XValues: []float64{estimate, estimate},
		YValues: []float64{0, peak},
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Skew estimate %.2f deg", estimate),
		Width:  ProfileChartWidth,
		Height: ProfileChartHeight,
		XAxis: chart.XAxis{
			Name: "Angle (degrees)",
			Range: &chart.ContinuousRange{
				Min: xvalues[0],
				Max: xvalues[len(xvalues)-1],
			},
		},
		YAxis: chart.YAxis{
			Name: "Votes",
			Range: &chart.ContinuousRange{
				Min: 0.0,
				Max: peak,
			},
		},
		Series: []chart.Series{
			mainSeries,
			estimateSeries,
		},
	}
	return graph.Render(chart.PNG, w)
}

// AngleProfilePNG renders AngleProfileChart into a base64 PNG result.
func AngleProfilePNG(profile []skew.AngleVotes, estimate float64) (*ProfileChartResult, error) {
	var buf bytes.Buffer
	if err := AngleProfileChart(profile, estimate, &buf); err != nil {
		return nil, fmt.Errorf("failed to render angle profile: %w", err)
	}

	result := &ProfileChartResult{
		Width:       ProfileChartWidth,
		Height:      ProfileChartHeight,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}
	for _, p := range profile {
		if p.Votes > result.PeakVotes {
			result.PeakAngle, result.PeakVotes = p.Angle, p.Votes
		}
	}
	return result, nil
}
