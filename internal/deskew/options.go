package deskew

import (
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/deskew-mcp/internal/detection"
	"github.com/ironsheep/deskew-mcp/internal/imaging"
	"github.com/ironsheep/deskew-mcp/internal/skew"
)

// Strategy selects where line observations come from.
type Strategy int

const (
	// StrategyHough votes lower stroke edges into the skew accumulator and
	// aggregates the top-ranked lines.
	StrategyHough Strategy = iota

	// StrategySegments opens the page with a 5x5 kernel, runs Canny and
	// aggregates the segments found by detection.DetectSegments.
	StrategySegments
)

func (s Strategy) String() string {
	switch s {
	case StrategyHough:
		return "hough"
	case StrategySegments:
		return "segments"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts "hough", "segments" or "" (hough), case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hough":
		return StrategyHough, nil
	case "segments", "segment":
		return StrategySegments, nil
	default:
		return StrategyHough, &skew.InvalidInputError{
			Field:  "strategy",
			Reason: fmt.Sprintf("unknown strategy %q (want hough or segments)", s),
		}
	}
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseStrategy.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Options configures an Estimator.
type Options struct {
	Strategy Strategy
	Policy   skew.Policy

	// Hough strategy.
	Range           skew.AngleRange
	TopK            int
	LuminanceCutoff int
	Workers         int

	// Binarize thresholds the page before either strategy. A ThresholdLevel
	// of 0 selects Sauvola; 1 to 255 selects a global cut at that level.
	Binarize       bool
	SauvolaK       float64
	SauvolaWindow  int
	ThresholdLevel int

	// Segment strategy. BlurRadius > 0 smooths the page before opening.
	BlurRadius  float64
	MorphKernel int
	CannyLow    int
	CannyHigh   int
	Segment     detection.SegmentParams
}

// DefaultOptions returns the Hough strategy with the mode policy over ±20°
// in 0.2° steps, keeping the top 20 lines.
func DefaultOptions() Options {
	return Options{
		Strategy:        StrategyHough,
		Policy:          skew.PolicyMode,
		Range:           skew.DefaultAngleRange,
		TopK:            skew.DefaultTopK,
		LuminanceCutoff: skew.DefaultLuminanceCutoff,
		SauvolaK:        imaging.DefaultSauvolaK,
		SauvolaWindow:   imaging.DefaultSauvolaWindow,
		MorphKernel:     5,
		CannyLow:        50,
		CannyHigh:       150,
		Segment:         detection.DefaultSegmentParams,
	}
}

// Validate reports the first option that cannot be used.
func (o Options) Validate() error {
	if o.Strategy != StrategyHough && o.Strategy != StrategySegments {
		return &skew.InvalidInputError{Field: "strategy", Reason: o.Strategy.String()}
	}
	if o.Policy != skew.PolicyMode && o.Policy != skew.PolicyMean {
		return &skew.InvalidInputError{Field: "policy", Reason: o.Policy.String()}
	}
	if err := o.Range.Validate(); err != nil {
		return err
	}
	if o.TopK < 1 {
		return &skew.InvalidInputError{Field: "topK", Reason: fmt.Sprintf("%d must be positive", o.TopK)}
	}
	if o.LuminanceCutoff < 1 || o.LuminanceCutoff > 256 {
		return &skew.InvalidInputError{Field: "luminanceCutoff", Reason: fmt.Sprintf("%d must be in [1, 256]", o.LuminanceCutoff)}
	}
	if o.Workers < 0 {
		return &skew.InvalidInputError{Field: "workers", Reason: fmt.Sprintf("%d must not be negative", o.Workers)}
	}
	if o.Binarize && o.ThresholdLevel == 0 && (o.SauvolaK <= 0 || o.SauvolaWindow < 1) {
		return &skew.InvalidInputError{
			Field:  "sauvola",
			Reason: fmt.Sprintf("k %.3f and window %d must be positive", o.SauvolaK, o.SauvolaWindow),
		}
	}
	if o.ThresholdLevel < 0 || o.ThresholdLevel > 255 {
		return &skew.InvalidInputError{Field: "thresholdLevel", Reason: fmt.Sprintf("%d must be in [0, 255]", o.ThresholdLevel)}
	}
	if o.Strategy == StrategySegments {
		if !(o.BlurRadius >= 0) || math.IsInf(o.BlurRadius, 0) {
			return &skew.InvalidInputError{Field: "blurRadius", Reason: fmt.Sprintf("%g must be finite and not negative", o.BlurRadius)}
		}
		if o.MorphKernel < 1 {
			return &skew.InvalidInputError{Field: "morphKernel", Reason: fmt.Sprintf("%d must be positive", o.MorphKernel)}
		}
		if o.CannyLow < 0 || o.CannyHigh < o.CannyLow {
			return &skew.InvalidInputError{
				Field:  "canny",
				Reason: fmt.Sprintf("thresholds %d/%d must satisfy 0 <= low <= high", o.CannyLow, o.CannyHigh),
			}
		}
		if err := o.Segment.Validate(); err != nil {
			return &skew.InvalidInputError{Field: "segment", Reason: err.Error()}
		}
	}
	return nil
}
