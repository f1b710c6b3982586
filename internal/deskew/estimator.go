package deskew

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/deskew-mcp/internal/detection"
	"github.com/ironsheep/deskew-mcp/internal/imaging"
	"github.com/ironsheep/deskew-mcp/internal/skew"
)

// droppedWarnRatio is the fraction of dropped votes above which a pass is
// logged as suspicious.
const droppedWarnRatio = 0.01

// Result is the outcome of one estimate.
type Result struct {
	// Angle is the skew in degrees; positive descends to the right. It is 0
	// both for a level page and when nothing was detected.
	Angle float64 `json:"angle"`

	// Detected is false when the strategy found no lines at all.
	Detected bool `json:"detected"`

	Strategy string `json:"strategy"`
	Policy   string `json:"policy"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`

	Lines    []skew.HoughLine   `json:"lines,omitempty"`
	Segments []skew.LineSegment `json:"segments,omitempty"`

	// VotesCast, DroppedVotes and EstimateVotes are set by the Hough
	// strategy only. EstimateVotes is the strongest line at Angle.
	VotesCast     int `json:"votes_cast,omitempty"`
	DroppedVotes  int `json:"dropped_votes,omitempty"`
	EstimateVotes int `json:"estimate_votes,omitempty"`

	Elapsed   time.Duration `json:"-"`
	ElapsedMS int64         `json:"elapsed_ms"`

	// Profile is the per-angle vote maximum of the Hough accumulator.
	Profile []skew.AngleVotes `json:"-"`
}

// Estimator runs the configured strategy over page images. It is safe for
// concurrent use.
type Estimator struct {
	opts Options
	log  zerolog.Logger
}

// NewEstimator validates opts and returns an Estimator that logs to log.
func NewEstimator(opts Options, log zerolog.Logger) (*Estimator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{
		opts: opts,
		log:  log.With().Str("component", "deskew").Logger(),
	}, nil
}

// Options returns the estimator's configuration.
func (e *Estimator) Options() Options {
	return e.opts
}

// Estimate measures the skew of img.
func (e *Estimator) Estimate(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil {
		return nil, &skew.InvalidInputError{Field: "image", Reason: "nil image"}
	}
	start := time.Now()

	b := img.Bounds()
	res := &Result{
		Strategy: e.opts.Strategy.String(),
		Policy:   e.opts.Policy.String(),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}

	var err error
	switch e.opts.Strategy {
	case StrategySegments:
		err = e.estimateSegments(ctx, img, res)
	default:
		err = e.estimateHough(ctx, img, res)
	}
	if err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	res.ElapsedMS = res.Elapsed.Milliseconds()

	e.log.Debug().
		Str("strategy", res.Strategy).
		Str("policy", res.Policy).
		Int("width", res.Width).
		Int("height", res.Height).
		Int("lines", len(res.Lines)).
		Int("segments", len(res.Segments)).
		Float64("angle", res.Angle).
		Dur("elapsed", res.Elapsed).
		Msg("skew estimated")

	return res, nil
}

// binarize applies the configured thresholding, or returns img unchanged
// when Binarize is off.
func (e *Estimator) binarize(img image.Image) (image.Image, error) {
	if !e.opts.Binarize {
		return img, nil
	}
	if e.opts.ThresholdLevel > 0 {
		return imaging.Threshold(img, uint8(e.opts.ThresholdLevel)), nil
	}
	return imaging.Binarize(img, e.opts.SauvolaK, e.opts.SauvolaWindow)
}

// Accumulate prepares img the way the Hough strategy does, binarizing it
// when configured, and runs the voting pass over it.
func (e *Estimator) Accumulate(ctx context.Context, img image.Image) (*skew.Accumulator, error) {
	if img == nil {
		return nil, &skew.InvalidInputError{Field: "image", Reason: "nil image"}
	}
	src, err := e.binarize(img)
	if err != nil {
		return nil, err
	}
	buf, err := imaging.ToPixelBuffer(src)
	if err != nil {
		return nil, err
	}
	if e.opts.Binarize {
		// Thresholded pages hold only 0 and 255.
		buf.Binary = true
	}

	acc, err := skew.Accumulate(ctx, buf, skew.DetectOptions{
		Range:           e.opts.Range,
		TopK:            e.opts.TopK,
		LuminanceCutoff: e.opts.LuminanceCutoff,
		Workers:         e.opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	if total := acc.Cast + acc.Dropped; total > 0 && float64(acc.Dropped) > droppedWarnRatio*float64(total) {
		e.log.Warn().
			Int("dropped", acc.Dropped).
			Int("total", total).
			Msg("distance axis dropped more votes than expected")
	}
	return acc, nil
}

func (e *Estimator) estimateHough(ctx context.Context, img image.Image, res *Result) error {
	acc, err := e.Accumulate(ctx, img)
	if err != nil {
		return err
	}

	res.Lines = acc.Top(e.opts.TopK)
	res.Profile = acc.AngleProfile()
	res.VotesCast = acc.Cast
	res.DroppedVotes = acc.Dropped
	res.Detected = len(res.Lines) > 0
	res.Angle = skew.EstimateSkewFromLines(res.Lines, e.opts.Policy)
	if res.Detected {
		res.EstimateVotes = acc.PeakAt(res.Angle).Votes
	}
	return nil
}

func (e *Estimator) estimateSegments(ctx context.Context, img image.Image, res *Result) error {
	src, err := e.binarize(img)
	if err != nil {
		return err
	}
	if e.opts.BlurRadius > 0 {
		src = imaging.Blur(src, e.opts.BlurRadius)
	}
	opened := imaging.Open(src, e.opts.MorphKernel)
	if err := ctx.Err(); err != nil {
		return err
	}
	edges := imaging.Canny(opened, e.opts.CannyLow, e.opts.CannyHigh)
	if err := ctx.Err(); err != nil {
		return err
	}

	segments, err := detection.DetectSegments(edges, e.opts.Segment)
	if err != nil {
		return fmt.Errorf("segment detection: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	res.Segments = segments
	res.Detected = len(segments) > 0
	res.Angle = skew.EstimateSkew(segments, e.opts.Policy)
	return nil
}

// Deskew estimates the skew of img and rotates it level. The returned image
// has the dimensions of img. When no skew is found the image is copied
// unchanged.
func (e *Estimator) Deskew(ctx context.Context, img image.Image) (*image.NRGBA, *Result, error) {
	res, err := e.Estimate(ctx, img)
	if err != nil {
		return nil, nil, err
	}

	out := imaging.Rotate(img, res.Angle)
	e.log.Info().
		Float64("angle", res.Angle).
		Bool("detected", res.Detected).
		Msg("page deskewed")
	return out, res, nil
}
