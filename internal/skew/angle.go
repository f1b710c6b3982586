package skew

import (
	"math"
)

// AngleRange describes the angle search space of the accumulator.
//
// Bucket i covers the angle Start + i*Step degrees, for i in [0, Steps).
type AngleRange struct {
	Start float64 `json:"start"`
	Step  float64 `json:"step"`
	Steps int     `json:"steps"`
}

// DefaultAngleRange sweeps -20° to +19.8° at 0.2° resolution.
var DefaultAngleRange = AngleRange{Start: -20, Step: 0.2, Steps: 200}

// Angle returns the angle in degrees of bucket i.
func (r AngleRange) Angle(i int) float64 {
	return r.Start + float64(i)*r.Step
}

// End returns the inclusive upper bound of the range.
func (r AngleRange) End() float64 {
	return r.Angle(r.Steps - 1)
}

// Index returns the bucket nearest to angle, clamped to the range.
func (r AngleRange) Index(angle float64) int {
	i := int(math.Round((angle - r.Start) / r.Step))
	if i < 0 {
		return 0
	}
	if i >= r.Steps {
		return r.Steps - 1
	}
	return i
}

// Validate checks that the range has at least one positive step.
func (r AngleRange) Validate() error {
	if r.Steps <= 0 {
		return invalid("range.steps", "step count %d must be positive", r.Steps)
	}
	if !(r.Step > 0) {
		return invalid("range.step", "step size %g must be positive", r.Step)
	}
	if math.IsNaN(r.Start) || math.IsInf(r.Start, 0) {
		return invalid("range.start", "start angle %g is not finite", r.Start)
	}
	return nil
}

// trig precomputes sin and cos for every bucket of r.
func (r AngleRange) trig() (sin, cos []float64) {
	sin = make([]float64, r.Steps)
	cos = make([]float64, r.Steps)
	for i := 0; i < r.Steps; i++ {
		rad := r.Angle(i) * math.Pi / 180.0
		sin[i] = math.Sin(rad)
		cos[i] = math.Cos(rad)
	}
	return sin, cos
}

// DistanceAxis is the quantized perpendicular-distance axis of the accumulator.
//
// Bucket j covers distances [Min + j*Step, Min + (j+1)*Step).
type DistanceAxis struct {
	Min   float64 `json:"min"`
	Step  float64 `json:"step"`
	Count int     `json:"count"`
}

// NewDistanceAxis sizes the axis for a width x height image. The range
// [-width, width+2*height) covers every line through the image for angles
// within ±90°.
func NewDistanceAxis(width, height int) DistanceAxis {
	return DistanceAxis{
		Min:   -float64(width),
		Step:  1.0,
		Count: 2 * (width + height),
	}
}

// Bucket truncates d into a bucket index. The result may fall outside
// [0, Count); callers must check.
func (a DistanceAxis) Bucket(d float64) int {
	return int((d - a.Min) / a.Step)
}

// Distance returns the lower bound of bucket j.
func (a DistanceAxis) Distance(j int) float64 {
	return a.Min + float64(j)*a.Step
}

// LineSegment is a line segment in pixel coordinates.
type LineSegment struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

const degenerateEpsilon = 1e-4

// SegmentAngle returns the signed angle of s in whole degrees.
//
// A segment with |dx| < 1e-4 is vertical (90) and one with |dy| < 1e-4 is
// horizontal (0). Otherwise the angle is atan2(dy, dx) rounded half-up.
// Image coordinates grow downward, so a positive angle means the segment
// descends to the right.
func SegmentAngle(s LineSegment) float64 {
	dx := s.X2 - s.X1
	dy := s.Y2 - s.Y1
	if math.Abs(dx) < degenerateEpsilon {
		return 90
	}
	if math.Abs(dy) < degenerateEpsilon {
		return 0
	}
	return roundHalfUp(math.Atan2(dy, dx) * 180 / math.Pi)
}

// SlopeAngle is the slope form of SegmentAngle: k = -(dy/dx) converted with
// 360*atan(k)/(2π). It reports the angle with the y axis pointing up, so for
// segments running left to right it equals -SegmentAngle.
func SlopeAngle(s LineSegment) float64 {
	dx := s.X2 - s.X1
	dy := s.Y2 - s.Y1
	if math.Abs(dx) < degenerateEpsilon {
		return 90
	}
	if math.Abs(dy) < degenerateEpsilon {
		return 0
	}
	k := -(dy / dx)
	return roundHalfUp(360 * math.Atan(k) / (2 * math.Pi))
}

// roundHalfUp rounds to the nearest integer with halves going toward +Inf.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
