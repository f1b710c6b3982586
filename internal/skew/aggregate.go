package skew

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Policy selects how a set of angle observations is reduced to one angle.
type Policy int

const (
	// PolicyMode returns the most frequent angle. Ties go to the angle seen
	// first.
	PolicyMode Policy = iota

	// PolicyMean returns the arithmetic mean rounded half away from zero to
	// one decimal place.
	PolicyMean
)

func (p Policy) String() string {
	switch p {
	case PolicyMode:
		return "mode"
	case PolicyMean:
		return "mean"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts "mode", "mean" or "" (mode), case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mode":
		return PolicyMode, nil
	case "mean":
		return PolicyMean, nil
	default:
		return PolicyMode, invalid("policy", "unknown policy %q (want mode or mean)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler using ParsePolicy.
func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// lineAngleScale sets the key granularity for HoughLine angles to 0.01°.
// Bucket angles are computed as Start + i*Step and carry float noise well
// below that.
const lineAngleScale = 100

// EstimateSkew reduces segments to a single skew angle in degrees.
//
// Each segment contributes SegmentAngle(s). An empty input returns 0, the
// "no skew detected" sentinel.
func EstimateSkew(segments []LineSegment, p Policy) float64 {
	angles := make([]float64, len(segments))
	for i, s := range segments {
		angles[i] = SegmentAngle(s)
	}
	return ReduceAngles(angles, p)
}

// EstimateSkewFromLines reduces Hough lines to a single skew angle using each
// line's angle directly.
func EstimateSkewFromLines(lines []HoughLine, p Policy) float64 {
	angles := make([]float64, len(lines))
	for i, l := range lines {
		angles[i] = math.Round(l.Angle*lineAngleScale) / lineAngleScale
	}
	return ReduceAngles(angles, p)
}

// ReduceAngles applies policy p to angles. It returns 0 for an empty slice.
func ReduceAngles(angles []float64, p Policy) float64 {
	if len(angles) == 0 {
		return 0
	}
	switch p {
	case PolicyMean:
		return meanAngle(angles)
	default:
		return modeAngle(angles)
	}
}

// modeAngle returns the most frequent value. The frequency table remembers
// first-occurrence order so ties resolve deterministically.
func modeAngle(angles []float64) float64 {
	counts := make(map[float64]int, len(angles))
	order := make([]float64, 0, len(angles))
	for _, a := range angles {
		if _, seen := counts[a]; !seen {
			order = append(order, a)
		}
		counts[a]++
	}

	best, bestCount := order[0], 0
	for _, a := range order {
		if counts[a] > bestCount {
			best, bestCount = a, counts[a]
		}
	}
	return best
}

func meanAngle(angles []float64) float64 {
	sum := floats.Sum(angles)
	if sum == 0 {
		return 0
	}
	return math.Round(sum/float64(len(angles))*10) / 10
}
