// Package skew estimates the skew angle of a scanned document page.
//
// The package has two parts that are normally used in sequence:
//
//   - A discrete Hough transform (Accumulate, DetectLines) that votes in a
//     quantized (angle, distance) space using the lower edges of dark strokes
//     and ranks the strongest lines.
//   - An aggregator (EstimateSkew, EstimateSkewFromLines) that reduces line
//     observations, either ranked Hough lines or segments from any other line
//     detector, to a single angle.
//
// # Line Parametrization
//
// A line at angle a (degrees) and distance d is the set of points solving
//
//	y*cos(a) - x*sin(a) = d
//
// so a = 0 is horizontal and a positive angle descends to the right in image
// coordinates (origin top-left, Y increasing downward). The same convention is
// used for segment angles, which makes the outputs of both line sources
// comparable.
//
// # Voting
//
// Only the middle half of the image (rows height/4 to height*3/4) takes part,
// which keeps page headers, footers and scanner borders out of the estimate.
// A pixel votes when it is foreground and the pixel below it is background.
// Lower stroke edges line up along the text baseline and are steadier than
// upper edges, which follow ascenders.
//
// # Angle Policies
//
// PolicyMode (the default) returns the most frequent angle and breaks ties by
// first occurrence. PolicyMean returns the mean rounded to one decimal.
// Both return 0 when there is nothing to aggregate; 0 therefore also means
// "no skew detected".
//
// # Concurrency
//
// All functions are reentrant and keep no package state. Accumulate splits
// the scan band across goroutines with private accumulators and sums them
// after every worker has finished.
package skew
