// Package detection extracts straight line segments from edge maps.
//
// DetectSegments is a Hough-based segment finder: it votes edge pixels into a
// (rho, theta) accumulator over the full half-turn, takes neighbourhood
// maxima above a vote threshold as candidate lines, and walks the edge pixels
// along each candidate to cut it into segments separated by gaps. Pixels that
// end up in a segment are claimed and cannot seed another one.
//
// The segments feed skew.EstimateSkew, which classifies each one by
// skew.SegmentAngle. That makes this package the second line source of the
// deskew pipeline, next to the lower-edge accumulator in package skew.
//
// # Coordinate System
//
// Coordinates are relative to the edge map's top-left pixel: X increases
// rightward, Y downward. Returned segments are ordered left to right.
package detection
