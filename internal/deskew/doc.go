// Package deskew turns a page image into a skew estimate and, on request, a
// levelled copy of the page.
//
// Two line sources are available. StrategyHough, the default, feeds the
// page's pixel buffer to the lower-edge accumulator in package skew and
// aggregates its top-ranked lines. StrategySegments follows the classic
// morphology, Canny and segment-Hough chain and aggregates segment angles.
// The two do not promise identical answers on the same page: the first works
// at the configured angle resolution, the second at whole degrees.
package deskew
