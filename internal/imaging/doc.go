// Package imaging holds the raster operations around skew estimation: loading
// page scans, converting them to the detector's PixelBuffer, the morphology
// and edge passes used by the segment strategy, and the rotation and
// diagnostic renderings that follow an estimate.
//
// # Coordinate System
//
// (0,0) is the top-left pixel, X increases rightward and Y downward. Every
// derived image has its origin at (0,0) and the width and height of its
// input, except the charts, which have a fixed size.
//
// # Libraries
//
// Decoding, grayscale conversion, rotation and encoding use
// disintegration/imaging. Blur, erosion, dilation and global thresholding use
// anthonynsimon/bild. Adaptive binarisation is Sauvola's method from
// rescribe.xyz/preproc. Charts are drawn with go-chart.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless
// and never modify their input image.
package imaging
