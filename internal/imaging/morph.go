package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"rescribe.xyz/preproc"
)

// Default Sauvola parameters for page binarisation.
const (
	DefaultSauvolaK      = 0.3
	DefaultSauvolaWindow = 19
)

// Erode replaces each pixel with the darkest value in a size×size
// neighbourhood. On dark text over light paper this thickens strokes.
func Erode(img image.Image, size int) *image.Gray {
	return GrayFromImage(effect.Erode(img, kernelRadius(size)))
}

// Dilate replaces each pixel with the lightest value in a size×size
// neighbourhood.
func Dilate(img image.Image, size int) *image.Gray {
	return GrayFromImage(effect.Dilate(img, kernelRadius(size)))
}

// Open erodes then dilates. Light gaps narrower than the kernel, such as the
// space between glyphs of a word, are filled so text lines become solid bars.
func Open(img image.Image, size int) *image.Gray {
	return Dilate(Erode(img, size), size)
}

// Blur applies a Gaussian blur of the given radius.
func Blur(img image.Image, radius float64) *image.Gray {
	return GrayFromImage(blur.Gaussian(img, radius))
}

// Threshold maps pixels below level to 0 and the rest to 255.
func Threshold(img image.Image, level uint8) *image.Gray {
	return segment.Threshold(img, level)
}

// Binarize applies Sauvola adaptive thresholding. k weights the local
// standard deviation and window is the neighbourhood side in pixels.
// Uneven illumination across a photographed page survives a global
// threshold but not this one.
func Binarize(img image.Image, k float64, window int) (*image.Gray, error) {
	if k <= 0 {
		return nil, fmt.Errorf("sauvola k %.3f must be positive", k)
	}
	if window < 1 {
		return nil, fmt.Errorf("sauvola window %d must be positive", window)
	}
	return preproc.IntegralSauvola(GrayFromImage(img), k, window), nil
}

// kernelRadius converts a kernel side length to the radius bild expects.
func kernelRadius(size int) float64 {
	if size < 3 {
		return 1
	}
	return float64(size / 2)
}
