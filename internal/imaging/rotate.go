package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Rotate turns img counter-clockwise by angle degrees about its centre and
// crops the result back to the original size. Uncovered corners are filled
// with white, the colour of paper.
//
// With the skew convention used here (positive angles descend to the right)
// Rotate(img, skew) levels the page.
func Rotate(img image.Image, angle float64) *image.NRGBA {
	b := img.Bounds()
	if angle == 0 {
		return imaging.Clone(img)
	}
	rotated := imaging.Rotate(img, angle, color.White)
	return imaging.CropCenter(rotated, b.Dx(), b.Dy())
}

// SaveImage writes img to path. The format follows the file extension.
func SaveImage(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// EncodePNGBase64 encodes img as PNG and returns it base64 encoded.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
