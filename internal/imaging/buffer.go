package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/deskew-mcp/internal/skew"
)

// GrayFromImage converts img to an 8-bit grayscale image with its origin at
// (0, 0). Luminance uses the ITU-R BT.601 weights 0.299, 0.587 and 0.114.
func GrayFromImage(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}

	src := imaging.Grayscale(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := range out {
			// Grayscale writes the same value into R, G and B.
			out[x] = row[x*4]
		}
	}
	return dst
}

// ToPixelBuffer converts img into the single-channel buffer consumed by the
// skew detector.
//
// A paletted image with exactly two entries is treated as 1-bit: pixels using
// the darker entry become skew.ForegroundValue, the rest 255, and the buffer
// is marked Binary. Every other image is converted to luminance.
func ToPixelBuffer(img image.Image) (*skew.PixelBuffer, error) {
	if img == nil {
		return nil, &skew.InvalidInputError{Field: "image", Reason: "nil image"}
	}
	if p, ok := img.(*image.Paletted); ok && isBinaryPalette(p) {
		return binaryBuffer(p)
	}

	gray := GrayFromImage(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	pix := gray.Pix
	if gray.Stride != w {
		pix = make([]uint8, w*h)
		for y := 0; y < h; y++ {
			copy(pix[y*w:(y+1)*w], gray.Pix[y*gray.Stride:])
		}
	}
	return skew.NewPixelBuffer(w, h, pix, false)
}

func isBinaryPalette(p *image.Paletted) bool {
	return len(p.Palette) == 2
}

func binaryBuffer(p *image.Paletted) (*skew.PixelBuffer, error) {
	dark := uint8(0)
	if luminance(p.Palette[1]) < luminance(p.Palette[0]) {
		dark = 1
	}

	b := p.Rect
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := p.Pix[y*p.Stride : y*p.Stride+w]
		for x, idx := range row {
			if idx == dark {
				pix[y*w+x] = skew.ForegroundValue
			} else {
				pix[y*w+x] = 255
			}
		}
	}
	return skew.NewPixelBuffer(w, h, pix, true)
}

func luminance(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}
