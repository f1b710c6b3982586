package skew

// ForegroundValue is the sample value treated as foreground in a binary buffer.
const ForegroundValue uint8 = 0

// DefaultLuminanceCutoff is the luminance below which a sample is foreground.
const DefaultLuminanceCutoff = 140

// PixelBuffer is a single-channel intensity grid with values in [0, 255].
//
// Pix is row-major: the sample at (x, y) is Pix[y*Width+x]. When Binary is
// true the buffer carries a 1-bit interpretation and foreground is decided by
// equality with ForegroundValue instead of a luminance cutoff.
//
// Detection calls borrow the buffer and never modify it.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
	Binary bool
}

// NewPixelBuffer validates the dimensions and wraps pix without copying it.
func NewPixelBuffer(width, height int, pix []uint8, binary bool) (*PixelBuffer, error) {
	b := &PixelBuffer{Width: width, Height: height, Pix: pix, Binary: binary}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *PixelBuffer) validate() error {
	if b == nil {
		return invalid("buffer", "nil pixel buffer")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return invalid("buffer", "dimensions %dx%d must be positive", b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height {
		return invalid("buffer", "pixel count %d does not match %dx%d", len(b.Pix), b.Width, b.Height)
	}
	return nil
}

// At returns the sample at (x, y). The caller must stay inside the bounds.
func (b *PixelBuffer) At(x, y int) uint8 {
	return b.Pix[y*b.Width+x]
}

// classifier decides whether a pixel is foreground ("black").
type classifier struct {
	buf    *PixelBuffer
	cutoff int
}

func newClassifier(buf *PixelBuffer, cutoff int) classifier {
	if cutoff <= 0 {
		cutoff = DefaultLuminanceCutoff
	}
	return classifier{buf: buf, cutoff: cutoff}
}

// isForeground reports whether (x, y) is dark. Pixels outside the buffer
// are background.
func (c classifier) isForeground(x, y int) bool {
	if x < 0 || y < 0 || x >= c.buf.Width || y >= c.buf.Height {
		return false
	}
	v := c.buf.Pix[y*c.buf.Width+x]
	if c.buf.Binary {
		return v == ForegroundValue
	}
	return int(v) < c.cutoff
}
