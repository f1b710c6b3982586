package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/deskew-mcp/internal/skew"
)

func TestToPixelBuffer_Luminance(t *testing.T) {
	img := createInMemoryImage(40, 20, color.White)
	for x := 0; x < 40; x++ {
		img.Set(x, 5, color.Black)
		img.Set(x, 6, color.RGBA{100, 100, 100, 255})
	}

	buf, err := ToPixelBuffer(img)
	if err != nil {
		t.Fatalf("ToPixelBuffer failed: %v", err)
	}
	if buf.Width != 40 || buf.Height != 20 {
		t.Fatalf("dimensions: got %dx%d, want 40x20", buf.Width, buf.Height)
	}
	if buf.Binary {
		t.Error("RGBA image produced a binary buffer")
	}

	tests := []struct {
		x, y int
		want uint8
	}{
		{0, 0, 255},
		{10, 5, 0},
		{10, 6, 100},
		{39, 19, 255},
	}
	for _, tt := range tests {
		if got := buf.At(tt.x, tt.y); got != tt.want {
			t.Errorf("At(%d,%d): got %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestToPixelBuffer_Weights(t *testing.T) {
	// Pure primaries expose the BT.601 weights.
	tests := []struct {
		c    color.RGBA
		want uint8
	}{
		{color.RGBA{255, 0, 0, 255}, 76},
		{color.RGBA{0, 255, 0, 255}, 150},
		{color.RGBA{0, 0, 255, 255}, 29},
	}
	for _, tt := range tests {
		buf, err := ToPixelBuffer(createInMemoryImage(2, 2, tt.c))
		if err != nil {
			t.Fatalf("ToPixelBuffer failed: %v", err)
		}
		if got := buf.At(0, 0); absInt(int(got)-int(tt.want)) > 1 {
			t.Errorf("luminance of %v: got %d, want %d±1", tt.c, got, tt.want)
		}
	}
}

func TestToPixelBuffer_BinaryPalette(t *testing.T) {
	for _, darkFirst := range []bool{true, false} {
		img := createBinaryPalettedImage(30, 10, darkFirst)

		buf, err := ToPixelBuffer(img)
		if err != nil {
			t.Fatalf("ToPixelBuffer failed: %v", err)
		}
		if !buf.Binary {
			t.Fatalf("darkFirst=%v: buffer not marked binary", darkFirst)
		}
		if got := buf.At(7, 5); got != skew.ForegroundValue {
			t.Errorf("darkFirst=%v: line pixel got %d, want %d", darkFirst, got, skew.ForegroundValue)
		}
		if got := buf.At(7, 2); got != 255 {
			t.Errorf("darkFirst=%v: paper pixel got %d, want 255", darkFirst, got)
		}
	}
}

func TestToPixelBuffer_LargePaletteIsGray(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.White, color.Black, color.Gray{128}})
	buf, err := ToPixelBuffer(img)
	if err != nil {
		t.Fatalf("ToPixelBuffer failed: %v", err)
	}
	if buf.Binary {
		t.Error("three-entry palette produced a binary buffer")
	}
}

func TestToPixelBuffer_SubImage(t *testing.T) {
	full := createInMemoryImage(50, 50, color.White)
	full.Set(20, 20, color.Black)
	sub := full.SubImage(image.Rect(10, 10, 30, 40))

	buf, err := ToPixelBuffer(sub)
	if err != nil {
		t.Fatalf("ToPixelBuffer failed: %v", err)
	}
	if buf.Width != 20 || buf.Height != 30 {
		t.Fatalf("dimensions: got %dx%d, want 20x30", buf.Width, buf.Height)
	}
	if got := buf.At(10, 10); got != 0 {
		t.Errorf("black pixel after offset: got %d, want 0", got)
	}
}

func TestToPixelBuffer_Invalid(t *testing.T) {
	if _, err := ToPixelBuffer(nil); !errors.Is(err, skew.ErrInvalidInput) {
		t.Errorf("nil image: got %v, want ErrInvalidInput", err)
	}

	empty := image.NewRGBA(image.Rect(0, 0, 0, 10))
	if _, err := ToPixelBuffer(empty); !errors.Is(err, skew.ErrInvalidInput) {
		t.Errorf("empty image: got %v, want ErrInvalidInput", err)
	}
}

func TestGrayFromImage_PassThrough(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 8, 8))
	if GrayFromImage(g) != g {
		t.Error("zero-origin gray image was copied")
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
