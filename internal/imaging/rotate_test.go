package imaging

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
)

func TestRotate_Zero(t *testing.T) {
	img := createSkewedPage(64, 48, 3, 12, 2)

	out := Rotate(img, 0)
	if out.Rect.Dx() != 64 || out.Rect.Dy() != 48 {
		t.Fatalf("dimensions: got %dx%d, want 64x48", out.Rect.Dx(), out.Rect.Dy())
	}
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			r1, _, _, _ := img.At(x, y).RGBA()
			r2, _, _, _ := out.At(x, y).RGBA()
			if r1 != r2 {
				t.Fatalf("pixel (%d,%d) changed: %d -> %d", x, y, r1>>8, r2>>8)
			}
		}
	}
}

func TestRotate_KeepsSizeAndFillsWhite(t *testing.T) {
	img := createInMemoryImage(100, 100, color.Black)

	for _, angle := range []float64{10, -10} {
		out := Rotate(img, angle)
		if out.Rect.Dx() != 100 || out.Rect.Dy() != 100 {
			t.Fatalf("angle %v: dimensions %dx%d, want 100x100", angle, out.Rect.Dx(), out.Rect.Dy())
		}
		if c := out.NRGBAAt(0, 0); c.R < 250 || c.G < 250 || c.B < 250 {
			t.Errorf("angle %v: corner got %v, want white", angle, c)
		}
		if c := out.NRGBAAt(50, 50); c.R > 5 {
			t.Errorf("angle %v: centre got %v, want black", angle, c)
		}
	}
}

func TestSaveImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	img := createSkewedPage(40, 30, 0, 10, 2)

	if err := SaveImage(img, path); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	cache := NewImageCache()
	loaded, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}
	if loaded.Bounds().Dx() != 40 || loaded.Bounds().Dy() != 30 {
		t.Errorf("dimensions: got %v, want 40x30", loaded.Bounds())
	}
}

func TestSaveImage_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.xyz")
	if err := SaveImage(createInMemoryImage(4, 4, color.White), path); err == nil {
		t.Error("SaveImage should fail for an unsupported extension")
	}
}

func TestEncodePNGBase64(t *testing.T) {
	encoded, err := EncodePNGBase64(createInMemoryImage(7, 5, color.White))
	if err != nil {
		t.Fatalf("EncodePNGBase64 failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if img.Bounds().Dx() != 7 || img.Bounds().Dy() != 5 {
		t.Errorf("dimensions: got %v, want 7x5", img.Bounds())
	}
}
