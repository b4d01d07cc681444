package processing

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/page-analyzer/pkg/types"
)

func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 90, 255})
		}
	}
	return img
}

func TestEncodeDecodeFormats(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(40, 30)

	for _, format := range []string{"png", "jpg", "webp"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			opts := types.EncodeOptions{Format: format, Quality: 90, Lossless: format == "webp"}
			if err := p.Encode(&buf, img, opts); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			decoded, err := p.Decode(&buf)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.Bounds().Dx() != 40 || decoded.Bounds().Dy() != 30 {
				t.Errorf("Expected 40x30, got %v", decoded.Bounds())
			}
		})
	}
}

func TestEncodeUnsupported(t *testing.T) {
	var buf bytes.Buffer
	if err := NewProcessor().Encode(&buf, createTestImage(4, 4), types.EncodeOptions{Format: "avif"}); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestSaveImageAtomic(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	path := filepath.Join(dir, "page.png")

	if err := p.SaveImage(createTestImage(20, 20), path, types.EncodeOptions{Format: "png"}); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	if err := p.SaveImageAtomic(createTestImage(10, 5), path, types.EncodeOptions{Format: "png"}); err != nil {
		t.Fatalf("SaveImageAtomic failed: %v", err)
	}

	img, err := p.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 5 {
		t.Errorf("Expected replaced image 10x5, got %v", img.Bounds())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected only the page file in dir, got %d entries", len(entries))
	}
}

func TestSaveImageAtomicFailureKeepsOriginal(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	path := filepath.Join(dir, "page.png")

	if err := p.SaveImage(createTestImage(20, 20), path, types.EncodeOptions{Format: "png"}); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	before, _ := os.ReadFile(path)

	if err := p.SaveImageAtomic(createTestImage(10, 10), path, types.EncodeOptions{Format: "avif"}); err == nil {
		t.Fatal("Expected error for unsupported format")
	}

	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("Original file was modified by failed save")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Temp file left behind: %d entries", len(entries))
	}
}

func TestLoadImageMissing(t *testing.T) {
	if _, err := NewProcessor().LoadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "webp"},
		{"WEBP", "webp"},
		{".jpg", "jpg"},
		{"jpeg", "jpg"},
		{"PNG", "png"},
		{"avif", "avif"},
	}

	for _, test := range tests {
		if got := NormalizeFormat(test.input); got != test.expected {
			t.Errorf("NormalizeFormat(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}
