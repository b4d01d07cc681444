package cropper

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/page-analyzer/pkg/processing"
	"github.com/menta2k/page-analyzer/pkg/types"
)

var (
	white = color.NRGBA{255, 255, 255, 255}
	ink   = color.NRGBA{40, 40, 40, 255}
)

// createPage creates a page with a white margin of the given width around
// a dark interior
func createPage(width, height, margin int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < margin || x >= width-margin || y < margin || y >= height-margin {
				img.Set(x, y, white)
			} else {
				img.Set(x, y, ink)
			}
		}
	}
	return img
}

func fill(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNew(t *testing.T) {
	cropper := New()
	if cropper == nil {
		t.Fatal("New() returned nil")
	}

	if cropper.config.Encode.Format != "webp" || cropper.config.Encode.Quality != 100 {
		t.Errorf("Expected webp/100 default encoding, got %+v", cropper.config.Encode)
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := CropConfig{
		Encode:  types.EncodeOptions{Format: "png"},
		Workers: 3,
	}

	cropper := NewWithConfig(cfg)
	if cropper.config.Encode.Format != "png" {
		t.Errorf("Expected png encoding, got %s", cropper.config.Encode.Format)
	}
	if cropper.config.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cropper.config.Workers)
	}

	// empty format falls back to defaults
	cropper = NewWithConfig(CropConfig{})
	if cropper.config.Encode.Format != "webp" {
		t.Errorf("Expected default webp encoding, got %s", cropper.config.Encode.Format)
	}
}

func TestWhiteValue(t *testing.T) {
	img := fill(1, 1, white)
	if got := argbAt(img, 0, 0); got != White {
		t.Errorf("Expected white to pack to %d, got %d", White, got)
	}

	img = fill(1, 1, color.NRGBA{0, 0, 0, 255})
	if got := argbAt(img, 0, 0); got != int32(-16777216) {
		t.Errorf("Expected opaque black to pack to -16777216, got %d", got)
	}
}

func TestWhitenessIsExactMean(t *testing.T) {
	nearWhite := color.NRGBA{255, 255, 254, 255}

	tests := []struct {
		name   string
		column []color.NRGBA
		want   bool
	}{
		{"white", []color.NRGBA{white, white, white, white}, true},
		{"one near-white pixel", []color.NRGBA{white, white, white, nearWhite}, true},
		// (-1 -2 -2 -2) / 4 truncates to -1
		{"three near-white pixels", []color.NRGBA{white, nearWhite, nearWhite, nearWhite}, true},
		{"all near-white", []color.NRGBA{nearWhite, nearWhite, nearWhite, nearWhite}, false},
		{"one dark pixel", []color.NRGBA{white, white, ink, white}, false},
		{"transparent", []color.NRGBA{{}, {}, {}, {}}, false},
		{"transparent white", []color.NRGBA{
			{255, 255, 255, 0}, {255, 255, 255, 0}, {255, 255, 255, 0}, {255, 255, 255, 0},
		}, false},
	}

	for _, tt := range tests {
		img := fill(10, 4, ink)
		for y, c := range tt.column {
			img.SetNRGBA(0, y, c)
		}

		bounds, ok := FindBounds(img)
		if ok != tt.want {
			t.Errorf("%s: FindBounds ok = %v, want %v", tt.name, ok, tt.want)
			continue
		}
		if ok && bounds != image.Rect(1, 0, 10, 4) {
			t.Errorf("%s: Expected (1,0)-(10,4), got %v", tt.name, bounds)
		}
	}
}

func TestAutoCropWideMargin(t *testing.T) {
	cropper := New()
	img := fill(20, 4, ink)
	for y := 0; y < 4; y++ {
		for x := 0; x < 12; x++ {
			img.SetNRGBA(x, y, white)
		}
	}

	// each pass stops after W/2-1 steps
	first, ok := cropper.AutoCrop(img)
	if !ok || first.Bounds().Dx() != 11 {
		t.Fatalf("Expected first pass width 11, got %v (ok=%v)", first, ok)
	}
	second, ok := cropper.AutoCrop(first)
	if !ok || second.Bounds().Dx() != 8 {
		t.Fatalf("Expected second pass width 8, got %v (ok=%v)", second, ok)
	}
	if _, ok := cropper.AutoCrop(second); ok {
		t.Error("Expected third pass to find nothing")
	}
}

func TestAutoCropMargin(t *testing.T) {
	cropper := New()
	img := createPage(20, 16, 2)

	cropped, ok := cropper.AutoCrop(img)
	if !ok {
		t.Fatal("Expected a crop for a page with white margins")
	}

	bounds := cropped.Bounds()
	if bounds.Dx() != 16 || bounds.Dy() != 12 {
		t.Errorf("Expected 16x12 after removing 2px margins, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	if got := color.NRGBAModel.Convert(cropped.At(0, 0)); got != ink {
		t.Errorf("Expected interior color at origin, got %v", got)
	}
}

func TestFindBoundsMargin(t *testing.T) {
	bounds, ok := FindBounds(createPage(20, 16, 2))
	if !ok {
		t.Fatal("Expected bounds")
	}
	if bounds != image.Rect(2, 2, 18, 14) {
		t.Errorf("Expected (2,2)-(18,14), got %v", bounds)
	}
}

func TestAutoCropSingleLeftColumn(t *testing.T) {
	img := fill(10, 4, ink)
	for y := 0; y < 4; y++ {
		img.Set(0, y, white)
	}

	cropped, ok := New().AutoCrop(img)
	if !ok {
		t.Fatal("Expected a crop")
	}
	if cropped.Bounds().Dx() != 9 || cropped.Bounds().Dy() != 4 {
		t.Errorf("Expected 9x4, got %dx%d", cropped.Bounds().Dx(), cropped.Bounds().Dy())
	}
}

func TestAutoCropNoMargin(t *testing.T) {
	img := createPage(30, 30, 0)
	before := append([]uint8(nil), img.Pix...)

	if _, ok := New().AutoCrop(img); ok {
		t.Error("Expected no crop for a page without white margins")
	}
	if !bytes.Equal(before, img.Pix) {
		t.Error("Input image was modified")
	}
}

func TestAutoCropDoesNotMutateInput(t *testing.T) {
	img := createPage(24, 24, 3)
	before := append([]uint8(nil), img.Pix...)

	if _, ok := New().AutoCrop(img); !ok {
		t.Fatal("Expected a crop")
	}
	if !bytes.Equal(before, img.Pix) {
		t.Error("Input image was modified")
	}
}

func TestAutoCropAllWhite(t *testing.T) {
	tests := []struct {
		width, height int
		expected      image.Rectangle
	}{
		{10, 8, image.Rect(4, 3, 6, 5)},
		{11, 9, image.Rect(4, 3, 7, 6)},
		{4, 4, image.Rect(1, 1, 3, 3)},
		{100, 60, image.Rect(49, 29, 51, 31)},
	}

	for _, tt := range tests {
		bounds, ok := FindBounds(fill(tt.width, tt.height, white))
		if !ok {
			t.Errorf("%dx%d: expected a crop", tt.width, tt.height)
			continue
		}
		if bounds != tt.expected {
			t.Errorf("%dx%d: expected %v, got %v", tt.width, tt.height, tt.expected, bounds)
		}
		if bounds.Empty() {
			t.Errorf("%dx%d: crop is empty", tt.width, tt.height)
		}
	}
}

func TestAutoCropTinyImages(t *testing.T) {
	for _, size := range [][2]int{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {0, 5}} {
		img := fill(size[0], size[1], white)
		if _, ok := New().AutoCrop(img); ok {
			t.Errorf("%dx%d: expected no crop", size[0], size[1])
		}
	}
}

func TestAutoCropContiguousFromEdge(t *testing.T) {
	// ink at column 0, white at column 1: the white column must not count
	img := fill(12, 6, ink)
	for y := 0; y < 6; y++ {
		img.Set(1, y, white)
		img.Set(11, y, white)
	}

	bounds, ok := FindBounds(img)
	if !ok {
		t.Fatal("Expected the right white column to be cropped")
	}
	if bounds != image.Rect(0, 0, 11, 6) {
		t.Errorf("Expected (0,0)-(11,6), got %v", bounds)
	}
}

func TestAutoCropOffsetOrigin(t *testing.T) {
	page := createPage(20, 20, 2)
	sub := page.SubImage(image.Rect(1, 1, 20, 20)).(*image.NRGBA)

	bounds, ok := FindBounds(sub)
	if !ok {
		t.Fatal("Expected bounds")
	}
	if bounds != image.Rect(2, 2, 18, 18) {
		t.Errorf("Expected (2,2)-(18,18) in parent coordinates, got %v", bounds)
	}

	cropped, ok := New().AutoCrop(sub)
	if !ok || cropped.Bounds().Dx() != 16 || cropped.Bounds().Dy() != 16 {
		t.Errorf("Expected 16x16 crop, got %v", cropped)
	}
}

func TestAutoCropNonNRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			if x == 0 || y == 0 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{10, 20, 30, 255})
			}
		}
	}

	cropped, ok := New().AutoCrop(img)
	if !ok {
		t.Fatal("Expected a crop")
	}
	if cropped.Bounds().Dx() != 11 || cropped.Bounds().Dy() != 11 {
		t.Errorf("Expected 11x11, got %v", cropped.Bounds())
	}
}

func TestAutoCropIdempotent(t *testing.T) {
	cropper := New()
	for _, margin := range []int{1, 2, 5} {
		first, ok := cropper.AutoCrop(createPage(40, 30, margin))
		if !ok {
			t.Fatalf("margin %d: expected first crop", margin)
		}
		if _, ok := cropper.AutoCrop(first); ok {
			t.Errorf("margin %d: second crop should find nothing", margin)
		}
	}
}

func TestCropFile(t *testing.T) {
	dir := t.TempDir()
	p := processing.NewProcessor()
	cropper := NewWithConfig(CropConfig{Encode: types.EncodeOptions{Format: "png"}})

	path := filepath.Join(dir, "001.png")
	if err := p.SaveImage(createPage(40, 30, 3), path, types.EncodeOptions{Format: "png"}); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	if !cropper.CropFile(path) {
		t.Fatal("Expected CropFile to crop")
	}

	img, err := p.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds().Dx() != 34 || img.Bounds().Dy() != 24 {
		t.Errorf("Expected 34x24, got %v", img.Bounds())
	}
}

func TestCropFileUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "002.png")
	if err := processing.NewProcessor().SaveImage(createPage(40, 30, 0), path, types.EncodeOptions{Format: "png"}); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	before, _ := os.ReadFile(path)

	if New().CropFile(path) {
		t.Error("Expected no crop")
	}

	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("File was rewritten although nothing was cropped")
	}
}

func TestCropFileBelowMinimum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "003.png")
	opts := types.EncodeOptions{Format: "png"}
	if err := processing.NewProcessor().SaveImage(createPage(40, 40, 3), path, opts); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	before, _ := os.ReadFile(path)

	if NewWithConfig(CropConfig{Encode: opts, MinPageSize: 50}).CropFile(path) {
		t.Error("Expected a page below the minimum size to be skipped")
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("Skipped page was rewritten")
	}

	if !NewWithConfig(CropConfig{Encode: opts, MinPageSize: 40}).CropFile(path) {
		t.Error("Expected a page at the minimum size to be cropped")
	}
}

func TestCropFileFailures(t *testing.T) {
	dir := t.TempDir()

	if New().CropFile(filepath.Join(dir, "missing.png")) {
		t.Error("Expected false for missing file")
	}

	corrupt := filepath.Join(dir, "corrupt.webp")
	if err := os.WriteFile(corrupt, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if New().CropFile(corrupt) {
		t.Error("Expected false for corrupt file")
	}
}

func BenchmarkFindBounds(b *testing.B) {
	img := createPage(1200, 1800, 40)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FindBounds(img)
	}
}

func BenchmarkAutoCrop(b *testing.B) {
	cropper := New()
	img := createPage(1200, 1800, 40)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cropper.AutoCrop(img)
	}
}
