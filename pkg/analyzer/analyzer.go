package analyzer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/page-analyzer/pkg/types"
)

var (
	// ErrInvalidDimensions is returned when a header decodes to a non-positive size
	ErrInvalidDimensions = errors.New("analyzer: invalid image dimensions")
	// ErrUnsupportedFormat is returned for formats outside the configured list
	ErrUnsupportedFormat = errors.New("analyzer: unsupported image format")
)

// ImageAnalyzer reads image headers and basic image metadata
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// DefaultConfig accepts every registered page format of at least 1x1
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpeg", "png", "gif", "webp", "bmp", "tiff"},
		MinImageSize:     1,
	}
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{config: DefaultConfig()}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// DecodeBounds reads only the image header from r and returns its size and
// format name. Pixel data is never decoded.
func (a *ImageAnalyzer) DecodeBounds(r io.Reader) (types.Dimensions, string, error) {
	var head bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		// Some WebP variants are only understood by libwebp
		wcfg, werr := webp.DecodeConfig(io.MultiReader(&head, r))
		if werr != nil {
			return types.Dimensions{}, "", fmt.Errorf("failed to decode image header: %w", err)
		}
		cfg, format = wcfg, "webp"
	}

	if !a.isFormatSupported(format) {
		return types.Dimensions{}, format, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	dims := types.Dimensions{Width: cfg.Width, Height: cfg.Height}
	if !dims.Valid() {
		return dims, format, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, dims.Width, dims.Height)
	}
	return dims, format, nil
}

// GetImageInfo returns basic information about an image
func (a *ImageAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := ImageInfo{
		Width:  width,
		Height: height,
		Area:   width * height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
	Area        int
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

// ValidateImage checks if an image meets minimum requirements
func (a *ImageAnalyzer) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() < a.config.MinImageSize || bounds.Dy() < a.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			bounds.Dx(), bounds.Dy(), a.config.MinImageSize)
	}
	return nil
}
