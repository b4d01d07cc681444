package cropper

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/page-analyzer/pkg/analyzer"
	"github.com/menta2k/page-analyzer/pkg/processing"
	"github.com/menta2k/page-analyzer/pkg/types"
)

// White is opaque white as a packed signed ARGB value
const White int32 = -1

// BorderCropper removes solid white margins from scanned pages
type BorderCropper struct {
	processor *processing.Processor
	analyzer  *analyzer.ImageAnalyzer
	config    CropConfig
	logger    *zap.Logger
}

// CropConfig holds configuration for border cropping
type CropConfig struct {
	// Encode controls how CropFile rewrites a cropped page
	Encode types.EncodeOptions
	// Workers bounds the concurrency of CropFiles, 0 means one per CPU
	Workers int
	// MinPageSize is the smallest width and height CropFile will touch
	MinPageSize int
}

// Option configures a BorderCropper
type Option func(*BorderCropper)

// WithLogger sets the logger for swallowed failures
func WithLogger(logger *zap.Logger) Option {
	return func(c *BorderCropper) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProcessor replaces the image codec used by CropFile
func WithProcessor(p *processing.Processor) Option {
	return func(c *BorderCropper) {
		if p != nil {
			c.processor = p
		}
	}
}

// New creates a new BorderCropper with default configuration
func New(opts ...Option) *BorderCropper {
	return NewWithConfig(CropConfig{Encode: types.DefaultEncodeOptions()}, opts...)
}

// NewWithConfig creates a new BorderCropper with custom configuration
func NewWithConfig(config CropConfig, opts ...Option) *BorderCropper {
	if config.Encode.Format == "" {
		config.Encode = types.DefaultEncodeOptions()
	}
	analyzerConfig := analyzer.DefaultConfig()
	if config.MinPageSize > analyzerConfig.MinImageSize {
		analyzerConfig.MinImageSize = config.MinPageSize
	}
	c := &BorderCropper{
		processor: processing.NewProcessor(),
		analyzer:  analyzer.NewWithConfig(analyzerConfig),
		config:    config,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CropResult contains the result of a border crop
type CropResult struct {
	Image    image.Image
	Bounds   image.Rectangle
	Original image.Rectangle
}

// FindBounds scans inward from every edge for contiguous white columns and
// rows. It reports false when no margin was found.
//
// The horizontal pass takes at most W/2-1 steps. Each step averages the
// packed ARGB value of the current left and right boundary columns over all
// rows and moves a bound inward when its mean is exactly White. The pass ends
// at the first step where neither bound moves. The vertical pass does the
// same for rows, averaging over the full width.
//
// A margin wider than the step limit is only partly removed, so cropping the
// result again can remove more.
func FindBounds(img image.Image) (image.Rectangle, bool) {
	src := toNRGBA(img)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return image.Rectangle{}, false
	}

	left, right := 0, w
	top, bottom := 0, h
	changed := false

	for step := 1; step < w/2; step++ {
		consumed := false
		if columnMean(src, left) == White {
			left++
			consumed = true
		}
		if columnMean(src, right-1) == White {
			right--
			consumed = true
		}
		if !consumed {
			break
		}
		changed = true
	}

	for step := 1; step < h/2; step++ {
		consumed := false
		if rowMean(src, top) == White {
			top++
			consumed = true
		}
		if rowMean(src, bottom-1) == White {
			bottom--
			consumed = true
		}
		if !consumed {
			break
		}
		changed = true
	}

	if !changed {
		return image.Rectangle{}, false
	}
	return image.Rect(left, top, right, bottom).Add(img.Bounds().Min), true
}

// Crop finds the white margins of img and returns a new image without them
func (c *BorderCropper) Crop(img image.Image) (result CropResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("auto-crop failed", zap.Any("panic", r))
			result, ok = CropResult{}, false
		}
	}()

	bounds, found := FindBounds(img)
	if !found {
		return CropResult{}, false
	}
	return CropResult{
		Image:    imaging.Crop(img, bounds),
		Bounds:   bounds,
		Original: img.Bounds(),
	}, true
}

// AutoCrop returns img without its white margins, or false when there is
// nothing to remove. img itself is never modified. It is idempotent only for
// margins narrower than half the page, see FindBounds.
func (c *BorderCropper) AutoCrop(img image.Image) (image.Image, bool) {
	result, ok := c.Crop(img)
	if !ok {
		return nil, false
	}
	return result.Image, true
}

// CropFile crops the page stored at path in place. The file is rewritten only
// when a margin was removed. Failures are logged and reported as false.
func (c *BorderCropper) CropFile(path string) bool {
	cropped, err := c.cropFile(path)
	if err != nil {
		c.logger.Warn("auto-crop of file failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return cropped
}

func (c *BorderCropper) cropFile(path string) (bool, error) {
	img, err := c.processor.LoadImage(path)
	if err != nil {
		return false, fmt.Errorf("failed to load image: %w", err)
	}

	info := c.analyzer.GetImageInfo(img)
	if err := c.analyzer.ValidateImage(img); err != nil {
		c.logger.Debug("page too small to crop", zap.String("path", path), zap.Error(err))
		return false, nil
	}

	result, ok := c.Crop(img)
	if !ok {
		c.logger.Debug("no margins to crop", zap.String("path", path))
		return false, nil
	}

	if err := c.processor.SaveImageAtomic(result.Image, path, c.config.Encode); err != nil {
		return false, fmt.Errorf("failed to save cropped image: %w", err)
	}

	c.logger.Debug("cropped page",
		zap.String("path", path),
		zap.Float64("aspect_ratio", info.AspectRatio),
		zap.Stringer("from", result.Original),
		zap.Stringer("to", result.Bounds))
	return true, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	return imaging.Clone(img)
}

// argbAt packs the pixel at (x, y) relative to the image origin the way
// Android's Bitmap.getPixel does
func argbAt(src *image.NRGBA, x, y int) int32 {
	i := src.PixOffset(src.Rect.Min.X+x, src.Rect.Min.Y+y)
	p := src.Pix[i : i+4 : i+4]
	return int32(uint32(p[3])<<24 | uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2]))
}

func columnMean(src *image.NRGBA, x int) int32 {
	h := src.Rect.Dy()
	var sum int64
	for y := 0; y < h; y++ {
		sum += int64(argbAt(src, x, y))
	}
	return int32(sum / int64(h))
}

func rowMean(src *image.NRGBA, y int) int32 {
	w := src.Rect.Dx()
	var sum int64
	for x := 0; x < w; x++ {
		sum += int64(argbAt(src, x, y))
	}
	return int32(sum / int64(w))
}
