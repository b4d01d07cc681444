// Package pageanalyzer provides reader-mode detection and white-border
// cropping for manga pages.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		pageanalyzer "github.com/menta2k/page-analyzer"
//		"github.com/menta2k/page-analyzer/pkg/types"
//	)
//
//	func main() {
//		pa := pageanalyzer.New()
//
//		pages := []types.Page{
//			{ID: "1", URL: "https://cdn.example/ch1/001.jpg"},
//			{ID: "2", URL: "https://cdn.example/ch1/002.jpg"},
//		}
//		if mode, ok := pa.ReaderMode(context.Background(), pages); ok {
//			fmt.Println("reader mode:", mode)
//		}
//
//		if pa.CropFile("001.webp") {
//			fmt.Println("removed white margins")
//		}
//	}
//
// The package consists of these components:
//
// 1. Readermode (pkg/readermode): fetches a representative page and classifies
// it as webtoon or standard from its header dimensions
// 2. Cropper (pkg/cropper): removes contiguous pure white margins
// 3. Processing (pkg/processing): decodes and encodes page images
//
// Both heuristics are best effort. Failures are logged and reported as
// "no result" so callers fall back to the standard reader and the uncropped
// page.
package pageanalyzer

import (
	"context"
	"image"

	"go.uber.org/zap"

	"github.com/menta2k/page-analyzer/pkg/cropper"
	"github.com/menta2k/page-analyzer/pkg/fetch"
	"github.com/menta2k/page-analyzer/pkg/processing"
	"github.com/menta2k/page-analyzer/pkg/readermode"
	"github.com/menta2k/page-analyzer/pkg/source"
	"github.com/menta2k/page-analyzer/pkg/types"
)

// Version of the page analyzer library
const Version = "1.0.0"

// PageAnalyzer provides a high-level interface over the page heuristics
type PageAnalyzer struct {
	classifier *readermode.Classifier
	cropper    *cropper.BorderCropper
	processor  *processing.Processor
}

// Options holds the collaborators used by New
type Options struct {
	Resolver source.Resolver
	Fetcher  fetch.Fetcher
	Crop     cropper.CropConfig
	Logger   *zap.Logger
}

// New creates a new PageAnalyzer with default configuration
func New() *PageAnalyzer {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a new PageAnalyzer with custom collaborators
func NewWithOptions(opts Options) *PageAnalyzer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	processor := processing.NewProcessor()

	return &PageAnalyzer{
		classifier: readermode.New(opts.Resolver, opts.Fetcher,
			readermode.WithLogger(logger.Named("readermode"))),
		cropper: cropper.NewWithConfig(opts.Crop,
			cropper.WithLogger(logger.Named("cropper")),
			cropper.WithProcessor(processor)),
		processor: processor,
	}
}

// ReaderMode guesses the reader layout of a chapter from its middle page
func (pa *PageAnalyzer) ReaderMode(ctx context.Context, pages []types.Page) (types.ReaderMode, bool) {
	return pa.classifier.DetermineReaderMode(ctx, pages)
}

// ClassifyPage guesses the reader layout from a single page
func (pa *PageAnalyzer) ClassifyPage(ctx context.Context, page types.Page) (types.ReaderMode, bool) {
	return pa.classifier.Classify(ctx, page)
}

// AutoCrop removes white margins from img
func (pa *PageAnalyzer) AutoCrop(img image.Image) (image.Image, bool) {
	return pa.cropper.AutoCrop(img)
}

// CropFile removes white margins from the page stored at path, in place
func (pa *PageAnalyzer) CropFile(path string) bool {
	return pa.cropper.CropFile(path)
}

// CropFiles crops many pages concurrently
func (pa *PageAnalyzer) CropFiles(ctx context.Context, paths []string) cropper.BatchResult {
	return pa.cropper.CropFiles(ctx, paths)
}

// LoadImage loads an image from file
func (pa *PageAnalyzer) LoadImage(path string) (image.Image, error) {
	return pa.processor.LoadImage(path)
}

// SaveImage saves an image to file
func (pa *PageAnalyzer) SaveImage(img image.Image, path string, opts types.EncodeOptions) error {
	return pa.processor.SaveImage(img, path, opts)
}

// Classifier returns the underlying reader-mode classifier
func (pa *PageAnalyzer) Classifier() *readermode.Classifier {
	return pa.classifier
}

// Cropper returns the underlying border cropper
func (pa *PageAnalyzer) Cropper() *cropper.BorderCropper {
	return pa.cropper
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
