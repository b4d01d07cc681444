// Package readermode guesses the reader layout of a chapter from the size of
// one of its pages. Tall, narrow pages indicate a webtoon.
package readermode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/menta2k/page-analyzer/pkg/analyzer"
	"github.com/menta2k/page-analyzer/pkg/fetch"
	"github.com/menta2k/page-analyzer/pkg/source"
	"github.com/menta2k/page-analyzer/pkg/types"
)

// ErrNoPages is returned when there is nothing to sample
var ErrNoPages = errors.New("readermode: no pages")

// BoundsDecoder reads image dimensions from a stream header
type BoundsDecoder interface {
	DecodeBounds(r io.Reader) (types.Dimensions, string, error)
}

// Classifier detects the reader mode of a page
type Classifier struct {
	resolver source.Resolver
	fetcher  fetch.Fetcher
	decoder  BoundsDecoder
	logger   *zap.Logger
}

// Option configures a Classifier
type Option func(*Classifier)

// WithLogger sets the logger used for diagnostics of swallowed failures
func WithLogger(logger *zap.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDecoder replaces the header decoder
func WithDecoder(decoder BoundsDecoder) Option {
	return func(c *Classifier) {
		c.decoder = decoder
	}
}

// New creates a Classifier. A nil resolver uses the page's own URL and a nil
// fetcher uses the default HTTP fetcher.
func New(resolver source.Resolver, fetcher fetch.Fetcher, opts ...Option) *Classifier {
	if resolver == nil {
		resolver = source.Direct
	}
	if fetcher == nil {
		fetcher = fetch.New()
	}
	c := &Classifier{
		resolver: resolver,
		fetcher:  fetcher,
		decoder:  analyzer.New(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyDimensions returns Webtoon when the page is more than twice as tall as wide
func ClassifyDimensions(d types.Dimensions) types.ReaderMode {
	if d.Width*2 < d.Height {
		return types.Webtoon
	}
	return types.Standard
}

// Detect fetches the page header and classifies it, returning the cause on failure
func (c *Classifier) Detect(ctx context.Context, page types.Page) (types.ReaderMode, error) {
	url, err := c.resolver.PageURL(ctx, page)
	if err != nil {
		return types.Standard, fmt.Errorf("resolve page %s: %w", page.ID, err)
	}

	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return types.Standard, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer body.Close()

	dims, _, err := c.decoder.DecodeBounds(body)
	if err != nil {
		return types.Standard, fmt.Errorf("decode %s: %w", url, err)
	}
	if !dims.Valid() {
		return types.Standard, fmt.Errorf("decode %s: %w", url, analyzer.ErrInvalidDimensions)
	}

	return ClassifyDimensions(dims), nil
}

// Classify is the best-effort form of Detect. Any failure is logged and
// reported as ok == false.
func (c *Classifier) Classify(ctx context.Context, page types.Page) (types.ReaderMode, bool) {
	mode, err := c.Detect(ctx, page)
	if err != nil {
		c.logger.Debug("reader mode detection failed",
			zap.String("page", page.ID),
			zap.String("source", page.Source),
			zap.Error(err))
		return types.Standard, false
	}
	c.logger.Debug("reader mode detected",
		zap.String("page", page.ID),
		zap.Stringer("mode", mode))
	return mode, true
}

// DetermineReaderMode classifies a chapter by its middle page
func (c *Classifier) DetermineReaderMode(ctx context.Context, pages []types.Page) (types.ReaderMode, bool) {
	page, ok := median(pages)
	if !ok {
		c.logger.Debug("reader mode detection skipped", zap.Error(ErrNoPages))
		return types.Standard, false
	}
	return c.Classify(ctx, page)
}

func median(pages []types.Page) (types.Page, bool) {
	if len(pages) == 0 {
		return types.Page{}, false
	}
	return pages[len(pages)/2], true
}
