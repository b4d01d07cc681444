package types

import (
	"fmt"
	"strings"
)

// Page references a single manga page. The URL may be empty, in which case a
// resolver registered for Source builds it from ID.
type Page struct {
	ID     string `json:"id"`
	URL    string `json:"url,omitempty"`
	Source string `json:"source"`
}

// Dimensions holds the pixel size of an image as read from its header
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both sides are strictly positive
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// ReaderMode is the page layout the reader should use
type ReaderMode int

const (
	// Standard is the paged, left/right navigation layout
	Standard ReaderMode = iota
	// Webtoon is the continuous vertical scroll layout
	Webtoon
)

func (m ReaderMode) String() string {
	switch m {
	case Webtoon:
		return "webtoon"
	default:
		return "standard"
	}
}

// MarshalText implements encoding.TextMarshaler
func (m ReaderMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseReaderMode parses the textual form produced by String
func ParseReaderMode(s string) (ReaderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "paged":
		return Standard, nil
	case "webtoon", "continuous", "vertical":
		return Webtoon, nil
	}
	return Standard, fmt.Errorf("unknown reader mode %q", s)
}

// EncodeOptions controls how a re-encoded page is written
type EncodeOptions struct {
	Format   string `json:"format" yaml:"format"`
	Quality  int    `json:"quality" yaml:"quality"`
	Lossless bool   `json:"lossless" yaml:"lossless"`
}

// DefaultEncodeOptions writes lossy WebP at full quality
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Format:  "webp",
		Quality: 100,
	}
}
