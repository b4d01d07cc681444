package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultUserAgent = "Page-Analyzer/1.0 (+https://github.com/menta2k/page-analyzer)"

var (
	// ErrTransport wraps network level failures
	ErrTransport = errors.New("fetch: transport error")
	// ErrStatus is returned for non-200 responses
	ErrStatus = errors.New("fetch: unexpected status")
	// ErrNotImage is returned when content type checking is enabled and the response is not an image
	ErrNotImage = errors.New("fetch: response is not an image")
	// ErrHostNotAllowed is returned for hosts outside Config.AllowedHosts
	ErrHostNotAllowed = errors.New("fetch: host not allowed")
)

// HostList is a set of host patterns. "example.com" matches that host only,
// "*.example.com" matches any of its subdomains.
type HostList []string

// Allows reports whether host matches one of the patterns
func (l HostList) Allows(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}
	for _, pattern := range l {
		pattern = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(pattern)), ".")
		if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
			if strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == pattern {
			return true
		}
	}
	return false
}

// Fetcher opens a byte stream for a URL. Callers must close the returned reader.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Config holds HTTP fetcher settings
type Config struct {
	Timeout          time.Duration
	UserAgent        string
	MaxBytes         int64
	CheckContentType bool
	Headers          map[string]string
	// AllowedHosts restricts fetches, redirects included. Empty allows every host.
	AllowedHosts HostList
}

// HTTPFetcher downloads page images over HTTP(S)
type HTTPFetcher struct {
	client *http.Client
	config Config
}

// New creates an HTTPFetcher with a 30s timeout
func New() *HTTPFetcher {
	return NewWithConfig(Config{Timeout: 30 * time.Second})
}

// NewWithConfig creates an HTTPFetcher with custom configuration
func NewWithConfig(config Config) *HTTPFetcher {
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	f := &HTTPFetcher{config: config}
	f.client = &http.Client{Timeout: config.Timeout, CheckRedirect: f.checkRedirect}
	return f
}

func (f *HTTPFetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	return f.checkHost(req.URL)
}

func (f *HTTPFetcher) checkHost(u *url.URL) error {
	if len(f.config.AllowedHosts) == 0 || f.config.AllowedHosts.Allows(u.Hostname()) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
}

// SetClient replaces the underlying HTTP client
func (f *HTTPFetcher) SetClient(client *http.Client) {
	f.client = client
}

// Fetch issues a GET for rawURL and returns the response body. When MaxBytes
// is set the body is truncated after that many bytes.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}
	if err := f.checkHost(parsedURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	for k, v := range f.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d", ErrStatus, resp.StatusCode)
	}

	if f.config.CheckContentType {
		contentType := resp.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			resp.Body.Close()
			return nil, fmt.Errorf("%w (Content-Type: %s)", ErrNotImage, contentType)
		}
	}

	if f.config.MaxBytes > 0 {
		return &limitedBody{
			Reader: io.LimitReader(resp.Body, f.config.MaxBytes),
			Closer: resp.Body,
		}, nil
	}
	return resp.Body, nil
}

type limitedBody struct {
	io.Reader
	io.Closer
}
