// Package source maps page references to fetchable URLs.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/menta2k/page-analyzer/pkg/types"
)

var (
	// ErrUnknownSource is returned when no resolver is registered for a page's source tag
	ErrUnknownSource = errors.New("source: unknown source")
	// ErrNoURL is returned when a page carries no URL and none can be built
	ErrNoURL = errors.New("source: page has no url")
)

// Resolver turns a page reference into the URL of its full-size image
type Resolver interface {
	PageURL(ctx context.Context, page types.Page) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(ctx context.Context, page types.Page) (string, error)

func (f ResolverFunc) PageURL(ctx context.Context, page types.Page) (string, error) {
	return f(ctx, page)
}

// Direct returns the URL stored on the page itself
var Direct Resolver = ResolverFunc(func(_ context.Context, page types.Page) (string, error) {
	if page.URL == "" {
		return "", fmt.Errorf("%w: %s", ErrNoURL, page.ID)
	}
	return page.URL, nil
})

// Template builds page URLs by substituting {id} in pattern
func Template(pattern string) Resolver {
	return ResolverFunc(func(_ context.Context, page types.Page) (string, error) {
		if page.ID == "" {
			return "", fmt.Errorf("%w: empty page id", ErrNoURL)
		}
		return strings.ReplaceAll(pattern, "{id}", page.ID), nil
	})
}

// Registry dispatches to a resolver by page source tag
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]Resolver)}
}

// Register installs r for the given source tag, replacing any previous one
func (r *Registry) Register(tag string, resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[tag] = resolver
}

// PageURL resolves the page through its source's resolver. Pages from an
// unregistered source fall back to their own URL when they have one.
func (r *Registry) PageURL(ctx context.Context, page types.Page) (string, error) {
	r.mu.RLock()
	resolver, ok := r.resolvers[page.Source]
	r.mu.RUnlock()

	if ok {
		return resolver.PageURL(ctx, page)
	}
	if page.URL != "" {
		return page.URL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, page.Source)
}
