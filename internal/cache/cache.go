// Package cache maintains the on-disk page and thumbnail caches.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/page-analyzer/internal/utils"
)

// Cache is one cache directory
type Cache struct {
	Name string
	Dir  string
}

// Pages returns the downloaded page cache under root
func Pages(root string) Cache {
	return Cache{Name: "pages", Dir: filepath.Join(root, "pages")}
}

// Thumbs returns the thumbnail cache under root
func Thumbs(root string) Cache {
	return Cache{Name: "thumbs", Dir: filepath.Join(root, "thumbs")}
}

// All returns every cache under root
func All(root string) []Cache {
	return []Cache{Pages(root), Thumbs(root)}
}

// Size returns the number of bytes stored in the cache
func (c Cache) Size(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size, err := utils.DirSize(c.Dir)
	if err != nil {
		return 0, fmt.Errorf("cache %s: %w", c.Name, err)
	}
	return size, nil
}

// Summary renders the cache size for display
func (c Cache) Summary(ctx context.Context) string {
	size, err := c.Size(ctx)
	if err != nil {
		return "unknown"
	}
	return utils.FormatFileSize(size)
}

// Clear removes everything inside the cache directory and returns the number
// of bytes freed. The directory itself is kept.
func (c Cache) Clear(ctx context.Context) (int64, error) {
	entries, err := os.ReadDir(c.Dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache %s: %w", c.Name, err)
	}

	var freed int64
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return freed, err
		}
		path := filepath.Join(c.Dir, entry.Name())
		size, err := entrySize(path, entry)
		if err != nil {
			return freed, fmt.Errorf("cache %s: %w", c.Name, err)
		}
		if err := os.RemoveAll(path); err != nil {
			return freed, fmt.Errorf("cache %s: %w", c.Name, err)
		}
		freed += size
	}
	return freed, nil
}

// Images lists the page images stored in the cache
func (c Cache) Images() ([]string, error) {
	if !utils.DirExists(c.Dir) {
		return nil, nil
	}
	return utils.ListImageFiles(c.Dir)
}

func entrySize(path string, entry os.DirEntry) (int64, error) {
	if entry.IsDir() {
		return utils.DirSize(path)
	}
	info, err := entry.Info()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
