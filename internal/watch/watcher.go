// Package watch auto-crops page images as they arrive in a directory.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/menta2k/page-analyzer/internal/utils"
)

// FileCropper is the part of the border cropper the watcher needs
type FileCropper interface {
	CropFile(path string) bool
}

// Stats tracks watcher activity
type Stats struct {
	Events    int
	Processed int
	Cropped   int
	Errors    int
	LastPath  string
}

// Watcher runs a FileCropper on every page image written to a directory
type Watcher struct {
	watcher  *fsnotify.Watcher
	cropper  FileCropper
	dir      string
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	running bool
	pending map[string]time.Time
	written map[string]time.Time
	stats   Stats

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a watcher for dir. Events for the same file are coalesced until
// it has been quiet for debounce.
func New(dir string, cropper FileCropper, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	return &Watcher{
		watcher:  watcher,
		cropper:  cropper,
		dir:      dir,
		logger:   logger,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		written:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := utils.EnsureDir(w.dir); err != nil {
		return fmt.Errorf("failed to create %s: %w", w.dir, err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for pages", zap.String("dir", w.dir))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("error closing watcher", zap.Error(err))
	}
}

// Stats returns a snapshot of the counters
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !utils.IsImageFile(event.Name) {
		return
	}
	path := filepath.Clean(event.Name)
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Events++

	// our own rewrite of the page
	if at, ok := w.written[path]; ok && now.Sub(at) < 4*w.debounce {
		return
	}
	delete(w.written, path)
	w.pending[path] = now
}

func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		cropped := w.cropper.CropFile(path)

		w.mu.Lock()
		w.stats.Processed++
		w.stats.LastPath = path
		if cropped {
			w.stats.Cropped++
			w.written[path] = time.Now()
		}
		w.mu.Unlock()

		if cropped {
			w.logger.Info("cropped page", zap.String("path", path))
		}
	}
}
