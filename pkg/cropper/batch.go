package cropper

import (
	"context"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchResult summarizes a CropFiles run
type BatchResult struct {
	Cropped   int
	Unchanged int
	Failed    int
	Skipped   int
}

// Total returns the number of paths accounted for
func (r BatchResult) Total() int {
	return r.Cropped + r.Unchanged + r.Failed + r.Skipped
}

// CropFiles runs CropFile over paths with bounded concurrency. Pages not yet
// started when ctx is cancelled are counted as skipped.
func (c *BorderCropper) CropFiles(ctx context.Context, paths []string) BatchResult {
	workers := c.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var cropped, unchanged, failed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range paths {
		if gctx.Err() != nil {
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				skipped.Add(1)
				return nil
			}
			ok, err := c.cropFile(path)
			switch {
			case err != nil:
				c.logger.Warn("auto-crop of file failed", zap.String("path", path), zap.Error(err))
				failed.Add(1)
			case ok:
				cropped.Add(1)
			default:
				unchanged.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{
		Cropped:   int(cropped.Load()),
		Unchanged: int(unchanged.Load()),
		Failed:    int(failed.Load()),
		Skipped:   int(skipped.Load()),
	}
	c.logger.Info("batch crop finished",
		zap.Int("cropped", result.Cropped),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result
}
