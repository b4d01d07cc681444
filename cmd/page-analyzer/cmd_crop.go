package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/page-analyzer/internal/utils"
	"github.com/menta2k/page-analyzer/pkg/cropper"
	"github.com/menta2k/page-analyzer/pkg/processing"
)

var (
	cropWorkers  int
	cropFormat   string
	cropQuality  int
	cropLossless bool
)

var cropCmd = &cobra.Command{
	Use:   "crop <file|dir>...",
	Short: "Remove white margins from page images in place",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := expandPaths(args)
		if err != nil {
			return err
		}

		c := newCropper(cmd)
		result := c.CropFiles(cmd.Context(), paths)

		fmt.Fprintf(cmd.OutOrStdout(), "cropped %d, unchanged %d, failed %d, skipped %d\n",
			result.Cropped, result.Unchanged, result.Failed, result.Skipped)
		if result.Failed > 0 {
			return fmt.Errorf("%d of %d pages failed", result.Failed, result.Total())
		}
		return nil
	},
}

func init() {
	cropCmd.Flags().IntVarP(&cropWorkers, "workers", "w", 0, "concurrent pages (default from config, 0 = one per CPU)")
	cropCmd.Flags().StringVar(&cropFormat, "format", "", "output format: webp|png|jpg (default from config)")
	cropCmd.Flags().IntVar(&cropQuality, "quality", 0, "output quality 1-100 (default from config)")
	cropCmd.Flags().BoolVar(&cropLossless, "lossless", false, "WebP lossless output")
}

// newCropper builds a cropper from config overridden by crop flags
func newCropper(cmd *cobra.Command) *cropper.BorderCropper {
	encode := cfg.EncodeOptions()
	if cropFormat != "" {
		encode.Format = processing.NormalizeFormat(cropFormat)
	}
	if cropQuality > 0 {
		encode.Quality = cropQuality
	}
	if cmd.Flags().Changed("lossless") {
		encode.Lossless = cropLossless
	}

	workers := cfg.Cropper.Workers
	if cropWorkers > 0 {
		workers = cropWorkers
	}

	return cropper.NewWithConfig(cropper.CropConfig{
		Encode:      encode,
		Workers:     workers,
		MinPageSize: cfg.Cropper.MinPageSize,
	}, cropper.WithLogger(logger.Named("cropper")))
}

func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		if utils.DirExists(arg) {
			files, err := utils.ListImageFiles(arg)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", arg, err)
			}
			paths = append(paths, files...)
			continue
		}
		if !utils.FileExists(arg) {
			return nil, fmt.Errorf("no such file or directory: %s", arg)
		}
		paths = append(paths, arg)
	}
	return paths, nil
}
