package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/menta2k/page-analyzer/internal/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Crop pages as they are written to a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := watch.New(args[0], newCropper(cmd), watchDebounce, logger.Named("watch"))
		if err != nil {
			return err
		}
		if err := w.Start(cmd.Context()); err != nil {
			return err
		}

		<-cmd.Context().Done()
		w.Stop()

		stats := w.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "processed %d pages, cropped %d\n", stats.Processed, stats.Cropped)
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 250*time.Millisecond, "quiet period before a new page is processed")
	watchCmd.Flags().StringVar(&cropFormat, "format", "", "output format: webp|png|jpg (default from config)")
	watchCmd.Flags().IntVar(&cropQuality, "quality", 0, "output quality 1-100 (default from config)")
	watchCmd.Flags().BoolVar(&cropLossless, "lossless", false, "WebP lossless output")
}
