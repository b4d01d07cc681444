package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/page-analyzer/internal/cache"
	"github.com/menta2k/page-analyzer/internal/utils"
)

var (
	cachePages  bool
	cacheThumbs bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the page and thumbnail caches",
}

var cacheSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Print the size of each cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, c := range selectedCaches() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", c.Name, c.Summary(cmd.Context()), c.Dir)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached files",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, c := range selectedCaches() {
			freed, err := c.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tfreed %s\n", c.Name, utils.FormatFileSize(freed))
		}
		return nil
	},
}

var cacheCropCmd = &cobra.Command{
	Use:   "crop",
	Short: "Remove white margins from every cached page",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := cache.Pages(cfg.Cache.Root).Images()
		if err != nil {
			return err
		}
		result := newCropper(cmd).CropFiles(cmd.Context(), paths)
		fmt.Fprintf(cmd.OutOrStdout(), "cropped %d, unchanged %d, failed %d, skipped %d\n",
			result.Cropped, result.Unchanged, result.Failed, result.Skipped)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{cacheSizeCmd, cacheClearCmd} {
		c.Flags().BoolVar(&cachePages, "pages", false, "only the page cache")
		c.Flags().BoolVar(&cacheThumbs, "thumbs", false, "only the thumbnail cache")
	}
	cacheCmd.AddCommand(cacheSizeCmd, cacheClearCmd, cacheCropCmd)
}

func selectedCaches() []cache.Cache {
	root := cfg.Cache.Root
	switch {
	case cachePages && !cacheThumbs:
		return []cache.Cache{cache.Pages(root)}
	case cacheThumbs && !cachePages:
		return []cache.Cache{cache.Thumbs(root)}
	default:
		return cache.All(root)
	}
}
