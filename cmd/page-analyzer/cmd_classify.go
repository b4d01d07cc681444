package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/page-analyzer/pkg/readermode"
	"github.com/menta2k/page-analyzer/pkg/source"
	"github.com/menta2k/page-analyzer/pkg/types"
)

var (
	classifyMedian bool
	classifyExpect string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <url>...",
	Short: "Detect the reader mode of one or more pages",
	Long: `Fetches each page header and prints "webtoon" when the page is more
than twice as tall as it is wide, "standard" otherwise. With --median the
URLs are treated as one chapter and only its middle page is sampled.
With --expect the command fails unless every result matches the given mode.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var expect *types.ReaderMode
		if classifyExpect != "" {
			mode, err := types.ParseReaderMode(classifyExpect)
			if err != nil {
				return err
			}
			expect = &mode
		}

		fetcher, err := newFetcher()
		if err != nil {
			return err
		}
		classifier := readermode.New(source.Direct, fetcher, readermode.WithLogger(logger.Named("readermode")))

		pages := make([]types.Page, len(args))
		for i, u := range args {
			pages[i] = types.Page{ID: fmt.Sprintf("%d", i+1), URL: u}
		}

		out := cmd.OutOrStdout()
		if classifyMedian {
			mode, ok := classifier.DetermineReaderMode(cmd.Context(), pages)
			fmt.Fprintln(out, formatMode(mode, ok))
			if !matches(expect, mode, ok) {
				return fmt.Errorf("chapter is %s, expected %s", formatMode(mode, ok), *expect)
			}
			return nil
		}

		mismatched := 0
		for _, page := range pages {
			if verbose {
				mode, err := classifier.Detect(cmd.Context(), page)
				if err != nil {
					fmt.Fprintf(out, "%s\tunknown\t%v\n", page.URL, err)
				} else {
					fmt.Fprintf(out, "%s\t%s\n", page.URL, mode)
				}
				if !matches(expect, mode, err == nil) {
					mismatched++
				}
				continue
			}
			mode, ok := classifier.Classify(cmd.Context(), page)
			fmt.Fprintf(out, "%s\t%s\n", page.URL, formatMode(mode, ok))
			if !matches(expect, mode, ok) {
				mismatched++
			}
		}
		if mismatched > 0 {
			return fmt.Errorf("%d of %d pages are not %s", mismatched, len(pages), *expect)
		}
		return nil
	},
}

// matches reports whether a result satisfies --expect. Undetermined results never match.
func matches(expect *types.ReaderMode, mode types.ReaderMode, ok bool) bool {
	return expect == nil || (ok && mode == *expect)
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyMedian, "median", false, "classify the chapter by its middle page")
	classifyCmd.Flags().StringVar(&classifyExpect, "expect", "", "fail unless the mode is this one (standard|webtoon)")
}

func formatMode(mode types.ReaderMode, ok bool) string {
	if !ok {
		return "unknown"
	}
	return mode.String()
}
