package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/menta2k/page-analyzer/internal/config"
	"github.com/menta2k/page-analyzer/internal/logging"
	"github.com/menta2k/page-analyzer/internal/utils"
	"github.com/menta2k/page-analyzer/pkg/fetch"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "page-analyzer",
	Short: "Manga page heuristics: reader-mode detection and white-border cropping",
	Long: `page-analyzer inspects manga pages.

It detects whether a chapter should be read as a webtoon (continuous vertical
scroll) from the size of its middle page, and removes solid white margins
from downloaded pages.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.GetConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(classifyCmd, cropCmd, watchCmd, serveCmd, cacheCmd, configCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default(), nil
		}
	}

	c, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// newFetcher builds the page fetcher from config, restricted to hosts when any are given
func newFetcher(hosts ...string) (*fetch.HTTPFetcher, error) {
	timeout, err := cfg.FetchTimeout()
	if err != nil {
		return nil, err
	}
	return fetch.NewWithConfig(fetch.Config{
		Timeout:          timeout,
		UserAgent:        cfg.Fetch.UserAgent,
		MaxBytes:         cfg.Fetch.MaxBytes,
		CheckContentType: cfg.Fetch.CheckContentType,
		Headers:          cfg.Fetch.Headers,
		AllowedHosts:     hosts,
	}), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
