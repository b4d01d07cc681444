package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/menta2k/page-analyzer/pkg/cropper"
	"github.com/menta2k/page-analyzer/pkg/readermode"
	"github.com/menta2k/page-analyzer/pkg/server"
	"github.com/menta2k/page-analyzer/pkg/source"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reader-mode detection and auto-crop over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, err := newFetcher(cfg.Server.AllowedHosts...)
		if err != nil {
			return err
		}
		if len(cfg.Server.AllowedHosts) == 0 {
			logger.Warn("server.allowed_hosts is empty, reader-mode requests will be rejected")
		}

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		s := server.New(
			readermode.New(source.Direct, fetcher, readermode.WithLogger(logger.Named("readermode"))),
			cropper.New(cropper.WithLogger(logger.Named("cropper"))),
			server.Config{
				Encode:       cfg.EncodeOptions(),
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
				AllowedHosts: cfg.Server.AllowedHosts,
			},
			logger.Named("http"),
		)

		srv := &http.Server{
			Addr:              addr,
			Handler:           s.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", zap.String("addr", addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-cmd.Context().Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}
