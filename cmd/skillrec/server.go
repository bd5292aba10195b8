package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/skillrec/internal/server"
	"github.com/hyperjump/skillrec/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serverHost  string
	serverPort  int
	serverWatch bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the recommendation HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "", "listen host (overrides config)")
	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "listen port (overrides config)")
	serverCmd.Flags().BoolVarP(&serverWatch, "watch", "w", false, "rebuild the index when the catalog file changes")
}

func runServer(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := setup(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg, logger := s.cfg, s.logger
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}

	if cfg.Catalog.Watch || serverWatch {
		w, err := watcher.New([]string{cfg.Catalog.Path},
			func(ctx context.Context, _ string) error { return s.engine.Rebuild(ctx) },
			watcher.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	srv := server.NewServer(s.engine, cfg, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
