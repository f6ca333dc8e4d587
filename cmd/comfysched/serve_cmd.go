package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comfyqueue/scheduler/api"
	"github.com/comfyqueue/scheduler/metrics"
	"github.com/comfyqueue/scheduler/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the operator control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, sqlDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := newHTTPServer(st, metrics.New(), log, servePort)
		return runHTTPServer(ctx, srv, log)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "control API listen port")
}

func newHTTPServer(st store.Store, m *metrics.Registry, log *slog.Logger, port int) *http.Server {
	s := api.New(st, m, log)
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}
}

// runHTTPServer serves srv until ctx is cancelled, then shuts it down
// gracefully.
func runHTTPServer(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("control API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}
