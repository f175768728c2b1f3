package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chat-widget/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser chat widget",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer a.close()

		srv, err := web.NewServer(a.client, a.logger, a.widgetOptions()...)
		if err != nil {
			return err
		}
		httpServer := &http.Server{
			Addr:              a.cfg.ListenAddr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		ctx := cmd.Context()
		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			a.logger.Info("serving chat widget", "addr", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("server shutdown", "err", err)
				return err
			}
			a.logger.Info("server shutdown complete")
			return nil
		})
		return eg.Wait()
	},
}
