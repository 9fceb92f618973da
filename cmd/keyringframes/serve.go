package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/keyringframes/internal/assets"
	"github.com/ivlev/keyringframes/internal/server"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored frames to the display host and accept new photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr != "" {
				a.cfg.HTTPAddr = addr
			}

			overlays := a.overlays()
			comp, err := a.compositor(overlays, nil)
			if err != nil {
				return err
			}
			// report missing assets at startup; this also warms the cache
			if err := assets.Check(overlays, comp.FrameCount()); err != nil {
				a.log.Warn("overlay assets incomplete, generation will fail", "dir", a.cfg.AssetsDir, "error", err)
			}

			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			met := server.NewMetrics()
			h := server.NewHandler(comp, store, a.log, met, server.HandlerOptions{
				FPS:           a.cfg.FPS,
				PublicURL:     a.cfg.PublicURL,
				MaxUploadSize: a.cfg.MaxUploadSize,
			})
			srv := &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           server.NewRouter(h, a.log, met),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			a.log.Info("server starting",
				"addr", a.cfg.HTTPAddr,
				"store", a.cfg.StoreBackend,
				"frames", comp.FrameCount(),
				"fps", a.cfg.FPS,
			)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.log.Info("shutdown signal received, draining connections")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			a.log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: config http_addr)")
	return cmd
}
