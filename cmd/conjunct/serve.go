package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/conjunct/internal/api"
	"github.com/star/conjunct/internal/auth"
	"github.com/star/conjunct/internal/catalog"
	"github.com/star/conjunct/internal/metrics"
	"github.com/star/conjunct/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "serve loads the TLE catalog from the source directory and serves /list, /predict and /refresh.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := newApp(cfg, logger, false)
		metrics.RegisterCatalogAge(a.store.AgeSeconds)

		if err := loadInitialCatalog(ctx, a); err != nil {
			return err
		}

		if cfg.TLE.Watch {
			go func() {
				err := catalog.Watch(ctx, cfg.TLE.Dir, catalog.DefaultDebounce, func() {
					if _, err := a.refresher.Reload(); err != nil {
						metrics.IncCatalogRefresh("watch", "error")
						logger.Error("catalog reload after file change failed", "error", err)
						return
					}
					metrics.IncCatalogRefresh("watch", "success")
				}, logger)
				if err != nil {
					logger.Error("TLE watcher stopped", "error", err)
				}
			}()
		}

		srv := api.NewServer(api.Options{
			Addr:        cfg.HTTP.Addr,
			Logger:      logger,
			Auth:        auth.Config{Enabled: cfg.Auth.Enabled, Token: cfg.Auth.Token},
			CORSOrigins: cfg.HTTP.CORSOrigins,
			TrustProxy:  cfg.HTTP.TrustProxy,
			Store:       a.store,
			Predictor:   a.predictor,
			Refresher:   a.refresher,
			Static:      web.Content,
		})

		errCh := make(chan error, 1)
		go func() {
			logger.Info("starting server",
				"addr", cfg.HTTP.Addr,
				"auth_enabled", cfg.Auth.Enabled,
				"tle_fetch_enabled", cfg.TLE.EnableFetch,
				"tle_watch", cfg.TLE.Watch,
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
			return err
		}

		logger.Info("server stopped")
		return nil
	},
}

// loadInitialCatalog reads the source directory. When it yields nothing and
// downloads are enabled, it fetches once so a fresh install starts with data.
func loadInitialCatalog(ctx context.Context, a *app) error {
	c, err := a.refresher.Reload()
	if err != nil {
		metrics.IncCatalogRefresh("startup", "error")
		return err
	}
	if c.Len() == 0 && cfg.TLE.EnableFetch {
		logger.Info("no local TLEs, fetching sources")
		if c, err = a.refresher.Refresh(ctx); err != nil {
			metrics.IncCatalogRefresh("startup", "error")
			return err
		}
	}
	metrics.IncCatalogRefresh("startup", "success")
	logger.Info("catalog ready", "satellites", c.Len())
	return nil
}
