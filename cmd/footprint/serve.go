package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carbon-scribe/dairy-footprint/internal/api"
	"carbon-scribe/dairy-footprint/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}

	opts := api.Options{
		Engine:          p.engine,
		Runner:          p.runner,
		Registry:        p.registry,
		Tier:            cfg.Calculation.TierValue(),
		Boundary:        p.boundary,
		BenchmarkRegion: cfg.Calculation.BenchmarkRegion,
	}
	if cfg.Store.Path != "" {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Store = store
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(opts, logger.Named(log, "api"))
	router := api.NewRouter(handler, logger.Named(log, "http"))

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("Server started", zap.String("addr", srv.Addr), zap.Bool("run_history", opts.Store != nil))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-quit:
	}
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	log.Info("Server exiting")
	return nil
}
