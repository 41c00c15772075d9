package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/seolint/analyzer"
	"github.com/seo-optimizer/seolint/api"
	"github.com/seo-optimizer/seolint/config"
	"github.com/seo-optimizer/seolint/logging"
	"github.com/seo-optimizer/seolint/middleware"
	"github.com/seo-optimizer/seolint/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Service: "seolint"})
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := stats.NewStorage(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize statistics", "error", err)
		os.Exit(1)
	}
	storage.Cleanup(2)
	defer func() {
		if err := storage.Shutdown(); err != nil {
			slog.Error("Failed to save statistics", "error", err)
		}
	}()

	seoAnalyzer := analyzer.New(analyzer.Config{
		UserAgent:       cfg.UserAgent,
		FetchTimeout:    cfg.FetchTimeout,
		LinkTimeout:     cfg.LinkTimeout,
		LinkConcurrency: cfg.LinkConcurrency,
	}, storage)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(seoAnalyzer, storage, rateLimiter).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "address", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutdown signal received. Exiting...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
