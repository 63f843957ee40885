// Package main runs the stock-compass HTTP server: ticker search, quotes,
// normalized financials, and multi-year valuation projections.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stock-compass/config"
	"stock-compass/internal/api"
	"stock-compass/internal/app"
	"stock-compass/observability"
	"stock-compass/repository"
	"stock-compass/services"
)

func main() {
	// Load .env if present; environment variables win
	godotenv.Load()

	production := os.Getenv("ENV") == "production"
	observability.InitLogger(production)
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	// Database is optional: without it the server runs uncached and
	// without lookup history.
	var repo repository.RepositoryInterface
	if cfg.HasDatabase() {
		r, err := repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			observability.Fatal("failed to connect to database", "error", err)
		}
		repo = r
		observability.Info("connected to database")
	} else {
		observability.Warn("DATABASE_URL not set, running without cache or history")
	}

	// Market data provider is optional: without it only inline-metrics
	// projections are served.
	var fmp services.FMPServiceInterface
	if cfg.HasFMP() {
		fmp = services.NewFMPServiceWithBaseURL(cfg.FMP.APIKey, cfg.FMP.BaseURL)
		observability.Info("market data provider configured")
	} else {
		observability.Warn("FMP_API_KEY not set, running in degraded mode")
	}

	application := app.New(cfg, repo, fmp)

	// Expired cache rows are ignored by reads; sweep them out hourly so
	// the table does not grow unbounded.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if repo != nil {
		go sweepExpiredCache(sweepCtx, repo)
	}

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		observability.Info("starting server", "port", cfg.HTTP.Port, "url", fmt.Sprintf("http://localhost:%s", cfg.HTTP.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("server stopped")
}

func sweepExpiredCache(ctx context.Context, repo repository.RepositoryInterface) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.CleanExpiredCache(ctx)
			if err != nil {
				observability.Warn("expired cache sweep failed", "error", err)
			} else if removed > 0 {
				observability.Info("swept expired cache entries", "removed", removed)
			}
		}
	}
}
