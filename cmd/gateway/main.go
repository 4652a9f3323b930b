package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content_gateway/internal/config"
	"content_gateway/internal/httpapi"
	"content_gateway/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "" {
		if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
			logging.SetLogLevel(level)
		} else {
			logging.Warningf("Unknown LOG_LEVEL %q, keeping default", cfg.LogLevel)
		}
	}

	// Build the façade, pipeline, ledger and metrics
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := httpapi.NewDependencies(startCtx, cfg)
	cancelStart()
	if err != nil {
		logging.Fatalf("Failed to initialize dependencies: %v", err)
	}

	addr := ":" + cfg.HTTPPort
	server := &http.Server{
		Addr:        addr,
		Handler:     httpapi.NewRouter(deps),
		ReadTimeout: 30 * time.Second,
		// Article runs chain several upstream calls.
		WriteTimeout: cfg.Provider.RequestTimeout*4 + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logging.Infof("Content Gateway listening on %s (%d models)", addr, deps.Manager.Registry().Len())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Infof("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Errorf("Server forced to shutdown: %v", err)
	}

	if err := deps.Close(); err != nil {
		logging.Errorf("Failed to close dependencies: %v", err)
	}

	logging.Infof("Server exited")
}
