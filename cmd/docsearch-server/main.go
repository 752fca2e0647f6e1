// Package main provides the HTTP server for docsearch.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/raphaelgruber/docsearch/internal/config"
	"github.com/raphaelgruber/docsearch/internal/embedding"
	"github.com/raphaelgruber/docsearch/internal/extract"
	"github.com/raphaelgruber/docsearch/internal/metrics"
	"github.com/raphaelgruber/docsearch/internal/server"
	"github.com/raphaelgruber/docsearch/internal/service"
	"github.com/raphaelgruber/docsearch/internal/vectorstore"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()
	slog.SetDefault(logger)

	slog.Info("starting docsearch-server", "port", cfg.ServerPort)

	embedder, err := embedding.New(embedding.Config{
		Provider:          embedding.ProviderType(cfg.EmbeddingProvider),
		Model:             cfg.EmbeddingModel,
		ExpectedDimension: cfg.EmbeddingDim,
		JinaAPIKey:        cfg.JinaAPIKey,
		JinaAPIURL:        cfg.JinaAPIURL,
	})
	if err != nil {
		slog.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}

	store := vectorstore.New(vectorstore.Config{
		Host:       cfg.QdrantHost,
		Port:       cfg.QdrantPort,
		Collection: cfg.CollectionName,
	}, embedder)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	err = store.Connect(ctx)
	cancel()
	if err != nil {
		slog.Error("failed to connect to vector store", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()
	coordinator := service.NewIngestCoordinator(
		service.NewJobStore(),
		extract.NewPDFExtractor(),
		store,
		service.CoordinatorConfig{
			Concurrency:  cfg.IngestConcurrency,
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
			Metrics:      collector,
		},
	)
	engine := service.NewSearchEngine(store, cfg.TopKMax, collector)

	srv := server.New(coordinator, engine, cfg, collector, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      srv.Handler(),
		ReadTimeout:  60 * time.Second, // uploads can be large
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("API available", "url", fmt.Sprintf("http://localhost:%d/", cfg.ServerPort))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
