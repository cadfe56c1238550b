package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/transitgraph"
	"github.com/saulfrancisco-ruizacevedo/transitgraph/config"
	"github.com/saulfrancisco-ruizacevedo/transitgraph/dataset"
	"github.com/saulfrancisco-ruizacevedo/transitgraph/shell"
)

func main() {
	configPath := flag.String("config", os.Getenv("TRANSIT_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("Failed to sync logger: %v", err)
		}
	}()

	if err := run(cfg, logger); err != nil {
		logger.Error("Dashboard stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("Dashboard stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := dataset.LoadAll(cfg.DataDir, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := transitgraph.NewMetrics(registry, "transit")

	session := transitgraph.OpenSession(ctx, transitgraph.SessionConfig{
		Targets: cfg.Targets(),
		Options: cfg.AdapterOptions(),
		Logger:  logger,
		Wrap: func(mode transitgraph.Mode, runner transitgraph.DBRunner) transitgraph.DBRunner {
			return transitgraph.WithMetrics(transitgraph.WithLogging(runner, mode, logger), mode, metrics)
		},
	}, transitgraph.DialNeo4j)
	// Connections are released on every exit path, including failed startup.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := session.Close(closeCtx); err != nil {
			logger.Warn("Closing graph connections", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr: cfg.Server.Address,
		Handler: shell.NewServer(shell.Options{
			Analyzer:     session,
			Datasets:     data,
			Logger:       logger,
			Gatherer:     registry,
			CORSOrigins:  cfg.Server.CORSOrigins,
			QueryTimeout: cfg.Server.QueryTimeout,
		}).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
