package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/rentalworker/config"
	"sjsage522/rentalworker/internal"
	"sjsage522/rentalworker/internal/crawler"
	"sjsage522/rentalworker/internal/normalize"
	"sjsage522/rentalworker/logger"
	"sjsage522/rentalworker/services/sink"
	"sjsage522/rentalworker/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	// Initialize logger first
	log, err := logger.Init(logger.Options{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		File:        cfg.LogFile,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		Console:     true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("base_url", cfg.BaseURL).
		Strs("cities", cfg.Cities).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- run(ctx, cfg, log)
	}()

	// Wait for shutdown signal or worker completion
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case err := <-workerDone:
		if err != nil {
			log.Error().Err(err).Msg("Worker exited with error")
			cancel()
			os.Exit(1)
		}
		log.Info().Msg("Worker exited normally")
	}

	log.Info().Msg("Shutting down gracefully...")
}

// run wires the services and runs the worker until it finishes or ctx is
// cancelled.
func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	deps, err := internal.NewDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	c, err := crawler.CreateCrawler(cfg, deps.Cache, log)
	if err != nil {
		return err
	}
	defer c.Close()

	w := worker.NewWorker(
		ctx,
		c.Index,
		c.Detail,
		normalize.New(normalize.Policy(cfg.DropPolicy), log.ForComponent("normalize")),
		sink.NewCSVWriter(),
		deps.Publisher,
		log.ForComponent("worker"),
		worker.Options{
			StartURL:      cfg.StartURL,
			Cities:        cfg.Cities,
			OutputDir:     cfg.OutputDir,
			DedupeURLs:    cfg.DedupeURLs,
			CrawlInterval: cfg.CrawlInterval,
		},
	)
	return w.Start()
}
