package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"quotecollector/internal/config"
	"quotecollector/internal/coordinator"
	"quotecollector/internal/fetcher"
	"quotecollector/internal/ratelimit"
	"quotecollector/internal/writer"
	"quotecollector/internal/yahoo"
)

func main() {
	// Parse flags and load configuration
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals; in-flight requests are aborted, the writer still finishes
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	limiter := ratelimit.New(cfg.RequestsPerSecond, 1)
	quotes := yahoo.NewChartFetcher(cfg.BaseURL, cfg.UserAgent, limiter)
	csvWriter := writer.NewCSVWriter(cfg.OutputPath)

	coord := coordinator.New(quotes, csvWriter, cfg.Workers)

	slog.Info("collecting quotes",
		"tickers", cfg.Tickers,
		"start", cfg.StartDate,
		"end", cfg.EndDate,
		"interval", cfg.Interval,
		"output", csvWriter.Path(),
		"workers", cfg.Workers,
		"throttled", !limiter.Unbounded())

	report, err := coord.Run(ctx, coordinator.Job{
		Tickers:   cfg.Tickers,
		StartDate: cfg.StartDate,
		EndDate:   cfg.EndDate,
		Interval:  fetcher.Interval(cfg.Interval),
	})
	if err != nil {
		log.Fatalf("Collection failed: %v", err)
	}

	// Failed tickers are already logged individually; a partial run still exits 0
	for _, f := range report.Failed {
		fmt.Printf("✗ %s: %v\n", f.Ticker, f.Err)
	}
	fmt.Printf("Wrote %d of %d tickers to %s\n",
		len(report.Succeeded), len(cfg.Tickers), csvWriter.Path())
}
