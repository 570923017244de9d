package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"quotecollector/internal/fetcher"
)

// DefaultWorkers bounds how many quote requests are in flight at once.
const DefaultWorkers = 5

// Sink is the single consumer of fetched results. Drain must return once
// results is closed and fully consumed.
type Sink interface {
	Drain(results <-chan fetcher.Result) error
}

// Job is one collection run.
type Job struct {
	Tickers   []string
	StartDate string // DD.MM.YY
	EndDate   string // DD.MM.YY
	Interval  fetcher.Interval
}

// Failure records a ticker that produced no row.
type Failure struct {
	Ticker string
	Err    error
}

// Report lists which tickers were handed to the sink and which were dropped.
type Report struct {
	Succeeded []string
	Failed    []Failure
}

// Coordinator fans fetches out over a bounded pool and funnels the results
// into one sink.
type Coordinator struct {
	fetcher fetcher.Fetcher
	sink    Sink
	workers int
	logger  *slog.Logger
}

// New creates a new Coordinator. workers < 1 falls back to DefaultWorkers.
func New(f fetcher.Fetcher, sink Sink, workers int) *Coordinator {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Coordinator{
		fetcher: f,
		sink:    sink,
		workers: workers,
		logger:  slog.Default(),
	}
}

// WithLogger replaces the logger used for per-ticker failures.
func (c *Coordinator) WithLogger(l *slog.Logger) *Coordinator {
	if l != nil {
		c.logger = l
	}
	return c
}

// Run fetches every ticker of job and streams successful results to the sink.
//
// The date range is parsed before anything else, so a malformed date makes
// no request and leaves the output untouched. A failed fetch is logged and
// recorded in the report; it never aborts the run. The returned error is
// non-nil only for an invalid job or a sink failure.
func (c *Coordinator) Run(ctx context.Context, job Job) (*Report, error) {
	if len(job.Tickers) == 0 {
		return nil, errors.New("no tickers configured")
	}

	window, err := fetcher.ParseDateRange(job.StartDate, job.EndDate)
	if err != nil {
		return nil, err
	}

	// One slot per ticker: every producer sends at most once, so sends never block.
	results := make(chan fetcher.Result, len(job.Tickers))

	// The sink is running before the first fetch is dispatched.
	writer := pool.New().WithErrors()
	writer.Go(func() error {
		return c.sink.Drain(results)
	})

	var (
		mu     sync.Mutex
		report = &Report{}
	)

	workers := pool.New().WithMaxGoroutines(c.workers)
	for _, ticker := range job.Tickers {
		workers.Go(func() {
			res, err := c.fetcher.Fetch(ctx, fetcher.Request{
				Ticker:   ticker,
				Range:    window,
				Interval: job.Interval,
			})
			if err != nil {
				c.logger.Error("fetch failed", "ticker", ticker, "error", err)
				mu.Lock()
				report.Failed = append(report.Failed, Failure{Ticker: ticker, Err: err})
				mu.Unlock()
				return
			}

			results <- res

			mu.Lock()
			report.Succeeded = append(report.Succeeded, ticker)
			mu.Unlock()
		})
	}

	workers.Wait()
	close(results)

	if err := writer.Wait(); err != nil {
		return report, fmt.Errorf("writing results: %w", err)
	}

	c.logger.Info("collection finished",
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed))

	return report, nil
}
