package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"quotecollector/internal/fetcher"
	"quotecollector/internal/testutil"
)

func testJob(tickers ...string) Job {
	return Job{
		Tickers:   tickers,
		StartDate: "02.02.25",
		EndDate:   "20.03.25",
		Interval:  fetcher.IntervalWeek,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func symbols(results []fetcher.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Symbol)
	}
	sort.Strings(out)
	return out
}

func TestNew(t *testing.T) {
	f := &testutil.MockFetcher{}
	sink := &testutil.RecordingSink{}

	coord := New(f, sink, 3)
	if coord == nil {
		t.Fatal("New() returned nil")
	}
	if coord.workers != 3 {
		t.Errorf("workers = %d, want 3", coord.workers)
	}

	if got := New(f, sink, 0).workers; got != DefaultWorkers {
		t.Errorf("New() with 0 workers = %d, want %d", got, DefaultWorkers)
	}
}

func TestRun_Success(t *testing.T) {
	f := testutil.NewMockFetcher(map[string][]*float64{
		"AAPL":  testutil.Prices(1, 2, 3),
		"MSFT":  testutil.Prices(4, 5, 6),
		"GOOGL": testutil.Prices(7, 8, 9),
	}, nil)
	sink := &testutil.RecordingSink{}

	report, err := New(f, sink, DefaultWorkers).WithLogger(quietLogger()).
		Run(context.Background(), testJob("AAPL", "MSFT", "GOOGL"))
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	got := symbols(sink.Results())
	want := []string{"AAPL", "GOOGL", "MSFT"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("sink received %v, want %v", got, want)
	}
	if len(report.Succeeded) != 3 || len(report.Failed) != 0 {
		t.Errorf("report = %+v, want 3 succeeded and 0 failed", report)
	}
	if sink.Drains() != 1 {
		t.Errorf("sink drained %d times, want 1", sink.Drains())
	}
}

func TestRun_PassesRequestThrough(t *testing.T) {
	f := &testutil.MockFetcher{}
	sink := &testutil.RecordingSink{}

	_, err := New(f, sink, 1).WithLogger(quietLogger()).Run(context.Background(), testJob("AAPL"))
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	calls := f.Calls()
	if len(calls) != 1 {
		t.Fatalf("fetcher called %d times, want 1", len(calls))
	}
	req := calls[0]
	if req.Ticker != "AAPL" {
		t.Errorf("Ticker = %q, want AAPL", req.Ticker)
	}
	if req.Interval != fetcher.IntervalWeek {
		t.Errorf("Interval = %q, want %q", req.Interval, fetcher.IntervalWeek)
	}
	if req.Range.Period1() != 1738454400 || req.Range.Period2() != 1742428800 {
		t.Errorf("Range = %d..%d, want 1738454400..1742428800", req.Range.Period1(), req.Range.Period2())
	}
}

func TestRun_WithErrors(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	f := testutil.NewMockFetcher(map[string][]*float64{
		"MSFT":  testutil.Prices(1),
		"GOOGL": testutil.Prices(2),
	}, map[string]error{
		"AAPL": testutil.ErrConnection,
	})
	sink := &testutil.RecordingSink{}

	// Failed tickers are reported, not returned as a run error
	report, err := New(f, sink, DefaultWorkers).WithLogger(logger).
		Run(context.Background(), testJob("AAPL", "MSFT", "GOOGL"))
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if got := symbols(sink.Results()); fmt.Sprint(got) != "[GOOGL MSFT]" {
		t.Errorf("sink received %v, want [GOOGL MSFT]", got)
	}

	if len(report.Failed) != 1 {
		t.Fatalf("len(Failed) = %d, want 1", len(report.Failed))
	}
	if report.Failed[0].Ticker != "AAPL" {
		t.Errorf("Failed[0].Ticker = %q, want AAPL", report.Failed[0].Ticker)
	}
	if !errors.Is(report.Failed[0].Err, testutil.ErrConnection) {
		t.Errorf("Failed[0].Err = %v, want %v", report.Failed[0].Err, testutil.ErrConnection)
	}

	out := logs.String()
	if !strings.Contains(out, "ticker=AAPL") || !strings.Contains(out, "connection refused") {
		t.Errorf("log output %q does not mention the failed ticker and its error", out)
	}
}

func TestRun_AllFail(t *testing.T) {
	f := testutil.NewMockFetcher(nil, map[string]error{
		"AAPL": testutil.ErrConnection,
		"MSFT": fetcher.NewValidationError("chart result is empty"),
	})
	sink := &testutil.RecordingSink{}

	report, err := New(f, sink, 2).WithLogger(quietLogger()).
		Run(context.Background(), testJob("AAPL", "MSFT"))
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	if len(sink.Results()) != 0 {
		t.Errorf("sink received %d results, want 0", len(sink.Results()))
	}
	if len(report.Failed) != 2 {
		t.Errorf("len(Failed) = %d, want 2", len(report.Failed))
	}
}

func TestRun_NoTickers(t *testing.T) {
	coord := New(&testutil.MockFetcher{}, &testutil.RecordingSink{}, 1)

	_, err := coord.Run(context.Background(), testJob())
	if err == nil {
		t.Fatal("Run() expected error for no tickers, got nil")
	}

	expectedErrMsg := "no tickers configured"
	if err.Error() != expectedErrMsg {
		t.Errorf("Run() error = %q, want %q", err.Error(), expectedErrMsg)
	}
}

func TestRun_BadDateMakesNoCalls(t *testing.T) {
	f := &testutil.MockFetcher{}
	sink := &testutil.RecordingSink{}

	job := testJob("AAPL", "MSFT", "GOOGL")
	job.StartDate = "2025-02-02"
	job.EndDate = "2025-03-20"

	_, err := New(f, sink, DefaultWorkers).Run(context.Background(), job)

	var dateErr *fetcher.DateError
	if !errors.As(err, &dateErr) {
		t.Fatalf("Run() error = %v, want *fetcher.DateError", err)
	}
	if len(f.Calls()) != 0 {
		t.Errorf("fetcher called %d times, want 0", len(f.Calls()))
	}
	if sink.Drains() != 0 {
		t.Errorf("sink started %d times, want 0", sink.Drains())
	}
}

func TestRun_SinkError(t *testing.T) {
	sinkErr := errors.New("disk full")
	f := testutil.NewMockFetcher(map[string][]*float64{"AAPL": testutil.Prices(1)}, nil)
	sink := &testutil.RecordingSink{Err: sinkErr}

	report, err := New(f, sink, 2).WithLogger(quietLogger()).
		Run(context.Background(), testJob("AAPL", "MSFT"))
	if !errors.Is(err, sinkErr) {
		t.Fatalf("Run() error = %v, want wrapped %v", err, sinkErr)
	}
	if report == nil {
		t.Fatal("Run() returned nil report alongside sink error")
	}
	if len(report.Succeeded) != 2 {
		t.Errorf("len(Succeeded) = %d, want 2", len(report.Succeeded))
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32

	f := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, req fetcher.Request) (fetcher.Result, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return fetcher.Result{Symbol: req.Ticker}, nil
		},
	}
	sink := &testutil.RecordingSink{}

	tickers := make([]string, 20)
	for i := range tickers {
		tickers[i] = fmt.Sprintf("T%02d", i)
	}

	_, err := New(f, sink, 5).WithLogger(quietLogger()).Run(context.Background(), testJob(tickers...))
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if p := peak.Load(); p > 5 {
		t.Errorf("peak concurrent fetches = %d, want <= 5", p)
	}
	if p := peak.Load(); p < 2 {
		t.Errorf("peak concurrent fetches = %d, expected fetches to overlap", p)
	}
	if got := len(sink.Results()); got != len(tickers) {
		t.Errorf("sink received %d results, want %d", got, len(tickers))
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	// A slow fetcher that gives up when the context is cancelled
	f := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, req fetcher.Request) (fetcher.Result, error) {
			select {
			case <-ctx.Done():
				return fetcher.Result{}, fetcher.NewTimeoutError(ctx.Err())
			case <-time.After(5 * time.Second):
				return fetcher.Result{Symbol: req.Ticker}, nil
			}
		},
	}
	sink := &testutil.RecordingSink{}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	report, err := New(f, sink, 1).WithLogger(quietLogger()).Run(ctx, testJob("AAPL"))
	if err != nil {
		t.Errorf("Run() returned unexpected error: %v", err)
	}
	if len(report.Failed) != 1 || !fetcher.IsType(report.Failed[0].Err, fetcher.ErrorTypeTimeout) {
		t.Errorf("report.Failed = %+v, want one timeout failure", report.Failed)
	}
}
