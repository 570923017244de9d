package testutil

import (
	"context"
	"errors"
	"sync"

	"quotecollector/internal/fetcher"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context, req fetcher.Request) (fetcher.Result, error)

	mu    sync.Mutex
	calls []fetcher.Request
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context, req fetcher.Request) (fetcher.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, req)
	}
	return fetcher.Result{Symbol: req.Ticker}, nil
}

// Calls returns every request received so far.
func (m *MockFetcher) Calls() []fetcher.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fetcher.Request(nil), m.calls...)
}

// NewMockFetcher returns a fetcher that answers from a fixed table.
// Tickers in errs fail with that error; all others return their closes with
// the ticker echoed as the symbol.
func NewMockFetcher(closes map[string][]*float64, errs map[string]error) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, req fetcher.Request) (fetcher.Result, error) {
			if err, ok := errs[req.Ticker]; ok {
				return fetcher.Result{}, err
			}
			return fetcher.Result{Symbol: req.Ticker, Closes: closes[req.Ticker]}, nil
		},
	}
}

// RecordingSink collects drained results in memory.
type RecordingSink struct {
	// Err, when set, is returned from Drain before anything is read.
	Err error

	mu      sync.Mutex
	results []fetcher.Result
	drains  int
}

// Drain implements coordinator.Sink
func (s *RecordingSink) Drain(results <-chan fetcher.Result) error {
	s.mu.Lock()
	s.drains++
	s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	for r := range results {
		s.mu.Lock()
		s.results = append(s.results, r)
		s.mu.Unlock()
	}
	return nil
}

// Results returns everything drained so far.
func (s *RecordingSink) Results() []fetcher.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fetcher.Result(nil), s.results...)
}

// Drains reports how many times Drain was invoked.
func (s *RecordingSink) Drains() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drains
}

// Prices converts plain values into a close series.
func Prices(values ...float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}

// ErrConnection stands in for a transport failure.
var ErrConnection = errors.New("connection refused")
