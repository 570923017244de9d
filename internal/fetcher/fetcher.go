package fetcher

import "context"

// Fetcher is the core interface for anything that can retrieve a close-price
// series for a single ticker.
type Fetcher interface {
	// Fetch performs one request for req.Ticker over req.Range.
	// Returns an error if the request fails or the response has an unexpected shape.
	Fetch(ctx context.Context, req Request) (Result, error)
}

// Request describes one ticker lookup.
type Request struct {
	Ticker   string
	Range    DateRange
	Interval Interval
}

// Interval is the sampling granularity token understood by the quote service.
// It is passed through as-is.
type Interval string

const (
	IntervalDay     Interval = "1d"
	IntervalWeek    Interval = "1wk"
	IntervalMonth   Interval = "1mo"
	IntervalQuarter Interval = "3mo"
)
