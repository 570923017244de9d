package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"quotecollector/internal/fetcher"
	"quotecollector/internal/ratelimit"

	"resty.dev/v3"
)

// DefaultBaseURL is the public chart endpoint; the ticker is appended as a path segment.
const DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// ChartResponse represents the subset of the chart API response we read
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// ChartResult is one entry of chart.result
type ChartResult struct {
	Meta struct {
		Symbol string `json:"symbol"`
	} `json:"meta"`
	Indicators struct {
		Quote []struct {
			// Close is nil when the key is absent; null samples decode to nil entries.
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// ChartFetcher fetches historical close prices from the chart endpoint
type ChartFetcher struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewChartFetcher creates a new chart fetcher. A nil limiter means no throttling.
func NewChartFetcher(baseURL, userAgent string, limiter *ratelimit.Limiter) *ChartFetcher {
	return &ChartFetcher{
		client:  fetcher.NewHTTPClient(baseURL, userAgent),
		limiter: limiter,
	}
}

// Fetch retrieves the close series for req.Ticker
func (f *ChartFetcher) Fetch(ctx context.Context, req fetcher.Request) (fetcher.Result, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return fetcher.Result{}, withTicker(fetcher.NewTimeoutError(err), req.Ticker)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("ticker", req.Ticker).
		SetQueryParams(map[string]string{
			"period1":              strconv.FormatInt(req.Range.Period1(), 10),
			"period2":              strconv.FormatInt(req.Range.Period2(), 10),
			"interval":             string(req.Interval),
			"includeAdjustedClose": "true",
		}).
		Get("/{ticker}")

	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fetcher.Result{}, withTicker(fetcher.NewTimeoutError(err), req.Ticker)
		}
		return fetcher.Result{}, withTicker(fetcher.NewNetworkError(err), req.Ticker)
	}

	if !resp.IsSuccess() {
		return fetcher.Result{}, withTicker(fetcher.ClassifyHTTPError(resp.StatusCode()), req.Ticker)
	}

	// The endpoint does not always label its body as JSON, so the body is
	// decoded regardless of Content-Type.
	var chart ChartResponse
	if err := json.Unmarshal(resp.Bytes(), &chart); err != nil {
		fe := fetcher.NewValidationError("undecodable chart response")
		fe.Cause = err
		return fetcher.Result{}, withTicker(fe, req.Ticker)
	}

	return parseChart(&chart, req.Ticker)
}

// parseChart extracts chart.result[0].meta.symbol and
// chart.result[0].indicators.quote[0].close, rejecting any other shape.
func parseChart(chart *ChartResponse, ticker string) (fetcher.Result, error) {
	if chart.Chart.Error != nil {
		msg := fmt.Sprintf("chart error %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
		return fetcher.Result{}, withTicker(fetcher.NewValidationError(msg), ticker)
	}

	if len(chart.Chart.Result) == 0 {
		return fetcher.Result{}, withTicker(fetcher.NewValidationError("chart result is empty"), ticker)
	}
	result := chart.Chart.Result[0]

	if result.Meta.Symbol == "" {
		return fetcher.Result{}, withTicker(fetcher.NewValidationError("meta.symbol missing"), ticker)
	}

	if len(result.Indicators.Quote) == 0 {
		return fetcher.Result{}, withTicker(fetcher.NewValidationError("indicators.quote is empty"), ticker)
	}

	closes := result.Indicators.Quote[0].Close
	if closes == nil {
		return fetcher.Result{}, withTicker(fetcher.NewValidationError("close series missing"), ticker)
	}

	return fetcher.Result{
		Symbol: result.Meta.Symbol,
		Closes: closes,
	}, nil
}

func withTicker(err *fetcher.FetchError, ticker string) *fetcher.FetchError {
	err.Ticker = ticker
	return err
}
