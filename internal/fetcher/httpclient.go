package fetcher

import (
	"log/slog"

	"resty.dev/v3"
)

// DefaultUserAgent is a browser-like agent; the chart endpoint rejects
// some non-browser clients outright.
const DefaultUserAgent = "Mozilla/5.0"

// NewHTTPClient creates the HTTP client used for quote requests.
// It does not retry and does not override the transport's timeouts.
func NewHTTPClient(baseURL, userAgent string) *resty.Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		AddResponseMiddleware(logResponse)
}

// logResponse logs every completed exchange for observability
func logResponse(_ *resty.Client, r *resty.Response) error {
	slog.Debug("quote service responded",
		"url", r.Request.URL,
		"status_code", r.StatusCode())
	return nil
}
