package tle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// MaxBodyBytes caps a single catalog download.
const MaxBodyBytes = 50 << 20

// CelesTrakGroupURL returns the CelesTrak GP URL for a named group in TLE format.
func CelesTrakGroupURL(group string) string {
	return "https://celestrak.org/NORAD/elements/gp.php?GROUP=" + group + "&FORMAT=tle"
}

// Fetcher retrieves raw TLE text from remote sources.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
	maxBytes   int64
}

// NewFetcher creates a Fetcher with a 30 second request timeout.
func NewFetcher(logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:   logger,
		maxBytes: MaxBodyBytes,
	}
}

// Fetch performs an HTTP GET against url and returns the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("response from %s exceeds %d byte limit", url, f.maxBytes)
	}

	f.logger.Debug("fetched TLE source",
		"url", url,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return body, nil
}
