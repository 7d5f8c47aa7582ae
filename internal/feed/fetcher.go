package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxAttempts = 3

// Fetcher downloads a registry's delegation file. Retries cover the HTTP
// round trip only; parsing the body is deterministic and happens once,
// downstream.
type Fetcher struct {
	logger     *zap.Logger
	client     *http.Client
	retryDelay time.Duration
}

func NewFetcher(logger *zap.Logger) *Fetcher {
	return &Fetcher{
		logger:     logger,
		retryDelay: 5 * time.Second,
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:       100,
				IdleConnTimeout:    90 * time.Second,
				DisableCompression: true,
				MaxConnsPerHost:    100,
				DisableKeepAlives:  false,
				ForceAttemptHTTP2:  true,
			},
		},
	}
}

// Fetch performs up to three GET attempts against the feed URL and returns
// the response body. Only status 200 counts as success.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * f.retryDelay):
			}
		}

		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}

		lastErr = err
		f.logger.Warn("Failed to fetch delegation feed, retrying...",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", "rirblocks/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching delegation feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading delegation feed: %w", err)
	}

	f.logger.Info("Successfully downloaded delegation feed",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("download_time", time.Since(startTime)))

	return body, nil
}
