package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "newsbridge/1.0 (+https://github.com/bilgisen/newsbridge)"

// Fetcher is the shared HTTP client of the source adapters.
type Fetcher struct {
	client *resty.Client
}

// FetcherConfig tunes the adapter HTTP client.
type FetcherConfig struct {
	Timeout    time.Duration
	RetryCount int
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Fetcher{
		client: resty.New().
			SetTimeout(cfg.Timeout).
			SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(3 * time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

// Fetch retrieves url and returns the body of a 200 response.
func (f *Fetcher) Fetch(ctx context.Context, url, accept string) ([]byte, error) {
	req := f.client.R().SetContext(ctx)
	if accept != "" {
		req.SetHeader("Accept", accept)
	}

	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), url)
	}
	return resp.Body(), nil
}
