package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/entitymap/internal/config"
	"github.com/IshaanNene/entitymap/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL. Transport
	// failures and non-2xx statuses are returned as *types.FetchError.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New builds the fetcher selected by cfg.Fetcher.Type.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "http", "":
		return NewHTTPFetcher(cfg, logger)
	case "browser":
		return NewBrowserFetcher(cfg, logger)
	default:
		return nil, &types.ConfigurationError{Field: "fetcher.type", Value: cfg.Fetcher.Type, Reason: "unknown fetcher"}
	}
}

// FetchPage fetches rawURL and fails with a FetchError on any non-2xx
// status.
func FetchPage(ctx context.Context, f Fetcher, rawURL string) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}
	return resp, nil
}

// FetchHTML fetches rawURL and returns the body as text.
func FetchHTML(ctx context.Context, f Fetcher, rawURL string) (string, error) {
	resp, err := FetchPage(ctx, f, rawURL)
	if err != nil {
		return "", err
	}
	return resp.HTML(), nil
}
