package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/recibos/taxbot/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultURL is the ECB historical reference rates archive
const DefaultURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-hist.zip"

// Fetcher downloads the full rate dataset
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch implements Fetcher
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HTTPFetcher downloads the dataset with a plain GET
type HTTPFetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client means a client without
// a timeout; the request only ends when ctx does.
func NewHTTPFetcher(client *http.Client, logger *zap.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFetcher{
		client: client,
		logger: logger,
	}
}

// Fetch implements Fetcher. Transport failures and statuses >= 400 are
// NETWORK errors; the body is returned unmodified otherwise.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, shared.NewNetworkError("failed to build rate request", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("Rate download failed", zap.String("url", url), zap.Error(err))
		return nil, shared.NewNetworkError("failed to download exchange rates", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		f.logger.Warn("Rate download rejected",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return nil, shared.NewNetworkError(fmt.Sprintf("exchange rate server answered %s", resp.Status), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, shared.NewNetworkError("failed to read exchange rates", err)
	}

	f.logger.Info("Rate dataset downloaded",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}
