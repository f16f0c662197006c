package exchange

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/recibos/taxbot/internal/infrastructure/metrics"
	"github.com/recibos/taxbot/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Config holds exchange rate settings
type Config struct {
	// URL of the dataset. Default: DefaultURL
	URL string
	// CacheDir holds the daily files. Created on demand. Default: "rates"
	CacheDir string
	// FilePrefix of the daily file name. Default: "ecb_"
	FilePrefix string
	// FallbackOnMissingRate uses the closest earlier rate for days without one
	FallbackOnMissingRate bool
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.CacheDir == "" {
		c.CacheDir = "rates"
	}
	if c.FilePrefix == "" {
		c.FilePrefix = "ecb_"
	}
	return c
}

// Option configures a DailyCache or Converter
type Option func(*options)

type options struct {
	clock   func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// WithClock sets the clock that decides which day's file is current
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:  time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// DailyCache keeps one copy of the dataset per calendar day on disk.
// The file for a day is downloaded on first use and never deleted.
// Parsed tables are kept in memory for the life of the process.
type DailyCache struct {
	config  Config
	fetcher Fetcher
	opts    options

	mu   sync.Mutex
	memo map[string]*RateTable
}

// NewDailyCache creates a DailyCache
func NewDailyCache(cfg Config, fetcher Fetcher, opts ...Option) *DailyCache {
	return &DailyCache{
		config:  cfg.withDefaults(),
		fetcher: fetcher,
		opts:    buildOptions(opts),
		memo:    make(map[string]*RateTable),
	}
}

// FileName returns the cache file name for the day of t, e.g. ecb_20240419.zip
func (c *DailyCache) FileName(t time.Time) string {
	return c.config.FilePrefix + t.Format("20060102") + ".zip"
}

// Path returns today's cache file path
func (c *DailyCache) Path() string {
	return filepath.Join(c.config.CacheDir, c.FileName(c.opts.clock()))
}

// Table returns today's parsed dataset, downloading it first when today's
// file does not exist yet.
func (c *DailyCache) Table(ctx context.Context) (*RateTable, error) {
	path := c.Path()

	c.mu.Lock()
	defer c.mu.Unlock()

	if table, ok := c.memo[path]; ok {
		return table, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "exchange.load_rates",
		telemetry.WithAttribute(telemetry.SpanAttrCacheFile, path),
	)
	defer span.End()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		c.opts.metrics.RecordCacheHit()
		telemetry.SetAttributes(span, telemetry.SpanAttrCacheHit, true)
	case errors.Is(err, fs.ErrNotExist):
		telemetry.SetAttributes(span, telemetry.SpanAttrCacheHit, false)
		data, err = c.download(ctx, path)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	default:
		telemetry.RecordError(span, err)
		return nil, shared.NewRateNotFoundError("failed to read cached exchange rates", err)
	}

	table, err := ParseECB(data)
	if err != nil {
		c.opts.logger.Error("Cached rate file is unreadable", zap.String("path", path), zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewRateNotFoundError(fmt.Sprintf("cannot read rates from %s", path), err)
	}

	c.memo[path] = table
	return table, nil
}

// download fetches the dataset and writes it to path byte-for-byte.
// Nothing is written when the fetch fails.
func (c *DailyCache) download(ctx context.Context, path string) ([]byte, error) {
	c.opts.logger.Info("Downloading exchange rates",
		zap.String("url", c.config.URL),
		zap.String("path", path),
	)

	data, err := c.fetcher.Fetch(ctx, c.config.URL)
	c.opts.metrics.RecordRateFetch(err, len(data))
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, shared.NewNetworkError("failed to download exchange rates", err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return nil, fmt.Errorf("failed to cache exchange rates: %w", err)
	}
	return data, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
