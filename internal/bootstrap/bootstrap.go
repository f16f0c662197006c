// Package bootstrap wires configuration into the services shared by the
// server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/recibos/taxbot/internal/application/invoicing"
	"github.com/recibos/taxbot/internal/domain/invoice"
	"github.com/recibos/taxbot/internal/infrastructure/config"
	"github.com/recibos/taxbot/internal/infrastructure/exchange"
	"github.com/recibos/taxbot/internal/infrastructure/metrics"
	"github.com/recibos/taxbot/internal/infrastructure/portal"
	"github.com/recibos/taxbot/internal/infrastructure/storage"
	"github.com/recibos/taxbot/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Options are the process-level inputs of New
type Options struct {
	Config *config.Config
	Logger *zap.Logger
	// Confirmer pauses for the operator in confirmation mode. Nil never pauses.
	Confirmer portal.Confirmer
	// HTTPClient downloads the rate dataset. Nil uses a client without timeout.
	HTTPClient *http.Client
	// Headless overrides portal.headless when set
	Headless *bool
}

// App holds the wired services
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Tracer    *telemetry.TracerProvider
	Converter *exchange.Converter
	Archive   storage.Archive
	Service   *invoicing.Service
}

// New builds the tracer, metrics, converter, archive and invoicing service
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Headless != nil {
		cfg.Portal.Headless = *opts.Headless
	}

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(metrics.Config{
			Namespace:   cfg.Metrics.Namespace,
			GoCollector: cfg.Metrics.GoCollector,
		})
	}

	converter := exchange.NewConverter(exchange.Config{
		URL:                   cfg.Exchange.URL,
		CacheDir:              cfg.Exchange.CacheDir,
		FilePrefix:            cfg.Exchange.FilePrefix,
		FallbackOnMissingRate: cfg.Exchange.FallbackOnMissingRate,
	}, exchange.NewHTTPFetcher(opts.HTTPClient, log),
		exchange.WithLogger(log),
		exchange.WithMetrics(m),
	)

	archive, err := storage.New(cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("init receipt archive: %w", err)
	}
	if bucket, ok := archive.(*storage.S3Archive); ok {
		if err := bucket.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("init receipt bucket %s: %w", bucket.Bucket(), err)
		}
	}

	service := invoicing.NewService(invoicing.Config{
		Portals:   PortalFactory(cfg.Portal, converter, opts.Confirmer, log),
		Converter: converter,
		Archive:   archive,
		Metrics:   m,
		Logger:    log,
	})

	return &App{
		Config:    cfg,
		Logger:    log,
		Metrics:   m,
		Tracer:    tracer,
		Converter: converter,
		Archive:   archive,
		Service:   service,
	}, nil
}

// Shutdown flushes pending spans
func (a *App) Shutdown(ctx context.Context) error {
	return a.Tracer.Shutdown(ctx)
}

// PortalFactory opens a Chrome tab and wraps it in a Website for each submission
func PortalFactory(cfg config.PortalConfig, converter invoice.Converter, confirmer portal.Confirmer, log *zap.Logger) invoicing.PortalFactory {
	return func(ctx context.Context) (invoicing.Portal, error) {
		browser, err := portal.NewChromedpBrowser(ctx, ChromedpConfig(cfg, log))
		if err != nil {
			return nil, err
		}
		return portal.NewWebsite(portal.WebsiteConfig{
			Browser:     browser,
			Converter:   converter,
			Confirmer:   confirmer,
			Credentials: portal.EnvCredentials(cfg.EnvFile),
			Pages:       Pages(cfg),
			Logger:      log,
		}), nil
	}
}

// ChromedpConfig maps the portal section to browser settings
func ChromedpConfig(cfg config.PortalConfig, log *zap.Logger) portal.ChromedpConfig {
	return portal.ChromedpConfig{
		RemoteURL:  cfg.RemoteURL,
		Headless:   cfg.Headless,
		DisableGPU: cfg.DisableGPU,
		NoSandbox:  cfg.NoSandbox,
		Logger:     log,
	}
}

// Pages maps the portal section to page settings. Empty values keep the
// production defaults.
func Pages(cfg config.PortalConfig) portal.Pages {
	return portal.Pages{
		LoginURL:        cfg.LoginURL,
		LoggedInMarker:  cfg.LoggedInMarker,
		FormURL:         cfg.FormURL,
		CompletedMarker: cfg.CompletedMarker,
		Country:         cfg.Country,
		WaitTimeout:     cfg.WaitTimeout,
	}
}
