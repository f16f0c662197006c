package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Exchange  ExchangeConfig
	Portal    PortalConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
	Metrics   MetricsConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name    string
	Env     string // development, production
	Port    string
	Version string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration // 0 disables it; submissions can wait on the operator
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// ExchangeConfig holds exchange rate settings
type ExchangeConfig struct {
	URL                   string // ECB zip dataset
	CacheDir              string // Directory of the daily files
	FilePrefix            string // Daily file name prefix
	FallbackOnMissingRate bool   // Use the closest earlier rate for days without one
}

// PortalConfig holds the tax portal automation settings.
// Credentials are never read from here; they come from EnvFile.
type PortalConfig struct {
	EnvFile         string // File holding NIF and TAX_PORTAL_PASSWORD
	RemoteURL       string // DevTools URL of a running Chrome (optional)
	Headless        bool
	NoSandbox       bool
	DisableGPU      bool
	WaitTimeout     time.Duration // The two explicit waits while issuing
	LoginURL        string
	LoggedInMarker  string
	FormURL         string
	CompletedMarker string
	Country         string
	Confirm         bool // Pause for the operator on web submissions
}

// StorageConfig holds receipt archive configuration
type StorageConfig struct {
	Backend      string // none, filesystem, s3
	BasePath     string // filesystem backend root
	Endpoint     string // S3-compatible endpoint (e.g., "localhost:9000")
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool // Required by most S3-compatible servers
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled     bool
	Namespace   string
	GoCollector bool
}

// Storage backends
const (
	StorageNone       = "none"
	StorageFilesystem = "filesystem"
	StorageS3         = "s3"
)

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with TAXBOT_ prefix (e.g., TAXBOT_PORTAL_HEADLESS)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the default locations; an explicit path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("TAXBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Exchange: ExchangeConfig{
			URL:                   v.GetString("exchange.url"),
			CacheDir:              v.GetString("exchange.cache_dir"),
			FilePrefix:            v.GetString("exchange.file_prefix"),
			FallbackOnMissingRate: v.GetBool("exchange.fallback_on_missing_rate"),
		},
		Portal: PortalConfig{
			EnvFile:         v.GetString("portal.env_file"),
			RemoteURL:       v.GetString("portal.remote_url"),
			Headless:        v.GetBool("portal.headless"),
			NoSandbox:       v.GetBool("portal.no_sandbox"),
			DisableGPU:      v.GetBool("portal.disable_gpu"),
			WaitTimeout:     v.GetDuration("portal.wait_timeout"),
			LoginURL:        v.GetString("portal.login_url"),
			LoggedInMarker:  v.GetString("portal.logged_in_marker"),
			FormURL:         v.GetString("portal.form_url"),
			CompletedMarker: v.GetString("portal.completed_marker"),
			Country:         v.GetString("portal.country"),
			Confirm:         v.GetBool("portal.confirm"),
		},
		Storage: StorageConfig{
			Backend:      v.GetString("storage.backend"),
			BasePath:     v.GetString("storage.base_path"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
		Metrics: MetricsConfig{
			Enabled:     v.GetBool("metrics.enabled"),
			Namespace:   v.GetString("metrics.namespace"),
			GoCollector: v.GetBool("metrics.go_collector"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers defaults for booleans that are on unless switched off.
// Zero-valued fields are handled by applyDefaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("portal.confirm", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.go_collector", true)
	v.SetDefault("storage.use_path_style", true)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "taxbot"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Exchange.URL == "" {
		cfg.Exchange.URL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-hist.zip"
	}
	if cfg.Exchange.CacheDir == "" {
		cfg.Exchange.CacheDir = "rates"
	}
	if cfg.Exchange.FilePrefix == "" {
		cfg.Exchange.FilePrefix = "ecb_"
	}
	if cfg.Portal.EnvFile == "" {
		cfg.Portal.EnvFile = ".env"
	}
	if cfg.Portal.WaitTimeout == 0 {
		cfg.Portal.WaitTimeout = 10 * time.Second
	}
	// Portal URLs and markers stay empty here; the portal package fills in
	// the production addresses.
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageNone
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "archive"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "taxbot"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if u, err := url.Parse(c.Exchange.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("exchange.url must be an absolute URL, got %q", c.Exchange.URL)
	}

	if c.Portal.WaitTimeout < 0 {
		return fmt.Errorf("portal.wait_timeout cannot be negative")
	}

	switch c.Storage.Backend {
	case StorageNone, StorageFilesystem:
	case StorageS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return fmt.Errorf("storage.access_key and storage.secret_key are required for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of none, filesystem, s3, got %q", c.Storage.Backend)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Telemetry.Enabled && c.Telemetry.Insecure {
			return fmt.Errorf("telemetry.insecure must be false in production")
		}
		if c.Storage.Backend == StorageS3 && !c.Storage.UseSSL && !strings.HasPrefix(c.Storage.Endpoint, "https://") {
			return fmt.Errorf("storage.use_ssl must be true in production")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
