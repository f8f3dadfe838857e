package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpproxy"

	"github.com/i474232898/weather-tool-server/internal/retry"
	"github.com/i474232898/weather-tool-server/internal/weather/providers"
)

// Transport names.
const (
	TransportEnvelope = "envelope"
	TransportMCP      = "mcp"
)

// Trace exporter names.
const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
	TraceExporterZipkin = "zipkin"
)

type AppConfig struct {
	// Upstream endpoints.
	GeocodingURL string `validate:"required,url"`
	ForecastURL  string `validate:"required,url"`
	Timezone     string `validate:"required"`

	// HTTPTimeout bounds each outbound call.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// Retry policy.
	RetryMaxAttempts int           `validate:"min=1,max=10"`
	RetryBaseDelay   time.Duration `validate:"gte=0"`
	FallbackEnabled  bool

	// Outbound proxy, read once at startup.
	Proxy httpproxy.Config

	Transport string `validate:"oneof=envelope mcp"`

	// HTTPAddr enables the HTTP surface when non-empty.
	HTTPAddr string

	// Upstream health probe.
	ProbeCity       string
	ProbeInterval   time.Duration `validate:"gte=0"`
	ProbeMaxHistory int           `validate:"gte=0"` // 0 = unlimited
	ProbeMaxAge     time.Duration `validate:"gte=0"` // 0 = unlimited

	TraceExporter string `validate:"oneof=none stdout zipkin"`
	ZipkinURL     string `validate:"omitempty,url"`

	Debug bool
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load(logger zerolog.Logger) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info().Err(err).Msg("no .env file found or error loading it")
	}
	cfg := &AppConfig{}

	cfg.GeocodingURL = getenvDefault("GEOCODING_URL", providers.DefaultGeocodingURL)
	cfg.ForecastURL = getenvDefault("FORECAST_URL", providers.DefaultForecastURL)
	cfg.Timezone = getenvDefault("FORECAST_TIMEZONE", providers.DefaultTimezone)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", providers.DefaultTimeout); err != nil {
		return nil, err
	}

	cfg.RetryMaxAttempts = getenvInt("RETRY_MAX_ATTEMPTS", retry.DefaultMaxAttempts)
	if cfg.RetryBaseDelay, err = getenvDuration("RETRY_BASE_DELAY", retry.DefaultBaseDelay); err != nil {
		return nil, err
	}
	cfg.FallbackEnabled = getenvBool("FALLBACK_ENABLED", true)

	cfg.Proxy = httpproxy.Config{
		HTTPProxy:  getenvAny("HTTP_PROXY", "http_proxy"),
		HTTPSProxy: getenvAny("HTTPS_PROXY", "https_proxy"),
		NoProxy:    getenvAny("NO_PROXY", "no_proxy"),
	}

	cfg.Transport = strings.ToLower(getenvDefault("TRANSPORT", TransportEnvelope))
	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")

	cfg.ProbeCity = getenvDefault("PROBE_CITY", "Tokyo")
	if cfg.ProbeInterval, err = getenvDuration("PROBE_INTERVAL", 0); err != nil {
		return nil, err
	}
	cfg.ProbeMaxHistory = getenvInt("PROBE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals
	if cfg.ProbeMaxAge, err = getenvDuration("PROBE_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}

	cfg.TraceExporter = strings.ToLower(getenvDefault("TRACE_EXPORTER", TraceExporterNone))
	cfg.ZipkinURL = getenvDefault("ZIPKIN_URL", "http://localhost:9411/api/v2/spans")

	cfg.Debug = getenvBool("DEBUG", false)

	return cfg, nil
}

// Validate checks the configuration after flags have been applied.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RetryPolicy returns the retry policy described by the configuration.
func (c *AppConfig) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.RetryMaxAttempts,
		BaseDelay:   c.RetryBaseDelay,
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getenvAny returns the first non-empty value among keys.
func getenvAny(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
