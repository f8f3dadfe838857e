package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/weather-tool-server/internal/api/http"
	mcpapi "github.com/i474232898/weather-tool-server/internal/api/mcp"
	stdioapi "github.com/i474232898/weather-tool-server/internal/api/stdio"
	"github.com/i474232898/weather-tool-server/internal/config"
	"github.com/i474232898/weather-tool-server/internal/scheduler"
	"github.com/i474232898/weather-tool-server/internal/store"
	"github.com/i474232898/weather-tool-server/internal/telemetry"
	"github.com/i474232898/weather-tool-server/internal/weather"
	"github.com/i474232898/weather-tool-server/internal/weather/providers"
)

const shutdownTimeout = 10 * time.Second

func Serve(cmd *cobra.Command, args []string) error {
	logger := log.Logger

	// Load configuration.
	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("transport") {
		cfg.Transport = strings.ToLower(transport)
	}
	if cmd.Flags().Changed("http-addr") {
		cfg.HTTPAddr = httpAddr
	}
	if cfg.Debug && !Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := telemetry.Setup(telemetry.Options{
		Exporter:  cfg.TraceExporter,
		ZipkinURL: cfg.ZipkinURL,
		Writer:    os.Stderr,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	// Shared HTTP client for outbound upstream calls.
	httpClient := providers.NewHTTPClient(providers.ClientOptions{
		Timeout:        cfg.HTTPTimeout,
		Proxy:          cfg.Proxy,
		TracerProvider: tp,
	})

	openMeteo := providers.NewOpenMeteoProvider(httpClient, providers.OpenMeteoOptions{
		GeocodingURL: cfg.GeocodingURL,
		ForecastURL:  cfg.ForecastURL,
		Timezone:     cfg.Timezone,
		Timeout:      cfg.HTTPTimeout,
		Tracer:       tp.Tracer("weather/providers"),
		Logger:       logger,
	})

	probes := store.NewMemoryStore(cfg.ProbeMaxHistory, cfg.ProbeMaxAge)

	// Core service: lookup under retry with fallback.
	service := weather.NewService(weather.NewLookup(openMeteo, openMeteo, logger), weather.ServiceConfig{
		Policy:          cfg.RetryPolicy(),
		FallbackEnabled: cfg.FallbackEnabled,
		Probes:          probes,
		Tracer:          tp.Tracer("weather"),
		Logger:          logger,
	})

	// Scheduler that periodically probes the upstream services.
	sched := scheduler.New([]string{cfg.ProbeCity}, cfg.ProbeInterval, service, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	if cfg.HTTPAddr != "" {
		app := httpapi.NewApp(telemetry.ServiceName, os.Stderr)
		httpapi.RegisterRoutes(app, service, cfg.ProbeCity)
		go listen(app, cfg.HTTPAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("error during http shutdown")
			}
		}()
	}

	logger.Info().
		Str("transport", cfg.Transport).
		Str("http_addr", cfg.HTTPAddr).
		Int("max_attempts", cfg.RetryMaxAttempts).
		Dur("base_delay", cfg.RetryBaseDelay).
		Bool("fallback", cfg.FallbackEnabled).
		Msg("weather tool server started")

	switch cfg.Transport {
	case config.TransportMCP:
		err = mcpapi.NewServer(service, version(), logger).Run(ctx, &mcp.StdioTransport{})
	default:
		srv := stdioapi.NewServer(os.Stdin, os.Stdout, logger)
		srv.Register(stdioapi.WeatherToolName, stdioapi.WeatherTool(service))
		err = srv.Serve(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info().Msg("weather tool server stopped")
	return nil
}

func listen(app *fiber.App, addr string, logger zerolog.Logger) {
	logger.Info().Str("addr", addr).Msg("http server listening")
	if err := app.Listen(addr); err != nil {
		logger.Error().Err(err).Msg("fiber server stopped")
	}
}
