package weather

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/i474232898/weather-tool-server/internal/retry"
)

// ServiceConfig bundles the Service collaborators.
type ServiceConfig struct {
	Policy          retry.Policy
	FallbackEnabled bool

	// Probes records health probes; nil disables probe history.
	Probes ProbeStore

	Tracer trace.Tracer
	Logger zerolog.Logger
}

// Service runs lookups under the retry policy and renders tool output.
type Service struct {
	lookup   *Lookup
	policy   retry.Policy
	fallback bool
	probes   ProbeStore
	tracer   trace.Tracer
	log      zerolog.Logger
}

// NewService creates a new Service.
func NewService(lookup *Lookup, cfg ServiceConfig) *Service {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("weather")
	}
	return &Service{
		lookup:   lookup,
		policy:   cfg.Policy,
		fallback: cfg.FallbackEnabled,
		probes:   cfg.Probes,
		tracer:   tracer,
		log:      cfg.Logger,
	}
}

// GetWeather looks up city with retries. When every live attempt fails and the
// fallback table knows the (trimmed) city, the built-in summary is returned.
func (s *Service) GetWeather(ctx context.Context, city string) (WeatherSummary, error) {
	invocation := uuid.NewString()
	log := s.log.With().Str("invocation", invocation).Str("city", city).Logger()

	ctx, span := s.tracer.Start(ctx, "get-weather", trace.WithAttributes(
		attribute.String("weather.city", city),
		attribute.String("weather.invocation", invocation),
	))
	defer span.End()

	policy := s.policy
	policy.Notify = func(attempt int, err error, wait time.Duration) {
		ev := log.Debug().Int("attempt", attempt).Int("max_attempts", policy.MaxAttempts).Err(err)
		if wait > 0 {
			ev = ev.Dur("wait", wait)
		}
		ev.Msg("attempt failed")
	}

	var fallback retry.Fallback[WeatherSummary]
	if s.fallback {
		key := strings.TrimSpace(city)
		fallback = func() (WeatherSummary, bool) {
			return FallbackFor(key)
		}
	}

	op := func(ctx context.Context) (WeatherSummary, error) {
		return s.lookup.Lookup(ctx, city)
	}

	summary, out, err := retry.Run(ctx, policy, op, fallback)
	span.SetAttributes(
		attribute.String("retry.state", out.State.String()),
		attribute.Int("retry.attempts", out.Attempts),
	)

	switch out.State {
	case retry.StateFallback:
		log.Info().Err(out.LastErr).Int("attempts", out.Attempts).Msg("live lookup exhausted, using fallback data")
	case retry.StateFailed:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Int("attempts", out.Attempts).Msg("weather lookup failed")
	default:
		log.Debug().Str("resolved", summary.CityName).Int("attempts", out.Attempts).Msg("weather lookup succeeded")
	}

	return summary, err
}

// Report runs GetWeather and renders the tool's text output, success or failure.
func (s *Service) Report(ctx context.Context, city string) string {
	summary, err := s.GetWeather(ctx, city)
	if err != nil {
		return FormatError(city, err)
	}
	return FormatSummary(summary)
}

// Probe performs a single live lookup, without retry or fallback, and records the result.
func (s *Service) Probe(ctx context.Context, city string) ProbeResult {
	start := time.Now()
	summary, err := s.lookup.Lookup(ctx, city)

	result := ProbeResult{
		City:      city,
		Timestamp: start.UTC(),
		Latency:   time.Since(start),
		OK:        err == nil,
	}
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Summary = &summary
	}

	if s.probes != nil {
		s.probes.SaveProbe(result)
	}
	return result
}

// LatestProbe delegates to the probe store.
func (s *Service) LatestProbe(city string) (ProbeResult, error) {
	if s.probes == nil {
		return ProbeResult{}, ErrNoProbeStore
	}
	return s.probes.GetLatest(city)
}

// ProbeHistory delegates to the probe store.
func (s *Service) ProbeHistory(city string, from, to time.Time) ([]ProbeResult, error) {
	if s.probes == nil {
		return nil, ErrNoProbeStore
	}
	return s.probes.GetRange(city, from, to)
}
