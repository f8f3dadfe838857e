package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/i474232898/weather-tool-server/internal/weather"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	DefaultTimezone     = "Asia/Tokyo"
	DefaultTimeout      = 10 * time.Second
)

// OpenMeteoOptions configures an OpenMeteoProvider. Zero values take the defaults above.
type OpenMeteoOptions struct {
	GeocodingURL string
	ForecastURL  string
	Timezone     string
	Timeout      time.Duration

	Tracer trace.Tracer
	Logger zerolog.Logger
}

// OpenMeteoProvider implements weather.Geocoder and weather.Forecaster against Open-Meteo.
type OpenMeteoProvider struct {
	geocodingURL string
	forecastURL  string
	timezone     string
	httpCfg      HTTPClientConfig

	geocodingCircuit *gobreaker.CircuitBreaker
	forecastCircuit  *gobreaker.CircuitBreaker

	tracer trace.Tracer
	log    zerolog.Logger
}

func NewOpenMeteoProvider(client *http.Client, opts OpenMeteoOptions) *OpenMeteoProvider {
	p := &OpenMeteoProvider{
		geocodingURL: opts.GeocodingURL,
		forecastURL:  opts.ForecastURL,
		timezone:     opts.Timezone,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Timeout: opts.Timeout,
		},
		geocodingCircuit: newCircuitBreaker("openmeteo-geocoding"),
		forecastCircuit:  newCircuitBreaker("openmeteo-forecast"),
		tracer:           opts.Tracer,
		log:              opts.Logger,
	}
	if p.geocodingURL == "" {
		p.geocodingURL = DefaultGeocodingURL
	}
	if p.forecastURL == "" {
		p.forecastURL = DefaultForecastURL
	}
	if p.timezone == "" {
		p.timezone = DefaultTimezone
	}
	if p.httpCfg.Timeout <= 0 {
		p.httpCfg.Timeout = DefaultTimeout
	}
	if p.tracer == nil {
		p.tracer = noop.NewTracerProvider().Tracer("openmeteo")
	}
	return p
}

// Geocode asks for exactly one English-language match for name.
func (p *OpenMeteoProvider) Geocode(ctx context.Context, name string) ([]weather.GeoResult, error) {
	ctx, span := p.tracer.Start(ctx, "GET-LOCATION", trace.WithAttributes(attribute.String("weather.query", name)))
	defer span.End()

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("name", name)
		values.Set("count", "1")
		values.Set("language", "en")

		u := fmt.Sprintf("%s?%s", p.geocodingURL, values.Encode())
		p.log.Debug().Str("url", u).Msg("geocoding request")
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	var payload struct {
		Results []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Name      string  `json:"name"`
		} `json:"results"`
	}

	if err := doJSONRequest(ctx, "geocoding", p.httpCfg, p.geocodingCircuit, buildRequest, &payload); err != nil {
		p.log.Debug().Err(err).Msg("geocoding request failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	results := make([]weather.GeoResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, weather.GeoResult{
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Name:      r.Name,
		})
	}
	span.SetAttributes(attribute.Int("weather.matches", len(results)))
	return results, nil
}

// Current fetches temperature and weather code for a coordinate pair.
func (p *OpenMeteoProvider) Current(ctx context.Context, lat, lon float64) (weather.CurrentConditions, error) {
	ctx, span := p.tracer.Start(ctx, "GET-WEATHER", trace.WithAttributes(
		attribute.Float64("weather.latitude", lat),
		attribute.Float64("weather.longitude", lon),
	))
	defer span.End()

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("current", "temperature_2m,weather_code")
		values.Set("timezone", p.timezone)

		u := fmt.Sprintf("%s?%s", p.forecastURL, values.Encode())
		p.log.Debug().Str("url", u).Msg("forecast request")
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	var payload struct {
		Current *struct {
			Temperature2m *float64 `json:"temperature_2m"`
			WeatherCode   *int     `json:"weather_code"`
		} `json:"current"`
		CurrentUnits struct {
			Temperature2m string `json:"temperature_2m"`
		} `json:"current_units"`
	}

	fail := func(err error) (weather.CurrentConditions, error) {
		p.log.Debug().Err(err).Msg("forecast request failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return weather.CurrentConditions{}, err
	}

	if err := doJSONRequest(ctx, "forecast", p.httpCfg, p.forecastCircuit, buildRequest, &payload); err != nil {
		return fail(err)
	}
	if payload.Current == nil || payload.Current.Temperature2m == nil {
		return fail(&weather.UpstreamError{
			Op:  "forecast",
			Err: fmt.Errorf("%w: missing current temperature", weather.ErrMalformedResponse),
		})
	}

	// A missing code maps to "Unknown" downstream rather than failing the lookup.
	code := -1
	if payload.Current.WeatherCode != nil {
		code = *payload.Current.WeatherCode
	}

	return weather.CurrentConditions{
		Temperature:     *payload.Current.Temperature2m,
		TemperatureUnit: payload.CurrentUnits.Temperature2m,
		WeatherCode:     code,
	}, nil
}
