package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http/httpproxy"

	"github.com/i474232898/weather-tool-server/internal/weather"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *OpenMeteoProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenMeteoProvider(srv.Client(), OpenMeteoOptions{
		GeocodingURL: srv.URL + "/v1/search",
		ForecastURL:  srv.URL + "/v1/forecast",
		Timeout:      timeout,
		Logger:       zerolog.Nop(),
	})
}

func TestGeocodeSendsExpectedQuery(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "São Paulo", q.Get("name"))
		assert.Equal(t, "1", q.Get("count"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "MCP Weather App", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		_, _ = w.Write([]byte(`{"results":[{"latitude":-23.5475,"longitude":-46.63611,"name":"São Paulo"}]}`))
	}, time.Second)

	got, err := p.Geocode(context.Background(), "São Paulo")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, weather.GeoResult{Latitude: -23.5475, Longitude: -46.63611, Name: "São Paulo"}, got[0])
}

func TestGeocodeNoResults(t *testing.T) {
	for _, body := range []string{`{}`, `{"results":[]}`, `{"generationtime_ms":0.5}`} {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}, time.Second)

		got, err := p.Geocode(context.Background(), "Nowhere12345")
		require.NoError(t, err, body)
		assert.Empty(t, got, body)
	}
}

func TestCurrentSendsExpectedQuery(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "35.6895", q.Get("latitude"))
		assert.Equal(t, "139.6917", q.Get("longitude"))
		assert.Equal(t, "temperature_2m,weather_code", q.Get("current"))
		assert.Equal(t, "Asia/Tokyo", q.Get("timezone"))

		_, _ = w.Write([]byte(`{"current":{"temperature_2m":20,"weather_code":0},"current_units":{"temperature_2m":"°C"}}`))
	}, time.Second)

	got, err := p.Current(context.Background(), 35.6895, 139.6917)
	require.NoError(t, err)
	assert.Equal(t, weather.CurrentConditions{Temperature: 20, TemperatureUnit: "°C", WeatherCode: 0}, got)
}

func TestCurrentMissingWeatherCodeMapsToUnknownCode(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":3.5},"current_units":{"temperature_2m":"°C"}}`))
	}, time.Second)

	got, err := p.Current(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, weather.UnknownCondition, weather.DescribeCode(got.WeatherCode))
}

func TestUpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		cause   error
		message string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			status:  http.StatusServiceUnavailable,
			cause:   weather.ErrHTTPStatus,
			message: "HTTP error: 503",
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			status:  http.StatusBadRequest,
			cause:   weather.ErrHTTPStatus,
			message: "HTTP error: 400",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>oops</html>`))
			},
			cause: weather.ErrMalformedResponse,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			cause:   weather.ErrTimeout,
			message: "Request timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.handler, 50*time.Millisecond)

			_, err := p.Geocode(context.Background(), "Tokyo")
			require.Error(t, err)

			var ue *weather.UpstreamError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, "geocoding", ue.Op)
			assert.Equal(t, tt.status, ue.StatusCode)
			assert.ErrorIs(t, err, tt.cause)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}

func TestCurrentMalformedWhenTemperatureMissing(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current_units":{"temperature_2m":"°C"}}`))
	}, time.Second)

	_, err := p.Current(context.Background(), 1, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrMalformedResponse)
	assert.True(t, weather.IsUpstream(err))
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, time.Second)

	var err error
	for i := 0; i < 10; i++ {
		_, err = p.Geocode(context.Background(), "Tokyo")
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrCircuitOpen)
	assert.True(t, weather.IsUpstream(err))
	assert.Less(t, calls.Load(), int32(10))
}

func TestCircuitIgnoresClientErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, time.Second)

	for i := 0; i < 10; i++ {
		_, err := p.Geocode(context.Background(), "Tokyo")
		require.Error(t, err)
		assert.NotErrorIs(t, err, weather.ErrCircuitOpen)
	}
	assert.Equal(t, int32(10), calls.Load())
}

func TestCircuitIgnoresCanceledCalls(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"results":[{"latitude":35.6895,"longitude":139.69171,"name":"Tokyo"}]}`))
	}, time.Second)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10; i++ {
		_, err := p.Geocode(canceled, "Tokyo")
		require.Error(t, err)
		assert.NotErrorIs(t, err, weather.ErrCircuitOpen)
	}

	got, err := p.Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoJSONRequestRequiresClient(t *testing.T) {
	p := NewOpenMeteoProvider(nil, OpenMeteoOptions{Logger: zerolog.Nop()})

	_, err := p.Geocode(context.Background(), "Tokyo")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoHTTPClient)
}

func TestNewHTTPClientUsesExplicitProxy(t *testing.T) {
	var proxied atomic.Bool
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied.Store(true)
		assert.Equal(t, "geocoding.invalid", r.URL.Host)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer proxy.Close()

	client := NewHTTPClient(ClientOptions{
		Timeout: time.Second,
		Proxy:   httpproxy.Config{HTTPProxy: proxy.URL},
	})

	p := NewOpenMeteoProvider(client, OpenMeteoOptions{
		GeocodingURL: "http://geocoding.invalid/v1/search",
		Logger:       zerolog.Nop(),
	})
	got, err := p.Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, proxied.Load())
}
