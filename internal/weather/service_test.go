package weather

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-tool-server/internal/retry"
)

type waitRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *waitRecorder) After(d time.Duration) <-chan time.Time {
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func newTestService(geo Geocoder, fc Forecaster, fallback bool, clock *waitRecorder) *Service {
	return NewService(NewLookup(geo, fc, zerolog.Nop()), ServiceConfig{
		Policy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			After:       clock.After,
		},
		FallbackEnabled: fallback,
		Logger:          zerolog.Nop(),
	})
}

func TestReportTokyoEndToEnd(t *testing.T) {
	geo, fc := tokyoFakes()
	svc := newTestService(geo, fc, true, &waitRecorder{})

	got := svc.Report(context.Background(), "Tokyo")
	assert.Equal(t, "Weather in Tokyo:\nTemperature: 20°C\nCondition: Clear sky", got)
	assert.Len(t, geo.queries, 1)
}

func TestReportNotFoundAfterAllAttempts(t *testing.T) {
	geo := &fakeGeocoder{}
	fc := &fakeForecaster{}
	clock := &waitRecorder{}
	svc := newTestService(geo, fc, true, clock)

	got := svc.Report(context.Background(), "Nowhere12345")
	assert.Equal(t, "Error getting weather for Nowhere12345: City \"Nowhere12345\" not found", got)
	assert.Len(t, geo.queries, 3)
	assert.Zero(t, fc.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.waits)
}

func TestReportEchoesUntrimmedInputOnFailure(t *testing.T) {
	geo := &fakeGeocoder{}
	svc := newTestService(geo, &fakeForecaster{}, false, &waitRecorder{})

	got := svc.Report(context.Background(), "  Atlantis ")
	assert.Equal(t, "Error getting weather for   Atlantis : City \"Atlantis\" not found", got)
	assert.Equal(t, []string{"Atlantis", "Atlantis", "Atlantis"}, geo.queries)
}

func TestGetWeatherTimeoutsRetryWithLinearBackoff(t *testing.T) {
	geo, fc := tokyoFakes()
	fc.err = &UpstreamError{Op: "forecast", Err: ErrTimeout}
	clock := &waitRecorder{}
	svc := newTestService(geo, fc, false, clock)

	_, err := svc.GetWeather(context.Background(), "Tokyo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "Request timed out", err.Error())
	assert.Equal(t, 3, fc.calls)

	var total time.Duration
	for _, w := range clock.waits {
		total += w
	}
	assert.Equal(t, 3*time.Second, total)
}

func TestGetWeatherFallsBackForKnownCity(t *testing.T) {
	geo, fc := tokyoFakes()
	fc.err = &UpstreamError{Op: "forecast", StatusCode: 503, Err: ErrHTTPStatus}
	svc := newTestService(geo, fc, true, &waitRecorder{})

	got, err := svc.GetWeather(context.Background(), "Tokyo")
	require.NoError(t, err)
	want, _ := FallbackFor("Tokyo")
	assert.Equal(t, want, got)
	// The final attempt is served from the table.
	assert.Equal(t, 2, fc.calls)
}

func TestGetWeatherNoFallbackWhenDisabled(t *testing.T) {
	geo, fc := tokyoFakes()
	fc.err = errors.New("connection refused")
	svc := newTestService(geo, fc, false, &waitRecorder{})

	_, err := svc.GetWeather(context.Background(), "Tokyo")
	require.Error(t, err)
	assert.Equal(t, "connection refused", err.Error())
	assert.Equal(t, 3, fc.calls)
}

func TestGetWeatherUnknownCityNotRescuedByFallback(t *testing.T) {
	geo := &fakeGeocoder{err: &UpstreamError{Op: "geocoding", Err: ErrTimeout}}
	svc := newTestService(geo, &fakeForecaster{}, true, &waitRecorder{})

	_, err := svc.GetWeather(context.Background(), "Springfield")
	require.Error(t, err)
	assert.Len(t, geo.queries, 3)
}

type memoryProbes struct {
	saved []ProbeResult
}

func (m *memoryProbes) SaveProbe(r ProbeResult) { m.saved = append(m.saved, r) }

func (m *memoryProbes) GetLatest(city string) (ProbeResult, error) {
	if len(m.saved) == 0 {
		return ProbeResult{}, errors.New("none")
	}
	return m.saved[len(m.saved)-1], nil
}

func (m *memoryProbes) GetRange(city string, from, to time.Time) ([]ProbeResult, error) {
	return m.saved, nil
}

func TestProbeRecordsSingleAttempt(t *testing.T) {
	geo, fc := tokyoFakes()
	probes := &memoryProbes{}
	svc := NewService(NewLookup(geo, fc, zerolog.Nop()), ServiceConfig{
		Policy: retry.DefaultPolicy(),
		Probes: probes,
		Logger: zerolog.Nop(),
	})

	res := svc.Probe(context.Background(), "Tokyo")
	assert.True(t, res.OK)
	require.NotNil(t, res.Summary)
	assert.Equal(t, "Tokyo", res.Summary.CityName)

	fc.err = &UpstreamError{Op: "forecast", Err: ErrTimeout}
	res = svc.Probe(context.Background(), "Tokyo")
	assert.False(t, res.OK)
	assert.Equal(t, "Request timed out", res.Error)
	assert.Equal(t, 2, fc.calls)

	latest, err := svc.LatestProbe("Tokyo")
	require.NoError(t, err)
	assert.False(t, latest.OK)
	assert.Len(t, probes.saved, 2)
}

func TestProbeQueriesWithoutStore(t *testing.T) {
	geo, fc := tokyoFakes()
	svc := newTestService(geo, fc, false, &waitRecorder{})

	_, err := svc.LatestProbe("Tokyo")
	assert.ErrorIs(t, err, ErrNoProbeStore)
	_, err = svc.ProbeHistory("Tokyo", time.Time{}, time.Now())
	assert.ErrorIs(t, err, ErrNoProbeStore)
}
