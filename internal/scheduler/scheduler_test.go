package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-tool-server/internal/weather"
)

type countingProber struct {
	mu     sync.Mutex
	cities []string
}

func (p *countingProber) Probe(ctx context.Context, city string) weather.ProbeResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cities = append(p.cities, city)
	return weather.ProbeResult{City: city, OK: city != "Nowhere"}
}

func (p *countingProber) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.cities...)
}

func TestRunOnceProbesEveryCity(t *testing.T) {
	p := &countingProber{}
	s := New([]string{"Tokyo", "Nowhere"}, time.Minute, p, zerolog.Nop())

	s.runOnce()
	assert.ElementsMatch(t, []string{"Tokyo", "Nowhere"}, p.seen())
}

func TestStartWithoutCitiesIsNoop(t *testing.T) {
	p := &countingProber{}
	s := New(nil, time.Minute, p, zerolog.Nop())

	require.NoError(t, s.Start())
	s.Stop()
	assert.Empty(t, p.seen())
}

func TestStartRunsJob(t *testing.T) {
	p := &countingProber{}
	s := New([]string{"Tokyo"}, time.Hour, p, zerolog.Nop())

	require.NoError(t, s.Start())
	defer s.Stop()

	// gocron runs the first iteration immediately.
	assert.Eventually(t, func() bool { return len(p.seen()) > 0 }, 2*time.Second, 10*time.Millisecond)
}
