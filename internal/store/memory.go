// Package store keeps recent upstream health probes in memory.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-tool-server/internal/weather"
)

// ErrNotFound is returned when a city has no probes, or none in the asked window.
var ErrNotFound = errors.New("no probe results for city")

// probeLog is the probe trail of one city, oldest first.
type probeLog []weather.ProbeResult

// evict drops probes beyond limit (0 = no limit) and probes older than cutoff
// (zero = no cutoff). The newest probe survives so /health always has an answer.
func (l probeLog) evict(limit int, cutoff time.Time) probeLog {
	if limit > 0 && len(l) > limit {
		l = l[len(l)-limit:]
	}
	if cutoff.IsZero() {
		return l
	}
	stale := 0
	for stale < len(l)-1 && l[stale].Timestamp.Before(cutoff) {
		stale++
	}
	return l[stale:]
}

// between returns a copy of the probes taken in [from, to].
func (l probeLog) between(from, to time.Time) []weather.ProbeResult {
	var out []weather.ProbeResult
	for _, p := range l {
		if p.Timestamp.Before(from) || p.Timestamp.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// MemoryStore is a concurrency-safe probe history keyed by city.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string]probeLog

	maxProbes int           // per city; 0 keeps everything
	maxAge    time.Duration // 0 keeps everything

	now func() time.Time
}

// NewMemoryStore creates a store that keeps at most maxProbes probes per city,
// none older than maxAge. Zero disables either bound.
func NewMemoryStore(maxProbes int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		logs:      make(map[string]probeLog),
		maxProbes: maxProbes,
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// SaveProbe records a probe under its city and applies retention to that city.
func (s *MemoryStore) SaveProbe(result weather.ProbeResult) {
	var cutoff time.Time
	if s.maxAge > 0 {
		cutoff = s.now().Add(-s.maxAge)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[result.City] = append(s.logs[result.City], result).evict(s.maxProbes, cutoff)
}

// GetLatest returns the last probe recorded for city.
func (s *MemoryStore) GetLatest(city string) (weather.ProbeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := s.logs[city]
	if len(l) == 0 {
		return weather.ProbeResult{}, ErrNotFound
	}
	return l[len(l)-1], nil
}

// GetRange returns the probes for city taken between from and to, inclusive.
func (s *MemoryStore) GetRange(city string, from, to time.Time) ([]weather.ProbeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	window := s.logs[city].between(from, to)
	if len(window) == 0 {
		return nil, ErrNotFound
	}
	return window, nil
}
