package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/weather-tool-server/internal/weather"
)

// probeTimeout bounds one probe round for a city.
const probeTimeout = 30 * time.Second

// Prober runs a single upstream health probe for a city.
type Prober interface {
	Probe(ctx context.Context, city string) weather.ProbeResult
}

// Scheduler periodically probes the upstream services for configured cities.
type Scheduler struct {
	scheduler *gocron.Scheduler
	prober    Prober
	cities    []string
	interval  time.Duration
	log       zerolog.Logger
}

// New creates a new Scheduler.
func New(cities []string, interval time.Duration, prober Prober, logger zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		prober:    prober,
		cities:    cities,
		interval:  interval,
		log:       logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.cities) == 0 || s.interval <= 0 {
		s.log.Info().Msg("scheduler: no probe cities or interval configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) runOnce() {
	s.log.Debug().Msg("scheduler: running upstream probe job")

	var wg sync.WaitGroup
	for _, city := range s.cities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			defer cancel()

			res := s.prober.Probe(ctx, city)
			if !res.OK {
				s.log.Warn().Str("city", city).Str("error", res.Error).Msg("scheduler: upstream probe failed")
				return
			}
			s.log.Debug().Str("city", city).Dur("latency", res.Latency).Msg("scheduler: upstream probe ok")
		}()
	}
	wg.Wait()
	s.log.Debug().Msg("scheduler: completed upstream probe job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
