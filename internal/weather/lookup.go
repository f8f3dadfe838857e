package weather

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Lookup composes a geocoding call and a forecast call into a WeatherSummary.
type Lookup struct {
	geocoder   Geocoder
	forecaster Forecaster
	log        zerolog.Logger
}

// NewLookup creates a new Lookup.
func NewLookup(geocoder Geocoder, forecaster Forecaster, logger zerolog.Logger) *Lookup {
	return &Lookup{
		geocoder:   geocoder,
		forecaster: forecaster,
		log:        logger,
	}
}

// Lookup resolves city and fetches its current conditions.
// It fails with *NotFoundError when geocoding has no match (the forecast call is then skipped)
// and with *UpstreamError when either call fails.
func (l *Lookup) Lookup(ctx context.Context, city string) (WeatherSummary, error) {
	name := strings.TrimSpace(city)
	l.log.Debug().Str("city", name).Msg("getting weather for city")

	matches, err := l.geocoder.Geocode(ctx, name)
	if err != nil {
		return WeatherSummary{}, err
	}
	if len(matches) == 0 {
		l.log.Debug().Str("city", name).Msg("city not found in geocoding API")
		return WeatherSummary{}, &NotFoundError{City: name}
	}

	geo := matches[0]
	l.log.Debug().
		Str("name", geo.Name).
		Float64("latitude", geo.Latitude).
		Float64("longitude", geo.Longitude).
		Msg("found coordinates")

	current, err := l.forecaster.Current(ctx, geo.Latitude, geo.Longitude)
	if err != nil {
		return WeatherSummary{}, err
	}

	condition := DescribeCode(current.WeatherCode)
	l.log.Debug().Int("code", current.WeatherCode).Str("condition", condition).Msg("weather description")

	return WeatherSummary{
		CityName:    geo.Name,
		Temperature: formatTemperature(current.Temperature, current.TemperatureUnit),
		Condition:   condition,
	}, nil
}

// formatTemperature prints the shortest representation of v, so 20 renders as "20" and 20.5 as "20.5".
func formatTemperature(v float64, unit string) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + unit
}
