package weather

import (
	"context"
	"time"
)

// Geocoder resolves a place name to coordinates. An empty slice means no match.
type Geocoder interface {
	Geocode(ctx context.Context, name string) ([]GeoResult, error)
}

// Forecaster fetches current conditions for a coordinate pair.
type Forecaster interface {
	Current(ctx context.Context, lat, lon float64) (CurrentConditions, error)
}

// ProbeStore is the contract the in-memory probe history must satisfy.
type ProbeStore interface {
	SaveProbe(result ProbeResult)
	GetLatest(city string) (ProbeResult, error)
	GetRange(city string, from, to time.Time) ([]ProbeResult, error)
}
