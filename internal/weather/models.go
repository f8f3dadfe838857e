package weather

import (
	"time"
)

// GeoResult is the first match returned by the geocoding service for a city name.
type GeoResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

// CurrentConditions is a forecast snapshot for a coordinate pair.
type CurrentConditions struct {
	Temperature     float64 `json:"temperature"`
	TemperatureUnit string  `json:"temperatureUnit"`
	WeatherCode     int     `json:"weatherCode"`
}

// WeatherSummary is the unit of output of a lookup.
// It is built either from a complete live lookup or from the fallback table, never partially.
type WeatherSummary struct {
	CityName    string `json:"cityName"`
	Temperature string `json:"temperature"` // value + unit, e.g. "20°C"
	Condition   string `json:"condition"`
}

// ProbeResult records one upstream health probe.
type ProbeResult struct {
	City      string          `json:"city"`
	Timestamp time.Time       `json:"timestamp"` // always UTC
	OK        bool            `json:"ok"`
	Latency   time.Duration   `json:"latencyNs"`
	Error     string          `json:"error,omitempty"`
	Summary   *WeatherSummary `json:"summary,omitempty"`
}
