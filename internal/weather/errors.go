package weather

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by UpstreamError.
var (
	ErrHTTPStatus        = errors.New("HTTP error")
	ErrTimeout           = errors.New("Request timed out")
	ErrMalformedResponse = errors.New("Failed to parse response")
	ErrCircuitOpen       = errors.New("circuit breaker open")
)

// ErrNoProbeStore is returned by probe queries when no store is configured.
var ErrNoProbeStore = errors.New("probe history is not configured")

// NotFoundError is returned when geocoding yields no match for a city.
type NotFoundError struct {
	City string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("City \"%s\" not found", e.City)
}

// UpstreamError wraps a failed geocoding or forecast call. It is retryable.
type UpstreamError struct {
	Op         string // "geocoding" or "forecast"
	StatusCode int    // zero unless the upstream answered with a non-2xx status
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Op + " request failed"
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsUpstream reports whether err is, or wraps, an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
