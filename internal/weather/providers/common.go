package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-tool-server/internal/weather"
)

const userAgent = "MCP Weather App"

// HTTPClientConfig bundles the HTTP client and per-call settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Timeout time.Duration
}

var (
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid http client configuration")
)

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,

		IsSuccessful: func(err error) bool {
			return err == nil || !countsAgainstUpstream(err)
		},
	})
}

// countsAgainstUpstream reports whether err says something about upstream health.
// Caller cancellation and 4xx answers do not.
func countsAgainstUpstream(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var upstream *weather.UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500 {
		return false
	}
	return true
}

// doJSONRequest executes one GET through the circuit breaker and decodes the JSON
// body into out. Every failure comes back as *weather.UpstreamError; retries are the
// caller's business.
func doJSONRequest(
	ctx context.Context,
	op string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
	out any,
) error {
	if cfg.Client == nil {
		return &weather.UpstreamError{Op: op, Err: errNoHTTPClient}
	}
	if cfg.Timeout <= 0 {
		return &weather.UpstreamError{Op: op, Err: errInvalidConfig}
	}

	// Each call gets its own deadline; expiry cancels the request.
	callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := buildRequest(callCtx)
	if err != nil {
		return &weather.UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	_, err = cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, classifyTransportError(callCtx, op, execErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &weather.UpstreamError{
				Op:         op,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("%w: %d", weather.ErrHTTPStatus, resp.StatusCode),
			}
		}

		if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
			if callCtx.Err() != nil {
				return nil, classifyTransportError(callCtx, op, decodeErr)
			}
			return nil, &weather.UpstreamError{
				Op:  op,
				Err: fmt.Errorf("%w: %v", weather.ErrMalformedResponse, decodeErr),
			}
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}

	// An open circuit fails fast; it is still an upstream failure to the caller.
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &weather.UpstreamError{Op: op, Err: fmt.Errorf("%w: %v", weather.ErrCircuitOpen, err)}
	}
	return err
}

func classifyTransportError(ctx context.Context, op string, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &weather.UpstreamError{Op: op, Err: weather.ErrTimeout}
	}
	return &weather.UpstreamError{Op: op, Err: err}
}
