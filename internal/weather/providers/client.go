package providers

import (
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http/httpproxy"
)

// ClientOptions configures the shared outbound HTTP client.
type ClientOptions struct {
	Timeout time.Duration

	// Proxy is applied to this client only; the process environment is never mutated.
	Proxy httpproxy.Config

	// TracerProvider instruments outbound calls; nil leaves the transport uninstrumented.
	TracerProvider trace.TracerProvider
}

// NewHTTPClient builds the one client used for every upstream call.
func NewHTTPClient(opts ClientOptions) *http.Client {
	proxyFunc := opts.Proxy.ProxyFunc()

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.Proxy = func(req *http.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}

	var rt http.RoundTripper = base
	if opts.TracerProvider != nil {
		rt = otelhttp.NewTransport(base, otelhttp.WithTracerProvider(opts.TracerProvider))
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: rt,
	}
}
