// Package telemetry builds the tracer provider used by the weather lookup.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName identifies spans emitted by this process.
const ServiceName = "weather-tool-server"

// Options selects the span exporter.
type Options struct {
	Exporter  string    // "none", "stdout" or "zipkin"
	ZipkinURL string    // collector endpoint for "zipkin"
	Writer    io.Writer // destination for "stdout"; never the protocol stream
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// Setup returns a tracer provider for the configured exporter. The provider is
// returned to the caller rather than installed globally.
func Setup(opts Options) (trace.TracerProvider, ShutdownFunc, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)

	switch opts.Exporter {
	case "", "none":
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	case "stdout":
		if opts.Writer == nil {
			return nil, nil, fmt.Errorf("stdout trace exporter requires a writer")
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(opts.Writer))
	case "zipkin":
		exporter, err = zipkin.New(opts.ZipkinURL)
	default:
		return nil, nil, fmt.Errorf("unknown trace exporter %q", opts.Exporter)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s exporter: %w", opts.Exporter, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
		)),
	)
	return tp, tp.Shutdown, nil
}
