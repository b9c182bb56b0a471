// Package telemetry installs the OpenTelemetry trace pipeline selected
// by configuration: no-op, stdout spans for local debugging, or OTLP
// over HTTP to a collector.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "todo-api"

type Config struct {
	// Mode selects the exporter: none, stdout, or otlp.
	Mode string
	// OTLPEndpoint is the collector host:port for otlp mode.
	OTLPEndpoint string
}

// Setup installs the global TracerProvider. The returned function
// flushes and shuts the pipeline down; callers should invoke it with a
// deadline during process shutdown.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	var exp sdktrace.SpanExporter
	switch cfg.Mode {
	case "", "none":
		return func(context.Context) error { return nil }, nil
	case "stdout":
		e, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		exp = e
	case "otlp":
		e, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		exp = e
	default:
		return nil, fmt.Errorf("unknown trace mode %q", cfg.Mode)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
