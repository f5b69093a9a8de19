// Package observability wires OpenTelemetry trace export into Genkit.
//
// Genkit instruments every flow and model call with spans on its own
// TracerProvider. This package attaches an OTLP HTTP exporter to that
// provider so the spans reach a local collector (Jaeger, the otel
// collector, or any agent that speaks OTLP on localhost:4318).
//
// Tracing is off by default. Enable it via config:
//
//	tracing:
//	  enabled: true
//	  endpoint: "localhost:4318"
//	  environment: "dev"
//	  service_name: "calcrag"
//
// Verify the collector is reachable:
//
//	curl -v http://localhost:4318/v1/traces
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/calcrag/calcrag/internal/config"
)

// DefaultEndpoint is the conventional local OTLP HTTP endpoint.
const DefaultEndpoint = "localhost:4318"

// noopShutdown is returned when tracing is disabled or export setup fails.
func noopShutdown(context.Context) error { return nil }

// Setup registers an OTLP exporter with Genkit's TracerProvider.
//
// Returns a shutdown function that flushes pending spans. When tracing is
// disabled the returned function is a no-op and no exporter is created.
// Exporter creation failure degrades to no-op rather than failing startup;
// answering questions matters more than shipping spans.
func Setup(ctx context.Context, cfg config.TracingConfig, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit's TracerProvider reads these when it builds its resource.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return noopShutdown, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
