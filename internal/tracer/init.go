package tracer

import (
	"context"
	"os"

	"move-quote-be/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const serviceName = "move-quote-backend"

// InitTracer installs the OTLP HTTP trace exporter when OTEL_ENABLED=true and
// returns the provider's shutdown. Otherwise it returns a no-op shutdown.
func InitTracer(log logger.ILogger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if os.Getenv("OTEL_ENABLED") != "true" {
		log.Info("TRACER", "Tracing disabled", map[string]interface{}{"hint": "set OTEL_ENABLED=true"})
		return noop
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Warn("TRACER", "OTLP exporter unavailable, tracing disabled", map[string]interface{}{"endpoint": endpoint, "error": err.Error()})
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
	otel.SetTracerProvider(tp)
	log.Info("TRACER", "Tracer initialized", map[string]interface{}{"endpoint": endpoint, "service": serviceName})

	return tp.Shutdown
}
