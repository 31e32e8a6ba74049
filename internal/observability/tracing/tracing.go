package tracing

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans created by this service
const InstrumentationName = "github.com/aryan0dhankhar/leadintake"

// ShutdownFunc flushes pending spans
type ShutdownFunc func(context.Context) error

// Init installs a global tracer provider exporting over OTLP/HTTP.
//
// Nothing is exported unless OTEL_EXPORTER_OTLP_ENDPOINT is set. The endpoint
// may be a bare host:port or a full URL. Plain HTTP is used for bare
// endpoints and http:// URLs, or whenever OTEL_EXPORTER_OTLP_INSECURE is true.
// The W3C trace-context propagator is installed either way so incoming
// traceparent headers are honoured by otelhttp.
func Init(ctx context.Context, logger *slog.Logger, serviceName, environment string) (ShutdownFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		logger.Info("tracing disabled", slog.String("reason", "OTEL_EXPORTER_OTLP_ENDPOINT not set"))
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, exporterOptions(endpoint)...)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.DeploymentEnvironment(environment),
	))
	if err != nil {
		// schema URL conflict with the SDK defaults; keep our attributes only
		res = resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(environment),
		)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled",
		slog.String("endpoint", endpoint),
		slog.String("service", serviceName),
	)
	return tp.Shutdown, nil
}

func exporterOptions(endpoint string) []otlptracehttp.Option {
	var opts []otlptracehttp.Option
	if strings.Contains(endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if insecure(endpoint) {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

func insecure(endpoint string) bool {
	if v, err := strconv.ParseBool(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); err == nil {
		return v
	}
	return !strings.HasPrefix(endpoint, "https://")
}

// Tracer returns the service tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
