package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer names, one per subsystem that opens spans.
const (
	TracerCommand = "metasepia/command"
	TracerSession = "metasepia/session"
	TracerHTTP    = "metasepia/http"
)

// Span attribute keys.
const (
	AttrCorrelationID = attribute.Key("metasepia.correlation_id")
	AttrCommand       = attribute.Key("metasepia.command")
	AttrDestination   = attribute.Key("metasepia.destination")
	AttrPersistOp     = attribute.Key("metasepia.persist.op")
)

const exporterTimeout = 5 * time.Second

var (
	tracerProvider   *sdktrace.TracerProvider
	isTracingEnabled = false
)

// InitTracing exports spans over OTLP/gRPC to OTEL_EXPORTER_OTLP_ENDPOINT.
// Without an endpoint it does nothing and spans stay no-ops. The returned
// func flushes and stops the exporter.
func InitTracing(serviceName, serviceVersion string) (func(), error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		slog.Info("tracing disabled: OTEL_EXPORTER_OTLP_ENDPOINT not set", slog.String("component", "telemetry"))
		return func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), exporterTimeout)
	defer cancel()

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if exporterInsecure() {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	ratio := sampleRatio()
	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tracerProvider)
	isTracingEnabled = true
	slog.Info("tracing initialized",
		slog.String("service", serviceName),
		slog.String("endpoint", endpoint),
		slog.Float64("sample_ratio", ratio),
		slog.String("component", "telemetry"))

	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), exporterTimeout)
		defer shutdownCancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("trace exporter shutdown failed", slog.Any("err", err), slog.String("component", "telemetry"))
		}
	}, nil
}

// sampleRatio reads OTEL_TRACES_SAMPLER_ARG, defaulting to sampling everything.
func sampleRatio() float64 {
	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			return f
		}
	}
	return 1
}

// exporterInsecure is true unless OTEL_EXPORTER_OTLP_INSECURE is "false"; the
// collector usually runs as a sidecar.
func exporterInsecure() bool {
	return !strings.EqualFold(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"), "false")
}

// IsTracingEnabled returns whether tracing is active.
func IsTracingEnabled() bool {
	return isTracingEnabled
}

// StartSpan opens a span on the named tracer, tagging it with the
// correlation id carried by ctx.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if corr := GetCorrelation(ctx); corr != "" {
		attrs = append(attrs, AttrCorrelationID.String(corr))
	}
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// StartCommandSpan covers one chat command from lookup to reply.
func StartCommandSpan(ctx context.Context, command, destination string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerCommand, "command "+command,
		AttrCommand.String(command),
		AttrDestination.String(destination))
}

// StartPersistSpan covers one session store call run by the worker.
func StartPersistSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerSession, "persist "+op, AttrPersistOp.String(op))
}

// StartRequestSpan covers one status endpoint request.
func StartRequestSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerHTTP, method+" "+path,
		semconv.HTTPMethod(method),
		attribute.String("http.target", path))
}

// RecordError marks span failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// FinishSpan sets the span status from err.
func FinishSpan(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
		return
	}
	SetSpanSuccess(span)
}

// SetSpanHTTPStatus records a response code; 5xx marks the span failed.
func SetSpanHTTPStatus(span trace.Span, code int) {
	span.SetAttributes(semconv.HTTPStatusCode(code))
	if code >= 500 {
		span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(code))
	}
}
