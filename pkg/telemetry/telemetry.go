// Package telemetry exports pipeline metrics and traces over OTLP/HTTP.
// Without an endpoint every instrument is a no-op.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName    = "diningmenu"
	serviceVersion = "0.1.0"
)

// Telemetry holds the providers and the instruments recorded by the pipeline.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter

	Resolutions    metric.Int64Counter
	FetchDuration  metric.Float64Histogram
	FetchErrors    metric.Int64Counter
	EntitiesParsed metric.Int64Counter
	RefreshRuns    metric.Int64Counter
}

// New connects to endpoint. An empty endpoint yields a no-op instance.
func New(ctx context.Context, endpoint string) (*Telemetry, error) {
	if endpoint == "" {
		return Noop(), nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(tracerProvider)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
	)
	otel.SetMeterProvider(meterProvider)

	t := &Telemetry{
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
		tracer:         tracerProvider.Tracer(serviceName),
		meter:          meterProvider.Meter(serviceName),
	}
	if err := t.registerMetrics(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewWithMeterProvider records into mp. Tests pair it with a manual reader.
func NewWithMeterProvider(mp *sdkmetric.MeterProvider) (*Telemetry, error) {
	t := &Telemetry{
		meterProvider: mp,
		tracer:        otel.Tracer(serviceName),
		meter:         mp.Meter(serviceName),
	}
	if err := t.registerMetrics(); err != nil {
		return nil, err
	}
	return t, nil
}

// Noop returns an instance backed by the global (default no-op) providers.
func Noop() *Telemetry {
	t := &Telemetry{
		tracer: otel.Tracer(serviceName),
		meter:  otel.Meter(serviceName),
	}
	_ = t.registerMetrics()
	return t
}

func (t *Telemetry) registerMetrics() error {
	var err error

	t.Resolutions, err = t.meter.Int64Counter(
		"resolver.resolutions",
		metric.WithDescription("Resolutions by entity kind and serving tier"),
	)
	if err != nil {
		return err
	}

	t.FetchDuration, err = t.meter.Float64Histogram(
		"fetch.duration",
		metric.WithDescription("Duration of upstream fetches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	t.FetchErrors, err = t.meter.Int64Counter(
		"fetch.errors",
		metric.WithDescription("Failed upstream fetches"),
	)
	if err != nil {
		return err
	}

	t.EntitiesParsed, err = t.meter.Int64Counter(
		"extract.entities",
		metric.WithDescription("Entities produced by live extraction"),
	)
	if err != nil {
		return err
	}

	t.RefreshRuns, err = t.meter.Int64Counter(
		"refresh.runs",
		metric.WithDescription("Completed scheduled refresh runs"),
	)
	return err
}

// StartSpan starts a span on the pipeline tracer.
func (t *Telemetry) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// RecordResolution counts one resolver call served from tier.
func (t *Telemetry) RecordResolution(ctx context.Context, kind, tier string) {
	t.Resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("tier", tier),
	))
}

// RecordFetch records one upstream fetch and, when err is non-nil, a fetch error.
func (t *Telemetry) RecordFetch(ctx context.Context, kind string, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	t.FetchDuration.Record(ctx, d.Seconds(), attrs)
	if err != nil {
		t.FetchErrors.Add(ctx, 1, attrs)
	}
}

// AddEntities counts entities produced by an extraction.
func (t *Telemetry) AddEntities(ctx context.Context, kind string, n int) {
	t.EntitiesParsed.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

// IncrementRefreshRuns counts a finished refresh run by what triggered it.
func (t *Telemetry) IncrementRefreshRuns(ctx context.Context, trigger string) {
	t.RefreshRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", trigger)))
}

// Shutdown flushes and stops the exporters.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
