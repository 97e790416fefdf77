package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	sentryotel "github.com/getsentry/sentry-go/otel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Options controls which telemetry pipelines are installed.
type Options struct {
	SentryEnabled bool
	SentryDSN     string
	Release       string
}

// Setup registers the global meter provider backed by the Prometheus
// exporter and, when enabled, a tracer provider that forwards spans to Sentry.
// The returned cleanup function is never nil.
func Setup(opts Options) (func(), error) {
	exporter, err := prometheus.New()
	if err != nil {
		return func() {}, err
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(meterProvider)

	shutdownMetrics := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		meterProvider.Shutdown(ctx)
	}

	if !opts.SentryEnabled {
		return shutdownMetrics, nil
	}
	if opts.SentryDSN == "" {
		return shutdownMetrics, errors.New("sentry is enabled but no DSN is configured")
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              opts.SentryDSN,
		Release:          opts.Release,
		EnableTracing:    true,
		TracesSampleRate: 1,
	})
	if err != nil {
		return shutdownMetrics, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sentryotel.NewSentrySpanProcessor()))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(sentryotel.NewSentryPropagator())

	cleanup := func() {
		tp.Shutdown(context.Background())
		sentry.Flush(2 * time.Second)
		shutdownMetrics()
	}
	return cleanup, nil
}
