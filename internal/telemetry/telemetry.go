// Package telemetry instruments the HTTP server with OpenTelemetry tracing and metrics.
//
// The package uses the global tracer and meter providers. They are no-ops unless the process
// installs an SDK (otel.SetTracerProvider / otel.SetMeterProvider) before the server starts.
package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/nov03/bgdeploy-ts"
)

var (
	AttrHTTPMethod     = attribute.Key("http.request.method")
	AttrHTTPRoute      = attribute.Key("http.route")
	AttrHTTPStatusCode = attribute.Key("http.response.status_code")
	AttrURLPath        = attribute.Key("url.path")
	AttrInstanceID     = attribute.Key("service.instance.id")
)

var (
	meter  metric.Meter
	tracer trace.Tracer

	RequestsHandled metric.Int64Counter
	RequestDuration metric.Float64Histogram
	RequestsActive  metric.Int64UpDownCounter

	once    sync.Once
	initErr error
)

// Init creates the tracer and the server metrics.
// It is safe to call more than once.
func Init() error {
	once.Do(func() {
		meter = otel.Meter(instrumentationName)
		tracer = otel.Tracer(instrumentationName)
		initErr = initializeMetrics()
	})
	return initErr
}

func initializeMetrics() error {
	var err error

	RequestsHandled, err = meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Number of HTTP requests handled"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	RequestDuration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request handling duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return err
	}

	RequestsActive, err = meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of HTTP requests currently being handled"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	return nil
}
