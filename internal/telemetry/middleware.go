package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// unmatchedRoute is recorded as http.route for requests that did not match a route,
// which keeps the metric cardinality bounded.
const unmatchedRoute = "unmatched"

// NewMiddleware returns a middleware that creates a server span per request and records
// the request metrics.
//
// The middleware is meant to wrap the chi router from the outside: it seeds a chi route context
// which the router fills in, so the matched route pattern is known once the request completes.
func NewMiddleware(instanceID string) (func(http.Handler) http.Handler, error) {
	if err := Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			rctx := chi.RouteContext(ctx)
			if rctx == nil {
				rctx = chi.NewRouteContext()
				ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
			}

			ctx, span := tracer.Start(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					AttrHTTPMethod.String(r.Method),
					AttrURLPath.String(r.URL.Path),
					AttrInstanceID.String(instanceID),
				),
			)
			defer span.End()

			methodAttr := metric.WithAttributes(AttrHTTPMethod.String(r.Method))
			RequestsActive.Add(ctx, 1, methodAttr)
			defer RequestsActive.Add(ctx, -1, methodAttr)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(rctx)

			span.SetName(fmt.Sprintf("HTTP %s %s", r.Method, route))
			span.SetAttributes(
				AttrHTTPRoute.String(route),
				AttrHTTPStatusCode.Int(status),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			attrs := metric.WithAttributes(
				AttrHTTPMethod.String(r.Method),
				AttrHTTPRoute.String(route),
				AttrHTTPStatusCode.Int(status),
			)
			RequestDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
			RequestsHandled.Add(ctx, 1, attrs)
		})
	}, nil
}

func routePattern(rctx *chi.Context) string {
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}
