package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestInitIsIdempotent(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := RequestsHandled
	if err := Init(); err != nil {
		t.Fatalf("unexpected error on second init: %v", err)
	}
	if RequestsHandled != first {
		t.Error("expected metrics to be created once")
	}
	if RequestsHandled == nil || RequestDuration == nil || RequestsActive == nil {
		t.Error("expected all metrics to be initialized")
	}
}

func TestMiddlewarePreservesResponse(t *testing.T) {
	mw, err := NewMiddleware("test-instance")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	router := chi.NewRouter()
	router.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(chi.URLParam(r, "id")))
	})
	handler := mw(router)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"matched route", "/items/42", http.StatusTeapot, "42"},
		{"unmatched route", "/missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rr.Code != tt.wantCode {
				t.Errorf("got status %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rr.Body.String() != tt.wantBody {
				t.Errorf("got body %q, want %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMiddlewareRoutePattern(t *testing.T) {
	mw, err := NewMiddleware("test-instance")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var seen *chi.Context
	capture := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = chi.RouteContext(r.Context())
			next.ServeHTTP(w, r)
		})
	}

	router := chi.NewRouter()
	router.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {})

	mw(capture(router)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/7", nil))

	if seen == nil {
		t.Fatal("expected the middleware to seed a route context")
	}
	if got := routePattern(seen); got != "/items/{id}" {
		t.Errorf("got route pattern %q, want /items/{id}", got)
	}
}

func TestRoutePatternUnmatched(t *testing.T) {
	if got := routePattern(nil); got != unmatchedRoute {
		t.Errorf("got %q, want %q", got, unmatchedRoute)
	}
	if got := routePattern(chi.NewRouteContext()); got != unmatchedRoute {
		t.Errorf("got %q, want %q", got, unmatchedRoute)
	}
}

func TestMiddlewareExtractsTraceContext(t *testing.T) {
	original := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(original) })

	mw, err := NewMiddleware("test-instance")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	var gotTraceID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceID = trace.SpanContextFromContext(r.Context()).TraceID().String()
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotTraceID != traceID {
		t.Errorf("got trace id %q, want %q", gotTraceID, traceID)
	}
}
