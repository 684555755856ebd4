package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/nov03/bgdeploy-ts/internal/apperr"
	"github.com/nov03/bgdeploy-ts/internal/config"
)

func testConfig(t *testing.T, port int, infraRoutes bool) *config.ServerEnvironment {
	t.Helper()

	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", strconv.Itoa(port))
	t.Setenv("LOG_LEVEL", "none")
	t.Setenv("INSTANCE_ID", "test-instance")
	t.Setenv("INFRA_ROUTES_ENABLED", strconv.FormatBool(infraRoutes))
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "5s")

	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg *config.ServerEnvironment) *Server {
	t.Helper()
	s, err := NewServer(cfg, testLogger())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

func findFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port
}

// waitForServer polls url until the server responds (with any status) or the timeout expires
func waitForServer(t *testing.T, url string, timeout time.Duration) bool {
	t.Helper()

	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

func decodeErrorResponse(t *testing.T, body io.Reader) apperr.ErrorResponse {
	t.Helper()
	var resp apperr.ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestEveryPathIsNotFound(t *testing.T) {
	s := newTestServer(t, testConfig(t, 8080, false))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/index.html"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodDelete, "/a/b/c"},
		// infra routes are disabled by default
		{http.MethodGet, "/health/live"},
		{http.MethodGet, "/version"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))

			if rr.Code != http.StatusNotFound {
				t.Fatalf("got status %d, want %d", rr.Code, http.StatusNotFound)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("got content type %q, want application/json", ct)
			}

			// middleware must run even though no routes are registered
			if got := rr.Header().Get("X-Instance-Id"); got != "test-instance" {
				t.Errorf("got X-Instance-Id %q, want test-instance", got)
			}
			if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("expected security headers")
			}

			resp := decodeErrorResponse(t, rr.Body)
			if resp.Status != http.StatusNotFound {
				t.Errorf("got body status %d, want %d", resp.Status, http.StatusNotFound)
			}
			if resp.Error != "Not Found" {
				t.Errorf("got error %q, want Not Found", resp.Error)
			}
			if resp.Path != tt.path {
				t.Errorf("got path %q, want %q", resp.Path, tt.path)
			}
			if resp.ErrorCode != apperr.ErrCodeNotFound {
				t.Errorf("got error code %d, want %d", resp.ErrorCode, apperr.ErrCodeNotFound)
			}
			if resp.RequestID == "" {
				t.Error("expected request id in error response")
			}
		})
	}
}

func TestInfraRoutes(t *testing.T) {
	s := newTestServer(t, testConfig(t, 8080, true))

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
	}{
		{"liveness", http.MethodGet, "/health/live", http.StatusOK},
		{"readiness before start", http.MethodGet, "/health/ready", http.StatusServiceUnavailable},
		{"version", http.MethodGet, "/version", http.StatusOK},
		{"wrong method", http.MethodPost, "/health/live", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/health", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))

			if rr.Code != tt.wantCode {
				t.Errorf("got status %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusMethodNotAllowed {
				resp := decodeErrorResponse(t, rr.Body)
				if resp.ErrorCode != apperr.ErrCodeMethodNotAllowed {
					t.Errorf("got error code %d, want %d", resp.ErrorCode, apperr.ErrCodeMethodNotAllowed)
				}
			}
		})
	}
}

func TestRateLimitedResponse(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "1")
	t.Setenv("RATE_LIMIT_BURST", "1")
	s := newTestServer(t, testConfig(t, 8080, false))

	codes := make([]int, 0, 2)
	for range 2 {
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusNotFound || codes[1] != http.StatusTooManyRequests {
		t.Errorf("got statuses %v, want [404 429]", codes)
	}
}

func TestStartServeAndShutdown(t *testing.T) {
	port := findFreePort(t)
	s := newTestServer(t, testConfig(t, port, true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- s.Start(ctx)
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if !waitForServer(t, baseURL+"/", 10*time.Second) {
		t.Fatal("Server failed to start within timeout")
	}

	if !s.Ready() {
		t.Error("expected server to be ready while serving")
	}
	if addr := s.Addr(); addr == nil || !strings.HasSuffix(addr.String(), ":"+strconv.Itoa(port)) {
		t.Errorf("got addr %v, want port %d", addr, port)
	}

	resp, err := http.Get(baseURL + "/no/such/page")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	ready, err := http.Get(baseURL + "/health/ready")
	if err != nil {
		t.Fatalf("readiness request failed: %v", err)
	}
	ready.Body.Close()
	if ready.StatusCode != http.StatusOK {
		t.Errorf("got readiness status %d, want %d", ready.StatusCode, http.StatusOK)
	}

	cancel()

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}

	if s.Ready() {
		t.Error("expected server to not be ready after shutdown")
	}
}

func TestStartFailsWhenPortInUse(t *testing.T) {
	holder, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to hold port: %v", err)
	}
	defer holder.Close()

	port := holder.Addr().(*net.TCPAddr).Port
	s := newTestServer(t, testConfig(t, port, false))

	done := make(chan error, 1)
	go func() {
		done <- s.Start(context.Background())
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected start to fail when the port is in use")
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			t.Errorf("expected EADDRINUSE, got %v", err)
		}
		if hint := StartupHint(err); !strings.Contains(hint, "in use") {
			t.Errorf("got hint %q", hint)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("start did not fail within timeout")
	}

	if s.Ready() {
		t.Error("server must not report ready after a failed start")
	}
}

func TestStartupHint(t *testing.T) {
	permission := &net.OpError{Op: "listen", Net: "tcp", Err: os.NewSyscallError("bind", syscall.EACCES)}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"permission denied", fmt.Errorf("server failed to start: %w", permission), "CAP_NET_BIND_SERVICE"},
		{"other", errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartupHint(tt.err)
			if tt.want == "" && got != "" {
				t.Errorf("expected no hint, got %q", got)
			}
			if tt.want != "" && !strings.Contains(got, tt.want) {
				t.Errorf("got hint %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
