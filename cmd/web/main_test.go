package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/sources"
)

func testConfig(profile, dir string) *config.Config {
	return &config.Config{
		Data: config.DataConfig{
			Profile:       profile,
			Dir:           dir,
			Seed:          42,
			SyntheticDays: 60,
			RollingWindow: 4,
		},
		Security: config.SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    1000,
			RateLimitBurst:  1000,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
	}
}

// newTestHandler builds the full middleware stack over the given profile.
func newTestHandler(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	src, err := sources.FromConfig(cfg.Data)
	if err != nil {
		t.Fatalf("FromConfig() failed: %v", err)
	}
	analytics := services.NewAnalytics(src, logger, services.WithRollingWindow(cfg.Data.RollingWindow))
	return newHandler(cfg, analytics, logger, nil)
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	handler := newTestHandler(t, testConfig("inline", ""))

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/api/weekly-sales", http.StatusOK, "application/json"},
		{"/api/daily-deviation", http.StatusOK, "application/json"},
		{"/api/holiday-split", http.StatusOK, "application/json"},
		{"/api/correlation", http.StatusOK, "application/json"},
		{"/api/summary", http.StatusOK, "application/json"},
		{"/api/products", http.StatusOK, "application/json"},
		{"/api/report.xlsx", http.StatusOK, "spreadsheetml"},
		{"/charts/trend", http.StatusOK, "image/png"},
		{"/charts/products", http.StatusOK, "image/png"},
		{"/charts/pie", http.StatusNotFound, "application/json"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/metrics", http.StatusNotFound, "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", tt.path, nil)

			handler.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}

			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}
		})
	}
}

func TestServer_MiddlewareHeaders(t *testing.T) {
	handler := newTestHandler(t, testConfig("inline", ""))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "img-src 'self' data:") {
		t.Errorf("CSP should allow inline chart images, got %q", csp)
	}
}

// A missing sales file still serves the page, with an error banner.
func TestServer_MissingSource(t *testing.T) {
	handler := newTestHandler(t, testConfig("csv", t.TempDir()))

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/", http.StatusOK, `class="banner banner-error"`},
		{"/api/weekly-sales", http.StatusNotFound, "SOURCE_NOT_FOUND"},
		{"/charts/trend", http.StatusNotFound, "SOURCE_NOT_FOUND"},
		{"/sse/refresh", http.StatusOK, `class="banner banner-error"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("body should contain %q", tt.want)
			}
		})
	}
}

// Test Server-Sent Events routes
func TestServer_SSERoutes(t *testing.T) {
	handler := newTestHandler(t, testConfig("synthetic", ""))

	sseRoutes := []string{
		"/sse/refresh",
		"/sse/summary",
	}

	for _, route := range sseRoutes {
		t.Run(route, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", route, nil)

			handler.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("content-type = %q, should contain 'text/event-stream'", ct)
			}

			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("cache-control = %q, want 'no-cache'", cc)
			}
		})
	}
}

// Test error handling for invalid methods
func TestServer_ErrorHandling(t *testing.T) {
	handler := newTestHandler(t, testConfig("inline", ""))

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"POST", "/api/weekly-sales", http.StatusMethodNotAllowed},
		{"PUT", "/", http.StatusMethodNotAllowed},
		{"DELETE", "/health", http.StatusMethodNotAllowed},
		{"PATCH", "/charts/trend", http.StatusMethodNotAllowed},
		{"GET", "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			handler.ServeHTTP(w, r)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestServer_WorkbookDownload(t *testing.T) {
	handler := newTestHandler(t, testConfig("inline", ""))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/report.xlsx", nil))

	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="sales-report-inline-`) {
		t.Errorf("content-disposition = %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("expected a zip container")
	}
}
