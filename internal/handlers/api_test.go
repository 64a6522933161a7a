package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"sales-dashboard/internal/services"
	"sales-dashboard/internal/sources"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newAnalyticsFor(t *testing.T, profile string, opts sources.Options) *services.Analytics {
	t.Helper()
	reg, err := sources.NewRegistry("")
	if err != nil {
		t.Fatal(err)
	}
	p, err := reg.Lookup(profile)
	if err != nil {
		t.Fatal(err)
	}
	src, err := sources.New(p, opts)
	if err != nil {
		t.Fatal(err)
	}
	return services.NewAnalytics(src, testLogger())
}

// createTestAnalytics serves the built-in three week sample.
func createTestAnalytics(t *testing.T) *services.Analytics {
	return newAnalyticsFor(t, "inline", sources.Options{})
}

// createMissingAnalytics points the csv profile at an empty directory.
func createMissingAnalytics(t *testing.T) *services.Analytics {
	return newAnalyticsFor(t, "csv", sources.Options{Dir: t.TempDir()})
}

func createInvalidAnalytics(t *testing.T) *services.Analytics {
	dir := t.TempDir()
	files := map[string]string{
		"sales.csv":       "Fecha,Ventas,Festivo\n2024-01-01,lots,0\n",
		"correlation.csv": ",A\nA,1\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return newAnalyticsFor(t, "csv", sources.Options{Dir: dir})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics(t)
	handlers := NewAPIHandlers(analytics, testLogger())

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
}

func TestAPIHandlers_HandleWeeklySales(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/weekly-sales", nil)
	w := httptest.NewRecorder()

	handlers.HandleWeeklySales(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != noStore {
		t.Errorf("expected Cache-Control %q, got %q", noStore, cc)
	}

	env := decodeEnvelope(t, w.Body)
	if !env.Success {
		t.Fatal("expected success to be true")
	}

	var data struct {
		Weekly []struct {
			WeekStart string  `json:"week_start"`
			Total     float64 `json:"total"`
		} `json:"weekly"`
		Trend struct {
			Fitted []float64 `json:"fitted"`
		} `json:"trend"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Weekly) != 3 {
		t.Errorf("expected 3 weeks, got %d", len(data.Weekly))
	}
	if len(data.Trend.Fitted) != len(data.Weekly) {
		t.Errorf("expected one fitted value per week, got %d", len(data.Trend.Fitted))
	}
}

func TestAPIHandlers_JSONEndpoints(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	tests := []struct {
		name    string
		handler http.HandlerFunc
		field   string
	}{
		{"daily deviation", handlers.HandleDailyDeviation, "reference_mean"},
		{"holiday split", handlers.HandleHolidaySplit, "holiday_share"},
		{"correlation", handlers.HandleCorrelation, "labels"},
		{"products", handlers.HandleProducts, "products"},
		{"summary", handlers.HandleSummary, "summary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
			}

			env := decodeEnvelope(t, w.Body)
			var data map[string]any
			if err := json.Unmarshal(env.Data, &data); err != nil {
				t.Fatal(err)
			}
			if _, ok := data[tt.field]; !ok {
				t.Errorf("expected field %q in %v", tt.field, data)
			}
		})
	}
}

func TestAPIHandlers_HandleProducts(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleProducts(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var data struct {
		Products []struct {
			Product string  `json:"product"`
			Total   float64 `json:"total"`
		} `json:"products"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w.Body).Data, &data); err != nil {
		t.Fatal(err)
	}

	want := map[string]float64{"A": 1599, "B": 1919, "C": 1127}
	if len(data.Products) != len(want) {
		t.Fatalf("expected %d products, got %d", len(want), len(data.Products))
	}
	for _, p := range data.Products {
		if p.Total != want[p.Product] {
			t.Errorf("product %s: expected %v, got %v", p.Product, want[p.Product], p.Total)
		}
	}
}

func TestAPIHandlers_HolidaySplitAddsUp(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleHolidaySplit(w, httptest.NewRequest(http.MethodGet, "/api/holiday-split", nil))

	var data struct {
		Holiday    string `json:"holiday"`
		NonHoliday string `json:"non_holiday"`
		Total      string `json:"total"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w.Body).Data, &data); err != nil {
		t.Fatal(err)
	}
	// Weekend sales of the inline sample: 246+309 + 237+295 + 302+207.
	if data.Holiday != "1596" {
		t.Errorf("expected holiday total 1596, got %s", data.Holiday)
	}
	if data.Total == "" || data.NonHoliday == "" {
		t.Error("expected totals to be present")
	}
}

func TestAPIHandlers_MissingSource(t *testing.T) {
	handlers := NewAPIHandlers(createMissingAnalytics(t), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleWeeklySales(w, httptest.NewRequest(http.MethodGet, "/api/weekly-sales", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}

	env := decodeEnvelope(t, w.Body)
	if env.Success {
		t.Error("expected success to be false")
	}
	if env.Error == nil || env.Error.Code != "SOURCE_NOT_FOUND" {
		t.Fatalf("expected SOURCE_NOT_FOUND error, got %+v", env.Error)
	}
	if !bytes.Contains([]byte(env.Error.Details), []byte("sales.csv")) {
		t.Errorf("expected details to name the missing file, got %q", env.Error.Details)
	}
}

func TestAPIHandlers_InvalidData(t *testing.T) {
	handlers := NewAPIHandlers(createInvalidAnalytics(t), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleSummary(w, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}
	if env := decodeEnvelope(t, w.Body); env.Error == nil || env.Error.Code != "INVALID_DATA" {
		t.Errorf("expected INVALID_DATA error, got %+v", env.Error)
	}
}

func TestAPIHandlers_HandleWorkbook(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleWorkbook(w, httptest.NewRequest(http.MethodGet, "/api/report.xlsx", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("expected a zip container")
	}
}

func TestAPIHandlers_HandleChart(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/charts/holiday", nil)
	req.SetPathValue("name", "holiday")
	w := httptest.NewRecorder()

	handlers.HandleChart(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("expected PNG body")
	}
}

func TestAPIHandlers_HandleChart_Unknown(t *testing.T) {
	analytics := createTestAnalytics(t)
	handlers := NewAPIHandlers(analytics, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/charts/radar", nil)
	req.SetPathValue("name", "radar")
	w := httptest.NewRecorder()

	handlers.HandleChart(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if runs := analytics.Stats()["runs"]; runs != int64(0) {
		t.Errorf("expected no pipeline run for an unknown chart, got %v", runs)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var data map[string]string
	if err := json.Unmarshal(decodeEnvelope(t, w.Body).Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %q", data["status"])
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	analytics := createTestAnalytics(t)
	handlers := NewAPIHandlers(analytics, testLogger())

	w := httptest.NewRecorder()
	handlers.HandleSummary(w, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	w = httptest.NewRecorder()
	handlers.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	var data map[string]any
	if err := json.Unmarshal(decodeEnvelope(t, w.Body).Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["runs"] != float64(1) {
		t.Errorf("expected 1 run, got %v", data["runs"])
	}
	if data["profile"] != "inline" {
		t.Errorf("expected profile inline, got %v", data["profile"])
	}
}
