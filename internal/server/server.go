package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// NewServer wires every route. A nil metrics handler leaves /metrics as 404.
func NewServer(analytics *services.Analytics, logger *slog.Logger, templateHandlers *TemplateHandlers, metrics http.Handler) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}
	s.setupRoutes(templateHandlers, metrics)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers, metrics http.Handler) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.Handle("GET /metrics", metrics)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/weekly-sales", s.apiHandlers.HandleWeeklySales)
	s.mux.HandleFunc("GET /api/daily-deviation", s.apiHandlers.HandleDailyDeviation)
	s.mux.HandleFunc("GET /api/holiday-split", s.apiHandlers.HandleHolidaySplit)
	s.mux.HandleFunc("GET /api/correlation", s.apiHandlers.HandleCorrelation)
	s.mux.HandleFunc("GET /api/products", s.apiHandlers.HandleProducts)
	s.mux.HandleFunc("GET /api/summary", s.apiHandlers.HandleSummary)
	s.mux.HandleFunc("GET /api/report.xlsx", s.apiHandlers.HandleWorkbook)
	s.mux.HandleFunc("GET /charts/{name}", s.apiHandlers.HandleChart)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/refresh", s.sseHandlers.HandleRefresh)
	s.mux.HandleFunc("GET /sse/summary", s.sseHandlers.HandleSummary)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
