package httpapi

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mkuiper/bankboard/internal/transport/httpapi/handler"
	"github.com/mkuiper/bankboard/internal/transport/httpapi/middleware"
	"github.com/mkuiper/bankboard/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger         *logger.Logger
	AllowedOrigins []string
	LedgerHandler  *handler.LedgerHandler
	HistoryHandler *handler.HistoryHandler
	HealthHandler  *handler.HealthHandler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit()) // Rate limiting: 100 req/s with burst of 20

	// Health check endpoints
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
		r.Get("/health/detailed", cfg.HealthHandler.GetHealthDetailed)
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.LedgerHandler != nil {
			r.Get("/accounts", cfg.LedgerHandler.GetAccounts)
			r.Get("/transactions", cfg.LedgerHandler.GetTransactions)
			r.Get("/statistics", cfg.LedgerHandler.GetStatistics)
		}

		if cfg.HistoryHandler != nil {
			r.Route("/history", func(r chi.Router) {
				r.Get("/balances", cfg.HistoryHandler.GetBalanceSeries)
				r.Get("/breakdown", cfg.HistoryHandler.GetBreakdown)
				r.Post("/snapshot", cfg.HistoryHandler.TriggerSnapshot)
			})
		}

		r.Get("/demo-data", handler.GetDemoData)
	})

	return r
}
