package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/loanledger/internal/adapter/http/handler"
	"github.com/iho/loanledger/internal/adapter/http/middleware"
	"github.com/iho/loanledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LoanHandler           *handler.LoanHandler
	LedgerHandler         *handler.LedgerHandler
	AccrualHandler        *handler.AccrualHandler
	PaymentHandler        *handler.PaymentHandler
	ReconciliationHandler *handler.ReconciliationHandler
	SequenceHandler       *handler.SequenceHandler
	HealthHandler         *handler.HealthHandler
	IdempotencyStore      usecase.IdempotencyStore
	IdempotencyTTL        time.Duration
	RateLimiter           *middleware.RateLimiter
	Logger                zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewRecovery(cfg.Logger))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}
	r.Use(middleware.Metrics)
	r.Use(middleware.Actor)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.Logger).WithTTL(cfg.IdempotencyTTL).Wrap)
		}

		r.Post("/schedules/preview", cfg.LoanHandler.PreviewSchedule)

		// Loans
		r.Route("/loans", func(r chi.Router) {
			r.Post("/", cfg.LoanHandler.Create)
			r.Get("/", cfg.LoanHandler.List)

			r.Route("/{number}", func(r chi.Router) {
				r.Get("/", cfg.LoanHandler.Get)
				r.Put("/", cfg.LoanHandler.Update)
				r.Post("/submit", cfg.LoanHandler.Submit)
				r.Post("/disburse", cfg.LoanHandler.Disburse)
				r.Post("/cancel", cfg.LoanHandler.Cancel)
				r.Post("/reinstate", cfg.LoanHandler.Reinstate)
				r.Post("/suspend-accrual", cfg.LoanHandler.SuspendAccrual)
				r.Post("/resume-accrual", cfg.LoanHandler.ResumeAccrual)
				r.Post("/write-off", cfg.LoanHandler.WriteOff)
				r.Get("/schedule", cfg.LoanHandler.Schedule)

				r.Get("/entries", cfg.LedgerHandler.ListEntries)
				r.Post("/entries", cfg.LedgerHandler.PostEntry)
				r.Get("/entries/pending", cfg.LedgerHandler.Pending)
				r.Get("/statement", cfg.LedgerHandler.Statement)

				r.Post("/accruals", cfg.AccrualHandler.ClosePeriod)
				r.Get("/accrued-interest", cfg.AccrualHandler.AccruedInterest)
			})
		})

		// Accruals
		r.Route("/accruals", func(r chi.Router) {
			r.Post("/close-all", cfg.AccrualHandler.CloseAll)
			r.Get("/interest", cfg.AccrualHandler.PeriodInterest)
		})

		// Payments
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", cfg.PaymentHandler.Register)
			r.Get("/{id}", cfg.PaymentHandler.Get)
			r.Post("/{id}/apply", cfg.PaymentHandler.Apply)
			r.Get("/{id}/applications", cfg.PaymentHandler.Applications)
		})

		// Bank movements
		r.Route("/movements", func(r chi.Router) {
			r.Post("/", cfg.ReconciliationHandler.Register)
			r.Get("/{id}", cfg.ReconciliationHandler.Get)
			r.Post("/{id}/reconcile", cfg.ReconciliationHandler.Reconcile)
		})

		// Sequences
		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", cfg.SequenceHandler.Current)
			r.Post("/{domain}/next", cfg.SequenceHandler.Next)
			r.Put("/{domain}", cfg.SequenceHandler.Set)
		})
	})

	return r
}
