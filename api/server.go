/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind a proxy
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. instrument: Prometheus counters/latency + debug access log
  5. CORS:       Cross-origin requests for the punch terminal frontend

ROUTE GROUPS:
  /health, /metrics      Liveness and Prometheus scrape
  /api/clock/*           Punch terminal (public)
  /api/manager/login     PIN login (public)
  everything else        Manager session required

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: RequireManager, instrument
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nobel/timebank/config"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg config.ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.CORS.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument(h.Metrics, h.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.HandlerFor(h.Metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		// Punch terminal
		r.Route("/clock", func(r chi.Router) {
			r.Get("/employees", h.ClockBoard)
			r.Get("/{employeeID}", h.ClockStatus)
			r.Post("/{employeeID}/punch", h.Punch)
		})

		r.Post("/manager/login", h.Login)

		// Management
		r.Group(func(r chi.Router) {
			r.Use(RequireManager(h.Gate))

			r.Put("/manager/pin", h.ChangePIN)

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.ListEmployees)
				r.Post("/", h.CreateEmployee)
				r.Get("/{id}", h.GetEmployee)
				r.Put("/{id}", h.UpdateEmployee)
				r.Delete("/{id}", h.DeleteEmployee)
				r.Get("/{id}/balance", h.GetBalance)
				r.Get("/{id}/statement", h.GetStatement)
			})

			r.Get("/balances", h.ListBalances)

			r.Get("/records", h.ListRecords)
			r.Delete("/records/{id}", h.DeleteRecord)

			r.Get("/entries", h.ListEntries)
			r.Delete("/entries/{id}", h.DeleteEntry)
			r.Post("/adjustments", h.CreateAdjustment)
			r.Post("/justifications", h.CreateJustification)

			r.Get("/reports/timesheet", h.Timesheet)

			r.Get("/scenarios", h.ListScenarios)
			r.Post("/scenarios/load", h.LoadScenario)
		})
	})

	return r
}

// ListenAndServe serves handler on addr until ctx is cancelled, then
// drains in-flight requests for up to shutdownTimeout.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
