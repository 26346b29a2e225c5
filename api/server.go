/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route definitions. This
  is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     request logging
  2. Recoverer:  panic recovery (500 instead of crash)
  3. RequestID:  unique ID per request for tracing
  4. CORS:       cross-origin requests for the dashboard frontend

SECURITY NOTE:
  No authentication middleware. The request layer owns auth in production;
  this service is deployed behind it.

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/overview", h.GetOverview)
		r.Get("/trend", h.GetTrend)
		r.Get("/breakdown", h.GetBreakdown)

		r.Route("/movements", func(r chi.Router) {
			r.Get("/", h.GetMovements)
			r.Get("/customers", h.GetCustomerMovements)
			r.Get("/monthly", h.GetMonthlyMovements)
		})

		r.Get("/customers", h.GetCustomers)
		r.Get("/renewals", h.GetRenewals)
		r.Get("/cohorts", h.GetCohorts)
		r.Get("/products", h.GetProducts)
		r.Get("/cross-sell", h.GetCrossSell)

		r.Post("/dataset/load", h.LoadDataset)
	})

	return r
}
