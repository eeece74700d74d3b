/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for browser frontends

ROUTE GROUPS:
  /api/calculos/*   Calculations and history
  /api/udis         UDI daily value lookup
  /api/ccp-udis     CCP-UDIS monthly series lookup

SECURITY NOTE:
  No authentication middleware. All endpoints are public; the Banxico
  token stays server-side and is never exposed to clients.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
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

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/calculos", func(r chi.Router) {
			r.Post("/", h.Calculate)
			r.Get("/", h.ListCalculations)
			r.Get("/{id}", h.GetCalculation)
			r.Get("/{id}/csv", h.ExportCalculationCSV)
		})

		r.Get("/udis", h.GetUDIValue)
		r.Get("/ccp-udis", h.GetCCPSeries)
	})

	return r
}
