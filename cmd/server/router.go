package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/yuzukisa/pixhive/internal/api"
	"github.com/yuzukisa/pixhive/internal/api/middleware"
)

// newRouter assembles the HTTP routes and middleware chain.
func newRouter(collect *api.CollectHandler, health *api.HealthHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.TraceMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", health.Health)
	collect.RegisterRoutes(r)

	return r
}
