package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"waypointd/internal/metrics"
	"waypointd/internal/registry"
)

// NewServer creates an HTTP handler with all routes configured. db may be
// nil when the memory storage driver is in use.
func NewServer(logger *slog.Logger, reg *registry.Registry, db Pinger) http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(logger))
	mux.Use(Recovery(logger))
	mux.Use(metrics.Middleware)

	humaAPI := humachi.New(mux, huma.DefaultConfig("waypointd", "1.0.0"))
	registerCoordinateRoutes(humaAPI, NewCoordinateHandler(reg, logger))
	registerSelectionRoutes(humaAPI, NewSelectionHandler(reg, logger))

	health := NewHealthHandler(db, logger)
	mux.Get("/livez", health.Livez)
	mux.Get("/readyz", health.Readyz)
	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return mux
}
