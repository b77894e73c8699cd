package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the tracker's HTTP surface with the standard middleware
// stack.
func NewRouter(h *TrackerHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(PrometheusMetricsMiddleware)

	r.Get("/", h.HandleHome)
	r.Get("/healthz", h.HandleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/sms", h.HandleSMS)
	r.Get("/clients", h.HandleListClients)
	r.Get("/messages", h.HandleListMessages)
	r.Post("/deliver", h.HandleDeliver)
	r.Post("/delete_client", h.HandleDeleteClient)

	return r
}
