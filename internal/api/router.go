package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"campaign-generator/internal/observability"
)

func Router(h *Handler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(middleware.AllowContentType("application/json"))

		r.Post("/campaigns/generate", h.Generate)
		r.Post("/campaigns/preview", h.Preview)
		r.Post("/transform", h.Transform)
		r.Post("/rules/evaluate", h.EvaluateRules)
		r.Post("/patterns/expand", h.ExpandPattern)
	})
	r.Get("/v1/platforms/limits", h.PlatformLimits)
	return r
}
