package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NewRouter mounts the API under /v1 next to /healthz and, when given, /metrics.
func NewRouter(h *Handler, metricsHandler http.Handler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/selection/map", h.MapSelection)
		r.Post("/timepoints/parse", h.ParseTimePoints)
		r.Post("/timepoints/format", h.FormatTimePoints)
		r.Post("/plan", h.Plan)
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", h.SubmitJob)
			r.Get("/{id}", h.GetJob)
			r.Get("/{id}/progress", h.JobProgress)
		})
	})
	return r
}
