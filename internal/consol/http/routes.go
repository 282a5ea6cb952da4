package http

import "github.com/go-chi/chi/v5"

// Routes mounts the consolidation endpoints on the provided router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(h.rateLimit).Post("/run", h.handleRun)
	r.Get("/runs/{id}", h.handleGetRun)
	r.Get("/runs/{id}/eliminations.csv", h.handleExportEliminations)
	return r
}
