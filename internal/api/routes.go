package api

import "net/http"

// RegisterRoutes регистрирует маршруты API в mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"POST /api/v1/runs", h.CreateRun},
		{"GET /api/v1/runs", h.ListRuns},
		{"GET /api/v1/runs/{id}", h.GetRun},
		{"POST /api/v1/plan", h.Plan},
	}

	for _, rt := range routes {
		mux.Handle(rt.pattern, Chain(
			RequestID(h.logger),
			Observe(rt.pattern, h.metrics),
			Recovery(),
		)(rt.handler))
	}
}
