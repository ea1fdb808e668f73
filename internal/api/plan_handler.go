package api

import (
	"net/http"
)

// Plan возвращает порядок выполнения графа без вызова действий.
// POST /api/v1/plan
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := decodeBody(w, r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if req.Spec == nil {
		BadRequest(w, "spec is required")
		return
	}

	plan, err := h.runner.Plan(req.Spec, req.Root)
	if HandleGraphError(w, h.logger, err) {
		return
	}

	Success(w, PlanResponse{Root: plan.Root, Order: plan.Order})
}
