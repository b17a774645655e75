package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gymgate/internal/config"
)

// PlansHandler serves the static subscription catalog.
type PlansHandler struct {
	config *config.Config
}

// NewPlansHandler creates a new plans handler.
func NewPlansHandler(cfg *config.Config) *PlansHandler {
	return &PlansHandler{config: cfg}
}

// PlanResponse represents a subscription plan in API responses.
type PlanResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PriceCents  int    `json:"price_cents"`
	Interval    string `json:"interval"`
	Description string `json:"description"`
}

func planToResponse(p config.Plan) PlanResponse {
	return PlanResponse{
		ID:          p.ID,
		Name:        p.Name,
		PriceCents:  p.PriceCents,
		Interval:    p.Interval,
		Description: p.Description,
	}
}

// List returns all plans.
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	response := make([]PlanResponse, len(h.config.Plans.Plans))
	for i, p := range h.config.Plans.Plans {
		response[i] = planToResponse(p)
	}
	respondJSON(w, http.StatusOK, response)
}

// Get returns a single plan by id.
func (h *PlansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	plan := h.config.FindPlan(id)
	if plan == nil {
		respondError(w, http.StatusNotFound, "plan not found")
		return
	}

	respondJSON(w, http.StatusOK, planToResponse(*plan))
}
