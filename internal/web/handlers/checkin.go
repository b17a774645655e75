package handlers

import (
	"encoding/json"
	"math"
	"net/http"

	"gymgate/internal/database"
	"gymgate/internal/gate"
)

// CheckinHandler exposes the two admission paths of a terminal's decision
// engine over HTTP, for kiosks that run the camera in the browser and post
// descriptors instead of frames.
type CheckinHandler struct {
	engine *gate.Engine
}

// NewCheckinHandler creates a new check-in handler.
func NewCheckinHandler(engine *gate.Engine) *CheckinHandler {
	return &CheckinHandler{engine: engine}
}

// FaceCheckinRequest carries one face descriptor. The descriptor accepts
// both a plain JSON array and the index-keyed object form some capture
// libraries serialize.
type FaceCheckinRequest struct {
	Descriptor json.RawMessage `json:"descriptor"`
}

// TokenCheckinRequest carries one scanned credential token.
type TokenCheckinRequest struct {
	Token string `json:"token"`
}

// DecisionResponse represents a finalized decision in API responses.
// Distance is a pointer so an exact match reports 0 while token-path and
// empty-roster decisions omit the field entirely.
type DecisionResponse struct {
	Status           string   `json:"status"`
	MemberName       string   `json:"member_name,omitempty"`
	Email            string   `json:"email,omitempty"`
	Kind             string   `json:"kind,omitempty"`
	Distance         *float64 `json:"distance,omitempty"`
	RemainingSeconds int      `json:"remaining_seconds,omitempty"`
	Timestamp        string   `json:"timestamp"`
}

func decisionToResponse(d gate.Decision) DecisionResponse {
	resp := DecisionResponse{
		Status:    string(d.Status),
		Timestamp: d.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
	if d.Member != nil {
		resp.MemberName = d.Member.Name
		resp.Email = d.Member.Email
	}
	if d.Accepted() {
		resp.Kind = string(d.Kind)
	}
	if d.Status == gate.StatusNoMatch || d.Accepted() {
		// An empty roster or a probe matching no stored embedding length
		// yields an infinite distance; encoding/json rejects that value,
		// so the field is only set when finite.
		if !math.IsInf(d.Distance, 0) && !math.IsNaN(d.Distance) {
			dist := d.Distance
			resp.Distance = &dist
		}
	}
	if d.Status == gate.StatusTooSoon {
		resp.RemainingSeconds = int(d.Remaining.Seconds() + 0.5)
	}
	return resp
}

// respondDecision maps a decision to an HTTP response. Expected outcomes
// (accepted, no match, too soon, invalid token) are 200s carrying the
// decision; only a store failure is a server error.
func respondDecision(w http.ResponseWriter, d gate.Decision) {
	status := http.StatusOK
	if d.Status == gate.StatusSyncError {
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, decisionToResponse(d))
}

// Face handles a face check-in attempt.
func (h *CheckinHandler) Face(w http.ResponseWriter, r *http.Request) {
	var req FaceCheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	probe, err := database.DecodeDescriptor(req.Descriptor)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid face descriptor")
		return
	}

	d, processed := h.engine.ProcessFace(r.Context(), probe)
	if !processed {
		respondError(w, http.StatusTooManyRequests, "terminal busy")
		return
	}

	respondDecision(w, d)
}

// Token handles a scanned-credential check-in attempt.
func (h *CheckinHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenCheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Token == "" {
		respondError(w, http.StatusBadRequest, "token is required")
		return
	}

	d, processed := h.engine.ProcessToken(r.Context(), req.Token)
	if !processed {
		respondError(w, http.StatusTooManyRequests, "terminal busy")
		return
	}

	respondDecision(w, d)
}
