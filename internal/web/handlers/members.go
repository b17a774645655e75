package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gymgate/internal/database"
)

// RosterRefresher is anything that can be nudged to reload the eligible
// roster after a member record changes. The terminal loop implements it.
type RosterRefresher interface {
	RequestRefresh()
}

// MembersHandler handles member enrollment and billing-status endpoints.
type MembersHandler struct {
	members   database.MemberStore
	refresher RosterRefresher
}

// NewMembersHandler creates a new members handler. refresher may be nil.
func NewMembersHandler(members database.MemberStore, refresher RosterRefresher) *MembersHandler {
	return &MembersHandler{members: members, refresher: refresher}
}

// MemberResponse represents a member in API responses. The embedding is
// never exposed; clients only learn whether one is stored.
type MemberResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Phone            string `json:"phone,omitempty"`
	MembershipActive bool   `json:"membership_active"`
	Enrolled         bool   `json:"enrolled"`
	CreatedAt        string `json:"created_at"`
}

func memberToResponse(m database.Member) MemberResponse {
	return MemberResponse{
		ID:               m.ID,
		Email:            m.Email,
		Name:             m.Name,
		Phone:            m.Phone,
		MembershipActive: m.MembershipActive,
		Enrolled:         len(m.Embedding) > 0,
		CreatedAt:        m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// List returns all members. With ?eligible=true only the members a
// terminal would match against are returned.
func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		members []database.Member
		err     error
	)
	if r.URL.Query().Get("eligible") == "true" {
		members, err = h.members.ListEligible(r.Context())
	} else {
		members, err = h.members.ListAll(r.Context())
	}
	if err != nil {
		log.Printf("listing members: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	response := make([]MemberResponse, len(members))
	for i, m := range members {
		response[i] = memberToResponse(m)
	}
	respondJSON(w, http.StatusOK, response)
}

// Get returns a single member by email.
func (h *MembersHandler) Get(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	member, err := h.members.LookupByIdentity(r.Context(), email)
	if err != nil {
		log.Printf("looking up member %s: %v", sanitizeForLog(email), err)
		respondError(w, http.StatusInternalServerError, "failed to look up member")
		return
	}
	if member == nil {
		respondError(w, http.StatusNotFound, "member not found")
		return
	}

	respondJSON(w, http.StatusOK, memberToResponse(*member))
}

// EnrollRequest represents the enrollment capture payload. The descriptor
// accepts both the array and index-keyed object serializations.
type EnrollRequest struct {
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	Descriptor json.RawMessage `json:"descriptor"`
}

// Enroll creates or updates a member with a captured face descriptor.
// Re-enrolling an existing member replaces the stored descriptor.
func (h *MembersHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if database.NormalizeIdentity(req.Email) == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	var embedding []float32
	if len(req.Descriptor) > 0 {
		var err error
		embedding, err = database.DecodeDescriptor(req.Descriptor)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid face descriptor")
			return
		}
	}

	member := database.Member{
		Email:            req.Email,
		Name:             database.NormalizeName(req.Name),
		Phone:            req.Phone,
		Embedding:        embedding,
		MembershipActive: true,
	}
	if err := h.members.UpsertEnrollment(r.Context(), member); err != nil {
		log.Printf("enrolling member %s: %v", sanitizeForLog(req.Email), err)
		respondError(w, http.StatusInternalServerError, "failed to enroll member")
		return
	}

	if h.refresher != nil {
		h.refresher.RequestRefresh()
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"email": database.NormalizeIdentity(req.Email),
	})
}

// StatusRequest represents a membership status change.
type StatusRequest struct {
	Active bool `json:"active"`
}

// SetStatus toggles the billing-sourced active flag. Deactivating a member
// removes them from the roster on the next refresh; their record and
// check-in history are kept.
func (h *MembersHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	member, err := h.members.LookupByIdentity(r.Context(), email)
	if err != nil {
		log.Printf("looking up member %s: %v", sanitizeForLog(email), err)
		respondError(w, http.StatusInternalServerError, "failed to look up member")
		return
	}
	if member == nil {
		respondError(w, http.StatusNotFound, "member not found")
		return
	}

	if err := h.members.SetMembershipStatus(r.Context(), email, req.Active); err != nil {
		log.Printf("setting membership status for %s: %v", sanitizeForLog(email), err)
		respondError(w, http.StatusInternalServerError, "failed to update membership status")
		return
	}

	if h.refresher != nil {
		h.refresher.RequestRefresh()
	}

	respondJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}
