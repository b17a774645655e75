package handlers

import (
	"log"
	"net/http"

	"gymgate/internal/database"
)

// PresenceHandler answers who is currently inside and runs the end-of-day
// close-out for members who left without checking out.
type PresenceHandler struct {
	events database.EventStore
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(events database.EventStore) *PresenceHandler {
	return &PresenceHandler{events: events}
}

// PresentMember represents one member currently inside.
type PresentMember struct {
	Email      string `json:"email"`
	MemberName string `json:"member_name"`
	EnteredAt  string `json:"entered_at"`
}

// List returns everyone whose latest event is an entry.
func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	present, err := h.events.Present(r.Context())
	if err != nil {
		log.Printf("listing present members: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list present members")
		return
	}

	response := make([]PresentMember, len(present))
	for i, ev := range present {
		response[i] = PresentMember{
			Email:      ev.Email,
			MemberName: ev.MemberName,
			EnteredAt:  ev.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	respondJSON(w, http.StatusOK, response)
}

// CloseDay writes an exit for every member still marked present. Run at
// closing time so forgotten check-outs do not poison the next day's
// direction inference.
func (h *PresenceHandler) CloseDay(w http.ResponseWriter, r *http.Request) {
	closed, err := h.events.BulkCloseAll(r.Context())
	if err != nil {
		log.Printf("closing day: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to close day")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"closed": closed})
}
