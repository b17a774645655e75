package handlers

import (
	"log"
	"net/http"
	"time"

	"gymgate/internal/database"
)

// atRiskAfter is how long an active member can go without a visit before
// the dashboard flags them as a churn risk.
const atRiskAfter = 7 * 24 * time.Hour

// StatsHandler serves the dashboard aggregates.
type StatsHandler struct {
	members database.MemberStore
	events  database.EventStore

	// now is swapped out in tests.
	now func() time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(members database.MemberStore, events database.EventStore) *StatsHandler {
	return &StatsHandler{
		members: members,
		events:  events,
		now:     time.Now,
	}
}

// VisitBucketResponse is one hour of the visit histogram.
type VisitBucketResponse struct {
	Hour   string `json:"hour"`
	Visits int    `json:"visits"`
}

// AtRiskMember is an active member who has not visited recently.
type AtRiskMember struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	LastSeen   string `json:"last_seen,omitempty"`
	DaysAbsent int    `json:"days_absent,omitempty"`
}

// StatsResponse represents the dashboard aggregates.
type StatsResponse struct {
	TotalMembers    int                   `json:"total_members"`
	ActiveMembers   int                   `json:"active_members"`
	EnrolledMembers int                   `json:"enrolled_members"`
	NewThisMonth    int                   `json:"new_this_month"`
	VisitsByHour    []VisitBucketResponse `json:"visits_by_hour"`
	AtRisk          []AtRiskMember        `json:"at_risk"`
}

// Get computes the dashboard aggregates: member counts, the hourly visit
// histogram for the last 24 hours, and active members with no recent visit.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()

	members, err := h.members.ListAll(r.Context())
	if err != nil {
		log.Printf("listing members for stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	buckets, err := h.events.VisitsByHour(r.Context(), now.Add(-24*time.Hour))
	if err != nil {
		log.Printf("computing visit histogram: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	lastSeen, err := h.events.LastSeen(r.Context())
	if err != nil {
		log.Printf("computing last-seen map: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	resp := StatsResponse{
		TotalMembers: len(members),
		VisitsByHour: make([]VisitBucketResponse, len(buckets)),
		AtRisk:       []AtRiskMember{},
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for _, m := range members {
		if m.MembershipActive {
			resp.ActiveMembers++
		}
		if len(m.Embedding) > 0 {
			resp.EnrolledMembers++
		}
		if !m.CreatedAt.Before(monthStart) {
			resp.NewThisMonth++
		}

		if !m.MembershipActive {
			continue
		}
		seen, ok := lastSeen[m.Email]
		switch {
		case !ok:
			// Never visited; only flag once the membership is old enough
			// that silence means something.
			if now.Sub(m.CreatedAt) >= atRiskAfter {
				resp.AtRisk = append(resp.AtRisk, AtRiskMember{Email: m.Email, Name: m.Name})
			}
		case now.Sub(seen) >= atRiskAfter:
			resp.AtRisk = append(resp.AtRisk, AtRiskMember{
				Email:      m.Email,
				Name:       m.Name,
				LastSeen:   seen.Format("2006-01-02T15:04:05Z07:00"),
				DaysAbsent: int(now.Sub(seen).Hours() / 24),
			})
		}
	}

	for i, b := range buckets {
		resp.VisitsByHour[i] = VisitBucketResponse{
			Hour:   b.Hour.Format("2006-01-02T15:04:05Z07:00"),
			Visits: b.Visits,
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
