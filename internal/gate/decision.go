package gate

import (
	"time"

	"gymgate/internal/database"
)

// Status classifies the outcome of one admission attempt. Only
// StatusSyncError represents a real failure; the rest are expected
// outcomes the terminal turns into feedback.
type Status string

const (
	// StatusAccepted means an access event was written.
	StatusAccepted Status = "accepted"

	// StatusNoMatch means no eligible member was close enough, or the
	// claimed identity is not on the eligible roster.
	StatusNoMatch Status = "no_match"

	// StatusTooSoon means the member's last event is inside the cooldown
	// window; no event was written.
	StatusTooSoon Status = "too_soon"

	// StatusInvalidToken means the scanned credential could not be
	// decoded; no identity was established this cycle.
	StatusInvalidToken Status = "invalid_token"

	// StatusSyncError means the event store failed; the attempt is not
	// accepted and the terminal shows a distinct try-again state.
	StatusSyncError Status = "sync_error"
)

// Decision is the outcome of one processed probe or token.
type Decision struct {
	Status    Status
	Member    *database.Member   // set for accepted and too-soon outcomes
	Kind      database.EventKind // set when accepted
	Distance  float64            // face path only; 0 for the token path
	Remaining time.Duration      // set when too soon
	Timestamp time.Time
	Err       error // set on sync errors
}

// Accepted reports whether an event was written for this decision.
func (d Decision) Accepted() bool {
	return d.Status == StatusAccepted
}
