package database

import "time"

// EventKind distinguishes entry and exit records.
type EventKind string

const (
	KindEntry EventKind = "entry"
	KindExit  EventKind = "exit"
)

// Opposite returns the alternating kind: entry after exit, exit after entry.
func (k EventKind) Opposite() EventKind {
	if k == KindEntry {
		return KindExit
	}
	return KindEntry
}

// Valid reports whether k is one of the two known kinds.
func (k EventKind) Valid() bool {
	return k == KindEntry || k == KindExit
}

// Member is an identity known to the access system.
// Embedding is nil until biometric enrollment completes; MembershipActive
// mirrors the billing state and is toggled by external billing events.
type Member struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	Embedding        []float32
	MembershipActive bool
	CreatedAt        time.Time
}

// Eligible reports whether the member can be matched at the terminal:
// active membership and a completed biometric enrollment.
func (m *Member) Eligible() bool {
	return m.MembershipActive && len(m.Embedding) > 0
}

// AccessEvent is one entry or exit record. Events are append-only; the
// decision engine guarantees that kinds strictly alternate per member.
type AccessEvent struct {
	ID         string
	Email      string
	MemberName string
	Kind       EventKind
	Timestamp  time.Time
}

// VisitBucket is one hour of the visit histogram used by the dashboard.
type VisitBucket struct {
	Hour   time.Time
	Visits int
}
