package database

import (
	"context"
	"time"
)

// MemberStore is the member roster as seen by the access system.
// Lookups that find nothing return (nil, nil), not an error.
type MemberStore interface {
	// ListEligible returns all members with an active membership and a
	// stored face embedding. This is the full roster a terminal matches
	// against; ineligible members are filtered out store-side.
	ListEligible(ctx context.Context) ([]Member, error)

	// LookupByIdentity finds a member by their correlation key (email).
	// The identity is normalized before comparison.
	LookupByIdentity(ctx context.Context, identity string) (*Member, error)

	// UpsertEnrollment creates or updates a member record with a face
	// embedding, keyed by email. Used by the enrollment capture flow.
	UpsertEnrollment(ctx context.Context, m Member) error

	// SetMembershipStatus toggles the billing-sourced active flag.
	SetMembershipStatus(ctx context.Context, email string, active bool) error

	// ListAll returns every member record, active or not. History is
	// retained even after a membership lapses.
	ListAll(ctx context.Context) ([]Member, error)
}

// EventStore persists access events.
type EventStore interface {
	// MostRecent returns the member's latest event by timestamp, or
	// (nil, nil) when the member has never checked in.
	MostRecent(ctx context.Context, email string) (*AccessEvent, error)

	// Append stores a new event. Events are never mutated afterwards.
	Append(ctx context.Context, ev AccessEvent) error

	// Present returns the latest event per member for members whose
	// latest event is an entry, i.e. everyone currently inside.
	Present(ctx context.Context) ([]AccessEvent, error)

	// BulkCloseAll writes an exit for every member currently present and
	// returns how many exits were written. Used by the end-of-day action.
	BulkCloseAll(ctx context.Context) (int, error)

	// VisitsByHour returns per-hour entry counts since the given time,
	// for the dashboard histogram.
	VisitsByHour(ctx context.Context, since time.Time) ([]VisitBucket, error)

	// LastSeen returns the most recent event timestamp per member email.
	// Members with no events are absent from the map.
	LastSeen(ctx context.Context) (map[string]time.Time, error)
}
