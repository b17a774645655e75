// Package mock provides in-memory implementations of the database store
// interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gymgate/internal/database"
)

// MemberStore is a mock implementation of database.MemberStore.
type MemberStore struct {
	mu      sync.RWMutex
	members map[string]*database.Member // keyed by normalized email

	// Error injection
	ListEligibleError error
	LookupError       error
	UpsertError       error
	SetStatusError    error
	ListAllError      error
}

// NewMemberStore creates an empty mock member store.
func NewMemberStore() *MemberStore {
	return &MemberStore{members: make(map[string]*database.Member)}
}

// AddMember seeds a member into the mock store.
func (s *MemberStore) AddMember(m database.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Email = database.NormalizeIdentity(m.Email)
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	s.members[m.Email] = &m
}

// ListEligible returns members with active membership and an embedding.
func (s *MemberStore) ListEligible(ctx context.Context) ([]database.Member, error) {
	if s.ListEligibleError != nil {
		return nil, s.ListEligibleError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.Member
	for _, m := range s.members {
		if m.Eligible() {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// LookupByIdentity finds a member by email, returning (nil, nil) when absent.
func (s *MemberStore) LookupByIdentity(ctx context.Context, identity string) (*database.Member, error) {
	if s.LookupError != nil {
		return nil, s.LookupError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[database.NormalizeIdentity(identity)]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

// UpsertEnrollment creates or updates a member keyed by email.
func (s *MemberStore) UpsertEnrollment(ctx context.Context, m database.Member) error {
	if s.UpsertError != nil {
		return s.UpsertError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Email = database.NormalizeIdentity(m.Email)
	if existing, ok := s.members[m.Email]; ok {
		// Empty fields keep the stored values, matching the COALESCE
		// behavior of the postgres repository.
		if m.Name != "" {
			existing.Name = m.Name
		}
		if m.Phone != "" {
			existing.Phone = m.Phone
		}
		if len(m.Embedding) > 0 {
			existing.Embedding = m.Embedding
		}
		existing.MembershipActive = m.MembershipActive
		return nil
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.members[m.Email] = &m
	return nil
}

// SetMembershipStatus toggles the active flag for a member.
func (s *MemberStore) SetMembershipStatus(ctx context.Context, email string, active bool) error {
	if s.SetStatusError != nil {
		return s.SetStatusError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.members[database.NormalizeIdentity(email)]; ok {
		m.MembershipActive = active
	}
	return nil
}

// ListAll returns every member.
func (s *MemberStore) ListAll(ctx context.Context) ([]database.Member, error) {
	if s.ListAllError != nil {
		return nil, s.ListAllError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]database.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// EventStore is a mock implementation of database.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	events []database.AccessEvent

	// Error injection
	MostRecentError   error
	AppendError       error
	PresentError      error
	BulkCloseError    error
	VisitsByHourError error
	LastSeenError     error
}

// NewEventStore creates an empty mock event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Events returns a copy of everything appended so far, in insertion order.
func (s *EventStore) Events() []database.AccessEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]database.AccessEvent, len(s.events))
	copy(out, s.events)
	return out
}

// MostRecent returns the latest event for a member, or (nil, nil).
func (s *EventStore) MostRecent(ctx context.Context, email string) (*database.AccessEvent, error) {
	if s.MostRecentError != nil {
		return nil, s.MostRecentError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = database.NormalizeIdentity(email)
	var latest *database.AccessEvent
	for i := range s.events {
		ev := &s.events[i]
		if ev.Email != email {
			continue
		}
		if latest == nil || ev.Timestamp.After(latest.Timestamp) {
			latest = ev
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// Append stores a new event.
func (s *EventStore) Append(ctx context.Context, ev database.AccessEvent) error {
	if s.AppendError != nil {
		return s.AppendError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ev.Email = database.NormalizeIdentity(ev.Email)
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	s.events = append(s.events, ev)
	return nil
}

// latestPerMember returns the most recent event per email. Callers hold the lock.
func (s *EventStore) latestPerMember() map[string]database.AccessEvent {
	latest := make(map[string]database.AccessEvent)
	for _, ev := range s.events {
		if cur, ok := latest[ev.Email]; !ok || ev.Timestamp.After(cur.Timestamp) {
			latest[ev.Email] = ev
		}
	}
	return latest
}

// Present returns the latest event per member where that event is an entry.
func (s *EventStore) Present(ctx context.Context) ([]database.AccessEvent, error) {
	if s.PresentError != nil {
		return nil, s.PresentError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.AccessEvent
	for _, ev := range s.latestPerMember() {
		if ev.Kind == database.KindEntry {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// BulkCloseAll writes an exit for everyone currently present.
func (s *EventStore) BulkCloseAll(ctx context.Context) (int, error) {
	if s.BulkCloseError != nil {
		return 0, s.BulkCloseError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	closed := 0
	for _, ev := range s.latestPerMember() {
		if ev.Kind != database.KindEntry {
			continue
		}
		s.events = append(s.events, database.AccessEvent{
			ID:         uuid.NewString(),
			Email:      ev.Email,
			MemberName: ev.MemberName,
			Kind:       database.KindExit,
			Timestamp:  now,
		})
		closed++
	}
	return closed, nil
}

// VisitsByHour counts entries per hour since the given time.
func (s *EventStore) VisitsByHour(ctx context.Context, since time.Time) ([]database.VisitBucket, error) {
	if s.VisitsByHourError != nil {
		return nil, s.VisitsByHourError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[time.Time]int)
	for _, ev := range s.events {
		if ev.Kind != database.KindEntry || ev.Timestamp.Before(since) {
			continue
		}
		counts[ev.Timestamp.UTC().Truncate(time.Hour)]++
	}

	out := make([]database.VisitBucket, 0, len(counts))
	for hour, n := range counts {
		out = append(out, database.VisitBucket{Hour: hour, Visits: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour) })
	return out, nil
}

// LastSeen returns the most recent event timestamp per member email.
func (s *EventStore) LastSeen(ctx context.Context) (map[string]time.Time, error) {
	if s.LastSeenError != nil {
		return nil, s.LastSeenError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]time.Time)
	for email, ev := range s.latestPerMember() {
		out[email] = ev.Timestamp
	}
	return out, nil
}
