// Package roster maintains the in-memory snapshot of members eligible for
// facial check-in. The cache isolates the matching loop from database
// latency: a failed refresh keeps the previous snapshot so the terminal
// keeps admitting against the last known-good roster.
package roster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"gymgate/internal/database"
)

// ErrFetch marks a failed roster refresh. The previous snapshot stays in
// place and the caller retries on the next tick.
var ErrFetch = errors.New("roster fetch failed")

// Cache holds the current set of eligible members. A refresh replaces the
// snapshot wholesale; partial updates never happen, so a matching attempt
// always sees a consistent roster.
type Cache struct {
	store database.MemberStore

	mu              sync.RWMutex
	members         []database.Member
	byEmail         map[string]*database.Member
	index           *Index
	lastRefreshedAt time.Time
}

// New creates an empty cache. Call Refresh before the first match; until
// then every probe is a no-match, which is a valid state for a freshly
// opened terminal.
func New(store database.MemberStore) *Cache {
	return &Cache{store: store, byEmail: make(map[string]*database.Member)}
}

// Refresh reloads all eligible members and atomically replaces the
// snapshot. On failure the previous snapshot is left intact and the error
// wraps ErrFetch.
func (c *Cache) Refresh(ctx context.Context) error {
	members, err := c.store.ListEligible(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}

	byEmail := make(map[string]*database.Member, len(members))
	for i := range members {
		byEmail[members[i].Email] = &members[i]
	}

	var index *Index
	if len(members) >= IndexMinSize {
		index = NewIndex()
		if err := index.Build(members); err != nil {
			// The linear scan still works; the index is only a fast path.
			index = nil
		}
	}

	c.mu.Lock()
	c.members = members
	c.byEmail = byEmail
	c.index = index
	c.lastRefreshedAt = time.Now().UTC()
	c.mu.Unlock()
	return nil
}

// Snapshot returns the current list of eligible members. The returned slice
// is replaced, never mutated, on refresh; callers must treat it as
// read-only.
func (c *Cache) Snapshot() []database.Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.members
}

// Len returns the number of eligible members currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

// LastRefreshedAt returns when the snapshot was last replaced, zero if never.
func (c *Cache) LastRefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefreshedAt
}

// LookupByEmail finds a cached eligible member by normalized email, or nil.
// Used by the credential admission path, which establishes identity by
// token instead of by distance.
func (c *Cache) LookupByEmail(email string) *database.Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byEmail[database.NormalizeIdentity(email)]
}

// Nearest returns the cached member closest to the probe embedding and the
// Euclidean distance to it. Returns (nil, +Inf) for an empty roster. Ties
// resolve to the first member seen at the minimum distance under iteration
// order; exact float ties are rare enough that this is the documented
// policy rather than an engineered tie-break.
func (c *Cache) Nearest(probe []float32) (*database.Member, float64) {
	c.mu.RLock()
	members := c.members
	index := c.index
	c.mu.RUnlock()

	if index != nil {
		if m, dist, ok := index.Nearest(probe); ok {
			return m, dist
		}
	}

	best := math.Inf(1)
	var bestMember *database.Member
	for i := range members {
		if d := database.EuclideanDistance(probe, members[i].Embedding); d < best {
			best = d
			bestMember = &members[i]
		}
	}
	return bestMember, best
}
