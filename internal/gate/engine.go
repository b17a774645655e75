// Package gate decides whether one identified person gets an access event.
// The engine processes at most one probe at a time per terminal, matches
// face embeddings against the roster cache, and applies the per-member
// cooldown and entry/exit alternation before writing anything.
package gate

import (
	"context"
	"sync/atomic"
	"time"

	"gymgate/internal/config"
	"gymgate/internal/database"
	"gymgate/internal/roster"
)

// CredentialDecoder turns a scanned token into a claimed identity (email).
// Any returned error means no identity was established this cycle.
type CredentialDecoder interface {
	Decode(token string) (string, error)
}

// Engine is the per-terminal access decision engine. It is either Idle or
// Locked: a probe arriving while a previous one is being processed is
// dropped, not queued. After each decision the engine stays Locked for a
// quiet window so the person in front of the sensor can step away before
// the next scan counts.
type Engine struct {
	roster  *roster.Cache
	events  database.EventStore
	decoder CredentialDecoder
	cfg     config.GateConfig

	locked atomic.Bool
	notify atomic.Pointer[func(Decision)]

	// now is swapped out in tests.
	now func() time.Time
}

// New creates an engine. decoder may be nil when the terminal has no
// credential scanner; ProcessToken then rejects every token.
func New(rc *roster.Cache, events database.EventStore, decoder CredentialDecoder, cfg config.GateConfig) *Engine {
	return &Engine{
		roster:  rc,
		events:  events,
		decoder: decoder,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetNotify registers a callback invoked with every finalized decision,
// used by the live attendance feed. Safe to call concurrently.
func (e *Engine) SetNotify(fn func(Decision)) {
	e.notify.Store(&fn)
}

// Busy reports whether the engine is currently Locked.
func (e *Engine) Busy() bool {
	return e.locked.Load()
}

// ProcessFace matches one probe embedding against the roster and, on a
// match, runs the admission rules. The second return value is false when
// the probe was dropped because the engine was Locked; dropped probes
// produce no decision and no event.
func (e *Engine) ProcessFace(ctx context.Context, probe []float32) (Decision, bool) {
	if !e.acquire() {
		return Decision{}, false
	}

	member, dist := e.roster.Nearest(probe)
	if member == nil || dist >= e.cfg.Threshold {
		return e.finish(Decision{Status: StatusNoMatch, Distance: dist, Timestamp: e.now().UTC()}), true
	}

	d := e.admit(ctx, member)
	d.Distance = dist
	return e.finish(d), true
}

// ProcessToken decodes a scanned credential and, when the claimed identity
// is on the eligible roster, runs the same admission rules as the face
// path. Identity establishment and admission are deliberately separate
// stages; only the first differs between the two paths.
func (e *Engine) ProcessToken(ctx context.Context, token string) (Decision, bool) {
	if !e.acquire() {
		return Decision{}, false
	}

	if e.decoder == nil {
		return e.finish(Decision{Status: StatusInvalidToken, Timestamp: e.now().UTC()}), true
	}
	identity, err := e.decoder.Decode(token)
	if err != nil {
		return e.finish(Decision{Status: StatusInvalidToken, Timestamp: e.now().UTC()}), true
	}

	member := e.roster.LookupByEmail(identity)
	if member == nil {
		return e.finish(Decision{Status: StatusNoMatch, Timestamp: e.now().UTC()}), true
	}

	return e.finish(e.admit(ctx, member)), true
}

// admit applies the cooldown and direction-inference rules to an already
// identified member and persists the resulting event.
func (e *Engine) admit(ctx context.Context, member *database.Member) Decision {
	now := e.now().UTC()

	last, err := e.events.MostRecent(ctx, member.Email)
	if err != nil {
		return Decision{Status: StatusSyncError, Member: member, Timestamp: now, Err: err}
	}

	if last != nil {
		if elapsed := now.Sub(last.Timestamp); elapsed < e.cfg.Cooldown {
			return Decision{
				Status:    StatusTooSoon,
				Member:    member,
				Remaining: e.cfg.Cooldown - elapsed,
				Timestamp: now,
			}
		}
	}

	kind := database.KindEntry
	if last != nil {
		kind = last.Kind.Opposite()
	}

	ev := database.AccessEvent{
		Email:      member.Email,
		MemberName: member.Name,
		Kind:       kind,
		Timestamp:  now,
	}
	if err := e.events.Append(ctx, ev); err != nil {
		// Not accepted: no optimistic local state on a failed write.
		return Decision{Status: StatusSyncError, Member: member, Timestamp: now, Err: err}
	}

	return Decision{Status: StatusAccepted, Member: member, Kind: kind, Timestamp: now}
}

// acquire attempts the Idle -> Locked transition.
func (e *Engine) acquire() bool {
	return e.locked.CompareAndSwap(false, true)
}

// finish publishes the decision and schedules the Locked -> Idle
// transition after the quiet window.
func (e *Engine) finish(d Decision) Decision {
	if fn := e.notify.Load(); fn != nil && *fn != nil {
		(*fn)(d)
	}
	if e.cfg.QuietWindow > 0 {
		time.AfterFunc(e.cfg.QuietWindow, func() { e.locked.Store(false) })
	} else {
		e.locked.Store(false)
	}
	return d
}
