package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymgate/internal/config"
	"gymgate/internal/database"
	"gymgate/internal/database/mock"
	"gymgate/internal/roster"
)

func testGateConfig() config.GateConfig {
	return config.GateConfig{
		Threshold:   0.45,
		Cooldown:    5 * time.Minute,
		QuietWindow: 0, // unlock immediately in tests unless stated otherwise
	}
}

// newTestEngine builds an engine over a roster seeded with the given
// members and returns the engine, the event store, and a movable clock.
func newTestEngine(t *testing.T, cfg config.GateConfig, members ...database.Member) (*Engine, *mock.EventStore, *time.Time) {
	t.Helper()

	memberStore := mock.NewMemberStore()
	for _, m := range members {
		memberStore.AddMember(m)
	}
	cache := roster.New(memberStore)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("roster refresh: %v", err)
	}

	events := mock.NewEventStore()
	engine := New(cache, events, nil, cfg)

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }
	return engine, events, &now
}

func member(email string, embedding []float32) database.Member {
	return database.Member{
		Email:            email,
		Name:             email,
		Embedding:        embedding,
		MembershipActive: true,
	}
}

func TestExactMatchFirstEventIsEntry(t *testing.T) {
	// A probe identical to a cached embedding matches and the first
	// event for that member is an entry.
	engine, events, _ := newTestEngine(t, testGateConfig(), member("a@x.com", []float32{0, 0}))

	d, processed := engine.ProcessFace(context.Background(), []float32{0, 0})
	if !processed {
		t.Fatal("probe should have been processed")
	}
	if d.Status != StatusAccepted {
		t.Fatalf("status = %s, want accepted", d.Status)
	}
	if d.Member == nil || d.Member.Email != "a@x.com" {
		t.Fatalf("matched member = %+v, want a@x.com", d.Member)
	}
	if d.Kind != database.KindEntry {
		t.Errorf("first event kind = %s, want entry", d.Kind)
	}
	if d.Distance != 0 {
		t.Errorf("distance = %v, want 0", d.Distance)
	}

	evs := events.Events()
	if len(evs) != 1 || evs[0].Kind != database.KindEntry {
		t.Errorf("stored events = %+v, want one entry", evs)
	}
}

func TestCooldownRejectsWithRemainingWait(t *testing.T) {
	// Second attempt 10s after an accepted one, cooldown 300s.
	cfg := testGateConfig()
	cfg.Cooldown = 300 * time.Second
	engine, events, now := newTestEngine(t, cfg, member("a@x.com", []float32{0, 0}))

	if d, _ := engine.ProcessFace(context.Background(), []float32{0, 0}); d.Status != StatusAccepted {
		t.Fatalf("first attempt status = %s, want accepted", d.Status)
	}

	*now = now.Add(10 * time.Second)
	d, processed := engine.ProcessFace(context.Background(), []float32{0, 0})
	if !processed {
		t.Fatal("probe should have been processed")
	}
	if d.Status != StatusTooSoon {
		t.Fatalf("status = %s, want too_soon", d.Status)
	}
	if d.Remaining != 290*time.Second {
		t.Errorf("remaining = %v, want 290s", d.Remaining)
	}
	if len(events.Events()) != 1 {
		t.Errorf("a too-soon attempt must not write an event, have %d", len(events.Events()))
	}
}

func TestAlternationAfterCooldown(t *testing.T) {
	// Accepted attempts outside the cooldown window strictly alternate
	// entry, exit, entry, ...
	engine, events, now := newTestEngine(t, testGateConfig(), member("a@x.com", []float32{0, 0}))

	expected := []database.EventKind{
		database.KindEntry, database.KindExit,
		database.KindEntry, database.KindExit,
	}
	for i, want := range expected {
		d, _ := engine.ProcessFace(context.Background(), []float32{0, 0})
		if d.Status != StatusAccepted {
			t.Fatalf("attempt %d status = %s, want accepted", i, d.Status)
		}
		if d.Kind != want {
			t.Fatalf("attempt %d kind = %s, want %s", i, d.Kind, want)
		}
		*now = now.Add(6 * time.Minute)
	}

	evs := events.Events()
	if len(evs) != len(expected) {
		t.Fatalf("stored %d events, want %d", len(evs), len(expected))
	}
	for i, ev := range evs {
		if ev.Kind != expected[i] {
			t.Errorf("event %d kind = %s, want %s", i, ev.Kind, expected[i])
		}
	}
}

func TestEmptyRosterIsNoMatch(t *testing.T) {
	// An empty roster is a valid state, every probe no-matches.
	engine, events, _ := newTestEngine(t, testGateConfig())

	d, processed := engine.ProcessFace(context.Background(), []float32{1, 2})
	if !processed {
		t.Fatal("probe should have been processed")
	}
	if d.Status != StatusNoMatch {
		t.Errorf("status = %s, want no_match", d.Status)
	}
	if len(events.Events()) != 0 {
		t.Error("no event may be written on no-match")
	}
}

func TestDistanceAboveThresholdIsNoMatch(t *testing.T) {
	// Nearest member at distance 0.50 with threshold 0.45.
	engine, events, _ := newTestEngine(t, testGateConfig(), member("a@x.com", []float32{0, 0}))

	d, _ := engine.ProcessFace(context.Background(), []float32{0.5, 0})
	if d.Status != StatusNoMatch {
		t.Fatalf("status = %s, want no_match", d.Status)
	}
	if len(events.Events()) != 0 {
		t.Error("no event may be written above the threshold")
	}
}

func TestThresholdIsExclusive(t *testing.T) {
	// A candidate exactly at the threshold is rejected; acceptance
	// requires strictly below.
	engine, _, _ := newTestEngine(t, testGateConfig(), member("a@x.com", []float32{0, 0}))

	d, _ := engine.ProcessFace(context.Background(), []float32{0.45, 0})
	if d.Status != StatusNoMatch {
		t.Errorf("distance == threshold should not match, got %s", d.Status)
	}
}

func TestNearestMemberWins(t *testing.T) {
	engine, _, _ := newTestEngine(t, testGateConfig(),
		member("near@x.com", []float32{0.1, 0}),
		member("far@x.com", []float32{0.3, 0}),
	)

	d, _ := engine.ProcessFace(context.Background(), []float32{0, 0})
	if d.Status != StatusAccepted || d.Member.Email != "near@x.com" {
		t.Errorf("want nearest member accepted, got %s %+v", d.Status, d.Member)
	}
}

func TestProbeDroppedWhileLocked(t *testing.T) {
	// Single-flight: a probe arriving while Locked produces no decision
	// and no event.
	cfg := testGateConfig()
	cfg.QuietWindow = time.Hour
	engine, events, _ := newTestEngine(t, cfg, member("a@x.com", []float32{0, 0}))

	if _, processed := engine.ProcessFace(context.Background(), []float32{0, 0}); !processed {
		t.Fatal("first probe should be processed")
	}
	if !engine.Busy() {
		t.Fatal("engine should stay Locked for the quiet window")
	}

	_, processed := engine.ProcessFace(context.Background(), []float32{0, 0})
	if processed {
		t.Error("probe during the quiet window must be dropped")
	}
	if len(events.Events()) != 1 {
		t.Errorf("dropped probe wrote an event; have %d events", len(events.Events()))
	}
}

func TestQuietWindowReleasesLock(t *testing.T) {
	cfg := testGateConfig()
	cfg.QuietWindow = 10 * time.Millisecond
	engine, _, _ := newTestEngine(t, cfg, member("a@x.com", []float32{0, 0}))

	engine.ProcessFace(context.Background(), []float32{0, 0})
	if !engine.Busy() {
		t.Fatal("engine should be Locked right after a decision")
	}

	deadline := time.Now().Add(time.Second)
	for engine.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("engine never unlocked after the quiet window")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAppendFailureIsSyncErrorNotAccepted(t *testing.T) {
	engine, events, _ := newTestEngine(t, testGateConfig(), member("a@x.com", []float32{0, 0}))
	events.AppendError = errors.New("disk on fire")

	d, _ := engine.ProcessFace(context.Background(), []float32{0, 0})
	if d.Status != StatusSyncError {
		t.Fatalf("status = %s, want sync_error", d.Status)
	}
	if d.Err == nil {
		t.Error("sync error decision should carry the cause")
	}
	if d.Accepted() {
		t.Error("a failed write must not count as accepted")
	}

	// The store recovers; the next attempt is still the first entry.
	events.AppendError = nil
	d, _ = engine.ProcessFace(context.Background(), []float32{0, 0})
	if d.Status != StatusAccepted || d.Kind != database.KindEntry {
		t.Errorf("after recovery: status = %s kind = %s, want accepted entry", d.Status, d.Kind)
	}
}

func TestReadFailureIsSyncError(t *testing.T) {
	engine, events, _ := newTestEngine(t, testGateConfig(), member("a@x.com", []float32{0, 0}))
	events.MostRecentError = errors.New("timeout")

	d, _ := engine.ProcessFace(context.Background(), []float32{0, 0})
	if d.Status != StatusSyncError {
		t.Errorf("status = %s, want sync_error", d.Status)
	}
}

type staticDecoder struct {
	identity string
	err      error
}

func (d staticDecoder) Decode(string) (string, error) {
	return d.identity, d.err
}

func TestTokenPathSharesAdmissionRules(t *testing.T) {
	memberStore := mock.NewMemberStore()
	memberStore.AddMember(member("ana@x.com", []float32{0, 0}))
	cache := roster.New(memberStore)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("roster refresh: %v", err)
	}
	events := mock.NewEventStore()

	engine := New(cache, events, staticDecoder{identity: "ana@x.com"}, testGateConfig())
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return base }

	d, processed := engine.ProcessToken(context.Background(), "whatever")
	if !processed {
		t.Fatal("token should have been processed")
	}
	if d.Status != StatusAccepted || d.Kind != database.KindEntry {
		t.Fatalf("status = %s kind = %s, want accepted entry", d.Status, d.Kind)
	}

	// Cooldown applies identically to the token path.
	d, _ = engine.ProcessToken(context.Background(), "whatever")
	if d.Status != StatusTooSoon {
		t.Errorf("second scan status = %s, want too_soon", d.Status)
	}
}

func TestTokenDecodeFailure(t *testing.T) {
	memberStore := mock.NewMemberStore()
	cache := roster.New(memberStore)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("roster refresh: %v", err)
	}
	events := mock.NewEventStore()

	engine := New(cache, events, staticDecoder{err: errors.New("garbage")}, testGateConfig())

	d, _ := engine.ProcessToken(context.Background(), "not json")
	if d.Status != StatusInvalidToken {
		t.Errorf("status = %s, want invalid_token", d.Status)
	}
	if len(events.Events()) != 0 {
		t.Error("invalid token must not write an event")
	}
}

func TestTokenForUnknownIdentityIsNoMatch(t *testing.T) {
	engine, events, _ := newTestEngine(t, testGateConfig(), member("ana@x.com", []float32{0, 0}))
	engine.decoder = staticDecoder{identity: "stranger@x.com"}

	d, _ := engine.ProcessToken(context.Background(), "whatever")
	if d.Status != StatusNoMatch {
		t.Errorf("status = %s, want no_match", d.Status)
	}
	if len(events.Events()) != 0 {
		t.Error("unknown identity must not write an event")
	}
}

func TestNotifySeesEveryDecision(t *testing.T) {
	engine, _, _ := newTestEngine(t, testGateConfig(), member("a@x.com", []float32{0, 0}))

	var got []Status
	engine.SetNotify(func(d Decision) { got = append(got, d.Status) })

	engine.ProcessFace(context.Background(), []float32{0, 0})
	engine.ProcessFace(context.Background(), []float32{9, 9})

	if len(got) != 2 || got[0] != StatusAccepted || got[1] != StatusNoMatch {
		t.Errorf("notified statuses = %v, want [accepted no_match]", got)
	}
}
