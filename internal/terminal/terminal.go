// Package terminal runs the check-in kiosk capture loop: sample a camera
// frame on a fixed tick, extract a face embedding, and hand it to the
// decision engine. One loop per terminal; concurrency only exists across
// independent terminals sharing the event store.
package terminal

import (
	"context"
	"errors"
	"log"
	"time"

	"gymgate/internal/embedding"
	"gymgate/internal/gate"
	"gymgate/internal/roster"
)

// FrameSource yields the most recent camera frame. Implementations block
// at most briefly; a slow camera should return its last frame.
type FrameSource interface {
	Frame(ctx context.Context) ([]byte, error)
}

// Extractor turns a frame into a face embedding. embedding.Client is the
// production implementation.
type Extractor interface {
	DetectFace(ctx context.Context, frame []byte) ([]float32, error)
}

// Feedback receives every finalized decision for display.
type Feedback func(gate.Decision)

// Loop is the cooperative polling loop feeding one engine.
type Loop struct {
	frames    FrameSource
	extractor Extractor
	engine    *gate.Engine
	roster    *roster.Cache
	feedback  Feedback

	tick         time.Duration
	refreshEvery time.Duration
	refreshCh    chan struct{}
}

// NewLoop wires a capture loop. feedback may be nil.
func NewLoop(frames FrameSource, extractor Extractor, engine *gate.Engine, rc *roster.Cache, tick, refreshEvery time.Duration, feedback Feedback) *Loop {
	return &Loop{
		frames:       frames,
		extractor:    extractor,
		engine:       engine,
		roster:       rc,
		feedback:     feedback,
		tick:         tick,
		refreshEvery: refreshEvery,
		refreshCh:    make(chan struct{}, 1),
	}
}

// RequestRefresh asks the loop to reload the roster before its next
// periodic refresh, e.g. after an enrollment or a billing change.
// Non-blocking; coalesces with a pending request.
func (l *Loop) RequestRefresh() {
	select {
	case l.refreshCh <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled. No single failure stops the loop:
// the worst outcome of any cycle is that no check-in was recorded.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.roster.Refresh(ctx); err != nil {
		// Matching proceeds against an empty (or stale) roster until a
		// refresh succeeds.
		log.Printf("initial roster refresh failed: %v", err)
	} else {
		log.Printf("roster loaded: %d eligible members", l.roster.Len())
	}

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()
	refresh := time.NewTicker(l.refreshEvery)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-refresh.C:
			l.refreshRoster(ctx)
		case <-l.refreshCh:
			l.refreshRoster(ctx)
		case <-ticker.C:
			l.sample(ctx)
		}
	}
}

func (l *Loop) refreshRoster(ctx context.Context) {
	if err := l.roster.Refresh(ctx); err != nil {
		log.Printf("roster refresh failed, keeping previous snapshot: %v", err)
	}
}

// sample runs one capture cycle.
func (l *Loop) sample(ctx context.Context) {
	if l.engine.Busy() {
		// Quiet window still running; skip the frame entirely.
		return
	}

	frame, err := l.frames.Frame(ctx)
	if err != nil {
		log.Printf("frame capture failed: %v", err)
		return
	}

	probe, err := l.extractor.DetectFace(ctx, frame)
	if errors.Is(err, embedding.ErrNoFace) {
		// No attempt this cycle.
		return
	}
	if err != nil {
		log.Printf("embedding extraction failed: %v", err)
		return
	}

	if d, processed := l.engine.ProcessFace(ctx, probe); processed && l.feedback != nil {
		l.feedback(d)
	}
}

// Scan feeds one scanned credential token through the engine, for
// terminals with a QR reader attached alongside the camera.
func (l *Loop) Scan(ctx context.Context, token string) {
	if d, processed := l.engine.ProcessToken(ctx, token); processed && l.feedback != nil {
		l.feedback(d)
	}
}
