package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"gymgate/internal/gate"
)

// Broadcaster fans every finalized decision out to SSE listeners, giving
// the front-desk dashboard a live attendance feed. Wire its Publish method
// into the engine with SetNotify.
type Broadcaster struct {
	mu        sync.Mutex
	listeners map[chan gate.Decision]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[chan gate.Decision]struct{})}
}

// Publish delivers a decision to every listener. A listener that cannot
// keep up loses the event rather than blocking the decision path.
func (b *Broadcaster) Publish(d gate.Decision) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.listeners {
		select {
		case ch <- d:
		default:
		}
	}
}

// AddListener registers a new listener channel.
func (b *Broadcaster) AddListener() chan gate.Decision {
	ch := make(chan gate.Decision, 16)
	b.mu.Lock()
	b.listeners[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// RemoveListener unregisters a listener channel.
func (b *Broadcaster) RemoveListener(ch chan gate.Decision) {
	b.mu.Lock()
	delete(b.listeners, ch)
	b.mu.Unlock()
}

// sendSSEEvent writes one server-sent event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}

// LiveHandler streams decisions over SSE.
type LiveHandler struct {
	broadcaster *Broadcaster
}

// NewLiveHandler creates a new live feed handler.
func NewLiveHandler(b *Broadcaster) *LiveHandler {
	return &LiveHandler{broadcaster: b}
}

// Events streams every finalized decision to the client until it
// disconnects.
func (h *LiveHandler) Events(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch := h.broadcaster.AddListener()
	defer h.broadcaster.RemoveListener(ch)

	sendSSEEvent(w, flusher, "connected", map[string]string{"status": "listening"})

	for {
		select {
		case <-r.Context().Done():
			return
		case d := <-ch:
			sendSSEEvent(w, flusher, "decision", decisionToResponse(d))
		}
	}
}
