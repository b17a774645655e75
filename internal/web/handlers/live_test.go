package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gymgate/internal/database"
	"gymgate/internal/gate"
)

func TestBroadcaster_Publish(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddListener()
	defer b.RemoveListener(ch)

	b.Publish(gate.Decision{Status: gate.StatusAccepted, Kind: database.KindEntry})

	select {
	case d := <-ch:
		if d.Status != gate.StatusAccepted {
			t.Errorf("received decision %+v", d)
		}
	case <-time.After(time.Second):
		t.Fatal("listener never received the decision")
	}
}

func TestBroadcaster_SlowListenerDoesNotBlock(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddListener()
	defer b.RemoveListener(ch)

	// Overflow the listener buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(gate.Decision{Status: gate.StatusNoMatch})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow listener")
	}
}

func TestBroadcaster_RemoveListener(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddListener()
	b.RemoveListener(ch)

	b.Publish(gate.Decision{Status: gate.StatusAccepted})

	select {
	case <-ch:
		t.Error("removed listener still received a decision")
	default:
	}
}

func TestLiveHandler_StreamsDecisions(t *testing.T) {
	b := NewBroadcaster()
	handler := NewLiveHandler(b)

	server := httptest.NewServer(http.HandlerFunc(handler.Events))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", server.URL, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)

	// First event announces the connection.
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if !strings.HasPrefix(line, "event: connected") {
		t.Fatalf("first line = %q", line)
	}

	// Publish once the listener is registered, then expect a decision event.
	go func() {
		for i := 0; i < 20; i++ {
			b.Publish(gate.Decision{
				Status:    gate.StatusAccepted,
				Member:    &database.Member{Email: "ana@example.com", Name: "Ana"},
				Kind:      database.KindEntry,
				Timestamp: time.Now(),
			})
			time.Sleep(50 * time.Millisecond)
		}
	}()

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		if strings.HasPrefix(line, "event: decision") {
			data, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("reading data line: %v", err)
			}
			if !strings.Contains(data, `"ana@example.com"`) {
				t.Errorf("data line = %q", data)
			}
			return
		}
	}
}
