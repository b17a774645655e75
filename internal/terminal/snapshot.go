package terminal

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// SnapshotSource pulls frames from a camera's HTTP snapshot endpoint
// (most IP cameras and mjpg-streamer expose one).
type SnapshotSource struct {
	url    string
	client *http.Client
}

// NewSnapshotSource creates a frame source for the given snapshot URL.
func NewSnapshotSource(url string) *SnapshotSource {
	return &SnapshotSource{url: url, client: &http.Client{}}
}

// Frame fetches one frame.
func (s *SnapshotSource) Frame(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot returned status %d", resp.StatusCode)
	}

	frame, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return frame, nil
}
