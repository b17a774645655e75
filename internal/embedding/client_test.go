package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func faceServer(t *testing.T, resp faceResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file part", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestDetectFacePicksHighestScore(t *testing.T) {
	server := faceServer(t, faceResponse{
		FacesCount: 2,
		Faces: []faceDetection{
			{FaceIndex: 0, Embedding: []float32{1, 1}, DetScore: 0.55},
			{FaceIndex: 1, Embedding: []float32{2, 2}, DetScore: 0.91},
		},
	})
	defer server.Close()

	client := NewClient(server.URL, 2)
	emb, err := client.DetectFace(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatalf("DetectFace: %v", err)
	}
	if emb[0] != 2 || emb[1] != 2 {
		t.Errorf("embedding = %v, want the higher-scored face", emb)
	}
}

func TestDetectFaceNoFace(t *testing.T) {
	server := faceServer(t, faceResponse{FacesCount: 0})
	defer server.Close()

	client := NewClient(server.URL, 0)
	_, err := client.DetectFace(context.Background(), []byte("not really an image"))
	if !errors.Is(err, ErrNoFace) {
		t.Errorf("error = %v, want ErrNoFace", err)
	}
}

func TestDetectFaceDimensionMismatch(t *testing.T) {
	server := faceServer(t, faceResponse{
		FacesCount: 1,
		Faces:      []faceDetection{{Embedding: []float32{1, 2, 3}, DetScore: 0.9}},
	})
	defer server.Close()

	client := NewClient(server.URL, 128)
	_, err := client.DetectFace(context.Background(), []byte("frame"))
	if err == nil || errors.Is(err, ErrNoFace) {
		t.Errorf("expected dimension mismatch error, got %v", err)
	}
}

func TestDetectFaceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	_, err := client.DetectFace(context.Background(), []byte("frame"))
	if err == nil {
		t.Fatal("expected error on 500 response")
	}
	if errors.Is(err, ErrNoFace) {
		t.Error("a server failure must not be reported as no-face")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"webp", []byte{0x52, 0x49, 0x46, 0x46, 0, 0, 0, 0, 0x57, 0x45, 0x42, 0x50}, "image/webp"},
		{"unknown", []byte("plain text"), "application/octet-stream"},
		{"too short", []byte{0xFF}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.expected {
				t.Errorf("detectMIMEType = %q, want %q", got, tt.expected)
			}
		})
	}
}
