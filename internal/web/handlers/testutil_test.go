package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

// requestWithChiParams attaches chi URL parameters to a request.
func requestWithChiParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d (body: %s)", expected, recorder.Code, recorder.Body.String())
	}
}

func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, expected) {
		t.Errorf("expected content type %q, got %q", expected, ct)
	}
}

func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), dest); err != nil {
		t.Fatalf("failed to parse JSON response: %v (body: %s)", err, recorder.Body.String())
	}
}

func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	var resp map[string]string
	parseJSONResponse(t, recorder, &resp)
	if resp["error"] != expected {
		t.Errorf("expected error %q, got %q", expected, resp["error"])
	}
}
