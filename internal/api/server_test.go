package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"empire/internal/auth"
	"empire/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr, err := auth.NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}
	return New(config.APIConfig{Addr: ":0"}, nil, mgr, nil)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status got %d", rec.Code)
	}
}

func TestAuthedRoutesRejectMissingToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/v1/dashboard", "/v1/loans", "/v1/market", "/v1/studio/projects"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status got %d want 401", path, rec.Code)
		}
	}
}

func TestAuthedRoutesRejectBadToken(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status got %d want 401", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc123", want: "abc123"},
		{header: "bearer abc123", want: "abc123"},
		{header: "abc123", want: ""},
		{header: "", want: ""},
	}
	for _, tc := range tests {
		if got := bearerToken(tc.header); got != tc.want {
			t.Fatalf("header=%q got=%q want=%q", tc.header, got, tc.want)
		}
	}
}
