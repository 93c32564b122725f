package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeChecker struct {
	err error
}

func (c *fakeChecker) Ping(_ context.Context) error { return c.err }

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		db, cache  error
		wantStatus int
		wantBody   string
	}{
		{"all healthy", nil, nil, http.StatusOK, "ok"},
		{"db down", errors.New("conn refused"), nil, http.StatusServiceUnavailable, "unhealthy"},
		{"cache down", nil, errors.New("conn refused"), http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthHandler(&fakeChecker{err: tt.db}, &fakeChecker{err: tt.cache})
			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var response HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatal(err)
			}
			if response.Status != tt.wantBody {
				t.Errorf("status field = %q, want %q", response.Status, tt.wantBody)
			}
		})
	}
}

func TestReadyz_NotConfigured(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when deps are not configured", rec.Code)
	}
}
