package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"observe/internal/gateway"
	"observe/internal/gateway/middleware"
)

func TestRequestIDSetsHeader(t *testing.T) {
	var capturedID string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = gateway.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if capturedID == "" {
		t.Error("expected request ID in context")
	}

	// Should also be set as response header
	if rec.Header().Get("X-Request-ID") != capturedID {
		t.Errorf("expected X-Request-ID header %q, got %q", capturedID, rec.Header().Get("X-Request-ID"))
	}
}

func TestRequestIDPreservesExisting(t *testing.T) {
	var capturedID string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = gateway.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "existing-id")
	handler.ServeHTTP(rec, req)

	if capturedID != "existing-id" {
		t.Errorf("expected preserved request ID 'existing-id', got %q", capturedID)
	}
}

func TestRequestIDReplacesInvalid(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"too long", strings.Repeat("a", 129)},
		{"contains space", "bad id"},
		{"control character", "bad\x01id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedID string
			handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedID = gateway.RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", tt.id)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if capturedID == tt.id {
				t.Error("expected invalid request ID to be replaced")
			}
			if _, err := uuid.Parse(capturedID); err != nil {
				t.Errorf("expected generated UUID, got %q", capturedID)
			}
		})
	}
}
