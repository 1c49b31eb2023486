package middleware_test

import (
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"testing"

	"observe/internal/domain"
	"observe/internal/gateway/middleware"
)

func TestRecoveryFromPanic(t *testing.T) {
	handler := middleware.Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went wrong")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}

	var errResp domain.ErrorResponse
	if err := xml.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if errResp.Code != "internal_error" {
		t.Errorf("expected code 'internal_error', got %q", errResp.Code)
	}
}

func TestRecoveryNoPanic(t *testing.T) {
	handler := middleware.Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRecoveryRepanicsOnAbort(t *testing.T) {
	handler := middleware.Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if err := recover(); err != http.ErrAbortHandler {
			t.Errorf("expected ErrAbortHandler to propagate, got %v", err)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRecoveryAbortsStartedResponse(t *testing.T) {
	handler := middleware.Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte("<telescope_info>"))
		panic("decoder blew up")
	}))

	rec := httptest.NewRecorder()
	defer func() {
		if err := recover(); err != http.ErrAbortHandler {
			t.Errorf("expected the connection to be aborted, got %v", err)
		}
		if rec.Body.String() != "<telescope_info>" {
			t.Errorf("no error document may follow a started body, got %q", rec.Body.String())
		}
	}()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/telescope", nil))
}
