package gateway

import (
	"encoding/xml"
	"errors"
	"log/slog"
	"net/http"

	"observe/internal/domain"
)

// Problem is the client-facing view of an error.
type Problem struct {
	Status  int
	Code    string
	Message string
}

// StatusOf maps an error to its HTTP status and a sanitized message.
// Unknown errors are reported as internal errors.
func StatusOf(err error) Problem {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		return Problem{http.StatusUnauthorized, "unauthorized", "Authentication required."}
	case errors.Is(err, domain.ErrForbidden):
		return Problem{http.StatusForbidden, "forbidden", "User does not have permission to perform this action."}
	case errors.Is(err, domain.ErrPasswordMismatch):
		return Problem{http.StatusBadRequest, "password_mismatch", "Passwords are not identical."}
	case errors.Is(err, domain.ErrInvalidToken):
		return Problem{http.StatusBadRequest, "invalid_token", "The password reset link is invalid or has already been used."}
	case errors.As(err, &maxBytes):
		return Problem{http.StatusRequestEntityTooLarge, "payload_too_large", "Request entity too large."}
	case errors.Is(err, domain.ErrBadRequest):
		return Problem{http.StatusBadRequest, "bad_request", "Bad request."}
	case errors.Is(err, domain.ErrNotFound):
		return Problem{http.StatusNotFound, "not_found", "Not found."}
	case errors.Is(err, domain.ErrRateLimited):
		return Problem{http.StatusTooManyRequests, "rate_limited", "Too many requests."}
	case errors.Is(err, domain.ErrDeliveryFailed):
		return Problem{http.StatusServiceUnavailable, "delivery_failed", "Email could not be delivered."}
	case errors.Is(err, domain.ErrServiceUnavailable):
		return Problem{http.StatusServiceUnavailable, "service_unavailable", "Instrument is not available."}
	default:
		return Problem{http.StatusInternalServerError, "internal_error", "Internal server error."}
	}
}

// WriteError writes err as an XML error envelope.
func WriteError(w http.ResponseWriter, err error) {
	p := StatusOf(err)
	WriteProblem(w, p, 0)
}

// WriteProblem writes p as an XML error envelope. A positive retryAfter
// also sets the Retry-After header.
func WriteProblem(w http.ResponseWriter, p Problem, retryAfter int) {
	body, err := xml.Marshal(domain.ErrorResponse{
		Code:       p.Code,
		Message:    p.Message,
		RetryAfter: retryAfter,
	})
	if err != nil {
		slog.Error("encoding error response", "error", err)
		w.WriteHeader(p.Status)
		return
	}
	WriteXML(w, p.Status, append([]byte(xml.Header), body...))
}

// WriteXML writes an already encoded XML document.
func WriteXML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Debug("writing response body", "error", err)
	}
}
