package domain

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// Sentinel errors used across service boundaries.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInternal           = errors.New("internal error")
	ErrDeliveryFailed     = errors.New("delivery failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Refinements of ErrBadRequest.
var (
	ErrPasswordMismatch = fmt.Errorf("%w: passwords are not identical", ErrBadRequest)
	ErrInvalidToken     = fmt.Errorf("%w: invalid token", ErrBadRequest)
)

// ErrorResponse is the XML error envelope returned to clients.
type ErrorResponse struct {
	XMLName    xml.Name `xml:"error"`
	Code       string   `xml:"code"`
	Message    string   `xml:"message"`
	RetryAfter int      `xml:"retry_after,omitempty"`
}
