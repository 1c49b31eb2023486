package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps handler so that mw[0] sees the request first. Nil entries are
// skipped, which lets optional layers be switched off with When.
func Chain(handler http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		if mw[i] != nil {
			handler = mw[i](handler)
		}
	}
	return handler
}

// When returns mw if enabled holds and nil otherwise.
func When(enabled bool, mw Middleware) Middleware {
	if !enabled {
		return nil
	}
	return mw
}
