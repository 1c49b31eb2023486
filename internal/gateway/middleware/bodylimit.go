package middleware

import (
	"net/http"

	"observe/internal/gateway"
)

// MaxBodySize returns middleware that limits request body size to maxBytes.
// A declared Content-Length over the limit is refused before the handler runs;
// otherwise reads past the limit fail and the handler answers 413.
func MaxBodySize(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				gateway.WriteError(w, &http.MaxBytesError{Limit: maxBytes})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
