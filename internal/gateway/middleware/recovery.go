package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"observe/internal/domain"
	"observe/internal/gateway"
)

// Recovery turns a handler panic into a logged internal_error response. If
// the handler had already started its response the connection is aborted
// instead.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &gateway.StatusWriter{ResponseWriter: w, Code: http.StatusOK}
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			principal, _ := gateway.PrincipalFromContext(r.Context())
			slog.ErrorContext(r.Context(), "panic recovered",
				"panic", v,
				"request_id", gateway.RequestIDFromContext(r.Context()),
				"principal_id", principal.ID,
				"path", redactPath(r.URL.Path),
				"stack", string(debug.Stack()),
			)
			if sw.Started() {
				panic(http.ErrAbortHandler)
			}
			gateway.WriteError(w, domain.ErrInternal)
		}()
		next.ServeHTTP(sw, r)
	})
}
