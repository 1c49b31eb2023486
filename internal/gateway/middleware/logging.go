package middleware

import (
	"log/slog"
	"net/http"
	"time"

	gw "observe/internal/gateway"
)

// Logging returns a middleware writing one structured line per request.
// Reset tokens in the path are redacted. Probe endpoints log at debug level
// and server failures at warn.
func Logging(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &gw.StatusWriter{ResponseWriter: w, Code: http.StatusOK}

			next.ServeHTTP(sw, r)

			ctx := r.Context()
			level := requestLevel(r.URL.Path, sw.Code)
			if !logger.Enabled(ctx, level) {
				return
			}
			principal, _ := gw.PrincipalFromContext(ctx)
			logger.LogAttrs(ctx, level, "request",
				slog.String("method", r.Method),
				slog.String("path", redactPath(r.URL.Path)),
				slog.Int("status", sw.Code),
				slog.Int("bytes", sw.Bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
				slog.String("request_id", gw.RequestIDFromContext(ctx)),
				slog.String("principal_id", principal.ID),
				slog.String("remote_addr", gw.ClientIP(r)),
			)
		})
	}
}

func requestLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelWarn
	case path == "/healthz" || path == "/readyz":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
