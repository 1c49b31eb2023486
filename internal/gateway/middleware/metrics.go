package middleware

import (
	"net/http"
	"time"

	gw "observe/internal/gateway"
	"observe/internal/platform/telemetry"
)

// Metrics returns middleware that records HTTP request metrics per route.
// Place as the outermost middleware to capture the full request lifecycle.
func Metrics(m *telemetry.GatewayMetrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &gw.StatusWriter{ResponseWriter: w, Code: http.StatusOK}

			next.ServeHTTP(sw, r)

			m.RecordHTTPRequest(r.Context(), r.Method, routeLabel(r.URL.Path), sw.Code, time.Since(start).Seconds())
		})
	}
}
