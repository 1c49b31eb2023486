package middleware

import (
	"net/http"
	"strconv"

	"observe/internal/domain"
	gw "observe/internal/gateway"
	"observe/internal/platform/telemetry"
)

// CommandCost is the token price of a request that changes state: an
// instrument execute or a credential store write. Reads cost one token.
const CommandCost = 4

// RateLimit returns middleware charging each client address per request.
// The metrics parameter is optional.
func RateLimit(limiter gw.RateLimiter, m *telemetry.GatewayMetrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class, cost := requestClass(r)
			result := limiter.Allow(gw.ClientIP(r), cost)
			if m != nil {
				decision := "allowed"
				if !result.Allowed {
					decision = "denied"
				}
				m.RecordRateLimitDecision(r.Context(), class, decision)
			}
			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				gw.WriteProblem(w, gw.StatusOf(domain.ErrRateLimited), result.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestClass(r *http.Request) (string, int) {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read", 1
	default:
		return "command", CommandCost
	}
}
