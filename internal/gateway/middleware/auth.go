package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"observe/internal/domain"
	gw "observe/internal/gateway"
	"observe/internal/platform/telemetry"
)

const maxClockSkew = 30 * time.Second

var errInvalidToken = errors.New("invalid token")

// PublicMatcher reports whether a request may skip authentication.
type PublicMatcher func(r *http.Request) bool

// PublicPaths matches requests whose path is exactly one of paths.
func PublicPaths(paths ...string) PublicMatcher {
	public := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		public[p] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := public[r.URL.Path]
		return ok
	}
}

// AnyOf matches a request when any of matchers does.
func AnyOf(matchers ...PublicMatcher) PublicMatcher {
	return func(r *http.Request) bool {
		for _, m := range matchers {
			if m != nil && m(r) {
				return true
			}
		}
		return false
	}
}

// Auth returns a middleware that authenticates the caller with a JWT Bearer
// token (keys from jwks) or HTTP Basic credentials (checked by creds).
// Either source may be nil to disable that scheme. Requests matched by public
// skip authentication. The metrics parameter is optional.
func Auth(jwks gw.JWKSProvider, creds gw.CredentialVerifier, public PublicMatcher, m *telemetry.GatewayMetrics) Middleware {
	record := func(r *http.Request, scheme, result string) {
		if m != nil {
			m.RecordAuthValidation(r.Context(), scheme, result)
		}
	}
	challenge := "Bearer"
	if creds != nil {
		challenge = `Basic realm="observe"`
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public != nil && public(r) {
				next.ServeHTTP(w, r)
				return
			}

			var (
				principal domain.Principal
				scheme    string
				err       error
			)
			if tokenStr, ok := extractBearerToken(r); ok && jwks != nil {
				scheme = "bearer"
				principal, err = validateToken(r, jwks, tokenStr)
			} else if login, password, ok := r.BasicAuth(); ok && creds != nil {
				scheme = "basic"
				principal, err = creds.Authenticate(r.Context(), login, password)
			} else {
				record(r, "none", "failure")
				w.Header().Set("WWW-Authenticate", challenge)
				gw.WriteError(w, domain.ErrUnauthorized)
				return
			}

			if err != nil {
				record(r, scheme, "failure")
				if scheme == "basic" && !errors.Is(err, domain.ErrInvalidCredentials) {
					slog.Error("credential check failed", "error", err)
					gw.WriteError(w, err)
					return
				}
				slog.Debug("auth validation failed", "scheme", scheme, "error", err)
				w.Header().Set("WWW-Authenticate", challenge)
				gw.WriteError(w, domain.ErrUnauthorized)
				return
			}

			record(r, scheme, "success")
			ctx := gw.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validateToken(r *http.Request, jwks gw.JWKSProvider, tokenStr string) (domain.Principal, error) {
	// Only RS256 is accepted, which rules out alg:none and HMAC confusion.
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok {
			return nil, errInvalidToken
		}
		return jwks.GetKey(r.Context(), kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithLeeway(maxClockSkew),
	)
	if err != nil {
		return domain.Principal{}, err
	}
	if !token.Valid {
		return domain.Principal{}, errInvalidToken
	}
	return extractPrincipal(token.Claims)
}

func extractBearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// extractPrincipal reads the subject and the space-separated roles claim.
// Unknown roles are mapped to none.
func extractPrincipal(claims jwt.Claims) (domain.Principal, error) {
	mc, ok := claims.(jwt.MapClaims)
	if !ok {
		return domain.Principal{}, errInvalidToken
	}

	sub, _ := mc["sub"].(string)
	if sub == "" {
		return domain.Principal{}, errInvalidToken
	}

	var roles []domain.Role
	if roleStr, ok := mc["roles"].(string); ok {
		for _, f := range strings.Fields(roleStr) {
			roles = append(roles, domain.RoleFromPermission(f))
		}
	}

	return domain.Principal{ID: sub, Roles: roles}, nil
}
