package gateway

import (
	"context"
	"crypto/rsa"
	"net"
	"net/http"

	"observe/internal/domain"
)

// JWKSProvider fetches and caches public keys from the identity provider's JWKS endpoint.
type JWKSProvider interface {
	// GetKey returns the public key for the given key ID.
	GetKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// CredentialVerifier checks a login and password against the credential store.
type CredentialVerifier interface {
	Authenticate(ctx context.Context, login, password string) (domain.Principal, error)
}

// RateLimiter decides whether a request from key costing cost tokens may proceed.
type RateLimiter interface {
	Allow(key string, cost int) RateLimitResult
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	RetryAfter int // whole seconds until the cost is affordable; 0 if allowed
}

// AllowList answers whether an origin address matches an allow-list entry.
type AllowList interface {
	Allowed(ctx context.Context, origin string) (bool, error)
}

// Authorizer decides whether a principal may perform an action.
// A nil error allows the action; a denial wraps domain.ErrForbidden.
type Authorizer interface {
	Authorize(ctx context.Context, p domain.Principal, action domain.Action, req domain.AccessRequest) error
}

// RPCCaller invokes a named function with positional parameters on an instrument controller.
type RPCCaller interface {
	Call(ctx context.Context, function string, params []any) domain.CallResult
}

// UserStore persists user accounts and their reset tokens.
type UserStore interface {
	GetUser(ctx context.Context, login string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, u domain.User) error
	UpdateUser(ctx context.Context, u domain.User) error
	DeleteUser(ctx context.Context, login string) error
	// SetPermissionAll changes the permission of every user except the listed logins.
	SetPermissionAll(ctx context.Context, permission string, except []string) (int64, error)
	// SetResetToken replaces the outstanding reset token of login.
	SetResetToken(ctx context.Context, login string, token domain.ResetToken) error
	// ConsumeResetToken stores the new digest and clears the token, but only
	// while the stored token equals token. Otherwise it returns domain.ErrInvalidToken.
	ConsumeResetToken(ctx context.Context, login, token, digest, salt string) error
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, m domain.Mail) error
}

// StatusWriter records the status code and body size of a response. Code
// should be preset to http.StatusOK for handlers that never call WriteHeader.
type StatusWriter struct {
	http.ResponseWriter
	Code  int
	Bytes int

	wroteHeader bool
}

func (sw *StatusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.Code = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *StatusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	n, err := sw.ResponseWriter.Write(b)
	sw.Bytes += n
	return n, err
}

// Started reports whether the status line has gone out.
func (sw *StatusWriter) Started() bool {
	return sw.wroteHeader
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (sw *StatusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// ClientIP returns the host part of the request's remote address.
func ClientIP(r *http.Request) string {
	// X-Forwarded-For is client-controlled and must not be trusted without
	// a validated trusted proxy list.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// PrincipalFromContext extracts the authenticated principal from a request context.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// ContextWithPrincipal stores the authenticated principal in the context.
func ContextWithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

type principalKey struct{}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextWithRequestID stores the request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

type requestIDKey struct{}
