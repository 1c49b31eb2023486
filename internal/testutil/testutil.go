// Package testutil holds helpers shared by tests: token signing, a JWKS
// endpoint and simulated instrument controllers.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"observe/internal/domain"
)

// GenerateTestKeyPair generates an RSA key pair for testing.
// Returns (keyID, privateKey, publicKey).
func GenerateTestKeyPair(t *testing.T) (string, *rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating RSA key: %v", err)
	}
	kid := fmt.Sprintf("test-key-%d", time.Now().UnixNano())
	return kid, priv, &priv.PublicKey
}

// IssueTestToken creates a signed JWT carrying the principal's roles.
// A negative ttl produces an already-expired token.
func IssueTestToken(t *testing.T, kid string, priv *rsa.PrivateKey, principal domain.Principal, ttl time.Duration) string {
	t.Helper()

	roles := make([]string, len(principal.Roles))
	for i, r := range principal.Roles {
		roles[i] = string(r)
	}
	now := time.Now()
	return SignClaims(t, kid, priv, jwt.MapClaims{
		"sub":   principal.ID,
		"roles": strings.Join(roles, " "),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"iss":   "observe-test",
	})
}

// SignClaims creates a signed RS256 JWT with arbitrary claims.
func SignClaims(t *testing.T, kid string, priv *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// MockJWKSHandler returns an http.Handler that serves a JWKS response
// containing the given public key.
func MockJWKSHandler(kid string, pub *rsa.PublicKey) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jwks := map[string]any{
			"keys": []map[string]any{
				{
					"kty": "RSA",
					"alg": "RS256",
					"use": "sig",
					"kid": kid,
					"n":   base64URLEncode(pub.N.Bytes()),
					"e":   base64URLEncode(big.NewInt(int64(pub.E)).Bytes()),
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(jwks)
	})
}

// ServeInstrument starts h (usually an instrumentsim controller) and returns
// its endpoint. The server is closed when the test ends.
func ServeInstrument(t *testing.T, h http.Handler) domain.InstrumentEndpoint {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return EndpointOf(t, srv.Listener.Addr().String())
}

// EndpointOf splits a host:port address into an instrument endpoint.
func EndpointOf(t *testing.T, addr string) domain.InstrumentEndpoint {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("port %q: %v", portStr, err)
	}
	return domain.InstrumentEndpoint{Host: host, Port: port}
}

// ClosedEndpoint returns an endpoint on which nothing listens.
func ClosedEndpoint(t *testing.T) domain.InstrumentEndpoint {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return EndpointOf(t, addr)
}

func base64URLEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
