package testutil_test

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"observe/internal/domain"
	"observe/internal/instrumentsim"
	"observe/internal/testutil"
)

func TestGenerateTestKeyPair(t *testing.T) {
	kid, priv, pub := testutil.GenerateTestKeyPair(t)

	if kid == "" {
		t.Error("expected non-empty kid")
	}
	if priv == nil || pub == nil {
		t.Fatal("expected non-nil keys")
	}

	signed := testutil.SignClaims(t, kid, priv, jwt.MapClaims{"sub": "test"})
	parsed, err := jwt.Parse(signed, func(t *jwt.Token) (any, error) {
		return pub, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}
	if !parsed.Valid {
		t.Error("parsed token should be valid")
	}
	if parsed.Header["kid"] != kid {
		t.Errorf("expected kid header %q, got %v", kid, parsed.Header["kid"])
	}
}

func TestIssueTestToken(t *testing.T) {
	kid, priv, pub := testutil.GenerateTestKeyPair(t)
	keyFunc := func(*jwt.Token) (any, error) { return pub, nil }

	tests := []struct {
		name      string
		principal domain.Principal
		ttl       time.Duration
		wantRoles string
		wantErr   bool
	}{
		{"single role", domain.Principal{ID: "ops", Roles: []domain.Role{domain.RoleControl}}, 15 * time.Minute, "control", false},
		{"roles are space separated", domain.Principal{ID: "jdoe", Roles: []domain.Role{domain.RoleControl, domain.RoleUser}}, 15 * time.Minute, "control user", false},
		{"expired", domain.Principal{ID: "jdoe", Roles: []domain.Role{domain.RoleUser}}, -time.Minute, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed := testutil.IssueTestToken(t, kid, priv, tt.principal, tt.ttl)
			parsed, err := jwt.Parse(signed, keyFunc, jwt.WithValidMethods([]string{"RS256"}))
			if tt.wantErr {
				if err == nil {
					t.Error("expected a validation error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsing: %v", err)
			}
			claims := parsed.Claims.(jwt.MapClaims)
			if claims["sub"] != tt.principal.ID {
				t.Errorf("sub = %v, want %q", claims["sub"], tt.principal.ID)
			}
			if claims["roles"] != tt.wantRoles {
				t.Errorf("roles = %v, want %q", claims["roles"], tt.wantRoles)
			}
		})
	}
}

func TestMockJWKSServer(t *testing.T) {
	kid, _, pub := testutil.GenerateTestKeyPair(t)

	srv := httptest.NewServer(testutil.MockJWKSHandler(kid, pub))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET JWKS: %v", err)
	}
	defer resp.Body.Close()

	var jwks map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		t.Fatalf("decoding JWKS: %v", err)
	}
	keys, ok := jwks["keys"].([]any)
	if !ok || len(keys) == 0 {
		t.Fatal("expected at least one key in JWKS")
	}
	key := keys[0].(map[string]any)
	if key["kid"] != kid || key["kty"] != "RSA" || key["alg"] != "RS256" {
		t.Errorf("unexpected key %v", key)
	}
}

func TestServeInstrument(t *testing.T) {
	ep := testutil.ServeInstrument(t, instrumentsim.Telescope())
	if ep.Host != "127.0.0.1" || ep.Port == 0 {
		t.Fatalf("unexpected endpoint %+v", ep)
	}
	conn, err := net.Dial("tcp", ep.String())
	if err != nil {
		t.Fatalf("dial %s: %v", ep, err)
	}
	conn.Close()
}

func TestClosedEndpoint(t *testing.T) {
	ep := testutil.ClosedEndpoint(t)
	if _, err := net.DialTimeout("tcp", net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port)), time.Second); err == nil {
		t.Error("expected connection refused")
	}
}

func TestGenerateTestKeyPairDifferentKeys(t *testing.T) {
	kid1, _, pub1 := testutil.GenerateTestKeyPair(t)
	kid2, _, pub2 := testutil.GenerateTestKeyPair(t)

	if kid1 == kid2 {
		t.Error("expected different key IDs for different key pairs")
	}
	if pub1.N.Cmp(pub2.N) == 0 && pub1.E == pub2.E {
		t.Error("expected different public keys")
	}
}
