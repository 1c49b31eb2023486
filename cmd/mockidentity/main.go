// Command mockidentity is a development token issuer. It checks logins
// against the gateway's credential store and signs RS256 tokens carrying
// the space-separated roles claim the gateway reads.
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/pflag"

	"observe/internal/domain"
	"observe/internal/gateway/account"
	"observe/internal/gateway/adapter/inmem"
	"observe/internal/gateway/adapter/postgres"
	"observe/internal/platform/server"
)

type userLookup interface {
	GetUser(ctx context.Context, login string) (domain.User, error)
}

type issuer struct {
	users userLookup
	key   *rsa.PrivateKey
	kid   string
	ttl   time.Duration
}

// devUsers seeds the in-memory store; every password equals the login.
func devUsers() *inmem.UserStore {
	var users []domain.User
	for login, permission := range map[string]string{
		"admin":   "admin",
		"ops":     "control",
		"jdoe":    "user",
		"tcsuser": "user",
		"ghost":   "none",
	} {
		users = append(users, domain.User{Login: login, PasswordDigest: account.Digest(login, ""), Permission: permission})
	}
	return inmem.NewUserStore(users...)
}

func main() {
	flags := pflag.NewFlagSet("mockidentity", pflag.ExitOnError)
	addr := flags.String("addr", envOr("IDENTITY_ADDR", ":8081"), "listen address")
	dsn := flags.String("database-url", os.Getenv("DATABASE_URL"), "credential store; empty uses built-in development accounts")
	ttl := flags.Duration("ttl", 15*time.Minute, "token lifetime")
	flags.Parse(os.Args[1:])

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *addr, *dsn, *ttl); err != nil {
		slog.Error("mock identity stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr, dsn string, ttl time.Duration) error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generating RSA key: %w", err)
	}
	iss := &issuer{key: key, kid: fmt.Sprintf("mock-key-%d", time.Now().Unix()), ttl: ttl}

	if dsn == "" {
		iss.users = devUsers()
		slog.Info("using development accounts", "logins", "admin ops jdoe tcsuser ghost", "password", "same as login")
	} else {
		pool, err := postgres.NewPool(ctx, dsn)
		if err != nil {
			return err
		}
		defer pool.Close()
		iss.users = postgres.NewStore(pool)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/jwks.json", iss.serveKeys)
	mux.HandleFunc("POST /auth/token", iss.serveToken)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "mock-identity"})
	})

	slog.Info("mock identity service starting", "addr", addr, "kid", iss.kid)
	return server.New(addr, mux).Run(ctx)
}

func (iss *issuer) serveKeys(w http.ResponseWriter, r *http.Request) {
	pub := &iss.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": iss.kid,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

// serveToken accepts a JSON body or an OAuth2 style password grant form.
func (iss *issuer) serveToken(w http.ResponseWriter, r *http.Request) {
	login, password, err := readCredentials(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	u, err := iss.users.GetUser(r.Context(), login)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	case err != nil:
		slog.Error("credential lookup failed", "login", login, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "credential store unavailable")
		return
	}
	if !account.VerifyDigest(password, u.Salt, u.PasswordDigest) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":   u.Login,
		"roles": string(u.Role()),
		"iat":   now.Unix(),
		"exp":   now.Add(iss.ttl).Unix(),
		"iss":   "mock-identity",
	})
	token.Header["kid"] = iss.kid

	signed, err := token.SignedString(iss.key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to sign token")
		return
	}
	slog.Info("token issued", "login", u.Login, "role", u.Role())
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int(iss.ttl.Seconds()),
	})
}

func readCredentials(r *http.Request) (string, string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return "", "", errors.New("invalid form body")
		}
		if gt := r.PostForm.Get("grant_type"); gt != "" && gt != "password" {
			return "", "", fmt.Errorf("unsupported grant_type %q", gt)
		}
		return r.PostForm.Get("username"), r.PostForm.Get("password"), nil
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", "", errors.New("invalid JSON body")
	}
	return req.Username, req.Password, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
