package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"observe/internal/domain"
	gw "observe/internal/gateway"
	"observe/internal/gateway/account"
	"observe/internal/gateway/adapter/inmem"
	"observe/internal/gateway/adapter/jwks"
	"observe/internal/gateway/adapter/postgres"
	"observe/internal/gateway/adapter/proxy"
	"observe/internal/gateway/adapter/rediscache"
	"observe/internal/gateway/adapter/rpcclient"
	"observe/internal/gateway/adapter/smtp"
	"observe/internal/gateway/adapter/web"
	"observe/internal/gateway/document"
	"observe/internal/gateway/middleware"
	"observe/internal/gateway/policy"
	"observe/internal/platform/config"
	"observe/internal/platform/server"
	"observe/internal/platform/telemetry"
)

const maxBodyBytes = 1 << 20 // 1MB

// credentialStore is what the gateway needs from a user backend.
type credentialStore interface {
	gw.UserStore
	gw.AllowList
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdown, err := telemetry.Setup(ctx, "observe")
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("telemetry shutdown error", "error", err)
		}
	}()

	metrics, err := telemetry.NewGatewayMetrics()
	if err != nil {
		return fmt.Errorf("metrics initialization: %w", err)
	}

	// Credential store
	store, ready, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var allow gw.AllowList = store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		allow = rediscache.NewAllowList(store, rdb, cfg.AllowListCacheTTL, logger)
		dbReady := ready
		ready = func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return dbReady(ctx)
		}
		slog.Info("allow-list cache enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.AllowListCacheTTL)
	}

	evaluator := policy.NewEvaluator(allow, cfg.LegacyIdentity, metrics)

	accounts := account.NewService(store, evaluator, newMailer(cfg, logger), account.Config{
		LegacyIdentity: cfg.LegacyIdentity,
		ResetLinkBase:  cfg.Reset.LinkBase,
		ResetTokenTTL:  cfg.Reset.TokenTTL,
	}, account.WithMetrics(metrics))

	instruments, err := buildInstruments(cfg)
	if err != nil {
		return err
	}
	router, err := proxy.NewRouter(instruments, evaluator, metrics, proxy.WithReadiness(ready))
	if err != nil {
		return fmt.Errorf("router initialization: %w", err)
	}

	views, err := web.NewTemplates()
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	users := web.NewHandler(accounts, views)

	// A nil *jwks.Client must not become a non-nil interface.
	var keys gw.JWKSProvider
	if cfg.JWKSEndpoint != "" {
		keys = jwks.NewClient(cfg.JWKSEndpoint, 5*time.Minute, jwks.WithMetrics(metrics))
	}

	rl := inmem.NewRateLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Burst, time.Now)
	go rl.RunCleanup(ctx, 5*time.Minute)

	routes := http.NewServeMux()
	routes.Handle("/users", users)
	routes.Handle("/users/", users)
	routes.Handle("/", router)

	public := middleware.AnyOf(
		middleware.PublicPaths("/healthz", "/readyz", "/metrics"),
		web.IsPublic,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.MetricsHandler())
	mux.Handle("/", middleware.Chain(
		routes,
		middleware.Metrics(metrics),
		middleware.RequestID,
		middleware.Logging(logger),
		middleware.Recovery,
		middleware.MaxBodySize(maxBodyBytes),
		middleware.When(cfg.RateLimit.Rate > 0, middleware.RateLimit(rl, metrics)),
		middleware.Auth(keys, accounts, public, metrics),
	))

	opts := []server.Option{server.WithWriteTimeout(cfg.RPC.Timeout + 10*time.Second)}
	if cfg.TLSCertFile != "" {
		opts = append(opts, server.WithTLS(cfg.TLSCertFile, cfg.TLSKeyFile))
	}
	srv := server.New(cfg.GatewayAddr, mux, opts...)

	slog.Info("gateway starting",
		"addr", cfg.GatewayAddr,
		"instruments", len(instruments),
		"bearer_auth", cfg.JWKSEndpoint != "",
		"persistent_store", cfg.DatabaseURL != "",
		"smtp", cfg.Mail.SMTPHost != "",
	)
	return srv.Run(ctx)
}

// openStore connects to PostgreSQL when DATABASE_URL is set and falls back
// to an in-memory store holding only the admin account otherwise.
func openStore(ctx context.Context, cfg config.Config) (credentialStore, proxy.ReadinessCheck, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory credential store")
		store := struct {
			*inmem.UserStore
			*inmem.AllowList
		}{
			inmem.NewUserStore(domain.User{
				Login:          domain.ReservedAdmin,
				PasswordDigest: account.Digest(cfg.AdminPassword, ""),
				Permission:     string(domain.RoleAdmin),
			}),
			inmem.NewAllowList(),
		}
		return store, func(context.Context) error { return nil }, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	ready := func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		return nil
	}
	return postgres.NewStore(pool), ready, pool.Close, nil
}

func newMailer(cfg config.Config, logger *slog.Logger) gw.Mailer {
	if cfg.Mail.SMTPHost == "" {
		slog.Warn("SMTP_HOST not set, reset mail is written to the log with links masked")
		var opts []smtp.LogOption
		if cfg.Mail.LogLinks {
			opts = append(opts, smtp.WithLinks())
		}
		return smtp.NewLogMailer(logger, opts...)
	}
	return smtp.NewMailer(smtp.Config{
		From:     cfg.Mail.From,
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		Timeout:  cfg.Mail.Timeout,
	})
}

func buildInstruments(cfg config.Config) ([]proxy.Instrument, error) {
	if len(cfg.Instruments) == 0 {
		return nil, errors.New("no instruments configured")
	}
	instruments := make([]proxy.Instrument, 0, len(cfg.Instruments))
	for _, ic := range cfg.Instruments {
		kind, err := document.LookupKind(ic.Kind)
		if err != nil {
			return nil, fmt.Errorf("instrument %q: %w", ic.Name, err)
		}
		endpoint := domain.InstrumentEndpoint{Host: ic.Host, Port: ic.Port}
		instruments = append(instruments, proxy.Instrument{
			Name:   ic.Name,
			Kind:   kind,
			Caller: rpcclient.NewClient(endpoint, cfg.RPC.Timeout, rpcclient.WithPath(cfg.RPC.Path)),
		})
		slog.Info("instrument registered", "name", ic.Name, "kind", kind.Name, "endpoint", endpoint.String())
	}
	return instruments, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
