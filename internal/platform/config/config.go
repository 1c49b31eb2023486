package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gateway.
type Config struct {
	GatewayAddr       string
	TLSCertFile       string
	TLSKeyFile        string
	LogLevel          string
	JWKSEndpoint      string // empty disables bearer tokens
	DatabaseURL       string // empty selects the in-memory credential store
	AdminPassword     string // seeds admin in the in-memory credential store
	RedisAddr         string // empty disables the allow-list cache
	AllowListCacheTTL time.Duration
	LegacyIdentity    string
	RPC               RPCConfig
	Instruments       []InstrumentConfig
	Mail              MailConfig
	Reset             ResetConfig
	RateLimit         RateLimitConfig
}

// RPCConfig controls calls to instrument controllers.
type RPCConfig struct {
	Timeout time.Duration
	Path    string
}

// InstrumentConfig binds a route name to a controller of a given kind.
type InstrumentConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// MailConfig holds outbound mail settings. An empty SMTPHost logs mail instead of sending it.
type MailConfig struct {
	From     string
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	Timeout  time.Duration
	LogLinks bool // log outbox also writes unmasked reset links at debug level
}

// ResetConfig controls the password reset workflow.
type ResetConfig struct {
	LinkBase string
	TokenTTL time.Duration // zero keeps tokens valid until replaced or redeemed
}

// RateLimitConfig holds token bucket parameters for per-IP rate limiting.
// A zero Rate turns limiting off.
type RateLimitConfig struct {
	Rate  float64
	Burst int
}

type fileConfig struct {
	Instruments []InstrumentConfig `yaml:"instruments"`
}

// Load reads configuration from environment variables, falling back to defaults.
// When OBSERVE_CONFIG names a YAML file, its instrument list replaces the one
// built from the environment.
func Load() (Config, error) {
	cfg := Config{
		GatewayAddr:       envOr("GATEWAY_ADDR", ":8080"),
		TLSCertFile:       os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:        os.Getenv("TLS_KEY_FILE"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		JWKSEndpoint:      os.Getenv("JWKS_ENDPOINT"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		AdminPassword:     envOr("ADMIN_PASSWORD", "admin"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		AllowListCacheTTL: envDuration("ALLOWLIST_CACHE_TTL", 30*time.Second),
		LegacyIdentity:    envOr("LEGACY_IDENTITY", "tcsuser"),
		RPC: RPCConfig{
			Timeout: envDuration("RPC_TIMEOUT", 10*time.Second),
			Path:    envOr("RPC_PATH", "/RPC2"),
		},
		Instruments: []InstrumentConfig{
			{Name: "telescope", Kind: "telescope", Host: envOr("TELESCOPE_HOST", "localhost"), Port: envInt("TELESCOPE_PORT", 9999)},
			{Name: "spectrograph", Kind: "spectrograph", Host: envOr("SPECTROGRAPH_HOST", "localhost"), Port: envInt("SPECTROGRAPH_PORT", 9998)},
			{Name: "ccd700", Kind: "expose", Host: envOr("CCD700_HOST", "localhost"), Port: envInt("CCD700_PORT", 9997)},
		},
		Mail: MailConfig{
			From:     envOr("MAIL_FROM", "observe@localhost"),
			SMTPHost: os.Getenv("SMTP_HOST"),
			SMTPPort: envInt("SMTP_PORT", 25),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			Timeout:  envDuration("SMTP_TIMEOUT", 10*time.Second),
			LogLinks: envBool("MAIL_LOG_LINKS", false),
		},
		Reset: ResetConfig{
			LinkBase: envOr("RESET_LINK_BASE", "https://localhost:8443/observe"),
			TokenTTL: envDuration("RESET_TOKEN_TTL", 0),
		},
		RateLimit: RateLimitConfig{
			Rate:  envFloat("RATE_LIMIT_RATE", 100),
			Burst: envInt("RATE_LIMIT_BURST", 20),
		},
	}

	if path := os.Getenv("OBSERVE_CONFIG"); path != "" {
		instruments, err := loadInstruments(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Instruments = instruments
	}
	return cfg, nil
}

func loadInstruments(path string) ([]InstrumentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if len(fc.Instruments) == 0 {
		return nil, fmt.Errorf("config file %s declares no instruments", path)
	}
	seen := make(map[string]struct{}, len(fc.Instruments))
	for i, in := range fc.Instruments {
		if in.Name == "" || in.Host == "" || in.Port <= 0 {
			return nil, fmt.Errorf("instrument #%d: name, host and port are required", i+1)
		}
		if _, dup := seen[in.Name]; dup {
			return nil, fmt.Errorf("instrument %q declared twice", in.Name)
		}
		seen[in.Name] = struct{}{}
		if in.Kind == "" {
			fc.Instruments[i].Kind = in.Name
		}
	}
	return fc.Instruments, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return n
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return f
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return d
	}
	return fallback
}
