package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP listener
	ListenAddr string

	// Backend API the gateway proxies to
	Backend BackendConfig

	// Identity provider (OIDC) settings
	OIDC OIDCConfig

	// Session store and cookie settings
	Session SessionConfig

	// External tool redirects
	Tools ToolsConfig

	// Logging Configuration
	Logging LoggingConfig
}

// BackendConfig holds the upstream API configuration
type BackendConfig struct {
	BaseURL string

	// Credentials for the internal login exchange. The backend does not yet
	// accept federated identities directly, so every successful OIDC sign-in
	// is exchanged against this service account.
	ServiceAccountEmail    string
	ServiceAccountPassword string
}

// OIDCConfig holds identity provider settings
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// SessionConfig holds session store and cookie settings
type SessionConfig struct {
	DatabaseURL string

	// CookieKey seals token cookies; decoded from COOKIE_SECRET (64 hex chars)
	CookieKey [32]byte

	// SecureCookies controls the Secure attribute on issued cookies
	SecureCookies bool

	// GuardPolicyPath optionally points at a YAML route-policy file
	GuardPolicyPath string

	// PurgeSchedule is a cron expression for expired-session cleanup
	PurgeSchedule string
}

// ToolsConfig holds external tool redirect targets
type ToolsConfig struct {
	AnythingLLMBaseURL string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := &Config{
		ListenAddr: envOr("LISTEN_ADDR", ":8080"),
		Backend: BackendConfig{
			BaseURL:                strings.TrimSuffix(os.Getenv("API_BASE_URL"), "/"),
			ServiceAccountEmail:    os.Getenv("SERVICE_ACCOUNT_EMAIL"),
			ServiceAccountPassword: os.Getenv("SERVICE_ACCOUNT_PASSWORD"),
		},
		OIDC: OIDCConfig{
			IssuerURL:    os.Getenv("OIDC_ISSUER_URL"),
			ClientID:     os.Getenv("OIDC_CLIENT_ID"),
			ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
			RedirectURL:  envOr("OIDC_REDIRECT_URL", "http://localhost:8080/auth/callback"),
			Scopes:       strings.Fields(envOr("OIDC_SCOPES", "openid profile email")),
		},
		Session: SessionConfig{
			DatabaseURL:     envOr("SESSION_DB_URL", "consoled.sqlite"),
			SecureCookies:   envBool("SECURE_COOKIES", true),
			GuardPolicyPath: os.Getenv("GUARD_POLICY_PATH"),
			PurgeSchedule:   envOr("SESSION_PURGE_SCHEDULE", "0 * * * *"),
		},
		Tools: ToolsConfig{
			AnythingLLMBaseURL: os.Getenv("ANYTHINGLLM_BASE_URL"),
		},
		Logging: LoggingConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
	}

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}

	secret := os.Getenv("COOKIE_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("COOKIE_SECRET is required")
	}
	key, err := hex.DecodeString(secret)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("COOKIE_SECRET must be 64 hex characters (32 bytes)")
	}
	copy(cfg.Session.CookieKey[:], key)

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
