package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Auth modes.
const (
	AuthModeDevelopment = "development"
	AuthModeJWT         = "jwt"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	AuthMode       string        `mapstructure:"AUTH_MODE"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	SessionSweep   time.Duration `mapstructure:"SESSION_SWEEP_INTERVAL"`
	ToastTTL       time.Duration `mapstructure:"TOAST_TTL"`
	SendGridAPIKey string        `mapstructure:"SENDGRID_API_KEY"`
	MailFrom       string        `mapstructure:"MAIL_FROM"`
	MailFromName   string        `mapstructure:"MAIL_FROM_NAME"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
}

var envKeys = []string{
	"PORT", "ENV", "AUTH_MODE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "CORS_ORIGINS",
	"SESSION_TTL", "SESSION_SWEEP_INTERVAL", "TOAST_TTL",
	"SENDGRID_API_KEY", "MAIL_FROM", "MAIL_FROM_NAME", "LOG_LEVEL",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // "" -> inferred from ENV
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1m")
	v.SetDefault("TOAST_TTL", "10m")
	v.SetDefault("MAIL_FROM", "no-reply@clinicconsole.local")
	v.SetDefault("MAIL_FROM_NAME", "Clinic Console")
	v.SetDefault("LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))

	if cfg.DatabaseURL == "" && !cfg.IsDev() {
		return nil, fmt.Errorf("DATABASE_URL is required outside development")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set. Otherwise development
// environments use dev auth and everything else requires signed tokens.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthModeDevelopment
	}
	return AuthModeJWT
}

// UsesDatabase reports whether repositories are backed by PostgreSQL.
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch mode := c.ResolvedAuthMode(); mode {
	case AuthModeDevelopment:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE %q is not allowed in production", mode)
		}
	case AuthModeJWT:
		if len(c.AuthSigningKey) < 32 {
			return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters when AUTH_MODE is %q", mode)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeDevelopment, AuthModeJWT, mode)
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.SessionSweep <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive, got %s", c.SessionSweep)
	}
	if c.IsProduction() && c.SendGridAPIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is required in production")
	}
	if c.SendGridAPIKey != "" && !strings.Contains(c.MailFrom, "@") {
		return fmt.Errorf("MAIL_FROM must be an email address, got %q", c.MailFrom)
	}
	return nil
}

// Warnings lists settings that are allowed but unsafe.
func (c *Config) Warnings() []string {
	var w []string
	if c.ResolvedAuthMode() == AuthModeDevelopment {
		w = append(w, "dev auth is active: requests run as a clinic admin unless X-Dev-Role is set")
	}
	if !c.UsesDatabase() {
		w = append(w, "DATABASE_URL is not set: clinics, staff and appointments are kept in memory")
	}
	if c.RedisURL == "" {
		w = append(w, "REDIS_URL is not set: pending toasts are kept in memory")
	}
	if c.SendGridAPIKey == "" {
		w = append(w, "SENDGRID_API_KEY is not set: outgoing email is logged, not sent")
	}
	return w
}
