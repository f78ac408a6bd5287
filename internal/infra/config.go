package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"`
	Port     string `env:"PORT" envDefault:"5000"`
	TLSPort  string `env:"SSL_PORT" envDefault:"5443"`
	TLSCert  string `env:"TLS_CERT_FILE"`
	TLSKey   string `env:"TLS_KEY_FILE"`

	DatabaseURL     string        `env:"DATABASE_URL"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	DBRetryInitial  time.Duration `env:"DB_RETRY_INITIAL" envDefault:"1s"`
	DBRetryMax      time.Duration `env:"DB_RETRY_MAX" envDefault:"30s"`
	DBRetryAttempts int           `env:"DB_RETRY_ATTEMPTS" envDefault:"0"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	StripeSecretKey    string        `env:"STRIPE_SECRET_KEY"`
	StripeBaseURL      string        `env:"STRIPE_API_BASE"`
	CardCurrency       string        `env:"CARD_CURRENCY" envDefault:"usd"`
	PayPalClientID     string        `env:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string        `env:"PAYPAL_CLIENT_SECRET"`
	PayPalBaseURL      string        `env:"PAYPAL_API_BASE" envDefault:"https://api-m.sandbox.paypal.com"`
	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"20s"`

	RequireVerifiedPayment bool   `env:"REQUIRE_VERIFIED_PAYMENT" envDefault:"true"`
	RateLimitPerMin        int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	TrustedProxyHops       int    `env:"TRUSTED_PROXY_HOPS" envDefault:"0"`
	GeoIPDBPath            string `env:"GEOIP_DB_PATH"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"`

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.AllowedOrigins = normalizeList(cfg.AllowedOrigins)
	cfg.CardCurrency = strings.ToLower(strings.TrimSpace(cfg.CardCurrency))

	if cfg.DatabaseURL == "" && !cfg.IsDevelopment() {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DBRetryInitial <= 0 {
		return nil, fmt.Errorf("DB_RETRY_INITIAL must be positive")
	}
	if cfg.DBRetryMax < cfg.DBRetryInitial {
		cfg.DBRetryMax = cfg.DBRetryInitial
	}
	if cfg.TrustedProxyHops < 0 {
		return nil, fmt.Errorf("TRUSTED_PROXY_HOPS must not be negative")
	}
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in the local development profile.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// TLSEnabled reports whether a certificate pair is configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// SMTPConfigured reports whether receipts can be mailed.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPassword != "" && c.MailFrom != ""
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimRight(strings.TrimSpace(v), "/")
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
