package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "5000" {
		t.Fatalf("Port = %q, want 5000", cfg.Port)
	}
	if cfg.CardCurrency != "usd" {
		t.Fatalf("CardCurrency = %q, want usd", cfg.CardCurrency)
	}
	if !cfg.RequireVerifiedPayment {
		t.Fatalf("RequireVerifiedPayment should default to true")
	}
	if cfg.DBRetryInitial != time.Second || cfg.DBRetryMax != 30*time.Second {
		t.Fatalf("retry policy = %s/%s, want 1s/30s", cfg.DBRetryInitial, cfg.DBRetryMax)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigRequiresDatabaseOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is missing in production")
	}
}

func TestLoadConfigNormalizesOrigins(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("ALLOWED_ORIGINS", " https://donate.example.org/ ,http://localhost:5173,,https://donate.example.org")
	t.Setenv("CARD_CURRENCY", " EUR ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://donate.example.org", "http://localhost:5173"}
	if len(cfg.AllowedOrigins) != len(expected) {
		t.Fatalf("AllowedOrigins mismatch: got %#v want %#v", cfg.AllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.AllowedOrigins[i] != origin {
			t.Fatalf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], origin)
		}
	}
	if cfg.CardCurrency != "eur" {
		t.Fatalf("CardCurrency = %q, want eur", cfg.CardCurrency)
	}
}

func TestLoadConfigRejectsHalfTLSPair(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("TLS_CERT_FILE", "server.crt")
	t.Setenv("TLS_KEY_FILE", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when only TLS_CERT_FILE is set")
	}
}

func TestLoadConfigParsesDurations(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_RETRY_INITIAL", "250ms")
	t.Setenv("DB_RETRY_MAX", "100ms")
	t.Setenv("PROVIDER_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DBRetryInitial != 250*time.Millisecond {
		t.Fatalf("DBRetryInitial = %s", cfg.DBRetryInitial)
	}
	if cfg.DBRetryMax != cfg.DBRetryInitial {
		t.Fatalf("DBRetryMax should be raised to the initial delay, got %s", cfg.DBRetryMax)
	}
	if cfg.ProviderTimeout != 5*time.Second {
		t.Fatalf("ProviderTimeout = %s", cfg.ProviderTimeout)
	}
}

func TestLoadConfigTrustedProxyHops(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("TRUSTED_PROXY_HOPS", "1")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.TrustedProxyHops != 1 {
		t.Fatalf("TrustedProxyHops = %d, want 1", cfg.TrustedProxyHops)
	}

	t.Setenv("TRUSTED_PROXY_HOPS", "-1")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for negative TRUSTED_PROXY_HOPS")
	}
}
