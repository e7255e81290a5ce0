package config

import (
	"os"
	"strings"
	"testing"
)

func setValidEnv(t *testing.T) {
	t.Helper()

	vars := map[string]string{
		"APP_URL":                     "https://versator.app",
		"DATABASE_URL":                "data/versator.db",
		"REDIS_URL":                   "redis://localhost:6379/0",
		"CLERK_SECRET_KEY":            "sk_clerk_test",
		"CLERK_WEBHOOK_SECRET":        "whsec_clerk_test",
		"SESSION_JWT_SECRET":          "session-secret",
		"STRIPE_SECRET_KEY":           "sk_test_123",
		"STRIPE_PUBLISHABLE_KEY":      "pk_test_123",
		"STRIPE_WEBHOOK_SECRET":       "whsec_stripe_test",
		"STRIPE_PRO_MONTHLY_PRICE_ID": "price_123",
		"UPLOADTHING_TOKEN":           "ut_token",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}

	// keep ambient values from leaking into assertions
	for _, k := range []string{"PORT", "SVIX_ENABLED", "SVIX_WEBHOOK_SECRET", "REDIS_TOKEN", "SENTRY_DSN"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestNew_Valid(t *testing.T) {
	setValidEnv(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.StripePriceID != "price_123" {
		t.Errorf("Expected price_123, got %s", cfg.StripePriceID)
	}
	if cfg.SvixEnabled {
		t.Error("Expected svix disabled by default")
	}
}

func TestNew_CollectsAllMissingVariables(t *testing.T) {
	setValidEnv(t)
	for _, k := range []string{"STRIPE_SECRET_KEY", "CLERK_SECRET_KEY", "REDIS_URL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	_, err := New()
	if err == nil {
		t.Fatal("Expected error for missing variables")
	}

	for _, name := range []string{"STRIPE_SECRET_KEY", "CLERK_SECRET_KEY", "REDIS_URL"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Expected error to mention %s, got: %v", name, err)
		}
	}
}

func TestNew_MalformedURL(t *testing.T) {
	setValidEnv(t)
	t.Setenv("APP_URL", "not a url")

	_, err := New()
	if err == nil {
		t.Fatal("Expected error for malformed APP_URL")
	}
	if !strings.Contains(err.Error(), "APP_URL") {
		t.Errorf("Expected APP_URL in error, got: %v", err)
	}
}

func TestNew_SvixEnabledRequiresSecret(t *testing.T) {
	setValidEnv(t)
	t.Setenv("SVIX_ENABLED", "true")

	_, err := New()
	if err == nil {
		t.Fatal("Expected error when svix enabled without secret")
	}

	t.Setenv("SVIX_WEBHOOK_SECRET", "whsec_svix")
	cfg, err := New()
	if err != nil {
		t.Fatalf("Expected no error with svix secret set, got: %v", err)
	}
	if !cfg.SvixEnabled {
		t.Error("Expected svix enabled")
	}
}
