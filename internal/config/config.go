package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"
)

type Config struct {
	Port   string
	AppURL string

	DatabaseURL string

	RedisURL   string
	RedisToken string

	ClerkSecretKey     string
	ClerkWebhookSecret string
	SessionJWTSecret   string

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	StripePriceID        string

	// SvixEnabled selects the webhook verification strategy at startup:
	// svix signatures on both webhook endpoints when true, native Stripe
	// verification plus an unverified Clerk endpoint when false.
	SvixEnabled       bool
	SvixWebhookSecret string

	UploadThingToken string

	SentryDSN string
}

// New reads the full configuration from the environment. Every problem
// is collected before returning, so a broken deploy reports all missing
// variables at once instead of one per restart.
func New() (*Config, error) {
	var errs *multierror.Error

	require := func(name string) string {
		value := os.Getenv(name)
		if value == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s environment variable is required", name))
		}
		return value
	}

	requireURL := func(name string) string {
		value := require(name)
		if value == "" {
			return value
		}
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s must be a valid URL, got %q", name, value))
		}
		return value
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	svixEnabled, _ := strconv.ParseBool(os.Getenv("SVIX_ENABLED"))

	cfg := &Config{
		Port:                 port,
		AppURL:               requireURL("APP_URL"),
		DatabaseURL:          require("DATABASE_URL"),
		RedisURL:             requireURL("REDIS_URL"),
		RedisToken:           os.Getenv("REDIS_TOKEN"),
		ClerkSecretKey:       require("CLERK_SECRET_KEY"),
		ClerkWebhookSecret:   require("CLERK_WEBHOOK_SECRET"),
		SessionJWTSecret:     require("SESSION_JWT_SECRET"),
		StripeSecretKey:      require("STRIPE_SECRET_KEY"),
		StripePublishableKey: require("STRIPE_PUBLISHABLE_KEY"),
		StripeWebhookSecret:  require("STRIPE_WEBHOOK_SECRET"),
		StripePriceID:        require("STRIPE_PRO_MONTHLY_PRICE_ID"),
		SvixEnabled:          svixEnabled,
		SvixWebhookSecret:    os.Getenv("SVIX_WEBHOOK_SECRET"),
		UploadThingToken:     require("UPLOADTHING_TOKEN"),
		SentryDSN:            os.Getenv("SENTRY_DSN"),
	}

	if cfg.SvixEnabled && cfg.SvixWebhookSecret == "" {
		errs = multierror.Append(errs, fmt.Errorf("SVIX_WEBHOOK_SECRET environment variable is required when SVIX_ENABLED is true"))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	return cfg, nil
}
