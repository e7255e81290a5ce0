package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"versator.app/cloud/billing"
	"versator.app/cloud/handlers"
	"versator.app/cloud/identity"
	"versator.app/cloud/internal/auth"
	"versator.app/cloud/internal/config"
	"versator.app/cloud/internal/kv"
	"versator.app/cloud/internal/logger"
	"versator.app/cloud/storage"
)

var version = "dev"

func main() {
	if versionBytes, err := os.ReadFile("VERSION"); err == nil {
		version = strings.TrimSpace(string(versionBytes))
	}

	godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Release:          version,
			TracesSampleRate: 1.0,
		}); err != nil {
			log.Fatalf("sentry.Init: %v", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	cache, err := kv.NewRedisStore(context.Background(), cfg.RedisURL, cfg.RedisToken)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer cache.Close()

	billingService := &billing.Service{
		Payments: billing.NewStripeAPI(cfg.StripeSecretKey),
		KV:       cache,
		Storage:  store,
		PriceID:  cfg.StripePriceID,
		AppURL:   cfg.AppURL,
	}

	clerkVerifier, stripeVerifier, err := buildVerifiers(cfg)
	if err != nil {
		log.Fatalf("webhook verifier: %v", err)
	}

	server := handlers.NewHTTPServer(handlers.Options{
		Storage:        store,
		Identity:       identity.NewService(store),
		Billing:        billingService,
		Auth:           auth.NewService(cfg.SessionJWTSecret),
		ClerkVerifier:  clerkVerifier,
		StripeVerifier: stripeVerifier,
		Version:        version,
	})

	logger.Info("Versator Cloud API starting", map[string]interface{}{
		"version":      version,
		"port":         cfg.Port,
		"svix_enabled": cfg.SvixEnabled,
	})

	if err := http.ListenAndServe(":"+cfg.Port, server.Router); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// buildVerifiers picks the webhook verification strategy once at
// startup. With svix enabled both endpoints check svix signatures;
// without it Stripe's native scheme covers billing and the identity
// endpoint accepts deliveries as-is.
func buildVerifiers(cfg *config.Config) (clerk, stripe handlers.Verifier, err error) {
	if cfg.SvixEnabled {
		clerk, err = handlers.NewSvixVerifier(cfg.ClerkWebhookSecret)
		if err != nil {
			return nil, nil, err
		}
		stripe, err = handlers.NewSvixVerifier(cfg.SvixWebhookSecret)
		if err != nil {
			return nil, nil, err
		}
		return clerk, stripe, nil
	}

	return handlers.NewTrustingVerifier(), handlers.NewStripeVerifier(cfg.StripeWebhookSecret), nil
}
