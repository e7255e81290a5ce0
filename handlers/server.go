package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/atomic"

	"versator.app/cloud/billing"
	"versator.app/cloud/identity"
	"versator.app/cloud/internal/auth"
	"versator.app/cloud/internal/logger"
	"versator.app/cloud/internal/ratelimit"
	"versator.app/cloud/storage"
)

type Server struct {
	Router  chi.Router
	Storage storage.Storage

	identity *identity.Service
	billing  *billing.Service

	clerkVerifier  Verifier
	stripeVerifier Verifier

	version   string
	startedAt time.Time
	requests  atomic.Int64
}

type Options struct {
	Storage  storage.Storage
	Identity *identity.Service
	Billing  *billing.Service
	Auth     *auth.Service

	ClerkVerifier  Verifier
	StripeVerifier Verifier

	Version string
}

func NewHTTPServer(opts Options) *Server {
	s := &Server{
		Storage:        opts.Storage,
		identity:       opts.Identity,
		billing:        opts.Billing,
		clerkVerifier:  opts.ClerkVerifier,
		stripeVerifier: opts.StripeVerifier,
		version:        opts.Version,
		startedAt:      time.Now(),
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	r.Use(s.countRequests)

	r.Get("/health", s.Health)

	// vendors retry on 429, so the ceiling is generous
	webhookLimit := ratelimit.New(300, time.Minute)
	r.Group(func(r chi.Router) {
		r.Use(webhookLimit.Middleware)
		r.Post("/api/webhooks/clerk", s.ClerkWebhook)
		r.Post("/api/webhooks/stripe", s.StripeWebhook)
	})

	r.Group(func(r chi.Router) {
		r.Use(opts.Auth.Middleware)
		r.Post("/api/users/sync", s.SyncUser)
		r.Get("/api/billing/subscription", s.Subscription)
		r.Post("/api/billing/checkout", s.Checkout)
		r.Post("/api/billing/sync", s.SyncAfterCheckout)
		r.Get("/api/admin/users", s.ListUsers)
	})

	s.Router = r
	return s
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Inc()
		next.ServeHTTP(w, r)
	})
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	UptimeSec int64     `json:"uptime_sec"`
	Requests  int64     `json:"requests"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Timestamp: time.Now(),
		UptimeSec: int64(time.Since(s.startedAt).Seconds()),
		Requests:  s.requests.Load(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// internalError reports the real error server-side and hands the caller
// a generic 500.
func internalError(w http.ResponseWriter, message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["error"] = err.Error()
	logger.Error(message, fields)
	sentry.CaptureException(err)
	writeErrorResponse(w, http.StatusInternalServerError, "internal error")
}
