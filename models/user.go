package models

import "time"

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// User mirrors the identity provider's user record. Clerk is the source
// of truth for identity fields, Stripe for the subscription fields; rows
// here are overwritten on every sync event.
type User struct {
	ID               string
	Email            string
	EmailVerified    bool
	FirstName        string
	LastName         string
	Name             string
	Image            string
	StripeCustomerID string
	SubscriptionPlan string
	TwoFactorEnabled *bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Session struct {
	ID        string
	UserID    string
	Token     string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
