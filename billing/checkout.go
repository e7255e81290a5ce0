package billing

import (
	"context"
	"errors"
	"fmt"

	"versator.app/cloud/internal/kv"
	"versator.app/cloud/internal/logger"
)

// ErrNoCustomer is returned when a checkout session carries no customer
// reference, which means there is nothing to reconcile against.
var ErrNoCustomer = errors.New("checkout session has no customer")

// CheckoutURL creates (or reuses) the Stripe customer for a user and
// returns the URL of a processor-hosted checkout session for the pro
// plan. The local side models no cart or pricing.
func (s *Service) CheckoutURL(ctx context.Context, userID string) (string, error) {
	customerID, err := s.KV.Get(ctx, kv.UserCustomerKey(userID))
	if err != nil {
		return "", fmt.Errorf("failed to look up customer mapping: %w", err)
	}

	if customerID == "" {
		customer, err := s.Payments.CreateCustomer(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("failed to create stripe customer: %w", err)
		}
		customerID = customer.ID

		if err := s.KV.Set(ctx, kv.UserCustomerKey(userID), customerID); err != nil {
			return "", fmt.Errorf("failed to store user mapping: %w", err)
		}
		if err := s.KV.Set(ctx, kv.CustomerUserKey(customerID), userID); err != nil {
			return "", fmt.Errorf("failed to store customer mapping: %w", err)
		}

		logger.Info("Created stripe customer", map[string]interface{}{
			"user_id":     userID,
			"customer_id": customerID,
		})
	}

	session, err := s.Payments.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		UserID:     userID,
		PriceID:    s.PriceID,
		SuccessURL: s.AppURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.AppURL + "/dashboard/billing",
	})
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return session.URL, nil
}

// SyncAfterCheckout is the success-page flow: resolve the session's
// customer and pull fresh subscription state, so the user sees their
// plan flip without waiting for the webhook.
func (s *Service) SyncAfterCheckout(ctx context.Context, sessionID string) error {
	session, err := s.Payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to retrieve checkout session: %w", err)
	}
	if session.Customer == nil || session.Customer.ID == "" {
		return ErrNoCustomer
	}

	_, err = s.SyncCustomer(ctx, session.Customer.ID)
	return err
}
