package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"versator.app/cloud/internal/logger"
)

// allowedStripeEvents is the fixed set of billing events worth a sync.
// The sync is pull-based, so the event type only gates whether we act;
// the payload's customer id is all we read.
var allowedStripeEvents = map[string]bool{
	"checkout.session.completed":                     true,
	"customer.subscription.created":                  true,
	"customer.subscription.updated":                  true,
	"customer.subscription.deleted":                  true,
	"customer.subscription.paused":                   true,
	"customer.subscription.resumed":                  true,
	"customer.subscription.pending_update_applied":   true,
	"customer.subscription.pending_update_expired":   true,
	"customer.subscription.trial_will_end":           true,
	"invoice.paid":                                   true,
	"invoice.payment_failed":                         true,
	"invoice.payment_action_required":                true,
	"invoice.upcoming":                               true,
	"invoice.marked_uncollectible":                   true,
	"invoice.payment_succeeded":                      true,
	"payment_intent.succeeded":                       true,
	"payment_intent.payment_failed":                  true,
	"payment_intent.canceled":                        true,
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			Customer json.RawMessage `json:"customer"`
		} `json:"object"`
	} `json:"data"`
}

// StripeWebhook ingests billing events. Duplicate deliveries are
// harmless: the handler never applies the event's delta, it re-pulls
// the customer's current state.
func (s *Server) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read stripe webhook payload", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := s.stripeVerifier.Verify(payload, r.Header); err != nil {
		logger.Error("Stripe webhook signature verification failed", map[string]interface{}{
			"error":       err.Error(),
			"remote_addr": r.RemoteAddr,
		})
		writeErrorResponse(w, http.StatusBadRequest, "webhook verification failed")
		return
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		logger.Error("Invalid stripe webhook envelope", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusBadRequest, "invalid event")
		return
	}

	if !allowedStripeEvents[event.Type] {
		logger.Debug("Dropping stripe event outside allow-list", map[string]interface{}{
			"event_type": event.Type,
		})
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	var customerID string
	if err := json.Unmarshal(event.Data.Object.Customer, &customerID); err != nil || customerID == "" {
		internalError(w, "Stripe event customer id is not a string", fmt.Errorf("event %s: customer is not a string", event.Type), map[string]interface{}{
			"event_type": event.Type,
		})
		return
	}

	if _, err := s.billing.SyncCustomer(ctx, customerID); err != nil {
		internalError(w, "Failed to process stripe event", err, map[string]interface{}{
			"event_type":  event.Type,
			"customer_id": customerID,
		})
		return
	}

	logger.Info("Processed stripe event", map[string]interface{}{
		"event_type":  event.Type,
		"customer_id": customerID,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
