package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82"

	"versator.app/cloud/internal/kv"
	"versator.app/cloud/models"
)

func activeSubscription() *stripe.Subscription {
	start := time.Now().Unix()
	return &stripe.Subscription{
		ID:     "sub_test",
		Status: stripe.SubscriptionStatusActive,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					CurrentPeriodStart: start,
					CurrentPeriodEnd:   start + 30*24*3600,
					Price:              &stripe.Price{ID: "price_pro_monthly"},
				},
			},
		},
		DefaultPaymentMethod: &stripe.PaymentMethod{
			Card: &stripe.PaymentMethodCard{Brand: stripe.PaymentMethodCardBrandVisa, Last4: "4242"},
		},
	}
}

func stripeEventPayload(eventType string, customer interface{}) []byte {
	object := map[string]interface{}{"id": "obj_test"}
	if customer != nil {
		object["customer"] = customer
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"id":   "evt_test",
		"type": eventType,
		"data": map[string]interface{}{"object": object},
	})
	return payload
}

func postStripe(env *testEnv, payload []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", "t=1,v1=test")
	w := httptest.NewRecorder()
	env.server.Router.ServeHTTP(w, req)
	return w
}

func seedCustomer(t *testing.T, env *testEnv, userID, customerID string) {
	t.Helper()
	ctx := context.Background()

	user := &models.User{
		ID:               userID,
		Email:            userID + "@example.com",
		SubscriptionPlan: models.PlanFree,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	if err := env.storage.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if err := env.kv.Set(ctx, kv.UserCustomerKey(userID), customerID); err != nil {
		t.Fatalf("Set user mapping failed: %v", err)
	}
	if err := env.kv.Set(ctx, kv.CustomerUserKey(customerID), userID); err != nil {
		t.Fatalf("Set customer mapping failed: %v", err)
	}
}

func TestStripeWebhook_SubscriptionUpdated(t *testing.T) {
	env := newTestEnv(t)
	seedCustomer(t, env, "user_123", "cus_test")
	env.payments.subscription = activeSubscription()

	w := postStripe(env, stripeEventPayload("customer.subscription.updated", "cus_test"))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var response map[string]bool
	decodeBody(t, w, &response)
	if !response["received"] {
		t.Errorf("Expected received=true, got %v", response)
	}

	ctx := context.Background()
	user, err := env.storage.GetUser(ctx, "user_123")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.SubscriptionPlan != models.PlanPro {
		t.Errorf("Expected plan '%s', got '%s'", models.PlanPro, user.SubscriptionPlan)
	}
	if user.StripeCustomerID != "cus_test" {
		t.Errorf("Expected customer id 'cus_test', got '%s'", user.StripeCustomerID)
	}

	raw, err := env.kv.Get(ctx, kv.SubscriptionKey("cus_test"))
	if err != nil {
		t.Fatalf("Get cache failed: %v", err)
	}
	var record models.SubscriptionCache
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		t.Fatalf("Failed to decode cache record: %v", err)
	}
	if record.Status != models.StatusActive {
		t.Errorf("Expected cached status '%s', got '%s'", models.StatusActive, record.Status)
	}
}

func TestStripeWebhook_EventOutsideAllowList(t *testing.T) {
	env := newTestEnv(t)
	// a sync attempt would surface this error, so a 200 proves the drop
	env.payments.subErr = errors.New("stripe should not be called")

	w := postStripe(env, stripeEventPayload("charge.refunded", "cus_test"))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var response map[string]bool
	decodeBody(t, w, &response)
	if !response["received"] {
		t.Errorf("Expected received=true, got %v", response)
	}
}

func TestStripeWebhook_CustomerNotAString(t *testing.T) {
	env := newTestEnv(t)

	for name, customer := range map[string]interface{}{
		"missing": nil,
		"object":  map[string]interface{}{"id": "cus_test"},
		"number":  42,
	} {
		w := postStripe(env, stripeEventPayload("invoice.paid", customer))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s customer: expected status %d, got %d", name, http.StatusInternalServerError, w.Code)
		}
	}
}

func TestStripeWebhook_SyncFailure(t *testing.T) {
	env := newTestEnv(t)
	seedCustomer(t, env, "user_123", "cus_test")
	env.payments.subErr = errors.New("stripe unavailable")

	w := postStripe(env, stripeEventPayload("invoice.paid", "cus_test"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestStripeWebhook_BadSignature(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.StripeVerifier = failingVerifier{}
	})
	env.payments.subscription = activeSubscription()

	w := postStripe(env, stripeEventPayload("invoice.paid", "cus_test"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestStripeWebhook_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	w := postStripe(env, []byte("not json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
