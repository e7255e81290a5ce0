package testutil

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v82"

	"versator.app/cloud/billing"
	"versator.app/cloud/models"
	"versator.app/cloud/storage"
)

// CreateTestUser builds a user row with the given parameters.
func CreateTestUser(id, email string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:               id,
		Email:            email,
		EmailVerified:    true,
		Name:             "Test User",
		SubscriptionPlan: models.PlanFree,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// SeedUsers writes a handful of free-plan users into the store.
func SeedUsers(store storage.Storage, ids ...string) error {
	ctx := context.Background()
	for _, id := range ids {
		if err := store.UpsertUser(ctx, CreateTestUser(id, id+"@example.com")); err != nil {
			return err
		}
	}
	return nil
}

// ActiveSubscription builds a Stripe subscription in the shape the sync
// path reads: status, first item with period and price, expanded card.
func ActiveSubscription(priceID string) *stripe.Subscription {
	start := time.Now().Unix()
	return &stripe.Subscription{
		ID:     "sub_test",
		Status: stripe.SubscriptionStatusActive,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					CurrentPeriodStart: start,
					CurrentPeriodEnd:   start + 30*24*3600,
					Price:              &stripe.Price{ID: priceID},
				},
			},
		},
		DefaultPaymentMethod: &stripe.PaymentMethod{
			Card: &stripe.PaymentMethodCard{Brand: stripe.PaymentMethodCardBrandVisa, Last4: "4242"},
		},
	}
}

// FakePayments is a canned PaymentAPI for tests that exercise the full
// billing path without the processor.
type FakePayments struct {
	Subscription *stripe.Subscription
	SubErr       error
	Customer     *stripe.Customer
	Session      *stripe.CheckoutSession
	CheckoutURL  string
}

var _ billing.PaymentAPI = (*FakePayments)(nil)

func (f *FakePayments) LatestSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error) {
	return f.Subscription, f.SubErr
}

func (f *FakePayments) CreateCustomer(ctx context.Context, userID string) (*stripe.Customer, error) {
	if f.Customer == nil {
		return &stripe.Customer{ID: "cus_test"}, nil
	}
	return f.Customer, nil
}

func (f *FakePayments) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*stripe.CheckoutSession, error) {
	url := f.CheckoutURL
	if url == "" {
		url = "https://checkout.stripe.com/c/pay/cs_test"
	}
	return &stripe.CheckoutSession{ID: "cs_test", URL: url}, nil
}

func (f *FakePayments) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	if f.Session == nil {
		return &stripe.CheckoutSession{ID: sessionID}, nil
	}
	return f.Session, nil
}
