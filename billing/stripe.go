package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// PaymentAPI is the slice of the payment processor this service uses.
// The processor owns carts, prices and checkout; we only ever ask for
// the latest subscription, a customer record, and a hosted checkout
// session.
type PaymentAPI interface {
	// LatestSubscription returns the customer's most recent subscription
	// in any status, with its default payment method expanded, or nil
	// when the customer has none.
	LatestSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error)

	CreateCustomer(ctx context.Context, userID string) (*stripe.Customer, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

type CheckoutParams struct {
	CustomerID string
	UserID     string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

type stripeAPI struct {
	sc *client.API
}

// NewStripeAPI wraps the official client behind PaymentAPI.
func NewStripeAPI(secretKey string) PaymentAPI {
	return &stripeAPI{sc: client.New(secretKey, nil)}
}

func (a *stripeAPI) LatestSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.AddExpand("data.default_payment_method")

	iter := a.sc.Subscriptions.List(params)
	for iter.Next() {
		return iter.Subscription(), nil
	}
	return nil, iter.Err()
}

func (a *stripeAPI) CreateCustomer(ctx context.Context, userID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddMetadata("userId", userID)
	// retried creates must not mint duplicate customers
	params.SetIdempotencyKey(uuid.Must(uuid.NewRandom()).String())

	return a.sc.Customers.New(params)
}

func (a *stripeAPI) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:                 stripe.String(p.CustomerID),
		Mode:                     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:               stripe.String(p.SuccessURL),
		CancelURL:                stripe.String(p.CancelURL),
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionAuto)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"userId": p.UserID},
		},
	}
	params.Context = ctx

	return a.sc.CheckoutSessions.New(params)
}

func (a *stripeAPI) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	return a.sc.CheckoutSessions.Get(sessionID, params)
}
