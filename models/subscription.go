package models

// StatusNone marks the empty variant of SubscriptionCache: the customer
// has no subscription at all on the Stripe side.
const StatusNone = "none"

// Stripe subscription statuses that map to the pro plan. Every other
// status string is passed through unvalidated and classifies as free.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
)

type PaymentMethod struct {
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

// SubscriptionCache is the record stored under stripe:customer:<id> in
// the cache store. It is fully overwritten on every reconciliation; when
// Status is "none" all other fields are zero.
type SubscriptionCache struct {
	Status             string         `json:"status"`
	SubscriptionID     string         `json:"subscriptionId,omitempty"`
	PriceID            string         `json:"priceId,omitempty"`
	CancelAtPeriodEnd  bool           `json:"cancelAtPeriodEnd,omitempty"`
	CurrentPeriodStart int64          `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   int64          `json:"currentPeriodEnd,omitempty"`
	PaymentMethod      *PaymentMethod `json:"paymentMethod,omitempty"`
}

// PlanForStatus classifies a Stripe subscription status into a plan.
func PlanForStatus(status string) string {
	if status == StatusActive || status == StatusTrialing {
		return PlanPro
	}
	return PlanFree
}
