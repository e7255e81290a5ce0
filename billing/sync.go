package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"

	"versator.app/cloud/internal/kv"
	"versator.app/cloud/internal/logger"
	"versator.app/cloud/models"
	"versator.app/cloud/storage"
)

// Service reconciles subscription state from Stripe into the cache
// store and the relational user mirror. Stripe is the source of truth;
// every sync pulls current state and overwrites, so redelivered or
// concurrent invocations settle on last write wins.
type Service struct {
	Payments PaymentAPI
	KV       kv.Store
	Storage  storage.Storage
	PriceID  string
	AppURL   string
}

// SyncCustomer fetches the customer's latest subscription, classifies
// it into a plan, writes the cache record and then the user row. The
// cache write happens first; a crash in between is repaired by the next
// sync, since nothing here applies deltas.
func (s *Service) SyncCustomer(ctx context.Context, customerID string) (models.SubscriptionCache, error) {
	subscription, err := s.Payments.LatestSubscription(ctx, customerID)
	if err != nil {
		return models.SubscriptionCache{}, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	if subscription == nil {
		record := models.SubscriptionCache{Status: models.StatusNone}
		if err := s.writeCache(ctx, customerID, record); err != nil {
			return models.SubscriptionCache{}, err
		}
		if err := s.updatePlan(ctx, customerID, models.PlanFree); err != nil {
			return models.SubscriptionCache{}, err
		}
		return record, nil
	}

	record := cacheRecord(subscription)
	plan := models.PlanForStatus(record.Status)

	if err := s.writeCache(ctx, customerID, record); err != nil {
		return models.SubscriptionCache{}, err
	}
	if err := s.updatePlan(ctx, customerID, plan); err != nil {
		return models.SubscriptionCache{}, err
	}

	logger.Info("Synced subscription state", map[string]interface{}{
		"customer_id":     customerID,
		"status":          record.Status,
		"plan":            plan,
		"subscription_id": record.SubscriptionID,
	})

	return record, nil
}

func cacheRecord(subscription *stripe.Subscription) models.SubscriptionCache {
	record := models.SubscriptionCache{
		Status:            string(subscription.Status),
		SubscriptionID:    subscription.ID,
		CancelAtPeriodEnd: subscription.CancelAtPeriodEnd,
	}

	if subscription.Items != nil && len(subscription.Items.Data) > 0 {
		item := subscription.Items.Data[0]
		record.CurrentPeriodStart = item.CurrentPeriodStart
		record.CurrentPeriodEnd = item.CurrentPeriodEnd
		if item.Price != nil {
			record.PriceID = item.Price.ID
		}
	}

	if pm := subscription.DefaultPaymentMethod; pm != nil && pm.Card != nil {
		record.PaymentMethod = &models.PaymentMethod{
			Brand: string(pm.Card.Brand),
			Last4: pm.Card.Last4,
		}
	}

	return record
}

func (s *Service) writeCache(ctx context.Context, customerID string, record models.SubscriptionCache) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription cache: %w", err)
	}
	if err := s.KV.Set(ctx, kv.SubscriptionKey(customerID), string(payload)); err != nil {
		return fmt.Errorf("failed to write subscription cache: %w", err)
	}
	return nil
}

// updatePlan resolves the local user through the customer-to-user cache
// mapping and updates by primary key. Matching only on the customer id
// column silently updates zero rows for a brand-new customer whose row
// has not carried the id yet, so that path is the fallback and a zero
// match is logged.
func (s *Service) updatePlan(ctx context.Context, customerID, plan string) error {
	userID, err := s.KV.Get(ctx, kv.CustomerUserKey(customerID))
	if err != nil {
		return fmt.Errorf("failed to resolve user for customer: %w", err)
	}

	if userID != "" {
		if err := s.Storage.SetPlan(ctx, userID, plan, customerID); err != nil {
			return fmt.Errorf("failed to update user plan: %w", err)
		}
		return nil
	}

	matched, err := s.Storage.SetPlanByCustomerID(ctx, customerID, plan)
	if err != nil {
		return fmt.Errorf("failed to update user plan: %w", err)
	}
	if matched == 0 {
		logger.Warn("Subscription sync matched no user row", map[string]interface{}{
			"customer_id": customerID,
			"plan":        plan,
		})
	}

	return nil
}

// CachedSubscription reads the stored cache record without touching
// Stripe.
func (s *Service) CachedSubscription(ctx context.Context, customerID string) (*models.SubscriptionCache, error) {
	raw, err := s.KV.Get(ctx, kv.SubscriptionKey(customerID))
	if err != nil {
		return nil, fmt.Errorf("failed to read subscription cache: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var record models.SubscriptionCache
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("failed to decode subscription cache: %w", err)
	}
	return &record, nil
}
