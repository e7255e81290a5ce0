package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"versator.app/cloud/internal/logger"
	"versator.app/cloud/models"
	"versator.app/cloud/storage"
)

// Event types the identity provider delivers that this service acts on.
// Everything else is acknowledged and ignored.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// ErrInvalidUserID marks a delete event whose payload carries no usable
// identifier; the ingress maps it to a client error and nothing is
// written.
var ErrInvalidUserID = errors.New("missing or invalid user id")

// Event is the provider's webhook envelope. Data stays raw until the
// type is known.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// UserPayload is the provider's user object, reduced to the fields the
// local mirror keeps.
type UserPayload struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
		Verification *struct {
			Status string `json:"status"`
		} `json:"verification"`
	} `json:"email_addresses"`
	TwoFactorEnabled *bool `json:"two_factor_enabled"`
	CreatedAt        int64 `json:"created_at"`
	UpdatedAt        int64 `json:"updated_at"`
}

type DeletedPayload struct {
	ID json.RawMessage `json:"id"`
}

type Service struct {
	Storage storage.Storage
}

func NewService(store storage.Storage) *Service {
	return &Service{Storage: store}
}

// HandleEvent dispatches a parsed provider event. Unrecognized types
// return (false, nil): acknowledged, not an error.
func (s *Service) HandleEvent(ctx context.Context, event *Event) (bool, error) {
	switch event.Type {
	case EventUserCreated, EventUserUpdated:
		var payload UserPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return false, fmt.Errorf("failed to parse user payload: %w", err)
		}
		return true, s.UpsertUser(ctx, &payload)

	case EventUserDeleted:
		var payload DeletedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return false, fmt.Errorf("failed to parse deleted payload: %w", err)
		}

		var id string
		if err := json.Unmarshal(payload.ID, &id); err != nil || id == "" {
			return false, ErrInvalidUserID
		}
		return true, s.DeleteUser(ctx, id)

	default:
		logger.Info("Ignoring identity event", map[string]interface{}{
			"event_type": event.Type,
		})
		return false, nil
	}
}

// UpsertUser maps the provider payload onto the local user shape and
// overwrites everything except the creation timestamp. New rows start
// on the free plan with no payment customer attached.
func (s *Service) UpsertUser(ctx context.Context, payload *UserPayload) error {
	user := MapUser(payload, time.Now().UTC())

	if err := s.Storage.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	logger.Info("Synced identity user", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return nil
}

// DeleteUser removes the row by primary key; child rows cascade. An
// absent row is a no-op so redeliveries stay harmless.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.Storage.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	logger.Info("Deleted identity user", map[string]interface{}{
		"user_id": id,
	})
	return nil
}

// EnsureUser creates a placeholder row for an authenticated user the
// webhook has not delivered yet. The next created/updated event fills
// in the identity fields.
func (s *Service) EnsureUser(ctx context.Context, userID string) error {
	existing, err := s.Storage.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:               userID,
		SubscriptionPlan: models.PlanFree,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Storage.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create placeholder user: %w", err)
	}

	logger.Info("Created placeholder user", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

// MapUser converts the provider's user payload to the local row shape.
// Millisecond timestamps of zero fall back to now.
func MapUser(payload *UserPayload, now time.Time) *models.User {
	var email string
	var verified bool
	if len(payload.EmailAddresses) > 0 {
		primary := payload.EmailAddresses[0]
		email = primary.EmailAddress
		verified = primary.Verification != nil && primary.Verification.Status == "verified"
	}

	createdAt := now
	if payload.CreatedAt > 0 {
		createdAt = time.UnixMilli(payload.CreatedAt).UTC()
	}
	updatedAt := now
	if payload.UpdatedAt > 0 {
		updatedAt = time.UnixMilli(payload.UpdatedAt).UTC()
	}

	return &models.User{
		ID:               payload.ID,
		Email:            email,
		EmailVerified:    verified,
		FirstName:        payload.FirstName,
		LastName:         payload.LastName,
		Name:             strings.TrimSpace(payload.FirstName + " " + payload.LastName),
		Image:            payload.ImageURL,
		StripeCustomerID: "",
		SubscriptionPlan: models.PlanFree,
		TwoFactorEnabled: payload.TwoFactorEnabled,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
}
