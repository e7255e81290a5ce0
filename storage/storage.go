package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"versator.app/cloud/models"
)

// ErrNoUser is returned when a child row references a user that does
// not exist.
var ErrNoUser = errors.New("user not found")

// Storage is the relational mirror of identity and billing state.
// Lookups return (nil, nil) when no row matches.
type Storage interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)

	// UpsertUser overwrites every field except the creation timestamp.
	UpsertUser(ctx context.Context, user *models.User) error

	// DeleteUser removes the row and its session/account/2FA children.
	// Deleting an absent user is not an error.
	DeleteUser(ctx context.Context, id string) error

	// SetPlan updates the subscription fields on a row matched by user id.
	SetPlan(ctx context.Context, userID, plan, stripeCustomerID string) error

	// SetPlanByCustomerID updates rows matched by their Stripe customer id
	// and reports how many rows matched, so callers can notice when a
	// brand-new customer has no row carrying the id yet.
	SetPlanByCustomerID(ctx context.Context, customerID, plan string) (int64, error)

	SaveSession(ctx context.Context, session *models.Session) error

	Close() error
}

type MemoryStorage struct {
	mu       sync.RWMutex
	Users    map[string]models.User
	Sessions map[string]models.Session
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		Users:    make(map[string]models.User),
		Sessions: make(map[string]models.Session),
	}
}

func (m *MemoryStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.Users[id]
	if !exists {
		return nil, nil
	}
	return &user, nil
}

func (m *MemoryStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.Users {
		if user.Email == email {
			userCopy := user
			return &userCopy, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*models.User, 0, len(m.Users))
	for _, user := range m.Users {
		userCopy := user
		users = append(users, &userCopy)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *MemoryStorage) UpsertUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := *user
	if existing, exists := m.Users[user.ID]; exists {
		updated.CreatedAt = existing.CreatedAt
	}
	m.Users[user.ID] = updated
	return nil
}

func (m *MemoryStorage) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Users, id)
	for sessionID, session := range m.Sessions {
		if session.UserID == id {
			delete(m.Sessions, sessionID)
		}
	}
	return nil
}

func (m *MemoryStorage) SetPlan(ctx context.Context, userID, plan, stripeCustomerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.Users[userID]
	if !exists {
		return nil
	}
	user.SubscriptionPlan = plan
	if stripeCustomerID != "" {
		user.StripeCustomerID = stripeCustomerID
	}
	m.Users[userID] = user
	return nil
}

func (m *MemoryStorage) SetPlanByCustomerID(ctx context.Context, customerID, plan string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched int64
	for id, user := range m.Users {
		if user.StripeCustomerID == customerID {
			user.SubscriptionPlan = plan
			m.Users[id] = user
			matched++
		}
	}
	return matched, nil
}

func (m *MemoryStorage) SaveSession(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.Users[session.UserID]; !exists {
		return ErrNoUser
	}
	m.Sessions[session.ID] = *session
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
