package kv

import (
	"context"
	"sync"
)

// Store is the flat key-value cache holding the Stripe customer
// mappings and subscription cache records. A missing key reads back as
// ("", nil) rather than an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Cache key layout, shared with the dashboard pages.
func UserCustomerKey(userID string) string       { return "stripe:user:" + userID }
func CustomerUserKey(customerID string) string   { return "stripe:customer:" + customerID + ":user" }
func SubscriptionKey(customerID string) string   { return "stripe:customer:" + customerID }

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
