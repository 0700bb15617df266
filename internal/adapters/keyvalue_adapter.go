package adapters

import (
	"context"
	"errors"
	"time"

	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/kv"
)

// KeyValueAdapter exposes the Redis store as the conversation engine's KeyValue port.
type KeyValueAdapter struct {
	store *kv.Store
}

var _ ports.KeyValue = (*KeyValueAdapter)(nil)

func NewKeyValueAdapter(store *kv.Store) *KeyValueAdapter {
	return &KeyValueAdapter{store: store}
}

// Get translates a missing key into ports.ErrKeyNotFound.
func (a *KeyValueAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := a.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ports.ErrKeyNotFound
	}
	return value, err
}

func (a *KeyValueAdapter) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return a.store.SetWithExpiry(ctx, key, value, ttl)
}

func (a *KeyValueAdapter) Delete(ctx context.Context, key string) error {
	return a.store.Delete(ctx, key)
}
