// Package store persists conversation state in the key-value store.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/apperr"
	"booking_concierge_backend/platform/logger"
)

const keyPrefix = "conversation:state:"

const (
	defaultMaxAttempts  = 3
	defaultHistoryLimit = 30
	defaultTTL          = 72 * time.Hour

	// DefaultBackoff is the production base delay between write attempts.
	DefaultBackoff = 100 * time.Millisecond
)

// Config tunes persistence.
type Config struct {
	TTL          time.Duration
	HistoryLimit int
	MaxAttempts  int
	// Backoff is the base delay between write attempts; attempt n waits n*n*Backoff.
	Backoff time.Duration
}

// Store loads and saves ConversationState.
type Store struct {
	kv  ports.KeyValue
	cfg Config
	log *logger.Logger
}

// New creates a Store. Zero config values fall back to defaults, except
// Backoff, where zero means retry immediately.
func New(kv ports.KeyValue, cfg Config, log *logger.Logger) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Store{kv: kv, cfg: cfg, log: log}
}

// Key returns the storage key for a conversation.
func Key(conversationID string) string {
	return keyPrefix + conversationID
}

// Load returns the persisted state. found is false when none exists. A stored
// value that cannot be decoded is a DataIntegrity error, never treated as absent.
func (s *Store) Load(ctx context.Context, conversationID string) (state *domain.ConversationState, found bool, err error) {
	raw, err := s.kv.Get(ctx, Key(conversationID))
	if errors.Is(err, ports.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.ExternalService("load conversation state", err).WithOp("store.Load")
	}

	state = &domain.ConversationState{}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, false, apperr.DataIntegrity("conversation state is corrupt", err).WithOp("store.Load")
	}
	if !state.Stage.Valid() {
		return nil, false, apperr.DataIntegrity("conversation state has unknown stage "+string(state.Stage), nil).WithOp("store.Load")
	}
	return state, true, nil
}

// Save trims the history and writes the state with the configured TTL,
// retrying failed writes before returning a Persistence error.
func (s *Store) Save(ctx context.Context, state *domain.ConversationState) error {
	state.TrimHistory(s.cfg.HistoryLimit)

	raw, err := json.Marshal(state)
	if err != nil {
		return apperr.DataIntegrity("encode conversation state", err).WithOp("store.Save")
	}

	key := Key(state.ConversationID)
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		lastErr = s.kv.SetWithExpiry(ctx, key, raw, s.cfg.TTL)
		if lastErr == nil {
			return nil
		}
		s.log.WithContext(ctx).Warn("conversation state write failed",
			"attempt", attempt,
			"max_attempts", s.cfg.MaxAttempts,
			"error", lastErr.Error(),
		)
		if attempt == s.cfg.MaxAttempts {
			break
		}

		delay := time.Duration(attempt*attempt) * s.cfg.Backoff
		select {
		case <-ctx.Done():
			return apperr.Persistence("save conversation state", ctx.Err()).WithOp("store.Save")
		case <-time.After(delay):
		}
	}

	s.log.StoreError("save", lastErr)
	return apperr.Persistence("save conversation state", lastErr).WithOp("store.Save")
}

// Clear deletes the state. Failures are logged and never returned.
func (s *Store) Clear(ctx context.Context, conversationID string) {
	if err := s.kv.Delete(ctx, Key(conversationID)); err != nil {
		s.log.WithContext(ctx).Warn("conversation state clear failed", "error", err.Error())
	}
}
