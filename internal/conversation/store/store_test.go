package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"booking_concierge_backend/internal/adapters"
	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/platform/apperr"
	"booking_concierge_backend/platform/kv"
	"booking_concierge_backend/platform/logger"
)

// flakyKV fails the first failures writes, then delegates to the wrapped store.
type flakyKV struct {
	*adapters.KeyValueAdapter
	failures  int
	setCalls  int
	deleteErr error
}

func (f *flakyKV) SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.setCalls++
	if f.setCalls <= f.failures {
		return errors.New("connection reset")
	}
	return f.KeyValueAdapter.SetWithExpiry(ctx, key, value, ttl)
}

func (f *flakyKV) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.KeyValueAdapter.Delete(ctx, key)
}

func newRedis(t *testing.T) (*adapters.KeyValueAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return adapters.NewKeyValueAdapter(kv.New(client)), mr
}

func testConfig() Config {
	return Config{TTL: time.Hour, HistoryLimit: 4, MaxAttempts: 3, Backoff: 0}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	redisKV, mr := newRedis(t)
	s := New(redisKV, testConfig(), logger.Nop())
	ctx := context.Background()

	state := domain.NewConversationState("+2348012345678", time.Now().UTC())
	state.Draft = domain.BookingDraft{Make: "Toyota", Model: "Prado"}
	state.Stage = domain.StageCollecting
	for i := 0; i < 6; i++ {
		state.AppendMessage(domain.RoleUser, string(rune('a'+i)), time.Now().UTC())
	}

	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL(Key(state.ConversationID)); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", ttl)
	}

	loaded, found, err := s.Load(ctx, state.ConversationID)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if loaded.Draft.Model != "Prado" || loaded.Stage != domain.StageCollecting {
		t.Fatalf("unexpected state %+v", loaded)
	}
	if len(loaded.Messages) != 4 || loaded.Messages[0].Content != "c" {
		t.Fatalf("expected newest 4 messages, got %+v", loaded.Messages)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	redisKV, _ := newRedis(t)
	s := New(redisKV, testConfig(), logger.Nop())

	state, found, err := s.Load(context.Background(), "nobody")
	if err != nil || found || state != nil {
		t.Fatalf("expected not found, got state=%v found=%v err=%v", state, found, err)
	}
}

func TestStore_LoadCorruptIsDataIntegrity(t *testing.T) {
	redisKV, mr := newRedis(t)
	s := New(redisKV, testConfig(), logger.Nop())

	if err := mr.Set(Key("c1"), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, _, err := s.Load(context.Background(), "c1")
	if !apperr.Is(err, apperr.KindDataIntegrity) {
		t.Fatalf("expected data integrity failure, got %v", err)
	}

	if err := mr.Set(Key("c2"), `{"conversationId":"c2","stage":"dancing"}`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := s.Load(context.Background(), "c2"); !apperr.Is(err, apperr.KindDataIntegrity) {
		t.Fatalf("expected data integrity failure for unknown stage, got %v", err)
	}
}

func TestStore_SaveRetriesTransientFailures(t *testing.T) {
	redisKV, mr := newRedis(t)
	flaky := &flakyKV{KeyValueAdapter: redisKV, failures: 2}
	s := New(flaky, testConfig(), logger.Nop())

	state := domain.NewConversationState("c1", time.Now())
	if err := s.Save(context.Background(), state); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if flaky.setCalls != 3 {
		t.Fatalf("expected 3 attempts, got %d", flaky.setCalls)
	}
	if !mr.Exists(Key("c1")) {
		t.Fatalf("expected state written")
	}
}

func TestStore_SaveSurfacesPersistenceFailure(t *testing.T) {
	redisKV, _ := newRedis(t)
	flaky := &flakyKV{KeyValueAdapter: redisKV, failures: 3}
	s := New(flaky, testConfig(), logger.Nop())

	err := s.Save(context.Background(), domain.NewConversationState("c1", time.Now()))
	if !apperr.Is(err, apperr.KindPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if flaky.setCalls != 3 {
		t.Fatalf("expected 3 attempts, got %d", flaky.setCalls)
	}
}

func TestStore_ClearSwallowsErrors(t *testing.T) {
	redisKV, mr := newRedis(t)
	s := New(&flakyKV{KeyValueAdapter: redisKV, deleteErr: errors.New("down")}, testConfig(), logger.Nop())
	_ = mr.Set(Key("c1"), "{}")

	s.Clear(context.Background(), "c1")

	if !mr.Exists(Key("c1")) {
		t.Fatalf("expected key untouched when delete fails")
	}

	New(redisKV, testConfig(), logger.Nop()).Clear(context.Background(), "c1")
	if mr.Exists(Key("c1")) {
		t.Fatalf("expected key deleted")
	}
}
