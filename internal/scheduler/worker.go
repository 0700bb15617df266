package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"booking_concierge_backend/internal/conversation"
	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/apperr"
	"booking_concierge_backend/platform/config"
	"booking_concierge_backend/platform/kv"
	"booking_concierge_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const (
	turnLockTTL       = 2 * time.Minute
	processedTTL      = 24 * time.Hour
	lockRetryDelay    = 2 * time.Second
	defaultConcurrent = 10
)

// TurnRunner executes one conversation turn.
type TurnRunner interface {
	Invoke(ctx context.Context, in conversation.TurnInput) (conversation.TurnResult, error)
}

type WorkerDeps struct {
	Turns  TurnRunner
	Sender ports.MessageSender
	Outbox OutboxEnqueuer
	KV     *kv.Store
	Log    *logger.Logger
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	deps   WorkerDeps
}

func NewWorker(cfg config.SchedulerConfig, deps WorkerDeps) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrent
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		RetryDelayFunc: retryDelay,
		IsFailure: func(err error) bool {
			return !errors.Is(err, kv.ErrLockHeld)
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		deps:   deps,
	}

	mux.HandleFunc(TaskConversationTurn, w.handleTurn)
	mux.HandleFunc(TaskOutboxDelivery, w.handleOutbox)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.deps.Log.Error("conversation worker stopped", "error", err)
	}
}

// retryDelay retries a turn blocked by another turn of the same conversation
// quickly and everything else with asynq's default backoff.
func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	if errors.Is(err, kv.ErrLockHeld) {
		return lockRetryDelay
	}
	return asynq.DefaultRetryDelayFunc(n, err, task)
}

func lockKey(conversationID string) string {
	return "conversation:lock:" + conversationID
}

func processedKey(conversationID, messageID string) string {
	return "conversation:processed:" + conversationID + ":" + messageID
}

// handleTurn runs one turn under the conversation lock. The outbox of a
// finished turn is recorded before it is queued, so a retry after a failed
// enqueue re-queues the same items instead of running the turn again.
func (w *Worker) handleTurn(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseConversationTurnPayload(task)
	if err != nil {
		return fmt.Errorf("parse turn payload: %v: %w", err, asynq.SkipRetry)
	}
	ctx = logger.WithConversation(ctx, payload.ConversationID, payload.MessageID)
	log := w.deps.Log.WithContext(ctx)

	lock, err := w.deps.KV.Lock(ctx, lockKey(payload.ConversationID), turnLockTTL)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("conversation lock release failed", "error", err)
		}
	}()

	items, done, err := w.recordedOutbox(ctx, payload)
	if err != nil {
		return err
	}
	if !done {
		result, err := w.deps.Turns.Invoke(ctx, conversation.TurnInput{
			ConversationID: payload.ConversationID,
			MessageID:      payload.MessageID,
			Message:        payload.Message,
			Interactive:    payload.Interactive,
			CustomerID:     payload.CustomerID,
		})
		if err != nil && apperr.Is(err, apperr.KindPersistence) {
			return err
		}
		items = result.Outbox
		if err := w.recordOutbox(ctx, payload, items); err != nil {
			return err
		}
	}

	if len(items) == 0 {
		return nil
	}
	return w.deps.Outbox.EnqueueOutbox(ctx, OutboxDeliveryPayload{
		ConversationID: payload.ConversationID,
		MessageID:      payload.MessageID,
		Recipient:      payload.ConversationID,
		Items:          items,
	})
}

func (w *Worker) recordedOutbox(ctx context.Context, payload ConversationTurnPayload) ([]domain.OutboxItem, bool, error) {
	data, err := w.deps.KV.Get(ctx, processedKey(payload.ConversationID, payload.MessageID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var items []domain.OutboxItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("decode recorded outbox: %w", err)
	}
	return items, true, nil
}

func (w *Worker) recordOutbox(ctx context.Context, payload ConversationTurnPayload, items []domain.OutboxItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return w.deps.KV.SetWithExpiry(ctx, processedKey(payload.ConversationID, payload.MessageID), data, processedTTL)
}

func (w *Worker) handleOutbox(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOutboxDeliveryPayload(task)
	if err != nil {
		return fmt.Errorf("parse outbox payload: %v: %w", err, asynq.SkipRetry)
	}
	ctx = logger.WithConversation(ctx, payload.ConversationID, payload.MessageID)

	if err := w.deps.Sender.Send(ctx, payload.Recipient, payload.Items); err != nil {
		w.deps.Log.WithContext(ctx).ExternalCallFailed("whatsapp", "send", err)
		return err
	}
	return nil
}
