package scheduler

import (
	"context"
	"errors"
	"time"

	"booking_concierge_backend/platform/config"
	"booking_concierge_backend/platform/kv"

	"github.com/hibiken/asynq"
)

const (
	turnMaxRetry     = 5
	outboxMaxRetry   = 8
	turnTimeout      = 90 * time.Second
	taskIDRetention  = 24 * time.Hour
	defaultQueueName = "default"
)

type Client struct {
	client *asynq.Client
	queue  string
}

// TurnEnqueuer is what the webhook needs from the queue.
type TurnEnqueuer interface {
	EnqueueTurn(ctx context.Context, payload ConversationTurnPayload) (duplicate bool, err error)
}

// OutboxEnqueuer is what the turn worker needs from the queue.
type OutboxEnqueuer interface {
	EnqueueOutbox(ctx context.Context, payload OutboxDeliveryPayload) error
}

var (
	_ TurnEnqueuer   = (*Client)(nil)
	_ OutboxEnqueuer = (*Client)(nil)
)

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueTurn queues one inbound message. The task id is derived from the
// conversation and message ids, so a redelivered webhook reports duplicate.
func (c *Client) EnqueueTurn(ctx context.Context, payload ConversationTurnPayload) (bool, error) {
	task, err := NewConversationTurnTask(payload)
	if err != nil {
		return false, err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(turnTaskID(payload.ConversationID, payload.MessageID)),
		asynq.MaxRetry(turnMaxRetry),
		asynq.Timeout(turnTimeout),
		asynq.Retention(taskIDRetention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return true, nil
	}
	return false, err
}

// EnqueueOutbox queues delivery of a turn's outbox. Re-enqueueing the same
// turn is a no-op.
func (c *Client) EnqueueOutbox(ctx context.Context, payload OutboxDeliveryPayload) error {
	task, err := NewOutboxDeliveryTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(outboxTaskID(payload.ConversationID, payload.MessageID)),
		asynq.MaxRetry(outboxMaxRetry),
		asynq.Retention(taskIDRetention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return defaultQueueName
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := kv.ClientOptions(redisURL, tlsInsecure)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
