package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booking_concierge_backend/internal/adapters"
	"booking_concierge_backend/internal/booking"
	"booking_concierge_backend/internal/catalog"
	"booking_concierge_backend/internal/conversation"
	"booking_concierge_backend/internal/conversation/agent"
	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/extraction"
	"booking_concierge_backend/internal/conversation/outbox"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/internal/conversation/search"
	"booking_concierge_backend/internal/conversation/store"
	"booking_concierge_backend/internal/scheduler"
	"booking_concierge_backend/internal/whatsapp"
	"booking_concierge_backend/platform/ai/moonshot"
	"booking_concierge_backend/platform/config"
	"booking_concierge_backend/platform/db"
	"booking_concierge_backend/platform/kv"
	"booking_concierge_backend/platform/logger"
	"booking_concierge_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting conversation worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	if !cfg.IsLLMEnabled() {
		log.Error("MOONSHOT_API_KEY is required by the conversation worker")
		panic("MOONSHOT_API_KEY is required by the conversation worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	kvStore, err := kv.NewFromURL(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to initialize redis", "error", err)
		panic("failed to initialize redis: " + err.Error())
	}
	defer func() { _ = kvStore.Close() }()
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		return kvStore.Ping(ctx)
	}); err != nil {
		log.Error("failed to reach redis", "error", err)
		panic("failed to reach redis: " + err.Error())
	}

	outboxQueue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize outbox queue", "error", err)
		panic("failed to initialize outbox queue: " + err.Error())
	}
	defer func() { _ = outboxQueue.Close() }()

	val := validator.New()
	keyValue := adapters.NewKeyValueAdapter(kvStore)

	llm := moonshot.NewModel(moonshot.Config{
		APIKey:          cfg.GetMoonshotAPIKey(),
		BaseURL:         cfg.GetLLMBaseURL(),
		Model:           cfg.GetLLMModel(),
		DisableThinking: true,
	})
	var replier ports.ReplyGenerator = agent.NewReplier(llm, val)

	// Catalog search and VAT lookups run in-process against the catalog tables.
	catalogService := catalog.NewModule(pool, val, cfg, log).Service()

	turns := conversation.New(conversation.Deps{
		Store: store.New(keyValue, store.Config{
			TTL:          cfg.GetConversationTTL(),
			HistoryLimit: cfg.GetConversationHistoryLimit(),
			Backoff:      store.DefaultBackoff,
		}, log),
		Extraction: extraction.New(agent.NewExtractor(llm), val, log),
		Searcher:   catalogService,
		TaxRates:   catalogService,
		Bookings:   booking.NewClient(cfg),
		Replier:    replier,
		Outbox: outbox.NewBuilder(outbox.Config{
			CurrencySymbol:      cfg.GetCurrencySymbol(),
			VehicleCardTemplate: cfg.GetVehicleCardTemplate(),
			PaymentLinkTemplate: cfg.GetPaymentLinkTemplate(),
		}),
		Log: log,
	}, conversation.Config{
		SearchTimeout:            cfg.GetSearchTimeout(),
		AlternativeSearchTimeout: cfg.GetAlternativeSearchTimeout(),
		CandidateLimit:           cfg.GetSearchCandidateLimit(),
		Rank: search.RankConfig{
			MaxExact:        cfg.GetMaxExactMatches(),
			MaxAlternatives: cfg.GetMaxAlternatives(),
			PriceTolerance:  cfg.GetPriceSimilarityTolerance(),
		},
		NightPickupTime: cfg.GetNightPickupTime(),
		CurrencySymbol:  cfg.GetCurrencySymbol(),
	})

	var sender ports.MessageSender
	if client := whatsapp.NewClient(cfg, keyValue, log); client != nil {
		sender = client
	} else {
		log.Warn("WhatsApp not configured; outbox items will be dropped")
		sender = discardSender{log: log}
	}

	worker, err := scheduler.NewWorker(cfg, scheduler.WorkerDeps{
		Turns:  turns,
		Sender: sender,
		Outbox: outboxQueue,
		KV:     kvStore,
		Log:    log,
	})
	if err != nil {
		log.Error("failed to initialize conversation worker", "error", err)
		panic("failed to initialize conversation worker: " + err.Error())
	}

	worker.Run(ctx)
}

// discardSender stands in for the messaging transport in local setups.
type discardSender struct {
	log *logger.Logger
}

func (d discardSender) Send(ctx context.Context, recipient string, items []domain.OutboxItem) error {
	d.log.WithContext(ctx).Info("outbox dropped", "recipient", recipient, "items", len(items))
	return nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
