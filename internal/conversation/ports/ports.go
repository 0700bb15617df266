// Package ports defines the interfaces the conversation engine requires from
// external systems. Adapters in other packages implement them; the engine only
// knows about the data it needs, in the shape it wants.
package ports

import (
	"context"
	"errors"
	"time"

	"booking_concierge_backend/internal/conversation/domain"
)

// ErrVehicleUnavailable is returned by BookingCreator when the chosen vehicle
// was taken between presentation and booking.
var ErrVehicleUnavailable = errors.New("vehicle unavailable")

// ErrKeyNotFound is returned by KeyValue.Get for a missing key.
var ErrKeyNotFound = errors.New("key not found")

// Extractor turns a user message into raw JSON following the extraction schema.
type Extractor interface {
	Extract(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// ReplyContext is what the reply generator sees of a turn.
type ReplyContext struct {
	Stage            domain.Stage
	Node             domain.Node
	Draft            domain.BookingDraft
	Missing          []string
	Prompt           string
	Options          []domain.VehicleSearchOption
	Selected         *domain.VehicleSearchOption
	CheckoutURL      string
	Question         string
	History          []domain.Message
	CurrencySymbol   string
	ExactMatchFound  bool
	PendingErrorText string
}

// ReplyGenerator writes the assistant's answer for a turn.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, rc ReplyContext) (domain.Reply, error)
}

// VehicleSearcher queries the vehicle catalog.
type VehicleSearcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.VehicleSearchOption, error)
}

// TaxRateProvider returns the VAT percentage applied to estimates.
type TaxRateProvider interface {
	VATRate(ctx context.Context) (float64, error)
}

// BookingInput is the request sent to the booking subsystem.
type BookingInput struct {
	ConversationID string
	CustomerID     string
	VehicleID      string
	Draft          domain.BookingDraft
	Subtotal       int64
	VATAmount      int64
	Total          int64
	IdempotencyKey string
}

// BookingResult is what the booking subsystem returns for a created booking.
type BookingResult struct {
	BookingID   string
	HoldID      string
	PaymentID   string
	CheckoutURL string
}

// BookingCreator creates a booking hold and payment link.
type BookingCreator interface {
	CreateBooking(ctx context.Context, in BookingInput) (BookingResult, error)
}

// MessageSender delivers outbox items in order.
type MessageSender interface {
	Send(ctx context.Context, recipient string, items []domain.OutboxItem) error
}

// KeyValue is the minimal store the conversation state store needs.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithExpiry(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
