package domain

import (
	"fmt"
	"strings"
	"time"
)

// Message roles stored in the conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation history.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Preferences are soft user preferences that influence ranking and selection.
type Preferences struct {
	Budget   float64 `json:"budget,omitempty" validate:"gte=0"`
	Priority string  `json:"priority,omitempty" validate:"omitempty,oneof=cheapest premium comfort"`
	Notes    string  `json:"notes,omitempty" validate:"omitempty,max=300"`
}

// IsEmpty reports whether no preference is set.
func (p Preferences) IsEmpty() bool {
	return p == Preferences{}
}

// Merge overlays the non-empty fields of other onto p.
func (p Preferences) Merge(other Preferences) Preferences {
	if other.Budget > 0 {
		p.Budget = other.Budget
	}
	if other.Priority != "" {
		p.Priority = other.Priority
	}
	if other.Notes != "" {
		p.Notes = other.Notes
	}
	return p
}

// VehicleSearchOption is a catalog vehicle offered to the user, with the
// price estimate attached after ranking. A zero rate means the vehicle has no
// rate for that booking type.
type VehicleSearchOption struct {
	VehicleID         string  `json:"vehicleId"`
	Name              string  `json:"name,omitempty"`
	Make              string  `json:"make,omitempty"`
	Model             string  `json:"model,omitempty"`
	Color             string  `json:"color,omitempty"`
	VehicleType       string  `json:"vehicleType,omitempty"`
	ServiceTier       string  `json:"serviceTier,omitempty"`
	DayRate           float64 `json:"dayRate,omitempty"`
	NightRate         float64 `json:"nightRate,omitempty"`
	FullDayRate       float64 `json:"fullDayRate,omitempty"`
	AirportPickupRate float64 `json:"airportPickupRate,omitempty"`
	ImageURL          string  `json:"imageUrl,omitempty"`

	Quantity              int               `json:"quantity,omitempty"`
	UnitRate              float64           `json:"unitRate,omitempty"`
	Subtotal              int64             `json:"subtotal,omitempty"`
	VATRate               float64           `json:"vatRate,omitempty"`
	VATAmount             int64             `json:"vatAmount,omitempty"`
	EstimatedTotalInclVAT int64             `json:"estimatedTotalInclVat,omitempty"`
	PriceBasis            string            `json:"priceBasis,omitempty"`
	Reason                AlternativeReason `json:"reason,omitempty"`
}

// Title is the human label of the vehicle.
func (o VehicleSearchOption) Title() string {
	if o.Name != "" {
		return o.Name
	}
	title := strings.TrimSpace(o.Make + " " + o.Model)
	if o.Color != "" {
		title = fmt.Sprintf("%s (%s)", title, o.Color)
	}
	if title == "" {
		return o.VehicleID
	}
	return title
}

// ExtractionResult is the interpreted meaning of one inbound message.
type ExtractionResult struct {
	Intent         Intent       `json:"intent"`
	Patch          BookingDraft `json:"draftPatch"`
	SelectionHint  string       `json:"selectionHint,omitempty"`
	PreferenceHint *Preferences `json:"preferenceHint,omitempty"`
	Question       string       `json:"question,omitempty"`
	Confidence     float64      `json:"confidence"`
	Source         string       `json:"source,omitempty"`
}

// ConversationState is everything persisted for one conversation.
type ConversationState struct {
	ConversationID   string                `json:"conversationId"`
	CustomerID       string                `json:"customerId,omitempty"`
	Messages         []Message             `json:"messages"`
	Draft            BookingDraft          `json:"draft"`
	Stage            Stage                 `json:"stage"`
	Turn             int                   `json:"turn"`
	LastExtraction   *ExtractionResult     `json:"lastExtraction,omitempty"`
	AvailableOptions []VehicleSearchOption `json:"availableOptions,omitempty"`
	LastShownOptions []VehicleSearchOption `json:"lastShownOptions,omitempty"`
	SelectedOption   *VehicleSearchOption  `json:"selectedOption,omitempty"`
	HoldID           string                `json:"holdId,omitempty"`
	BookingID        string                `json:"bookingId,omitempty"`
	PaymentID        string                `json:"paymentId,omitempty"`
	CheckoutURL      string                `json:"checkoutUrl,omitempty"`
	Preferences      Preferences           `json:"preferences"`
	PendingError     string                `json:"pendingError,omitempty"`
	NextNode         Node                  `json:"nextNode,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

// NewConversationState returns the initial state for a conversation.
func NewConversationState(conversationID string, now time.Time) *ConversationState {
	return &ConversationState{
		ConversationID: conversationID,
		Stage:          StageGreeting,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AppendMessage adds a history entry.
func (s *ConversationState) AppendMessage(role, content string, at time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, At: at})
}

// TrimHistory keeps only the newest limit messages.
func (s *ConversationState) TrimHistory(limit int) {
	if limit <= 0 || len(s.Messages) <= limit {
		return
	}
	kept := make([]Message, limit)
	copy(kept, s.Messages[len(s.Messages)-limit:])
	s.Messages = kept
}

// ClearOptions drops available and shown options along with the selection.
func (s *ConversationState) ClearOptions() {
	s.AvailableOptions = nil
	s.LastShownOptions = nil
	s.SelectedOption = nil
}

// ClearBooking forgets the hold, booking and payment link of the last request.
func (s *ConversationState) ClearBooking() {
	s.HoldID = ""
	s.BookingID = ""
	s.PaymentID = ""
	s.CheckoutURL = ""
	s.PendingError = ""
}

// FindOption returns the available option with the given vehicle id.
func (s *ConversationState) FindOption(vehicleID string) (VehicleSearchOption, bool) {
	for _, opt := range s.AvailableOptions {
		if opt.VehicleID == vehicleID {
			return opt, true
		}
	}
	return VehicleSearchOption{}, false
}
