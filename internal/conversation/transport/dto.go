package transport

import "booking_concierge_backend/internal/conversation/domain"

// InboundMessageRequest is one customer message relayed by the messaging gateway.
type InboundMessageRequest struct {
	From        string              `json:"from" validate:"required,max=32"`
	MessageID   string              `json:"messageId" validate:"required,max=200"`
	Text        string              `json:"text" validate:"required_without=Interactive,max=4096"`
	Interactive *domain.Interactive `json:"interactive,omitempty"`
	CustomerID  string              `json:"customerId,omitempty" validate:"max=100"`
}

type InboundMessageResponse struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

const (
	StatusAccepted  = "accepted"
	StatusDuplicate = "duplicate"
)
