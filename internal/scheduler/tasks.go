package scheduler

import (
	"encoding/json"

	"booking_concierge_backend/internal/conversation/domain"

	"github.com/hibiken/asynq"
)

const TaskConversationTurn = "conversation.turn"

const TaskOutboxDelivery = "conversation.outbox"

type ConversationTurnPayload struct {
	ConversationID string              `json:"conversationId"`
	MessageID      string              `json:"messageId"`
	Message        string              `json:"message,omitempty"`
	Interactive    *domain.Interactive `json:"interactive,omitempty"`
	CustomerID     string              `json:"customerId,omitempty"`
}

type OutboxDeliveryPayload struct {
	ConversationID string              `json:"conversationId"`
	MessageID      string              `json:"messageId"`
	Recipient      string              `json:"recipient"`
	Items          []domain.OutboxItem `json:"items"`
}

func turnTaskID(conversationID, messageID string) string {
	return "turn:" + conversationID + ":" + messageID
}

func outboxTaskID(conversationID, messageID string) string {
	return "outbox:" + conversationID + ":" + messageID
}

func NewConversationTurnTask(payload ConversationTurnPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConversationTurn, data), nil
}

func ParseConversationTurnPayload(task *asynq.Task) (ConversationTurnPayload, error) {
	var payload ConversationTurnPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ConversationTurnPayload{}, err
	}
	return payload, nil
}

func NewOutboxDeliveryTask(payload OutboxDeliveryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutboxDelivery, data), nil
}

func ParseOutboxDeliveryPayload(task *asynq.Task) (OutboxDeliveryPayload, error) {
	var payload OutboxDeliveryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OutboxDeliveryPayload{}, err
	}
	return payload, nil
}
