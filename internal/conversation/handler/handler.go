// Package handler exposes the inbound message webhook of the conversation engine.
package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"booking_concierge_backend/internal/conversation/transport"
	"booking_concierge_backend/internal/scheduler"
	"booking_concierge_backend/platform/apperr"
	"booking_concierge_backend/platform/httpkit"
	"booking_concierge_backend/platform/logger"
	"booking_concierge_backend/platform/phone"
	"booking_concierge_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidSender    = "sender is not a valid phone number"
)

// Handler handles HTTP requests for conversations.
type Handler struct {
	queue  scheduler.TurnEnqueuer
	val    *validator.Validator
	region string
	log    *logger.Logger
}

// New creates a new conversation handler.
func New(queue scheduler.TurnEnqueuer, val *validator.Validator, region string, log *logger.Logger) *Handler {
	return &Handler{queue: queue, val: val, region: region, log: log}
}

// Inbound queues one customer message for processing. The conversation id is
// the sender's E.164 number. A message already queued is acknowledged without
// queueing it again.
// POST /api/v1/conversations/inbound
func (h *Handler) Inbound(c *gin.Context) {
	var req transport.InboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Describe(err))
		return
	}
	if httpkit.MustGetIdentity(c) == nil {
		return
	}

	conversationID := phone.NormalizeE164In(req.From, h.region)
	if !strings.HasPrefix(conversationID, "+") {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidSender, nil)
		return
	}

	duplicate, err := h.queue.EnqueueTurn(c.Request.Context(), scheduler.ConversationTurnPayload{
		ConversationID: conversationID,
		MessageID:      req.MessageID,
		Message:        req.Text,
		Interactive:    req.Interactive,
		CustomerID:     req.CustomerID,
	})
	if err != nil {
		h.log.WithContext(c.Request.Context()).ExternalCallFailed("asynq", "enqueue_turn", err)
		httpkit.HandleError(c, apperr.ExternalService("could not queue message", err))
		return
	}

	resp := transport.InboundMessageResponse{
		Status:         transport.StatusAccepted,
		ConversationID: conversationID,
		MessageID:      req.MessageID,
	}
	if duplicate {
		resp.Status = transport.StatusDuplicate
		httpkit.OK(c, resp)
		return
	}
	httpkit.JSON(c, http.StatusAccepted, resp)
}
