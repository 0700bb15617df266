package handler

import (
	apphttp "booking_concierge_backend/internal/http"
	"booking_concierge_backend/platform/httpkit"
)

// Module mounts the conversation webhook.
type Module struct {
	handler *Handler
}

// NewModule creates the conversation HTTP module.
func NewModule(h *Handler) *Module {
	return &Module{handler: h}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversations"
}

// RegisterRoutes mounts the webhook. Rate limiting runs before token checks.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/conversations/inbound",
		ctx.WebhookRateLimiter.RateLimit(),
		httpkit.GatewayAuthRequired(ctx.Config),
		m.handler.Inbound,
	)
}

var _ apphttp.Module = (*Module)(nil)
