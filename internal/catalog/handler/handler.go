package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"booking_concierge_backend/internal/catalog/service"
	"booking_concierge_backend/internal/catalog/transport"
	"booking_concierge_backend/platform/httpkit"
	"booking_concierge_backend/platform/validator"
)

// Handler handles HTTP requests for catalog.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid vehicle id"
)

// New creates a new catalog handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListVehicles retrieves vehicles.
// GET /api/v1/catalog/vehicles
func (h *Handler) ListVehicles(c *gin.Context) {
	var req transport.ListVehiclesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Describe(err))
		return
	}

	result, err := h.svc.ListVehicles(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SearchVehicles runs the same search the conversation engine uses.
// GET /api/v1/catalog/vehicles/search
func (h *Handler) SearchVehicles(c *gin.Context) {
	var req transport.SearchVehiclesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Describe(err))
		return
	}

	result, err := h.svc.SearchVehicles(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}

// GetVehicleByID retrieves a vehicle by ID.
// GET /api/v1/catalog/vehicles/:id
func (h *Handler) GetVehicleByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" || len(id) > 64 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetVehicleByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListVatRates retrieves VAT rates.
// GET /api/v1/catalog/vat-rates
func (h *Handler) ListVatRates(c *gin.Context) {
	result, err := h.svc.ListVatRates(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}
