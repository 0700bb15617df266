// Package catalog provides the vehicle catalog bounded context module.
package catalog

import (
	"booking_concierge_backend/internal/catalog/handler"
	"booking_concierge_backend/internal/catalog/repository"
	"booking_concierge_backend/internal/catalog/service"
	apphttp "booking_concierge_backend/internal/http"
	"booking_concierge_backend/platform/config"
	"booking_concierge_backend/platform/logger"
	"booking_concierge_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the catalog module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, cfg config.CatalogConfig, log *logger.Logger) *Module {
	return newModule(repository.New(pool), val, cfg, log)
}

func newModule(repo repository.Repository, val *validator.Validator, cfg config.CatalogConfig, log *logger.Logger) *Module {
	svc := service.New(repo, cfg, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer. It implements the vehicle searcher and
// tax rate provider of the conversation engine.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Gateway.GET("/catalog/vehicles", m.handler.ListVehicles)
	ctx.Gateway.GET("/catalog/vehicles/search", m.handler.SearchVehicles)
	ctx.Gateway.GET("/catalog/vehicles/:id", m.handler.GetVehicleByID)
	ctx.Gateway.GET("/catalog/vat-rates", m.handler.ListVatRates)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
