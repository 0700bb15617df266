package service

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"booking_concierge_backend/internal/catalog/repository"
	"booking_concierge_backend/internal/catalog/transport"
	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/config"
	"booking_concierge_backend/platform/logger"
)

const (
	dateLayout      = "2006-01-02"
	defaultVATCode  = "standard"
	defaultCacheTTL = 10 * time.Minute
)

// Service provides business logic for catalog.
type Service struct {
	repo     repository.Repository
	log      *logger.Logger
	vatCode  string
	vatCache *cache.Cache
}

var (
	_ ports.VehicleSearcher = (*Service)(nil)
	_ ports.TaxRateProvider = (*Service)(nil)
)

// New creates a new catalog service.
func New(repo repository.Repository, cfg config.CatalogConfig, log *logger.Logger) *Service {
	ttl := cfg.GetTaxRateCacheTTL()
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	code := strings.TrimSpace(cfg.GetVATRateCode())
	if code == "" {
		code = defaultVATCode
	}
	return &Service{
		repo:     repo,
		log:      log,
		vatCode:  code,
		vatCache: cache.New(ttl, 2*ttl),
	}
}

// Search answers a conversation search query from the catalog.
func (s *Service) Search(ctx context.Context, q domain.SearchQuery) ([]domain.VehicleSearchOption, error) {
	vehicles, err := s.repo.SearchVehicles(ctx, repository.SearchVehiclesParams{
		Make:        q.Make,
		Model:       q.Model,
		Color:       q.Color,
		VehicleType: q.VehicleType,
		ServiceTier: q.ServiceTier,
		BookingType: string(q.BookingType),
		From:        parseDate(q.From),
		To:          parseDate(q.To),
		Limit:       q.Limit,
	})
	if err != nil {
		return nil, err
	}

	options := make([]domain.VehicleSearchOption, len(vehicles))
	for i, v := range vehicles {
		options[i] = toSearchOption(v)
	}
	return options, nil
}

// VATRate returns the configured VAT rate as a percentage. Lookups are cached.
func (s *Service) VATRate(ctx context.Context) (float64, error) {
	if cached, ok := s.vatCache.Get(s.vatCode); ok {
		return cached.(float64), nil
	}

	rate, err := s.repo.GetVatRateByCode(ctx, s.vatCode)
	if err != nil {
		return 0, err
	}
	percent := bpsToPercent(rate.RateBps)
	s.vatCache.Set(s.vatCode, percent, cache.DefaultExpiration)
	s.log.Debug("vat rate loaded", "code", s.vatCode, "percent", percent)
	return percent, nil
}

// GetVehicleByID retrieves a vehicle by ID.
func (s *Service) GetVehicleByID(ctx context.Context, id string) (transport.VehicleResponse, error) {
	vehicle, err := s.repo.GetVehicleByID(ctx, id)
	if err != nil {
		return transport.VehicleResponse{}, err
	}
	return toVehicleResponse(vehicle), nil
}

// ListVehicles retrieves vehicles with search and pagination.
func (s *Service) ListVehicles(ctx context.Context, req transport.ListVehiclesRequest) (transport.VehicleListResponse, error) {
	page := req.Page
	pageSize := req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	items, total, err := s.repo.ListVehicles(ctx, repository.ListVehiclesParams{
		Search:      strings.TrimSpace(req.Search),
		VehicleType: strings.TrimSpace(req.VehicleType),
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		return transport.VehicleListResponse{}, err
	}

	return toVehicleListResponse(items, total, page, pageSize), nil
}

// SearchVehicles runs the conversation search for the read-only HTTP surface.
func (s *Service) SearchVehicles(ctx context.Context, req transport.SearchVehiclesRequest) ([]transport.VehicleResponse, error) {
	vehicles, err := s.repo.SearchVehicles(ctx, repository.SearchVehiclesParams{
		Make:        strings.TrimSpace(req.Make),
		Model:       strings.TrimSpace(req.Model),
		Color:       strings.TrimSpace(req.Color),
		VehicleType: strings.TrimSpace(req.VehicleType),
		ServiceTier: strings.TrimSpace(req.ServiceTier),
		BookingType: req.BookingType,
		From:        parseDate(req.From),
		To:          parseDate(req.To),
		Limit:       req.Limit,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]transport.VehicleResponse, len(vehicles))
	for i, v := range vehicles {
		responses[i] = toVehicleResponse(v)
	}
	return responses, nil
}

// ListVatRates retrieves all VAT rates.
func (s *Service) ListVatRates(ctx context.Context) ([]transport.VatRateResponse, error) {
	rates, err := s.repo.ListVatRates(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]transport.VatRateResponse, len(rates))
	for i, rate := range rates {
		responses[i] = toVatRateResponse(rate)
	}
	return responses, nil
}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil
	}
	return &t
}

func bpsToPercent(bps int) float64 {
	return float64(bps) / 100
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func toSearchOption(v repository.Vehicle) domain.VehicleSearchOption {
	return domain.VehicleSearchOption{
		VehicleID:         v.ID,
		Name:              v.Name,
		Make:              v.Make,
		Model:             v.Model,
		Color:             v.Color,
		VehicleType:       v.VehicleType,
		ServiceTier:       v.ServiceTier,
		DayRate:           deref(v.DayRate),
		NightRate:         deref(v.NightRate),
		FullDayRate:       deref(v.FullDayRate),
		AirportPickupRate: deref(v.AirportPickupRate),
		ImageURL:          v.ImageURL,
	}
}

func toVehicleResponse(v repository.Vehicle) transport.VehicleResponse {
	return transport.VehicleResponse{
		ID:                v.ID,
		Name:              v.Name,
		Make:              v.Make,
		Model:             v.Model,
		Color:             v.Color,
		VehicleType:       v.VehicleType,
		ServiceTier:       v.ServiceTier,
		DayRate:           v.DayRate,
		NightRate:         v.NightRate,
		FullDayRate:       v.FullDayRate,
		AirportPickupRate: v.AirportPickupRate,
		ImageURL:          v.ImageURL,
		Active:            v.Active,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
}

func toVehicleListResponse(items []repository.Vehicle, total int, page int, pageSize int) transport.VehicleListResponse {
	responses := make([]transport.VehicleResponse, len(items))
	for i, item := range items {
		responses[i] = toVehicleResponse(item)
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return transport.VehicleListResponse{
		Items:      responses,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

func toVatRateResponse(rate repository.VatRate) transport.VatRateResponse {
	return transport.VatRateResponse{
		Code:      rate.Code,
		Name:      rate.Name,
		RateBps:   rate.RateBps,
		Percent:   bpsToPercent(rate.RateBps),
		CreatedAt: rate.CreatedAt,
		UpdatedAt: rate.UpdatedAt,
	}
}
