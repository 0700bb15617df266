package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"booking_concierge_backend/internal/catalog/repository"
	apphttp "booking_concierge_backend/internal/http"
	"booking_concierge_backend/platform/apperr"
	"booking_concierge_backend/platform/logger"
	"booking_concierge_backend/platform/validator"
)

type stubRepo struct {
	vehicles []repository.Vehicle
	search   repository.SearchVehiclesParams
}

func (s *stubRepo) SearchVehicles(_ context.Context, p repository.SearchVehiclesParams) ([]repository.Vehicle, error) {
	s.search = p
	return s.vehicles, nil
}

func (s *stubRepo) GetVehicleByID(_ context.Context, id string) (repository.Vehicle, error) {
	for _, v := range s.vehicles {
		if v.ID == id {
			return v, nil
		}
	}
	return repository.Vehicle{}, apperr.NotFound("vehicle not found")
}

func (s *stubRepo) ListVehicles(context.Context, repository.ListVehiclesParams) ([]repository.Vehicle, int, error) {
	return s.vehicles, len(s.vehicles), nil
}

func (s *stubRepo) GetVatRateByCode(context.Context, string) (repository.VatRate, error) {
	return repository.VatRate{Code: "standard", RateBps: 750}, nil
}

func (s *stubRepo) ListVatRates(context.Context) ([]repository.VatRate, error) {
	return []repository.VatRate{{Code: "standard", Name: "Standard VAT", RateBps: 750}}, nil
}

type stubConfig struct{}

func (stubConfig) GetDatabaseURL() string            { return "" }
func (stubConfig) GetVATRateCode() string            { return "standard" }
func (stubConfig) GetTaxRateCacheTTL() time.Duration { return time.Minute }

func newTestEngine(repo *stubRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	v1 := engine.Group("/api/v1")
	newModule(repo, validator.New(), stubConfig{}, logger.Nop()).RegisterRoutes(&apphttp.RouterContext{
		Engine:  engine,
		V1:      v1,
		Gateway: v1,
	})
	return engine
}

func TestRoutes(t *testing.T) {
	rate := 50000.0
	repo := &stubRepo{vehicles: []repository.Vehicle{{ID: "veh_prado_black", Make: "Toyota", Model: "Prado", DayRate: &rate, Active: true}}}
	engine := newTestEngine(repo)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"list", "/api/v1/catalog/vehicles?page=1&pageSize=10", http.StatusOK},
		{"search", "/api/v1/catalog/vehicles/search?make=toyota&bookingType=night&from=2026-10-20", http.StatusOK},
		{"search rejects bad booking type", "/api/v1/catalog/vehicles/search?bookingType=weekly", http.StatusBadRequest},
		{"search rejects bad date", "/api/v1/catalog/vehicles/search?from=20-10-2026", http.StatusBadRequest},
		{"get", "/api/v1/catalog/vehicles/veh_prado_black", http.StatusOK},
		{"get missing", "/api/v1/catalog/vehicles/veh_missing", http.StatusNotFound},
		{"vat rates", "/api/v1/catalog/vat-rates", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}

	if repo.search.Make != "toyota" || repo.search.BookingType != "night" || repo.search.From == nil {
		t.Fatalf("expected search params to reach the repository, got %+v", repo.search)
	}
}

func TestGetVehicle_Response(t *testing.T) {
	rate := 50000.0
	engine := newTestEngine(&stubRepo{vehicles: []repository.Vehicle{{ID: "veh_prado_black", Make: "Toyota", DayRate: &rate}}})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/vehicles/veh_prado_black", nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["id"] != "veh_prado_black" || body["dayRate"] != 50000.0 {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["nightRate"]; ok {
		t.Fatal("expected unpriced booking types to be omitted")
	}
}
