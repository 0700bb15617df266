package repository

import (
	"context"
	"time"
)

// Vehicle represents a rentable vehicle in the catalog.
type Vehicle struct {
	ID                string   `db:"id"`
	Name              string   `db:"name"`
	Make              string   `db:"make"`
	Model             string   `db:"model"`
	Color             string   `db:"color"`
	VehicleType       string   `db:"vehicle_type"`
	ServiceTier       string   `db:"service_tier"`
	DayRate           *float64 `db:"day_rate"`
	NightRate         *float64 `db:"night_rate"`
	FullDayRate       *float64 `db:"full_day_rate"`
	AirportPickupRate *float64 `db:"airport_pickup_rate"`
	ImageURL          string   `db:"image_url"`
	Active            bool     `db:"active"`
	CreatedAt         string   `db:"created_at"`
	UpdatedAt         string   `db:"updated_at"`
}

// VatRate represents a VAT rate applied to rental estimates.
type VatRate struct {
	Code      string `db:"code"`
	Name      string `db:"name"`
	RateBps   int    `db:"rate_bps"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

// SearchVehiclesParams filters active vehicles for a booking request.
// Empty strings and nil dates do not filter.
type SearchVehiclesParams struct {
	Make        string
	Model       string
	Color       string
	VehicleType string
	ServiceTier string
	// BookingType restricts results to vehicles priced for it and orders by that rate.
	BookingType string
	From        *time.Time
	To          *time.Time
	Limit       int
}

// ListVehiclesParams defines filters for listing vehicles.
type ListVehiclesParams struct {
	Search      string
	VehicleType string
	Offset      int
	Limit       int
	SortBy      string
	SortOrder   string
}

// Repository defines catalog storage operations.
type Repository interface {
	SearchVehicles(ctx context.Context, params SearchVehiclesParams) ([]Vehicle, error)
	GetVehicleByID(ctx context.Context, id string) (Vehicle, error)
	ListVehicles(ctx context.Context, params ListVehiclesParams) ([]Vehicle, int, error)

	GetVatRateByCode(ctx context.Context, code string) (VatRate, error)
	ListVatRates(ctx context.Context) ([]VatRate, error)
}
