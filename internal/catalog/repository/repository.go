package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"booking_concierge_backend/platform/apperr"
)

const (
	vehicleNotFoundMessage = "vehicle not found"
	vatRateNotFoundMessage = "vat rate not found"

	vehicleColumns = `v.id, v.name, v.make, v.model, v.color, v.vehicle_type, v.service_tier,
		v.day_rate, v.night_rate, v.full_day_rate, v.airport_pickup_rate, v.image_url, v.active,
		v.created_at, v.updated_at`

	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// rateColumns maps a booking type to the price column used for it.
var rateColumns = map[string]string{
	"day":            "v.day_rate",
	"night":          "v.night_rate",
	"full_day":       "v.full_day_rate",
	"airport_pickup": "v.airport_pickup_rate",
}

// Repo implements the catalog repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// SearchVehicles returns active vehicles matching the filters, cheapest first
// for the requested booking type. Vehicles with a blackout overlapping the
// requested dates are excluded.
func (r *Repo) SearchVehicles(ctx context.Context, params SearchVehiclesParams) ([]Vehicle, error) {
	query, args := buildSearchQuery(params)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search vehicles: %w", err)
	}
	defer rows.Close()

	items := make([]Vehicle, 0)
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		items = append(items, vehicle)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", rows.Err())
	}
	return items, nil
}

func buildSearchQuery(params SearchVehiclesParams) (string, []interface{}) {
	whereClauses := []string{"v.active"}
	args := []interface{}{}
	argIdx := 1

	addLike := func(column, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		whereClauses = append(whereClauses, fmt.Sprintf("%s ILIKE $%d", column, argIdx))
		args = append(args, "%"+escapeLike(value)+"%")
		argIdx++
	}
	addLike("v.make", params.Make)
	addLike("v.model", params.Model)
	addLike("v.color", params.Color)
	addLike("v.vehicle_type", params.VehicleType)
	addLike("v.service_tier", params.ServiceTier)

	rateColumn, ok := rateColumns[params.BookingType]
	if ok {
		whereClauses = append(whereClauses, rateColumn+" IS NOT NULL")
	} else {
		rateColumn = rateColumns["day"]
	}

	if params.From != nil {
		to := params.From
		if params.To != nil && params.To.After(*params.From) {
			to = params.To
		}
		whereClauses = append(whereClauses, fmt.Sprintf(`NOT EXISTS (
			SELECT 1 FROM catalog_vehicle_blackouts b
			WHERE b.vehicle_id = v.id AND b.starts_on <= $%d AND b.ends_on >= $%d)`, argIdx, argIdx+1))
		args = append(args, *to, *params.From)
		argIdx += 2
	}

	limit := params.Limit
	if limit < 1 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM catalog_vehicles v
		WHERE %s
		ORDER BY %s ASC NULLS LAST, v.name ASC, v.id ASC
		LIMIT $%d
	`, vehicleColumns, strings.Join(whereClauses, " AND "), rateColumn, argIdx)

	return query, args
}

// GetVehicleByID retrieves a vehicle by ID.
func (r *Repo) GetVehicleByID(ctx context.Context, id string) (Vehicle, error) {
	query := fmt.Sprintf(`SELECT %s FROM catalog_vehicles v WHERE v.id = $1`, vehicleColumns)

	vehicle, err := scanVehicle(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vehicle{}, apperr.NotFound(vehicleNotFoundMessage)
		}
		return Vehicle{}, fmt.Errorf("get vehicle by id: %w", err)
	}
	return vehicle, nil
}

// ListVehicles lists vehicles with filters and pagination.
func (r *Repo) ListVehicles(ctx context.Context, params ListVehiclesParams) ([]Vehicle, int, error) {
	whereClauses := []string{"TRUE"}
	args := []interface{}{}
	argIdx := 1

	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(v.name ILIKE $%d OR v.make ILIKE $%d OR v.model ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}
	if params.VehicleType != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("lower(v.vehicle_type) = lower($%d)", argIdx))
		args = append(args, params.VehicleType)
		argIdx++
	}

	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM catalog_vehicles v WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}

	sortColumn := "v.name"
	switch params.SortBy {
	case "dayRate":
		sortColumn = "v.day_rate"
	case "make":
		sortColumn = "v.make"
	case "createdAt":
		sortColumn = "v.created_at"
	}

	sortOrder := "ASC"
	if params.SortOrder == "desc" {
		sortOrder = "DESC"
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM catalog_vehicles v
		WHERE %s
		ORDER BY %s %s NULLS LAST, v.id ASC
		LIMIT $%d OFFSET $%d
	`, vehicleColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	items := make([]Vehicle, 0)
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan vehicle: %w", err)
		}
		items = append(items, vehicle)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate vehicles: %w", rows.Err())
	}

	return items, total, nil
}

// GetVatRateByCode retrieves a VAT rate by its code.
func (r *Repo) GetVatRateByCode(ctx context.Context, code string) (VatRate, error) {
	query := `
		SELECT code, name, rate_bps, created_at, updated_at
		FROM catalog_vat_rates
		WHERE code = $1`

	var rate VatRate
	var createdAt, updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query, code).Scan(
		&rate.Code, &rate.Name, &rate.RateBps, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VatRate{}, apperr.NotFound(vatRateNotFoundMessage)
		}
		return VatRate{}, fmt.Errorf("get vat rate by code: %w", err)
	}

	rate.CreatedAt = createdAt.Format(time.RFC3339)
	rate.UpdatedAt = updatedAt.Format(time.RFC3339)
	return rate, nil
}

// ListVatRates lists all VAT rates by name.
func (r *Repo) ListVatRates(ctx context.Context) ([]VatRate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT code, name, rate_bps, created_at, updated_at
		FROM catalog_vat_rates
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list vat rates: %w", err)
	}
	defer rows.Close()

	items := make([]VatRate, 0)
	for rows.Next() {
		var rate VatRate
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&rate.Code, &rate.Name, &rate.RateBps, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan vat rate: %w", err)
		}
		rate.CreatedAt = createdAt.Format(time.RFC3339)
		rate.UpdatedAt = updatedAt.Format(time.RFC3339)
		items = append(items, rate)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate vat rates: %w", rows.Err())
	}
	return items, nil
}

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var v Vehicle
	var createdAt, updatedAt time.Time
	if err := row.Scan(
		&v.ID, &v.Name, &v.Make, &v.Model, &v.Color, &v.VehicleType, &v.ServiceTier,
		&v.DayRate, &v.NightRate, &v.FullDayRate, &v.AirportPickupRate, &v.ImageURL, &v.Active,
		&createdAt, &updatedAt,
	); err != nil {
		return Vehicle{}, err
	}
	v.CreatedAt = createdAt.Format(time.RFC3339)
	v.UpdatedAt = updatedAt.Format(time.RFC3339)
	return v, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
