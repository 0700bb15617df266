// Package search builds catalog queries, ranks the candidates they return and
// attaches price estimates.
package search

import (
	"strings"

	"booking_concierge_backend/internal/conversation/domain"
)

// BuildExactQuery carries every informative draft field.
func BuildExactQuery(d domain.BookingDraft, limit int) domain.SearchQuery {
	return domain.SearchQuery{
		Make:        strings.TrimSpace(d.Make),
		Model:       strings.TrimSpace(d.Model),
		Color:       strings.TrimSpace(d.Color),
		VehicleType: strings.TrimSpace(d.VehicleType),
		ServiceTier: strings.TrimSpace(d.ServiceTier),
		From:        d.From,
		To:          d.To,
		BookingType: d.BookingType,
		Limit:       limit,
	}
}

// BuildAlternativeQueries relaxes the exact query step by step: color, then
// model, then make, then a vehicle-type-only and a make-only query. Dates and
// booking type are always kept. Queries identical to the exact query or to an
// earlier alternative are dropped.
func BuildAlternativeQueries(d domain.BookingDraft, limit int) []domain.SearchQuery {
	exact := BuildExactQuery(d, limit)
	dated := domain.SearchQuery{From: exact.From, To: exact.To, BookingType: exact.BookingType, Limit: limit}

	var candidates []domain.SearchQuery
	step := exact
	if step.Color != "" {
		step.Color = ""
		candidates = append(candidates, step)
	}
	if step.Model != "" {
		step.Model = ""
		candidates = append(candidates, step)
	}
	if step.Make != "" {
		step.Make = ""
		candidates = append(candidates, step)
	}
	if exact.VehicleType != "" {
		q := dated
		q.VehicleType = exact.VehicleType
		candidates = append(candidates, q)
	}
	if exact.Make != "" {
		q := dated
		q.Make = exact.Make
		candidates = append(candidates, q)
	}

	seen := map[domain.SearchQuery]bool{exact: true}
	queries := make([]domain.SearchQuery, 0, len(candidates))
	for _, q := range candidates {
		if seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
	}
	return queries
}
