package search

import (
	"testing"

	"booking_concierge_backend/internal/conversation/domain"
)

func TestBuildExactQuery(t *testing.T) {
	d := domain.BookingDraft{
		BookingType: domain.BookingTypeDay,
		From:        "2026-11-02",
		To:          "2026-11-03",
		Make:        " Toyota ",
		Model:       "Prado",
		Color:       "Black",
		VehicleType: "SUV",
		ServiceTier: "executive",
	}

	q := BuildExactQuery(d, 20)
	if q.Make != "Toyota" || q.Model != "Prado" || q.Color != "Black" || q.VehicleType != "SUV" || q.ServiceTier != "executive" {
		t.Fatalf("expected all attributes carried, got %+v", q)
	}
	if q.From != d.From || q.To != d.To || q.BookingType != d.BookingType || q.Limit != 20 {
		t.Fatalf("expected dates, type and limit carried, got %+v", q)
	}
}

func TestBuildAlternativeQueries_RelaxationOrder(t *testing.T) {
	d := domain.BookingDraft{
		BookingType: domain.BookingTypeDay,
		From:        "2026-11-02",
		To:          "2026-11-03",
		Make:        "Toyota",
		Model:       "Prado",
		Color:       "Black",
		VehicleType: "SUV",
	}

	queries := BuildAlternativeQueries(d, 10)

	want := []domain.SearchQuery{
		{Make: "Toyota", Model: "Prado", VehicleType: "SUV"},
		{Make: "Toyota", VehicleType: "SUV"},
		{VehicleType: "SUV"},
		{Make: "Toyota"},
	}
	if len(queries) != len(want) {
		t.Fatalf("expected %d queries, got %+v", len(want), queries)
	}
	for i, w := range want {
		q := queries[i]
		if q.Make != w.Make || q.Model != w.Model || q.Color != w.Color || q.VehicleType != w.VehicleType {
			t.Fatalf("query %d: expected %+v, got %+v", i, w, q)
		}
		if q.From != d.From || q.To != d.To || q.BookingType != d.BookingType || q.Limit != 10 {
			t.Fatalf("query %d lost dates or booking type: %+v", i, q)
		}
	}
}

func TestBuildAlternativeQueries_SkipsEmptyAndDuplicates(t *testing.T) {
	d := domain.BookingDraft{From: "2026-11-02", To: "2026-11-03", VehicleType: "SUV"}

	queries := BuildAlternativeQueries(d, 10)
	if len(queries) != 0 {
		t.Fatalf("expected no relaxation for a type-only draft, got %+v", queries)
	}

	d.Make = "Lexus"
	queries = BuildAlternativeQueries(d, 10)
	if len(queries) != 2 || queries[0].Make != "" || queries[1].VehicleType != "" {
		t.Fatalf("expected [type-only, make-only], got %+v", queries)
	}
}
