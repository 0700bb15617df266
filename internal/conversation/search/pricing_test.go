package search

import (
	"math"
	"testing"

	"booking_concierge_backend/internal/conversation/domain"
)

func TestQuantity(t *testing.T) {
	cases := []struct {
		name     string
		bt       domain.BookingType
		from, to string
		want     int
	}{
		{"day inclusive", domain.BookingTypeDay, "2026-11-02", "2026-11-04", 3},
		{"same day", domain.BookingTypeDay, "2026-11-02", "2026-11-02", 1},
		{"full day", domain.BookingTypeFullDay, "2026-11-02", "2026-11-03", 2},
		{"nights", domain.BookingTypeNight, "2026-11-02", "2026-11-04", 2},
		{"same night", domain.BookingTypeNight, "2026-11-02", "2026-11-02", 1},
		{"airport", domain.BookingTypeAirportPickup, "2026-11-02", "2026-11-09", 1},
		{"unparsable", domain.BookingTypeDay, "soon", "later", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Quantity(tc.bt, tc.from, tc.to); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestEstimate_DayBooking(t *testing.T) {
	d := domain.BookingDraft{BookingType: domain.BookingTypeDay, From: "2026-11-02", To: "2026-11-04"}
	got := Estimate(domain.VehicleSearchOption{VehicleID: "v", DayRate: 50000}, d, 7.5)

	if got.Quantity != 3 || got.Subtotal != 150000 {
		t.Fatalf("expected 3 legs and subtotal 150000, got %d/%d", got.Quantity, got.Subtotal)
	}
	if got.VATAmount != 11250 || got.EstimatedTotalInclVAT != 161250 {
		t.Fatalf("expected vat 11250 total 161250, got %d/%d", got.VATAmount, got.EstimatedTotalInclVAT)
	}
	if got.PriceBasis != "3 days x day rate" {
		t.Fatalf("unexpected basis %q", got.PriceBasis)
	}
}

func TestEstimate_RateFallsBackToDayRate(t *testing.T) {
	option := domain.VehicleSearchOption{VehicleID: "v", DayRate: 40000, FullDayRate: 55000}

	for _, bt := range []domain.BookingType{domain.BookingTypeNight, domain.BookingTypeAirportPickup} {
		rate, kind := UnitRate(option, bt)
		if rate != 40000 || kind != "day" {
			t.Fatalf("%s: expected day rate fallback, got %v %s", bt, rate, kind)
		}
	}
	if rate, _ := UnitRate(option, domain.BookingTypeFullDay); rate != 55000 {
		t.Fatalf("expected full day rate, got %v", rate)
	}
}

func TestEstimate_RoundTrip(t *testing.T) {
	d := domain.BookingDraft{BookingType: domain.BookingTypeNight, From: "2026-11-02", To: "2026-11-05"}
	rates := []float64{0, 1, 33333.33, 49999.5, 125000, -10}
	vatRates := []float64{0, 5, 7.5, 21, -3}

	for _, rate := range rates {
		for _, vat := range vatRates {
			got := Estimate(domain.VehicleSearchOption{NightRate: rate, DayRate: rate}, d, vat)

			wantSubtotal := int64(math.Round(math.Max(rate, 0) * float64(got.Quantity)))
			wantVAT := int64(math.Round(float64(wantSubtotal) * math.Max(vat, 0) / 100))
			if got.Subtotal != wantSubtotal || got.VATAmount != wantVAT {
				t.Fatalf("rate=%v vat=%v: expected %d/%d, got %d/%d", rate, vat, wantSubtotal, wantVAT, got.Subtotal, got.VATAmount)
			}
			if got.EstimatedTotalInclVAT != got.Subtotal+got.VATAmount {
				t.Fatalf("total must equal subtotal plus vat")
			}
			if got.Subtotal < 0 || got.VATAmount < 0 {
				t.Fatalf("amounts must never be negative, got %d/%d", got.Subtotal, got.VATAmount)
			}
		}
	}
}
