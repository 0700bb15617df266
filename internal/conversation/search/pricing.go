package search

import (
	"fmt"
	"math"

	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/policy"
)

// Quantity is the number of billable legs for a booking. Day and full-day
// bookings count calendar days inclusively, night bookings count nights, and an
// airport pickup is a single leg. Unparsable dates yield one leg.
func Quantity(bookingType domain.BookingType, from, to string) int {
	if bookingType == domain.BookingTypeAirportPickup {
		return 1
	}

	start, okFrom := policy.ParseDate(from)
	end, okTo := policy.ParseDate(to)
	if !okFrom || !okTo || end.Before(start) {
		return 1
	}
	days := int(end.Sub(start).Hours() / 24)

	if bookingType == domain.BookingTypeNight {
		return max(days, 1)
	}
	return days + 1
}

// UnitRate resolves the per-leg rate for the booking type, falling back to the
// day rate when the type-specific rate is absent.
func UnitRate(o domain.VehicleSearchOption, bookingType domain.BookingType) (float64, string) {
	var rate float64
	var kind string
	switch bookingType {
	case domain.BookingTypeNight:
		rate, kind = o.NightRate, "night"
	case domain.BookingTypeFullDay:
		rate, kind = o.FullDayRate, "full day"
	case domain.BookingTypeAirportPickup:
		rate, kind = o.AirportPickupRate, "airport pickup"
	}
	if rate > 0 {
		return rate, kind
	}
	return o.DayRate, "day"
}

// Estimate attaches quantity, subtotal, VAT and total to a candidate.
// subtotal = round(rate x quantity), vat = round(subtotal x vatRate / 100),
// total = subtotal + vat. No amount is ever negative.
func Estimate(o domain.VehicleSearchOption, d domain.BookingDraft, vatRate float64) domain.VehicleSearchOption {
	qty := Quantity(d.BookingType, d.From, d.To)
	rate, kind := UnitRate(o, d.BookingType)
	rate = math.Max(rate, 0)
	vatRate = math.Max(vatRate, 0)

	subtotal := int64(math.Round(rate * float64(qty)))
	vat := int64(math.Round(float64(subtotal) * vatRate / 100))

	o.Quantity = qty
	o.UnitRate = rate
	o.Subtotal = subtotal
	o.VATRate = vatRate
	o.VATAmount = vat
	o.EstimatedTotalInclVAT = subtotal + vat
	o.PriceBasis = priceBasis(qty, kind, d.BookingType)
	return o
}

// EstimateAll estimates every option in place order.
func EstimateAll(options []domain.VehicleSearchOption, d domain.BookingDraft, vatRate float64) []domain.VehicleSearchOption {
	out := make([]domain.VehicleSearchOption, len(options))
	for i, o := range options {
		out[i] = Estimate(o, d, vatRate)
	}
	return out
}

func priceBasis(qty int, rateKind string, bookingType domain.BookingType) string {
	unit := "day"
	switch bookingType {
	case domain.BookingTypeNight:
		unit = "night"
	case domain.BookingTypeAirportPickup:
		unit = "trip"
	}
	if qty != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s x %s rate", qty, unit, rateKind)
}
