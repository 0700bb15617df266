package domain

import "strings"

// BookingDraft is the trip request accumulated across turns.
// Empty strings and a zero Duration mean the field is not known yet.
type BookingDraft struct {
	BookingType     BookingType `json:"bookingType,omitempty" validate:"omitempty,oneof=day night full_day airport_pickup"`
	From            string      `json:"from,omitempty" validate:"omitempty,max=40"`
	To              string      `json:"to,omitempty" validate:"omitempty,max=40"`
	PickupTime      string      `json:"pickupTime,omitempty" validate:"omitempty,max=20"`
	Duration        int         `json:"duration,omitempty" validate:"gte=0,lte=90"`
	PickupLocation  string      `json:"pickupLocation,omitempty" validate:"omitempty,max=200"`
	DropoffLocation string      `json:"dropoffLocation,omitempty" validate:"omitempty,max=200"`
	VehicleType     string      `json:"vehicleType,omitempty" validate:"omitempty,max=40"`
	ServiceTier     string      `json:"serviceTier,omitempty" validate:"omitempty,max=40"`
	Color           string      `json:"color,omitempty" validate:"omitempty,max=40"`
	Make            string      `json:"make,omitempty" validate:"omitempty,max=60"`
	Model           string      `json:"model,omitempty" validate:"omitempty,max=60"`
	FlightNumber    string      `json:"flightNumber,omitempty" validate:"omitempty,max=20"`
	Notes           string      `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// IsEmpty reports whether no field is set.
func (d BookingDraft) IsEmpty() bool {
	return d == BookingDraft{}
}

// MissingRequired lists the required fields that are still empty, in the
// order they should be asked for.
func (d BookingDraft) MissingRequired() []string {
	var missing []string
	if d.BookingType == "" {
		missing = append(missing, "bookingType")
	}
	if strings.TrimSpace(d.From) == "" {
		missing = append(missing, "from")
	}
	if strings.TrimSpace(d.To) == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(d.PickupTime) == "" {
		missing = append(missing, "pickupTime")
	}
	if strings.TrimSpace(d.PickupLocation) == "" {
		missing = append(missing, "pickupLocation")
	}
	return missing
}

// KeyFieldsChanged reports whether a change between two drafts invalidates
// previously found vehicle options.
func KeyFieldsChanged(before, after BookingDraft) bool {
	return before.From != after.From ||
		before.BookingType != after.BookingType ||
		!strings.EqualFold(before.PickupLocation, after.PickupLocation) ||
		!strings.EqualFold(before.VehicleType, after.VehicleType)
}

// PatchMode selects how a DraftPatch is applied.
type PatchMode int

const (
	// PatchMerge overwrites only the fields set in the patch.
	PatchMerge PatchMode = iota
	// PatchReplace swaps the whole draft for the patch fields.
	PatchReplace
)

// DraftPatch is a change to a BookingDraft.
type DraftPatch struct {
	Mode   PatchMode
	Fields BookingDraft
}

// Merge returns a patch that overwrites the non-empty fields of f.
func Merge(f BookingDraft) DraftPatch {
	return DraftPatch{Mode: PatchMerge, Fields: f}
}

// Replace returns a patch that replaces the draft with f.
func Replace(f BookingDraft) DraftPatch {
	return DraftPatch{Mode: PatchReplace, Fields: f}
}

// ApplyPatch returns the draft that results from applying p to d.
func ApplyPatch(d BookingDraft, p DraftPatch) BookingDraft {
	if p.Mode == PatchReplace {
		return p.Fields
	}

	f := p.Fields
	if f.BookingType != "" {
		d.BookingType = f.BookingType
	}
	mergeString(&d.From, f.From)
	mergeString(&d.To, f.To)
	mergeString(&d.PickupTime, f.PickupTime)
	if f.Duration > 0 {
		d.Duration = f.Duration
	}
	mergeString(&d.PickupLocation, f.PickupLocation)
	mergeString(&d.DropoffLocation, f.DropoffLocation)
	mergeString(&d.VehicleType, f.VehicleType)
	mergeString(&d.ServiceTier, f.ServiceTier)
	mergeString(&d.Color, f.Color)
	mergeString(&d.Make, f.Make)
	mergeString(&d.Model, f.Model)
	mergeString(&d.FlightNumber, f.FlightNumber)
	mergeString(&d.Notes, f.Notes)
	return d
}

func mergeString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
