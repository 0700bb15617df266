package domain

// SearchQuery is one catalog query. Empty fields are unconstrained.
type SearchQuery struct {
	Make        string      `json:"make,omitempty"`
	Model       string      `json:"model,omitempty"`
	Color       string      `json:"color,omitempty"`
	VehicleType string      `json:"vehicleType,omitempty"`
	ServiceTier string      `json:"serviceTier,omitempty"`
	From        string      `json:"from,omitempty"`
	To          string      `json:"to,omitempty"`
	BookingType BookingType `json:"bookingType,omitempty"`
	Limit       int         `json:"limit"`
}
