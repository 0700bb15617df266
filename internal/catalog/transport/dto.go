package transport

// Vehicles

type ListVehiclesRequest struct {
	Search      string `form:"search" validate:"max=100"`
	VehicleType string `form:"vehicleType" validate:"max=40"`
	Page        int    `form:"page" validate:"omitempty,min=1"`
	PageSize    int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
	SortBy      string `form:"sortBy" validate:"omitempty,oneof=name make dayRate createdAt"`
	SortOrder   string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

type SearchVehiclesRequest struct {
	Make        string `form:"make" validate:"max=60"`
	Model       string `form:"model" validate:"max=60"`
	Color       string `form:"color" validate:"max=40"`
	VehicleType string `form:"vehicleType" validate:"max=40"`
	ServiceTier string `form:"serviceTier" validate:"max=40"`
	BookingType string `form:"bookingType" validate:"omitempty,oneof=day night full_day airport_pickup"`
	From        string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To          string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit       int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

type VehicleResponse struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Make              string   `json:"make"`
	Model             string   `json:"model"`
	Color             string   `json:"color"`
	VehicleType       string   `json:"vehicleType"`
	ServiceTier       string   `json:"serviceTier"`
	DayRate           *float64 `json:"dayRate,omitempty"`
	NightRate         *float64 `json:"nightRate,omitempty"`
	FullDayRate       *float64 `json:"fullDayRate,omitempty"`
	AirportPickupRate *float64 `json:"airportPickupRate,omitempty"`
	ImageURL          string   `json:"imageUrl,omitempty"`
	Active            bool     `json:"active"`
	CreatedAt         string   `json:"createdAt"`
	UpdatedAt         string   `json:"updatedAt"`
}

type VehicleListResponse struct {
	Items      []VehicleResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// VAT Rates

type VatRateResponse struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	RateBps   int     `json:"rateBps"`
	Percent   float64 `json:"percent"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}
