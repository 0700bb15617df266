// Package booking creates booking holds and payment links through the booking
// API.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/apperr"
	"booking_concierge_backend/platform/config"
)

const maxErrorBody = 512

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ ports.BookingCreator = (*Client)(nil)

func NewClient(cfg config.BookingConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GetBookingAPIURL(), "/"),
		apiKey:  cfg.GetBookingAPIKey(),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type createRequest struct {
	ConversationID  string             `json:"conversationId"`
	CustomerID      string             `json:"customerId,omitempty"`
	VehicleID       string             `json:"vehicleId"`
	BookingType     domain.BookingType `json:"bookingType"`
	From            string             `json:"from"`
	To              string             `json:"to,omitempty"`
	PickupTime      string             `json:"pickupTime,omitempty"`
	PickupLocation  string             `json:"pickupLocation"`
	DropoffLocation string             `json:"dropoffLocation,omitempty"`
	FlightNumber    string             `json:"flightNumber,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	Subtotal        int64              `json:"subtotal"`
	VATAmount       int64              `json:"vatAmount"`
	Total           int64              `json:"total"`
}

type createResponse struct {
	BookingID   string `json:"bookingId"`
	HoldID      string `json:"holdId"`
	PaymentID   string `json:"paymentId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// CreateBooking places a hold on the vehicle and returns the checkout link. A
// 409 from the API means the vehicle was taken and maps to
// ports.ErrVehicleUnavailable.
func (c *Client) CreateBooking(ctx context.Context, in ports.BookingInput) (ports.BookingResult, error) {
	d := in.Draft
	body, err := json.Marshal(createRequest{
		ConversationID:  in.ConversationID,
		CustomerID:      in.CustomerID,
		VehicleID:       in.VehicleID,
		BookingType:     d.BookingType,
		From:            d.From,
		To:              d.To,
		PickupTime:      d.PickupTime,
		PickupLocation:  d.PickupLocation,
		DropoffLocation: d.DropoffLocation,
		FlightNumber:    d.FlightNumber,
		Notes:           d.Notes,
		Subtotal:        in.Subtotal,
		VATAmount:       in.VATAmount,
		Total:           in.Total,
	})
	if err != nil {
		return ports.BookingResult{}, fmt.Errorf("marshal booking request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bookings", bytes.NewReader(body))
	if err != nil {
		return ports.BookingResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", in.IdempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.BookingResult{}, apperr.ExternalService("booking request failed", err).WithOp("booking.Create")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return ports.BookingResult{}, ports.ErrVehicleUnavailable
	case resp.StatusCode >= http.StatusBadRequest:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return ports.BookingResult{}, apperr.ExternalService(
			"booking api error",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		).WithOp("booking.Create")
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ports.BookingResult{}, apperr.ExternalService("decode booking response", err).WithOp("booking.Create")
	}
	if out.BookingID == "" || out.CheckoutURL == "" {
		return ports.BookingResult{}, apperr.ExternalService("booking response incomplete", nil).WithOp("booking.Create")
	}

	return ports.BookingResult{
		BookingID:   out.BookingID,
		HoldID:      out.HoldID,
		PaymentID:   out.PaymentID,
		CheckoutURL: out.CheckoutURL,
	}, nil
}
