package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/apperr"
)

type testConfig struct{ url string }

func (c testConfig) GetBookingAPIURL() string { return c.url }
func (c testConfig) GetBookingAPIKey() string { return "secret" }

func bookingInput() ports.BookingInput {
	return ports.BookingInput{
		ConversationID: "+2348031234567",
		VehicleID:      "v1",
		Draft: domain.BookingDraft{
			BookingType:    domain.BookingTypeDay,
			From:           "2026-10-20",
			To:             "2026-10-22",
			PickupLocation: "Ikeja",
		},
		Subtotal:       150000,
		VATAmount:      11250,
		Total:          161250,
		IdempotencyKey: "+2348031234567:wamid.9",
	}
}

func TestCreateBooking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bookings" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("Idempotency-Key") != "+2348031234567:wamid.9" {
			t.Errorf("missing headers: %v", r.Header)
		}
		var body createRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.VehicleID != "v1" || body.Total != 161250 || body.BookingType != domain.BookingTypeDay {
			t.Errorf("unexpected body %+v", body)
		}
		_ = json.NewEncoder(w).Encode(createResponse{
			BookingID:   "bk_1",
			HoldID:      "hold_1",
			PaymentID:   "pay_1",
			CheckoutURL: "https://pay.example.com/c/cs_test_123456",
		})
	}))
	defer srv.Close()

	result, err := NewClient(testConfig{url: srv.URL + "/"}).CreateBooking(context.Background(), bookingInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.BookingID != "bk_1" || result.HoldID != "hold_1" || result.CheckoutURL == "" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCreateBooking_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"conflict means unavailable", http.StatusConflict, `{"error":"held"}`, func(err error) bool { return errors.Is(err, ports.ErrVehicleUnavailable) }},
		{"server error", http.StatusInternalServerError, `oops`, func(err error) bool { return apperr.Is(err, apperr.KindExternalService) }},
		{"incomplete response", http.StatusOK, `{"bookingId":"bk_1"}`, func(err error) bool { return apperr.Is(err, apperr.KindExternalService) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(testConfig{url: srv.URL}).CreateBooking(context.Background(), bookingInput())
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}
