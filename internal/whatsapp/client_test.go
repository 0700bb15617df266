package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"booking_concierge_backend/internal/adapters"
	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/platform/kv"
	"booking_concierge_backend/platform/logger"
)

type testConfig struct{ url string }

func (c testConfig) GetWhatsAppURL() string             { return c.url }
func (c testConfig) GetWhatsAppToken() string           { return "token" }
func (c testConfig) GetWhatsAppPhoneNumberID() string   { return "1055" }
func (c testConfig) GetWhatsAppSendsPerSecond() float64 { return 1000 }
func (c testConfig) GetDefaultRegion() string           { return "NG" }

type cloudAPI struct {
	mu       sync.Mutex
	messages []map[string]any
	failOn   int
}

func (a *cloudAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1055/messages" || r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("Authorization"))
		}
		var msg map[string]any
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode: %v", err)
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.failOn > 0 && len(a.messages)+1 == a.failOn {
			a.failOn = 0
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		a.messages = append(a.messages, msg)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
	}
}

func (a *cloudAPI) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.messages)
}

func newTestClient(t *testing.T, api *cloudAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	mr := miniredis.RunT(t)
	markers := adapters.NewKeyValueAdapter(kv.New(redis.NewClient(&redis.Options{Addr: mr.Addr()})))
	return NewClient(testConfig{url: srv.URL}, markers, logger.Nop())
}

var batch = []domain.OutboxItem{
	{DedupeKey: "c:m:0", Kind: domain.OutboxText, Text: "Here are your options"},
	{DedupeKey: "c:m:1", Kind: domain.OutboxTemplate, TemplateName: "vehicle_option_card", Variables: []domain.TemplateVar{
		{Name: "title", Value: "Toyota Prado (Black)"},
		{Name: "price", Value: "₦161,250"},
		{Name: "image", Value: "https://img/v1.jpg"},
		{Name: "button_label", Value: "Select"},
		{Name: "vehicle_id", Value: "v1"},
	}},
}

func TestSend_DeliversInOrderOnce(t *testing.T) {
	api := &cloudAPI{}
	c := newTestClient(t, api)

	if err := c.Send(context.Background(), "08031234567", batch); err != nil {
		t.Fatalf("send: %v", err)
	}
	if api.count() != 2 {
		t.Fatalf("expected 2 messages, got %d", api.count())
	}
	first := api.messages[0]
	if first["to"] != "2348031234567" || first["type"] != "text" {
		t.Fatalf("unexpected first message %+v", first)
	}
	card := api.messages[1]
	if card["type"] != "template" {
		t.Fatalf("expected template, got %+v", card)
	}
	components := card["template"].(map[string]any)["components"].([]any)
	if len(components) != 3 {
		t.Fatalf("expected header, body and button components, got %+v", components)
	}
	button := components[2].(map[string]any)
	payload := button["parameters"].([]any)[0].(map[string]any)["payload"]
	if button["sub_type"] != "quick_reply" || payload != "select_vehicle:v1" {
		t.Fatalf("unexpected button component %+v", button)
	}

	if err := c.Send(context.Background(), "08031234567", batch); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if api.count() != 2 {
		t.Fatalf("expected redelivery to be skipped, got %d messages", api.count())
	}
}

func TestSend_RetryResumesAfterFailure(t *testing.T) {
	api := &cloudAPI{failOn: 2}
	c := newTestClient(t, api)

	if err := c.Send(context.Background(), "+2348012345678", batch); err == nil {
		t.Fatal("expected the rate-limited item to fail the batch")
	}
	if api.count() != 1 {
		t.Fatalf("expected first item delivered, got %d", api.count())
	}
	if err := c.Send(context.Background(), "+2348012345678", batch); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if api.count() != 2 || api.messages[1]["type"] != "template" {
		t.Fatalf("expected only the card to be resent, got %+v", api.messages)
	}
}

func TestBuildMessage(t *testing.T) {
	buttons := buildMessage("234", domain.OutboxItem{
		Kind: domain.OutboxText, Text: "Reserve it?",
		Buttons: []domain.Button{{ID: "confirm_booking", Title: "Yes, reserve this vehicle"}},
	})
	if buttons.Type != "interactive" || buttons.Interactive.Action.Buttons[0].Reply.Title != "Yes, reserve this ve" {
		t.Fatalf("unexpected interactive message %+v", buttons.Interactive)
	}

	payment := buildMessage("234", domain.OutboxItem{
		Kind: domain.OutboxTemplate, TemplateName: "booking_payment_link",
		Variables: []domain.TemplateVar{{Name: "body", Value: "Pay to confirm"}, {Name: "checkout_token", Value: "cs_123456"}},
	})
	components := payment.Template.Components
	if len(components) != 2 || components[0].Parameters[0].Text != "Pay to confirm" {
		t.Fatalf("unexpected payment components %+v", components)
	}
	if components[1].SubType != "url" || components[1].Parameters[0].Text != "cs_123456" {
		t.Fatalf("unexpected url button %+v", components[1])
	}
}

func TestNewClient_Unconfigured(t *testing.T) {
	var c *Client = NewClient(testConfig{}, nil, logger.Nop())
	if c != nil {
		t.Fatal("expected nil client without a base url")
	}
	if err := c.Send(context.Background(), "+234", batch); err != nil {
		t.Fatalf("nil client must drop silently, got %v", err)
	}
}
