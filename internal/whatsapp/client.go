// Package whatsapp delivers outbox items through the WhatsApp Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/config"
	"booking_concierge_backend/platform/logger"
	"booking_concierge_backend/platform/phone"
)

const (
	sentMarkerTTL    = 24 * time.Hour
	templateLanguage = "en"
	maxErrorBody     = 512
	maxButtonTitle   = 20
)

// template variables with a dedicated component; everything else is a body parameter
const (
	varImage         = "image"
	varVehicleID     = "vehicle_id"
	varCheckoutToken = "checkout_token"
	varButtonLabel   = "button_label"
)

type Client struct {
	baseURL       string
	token         string
	phoneNumberID string
	region        string
	http          *http.Client
	limiter       *rate.Limiter
	markers       ports.KeyValue
	log           *logger.Logger
}

var _ ports.MessageSender = (*Client)(nil)

func NewClient(cfg config.WhatsAppConfig, markers ports.KeyValue, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" || cfg.GetWhatsAppPhoneNumberID() == "" {
		return nil
	}

	perSecond := cfg.GetWhatsAppSendsPerSecond()
	if perSecond <= 0 {
		perSecond = 10
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		token:         cfg.GetWhatsAppToken(),
		phoneNumberID: cfg.GetWhatsAppPhoneNumberID(),
		region:        cfg.GetDefaultRegion(),
		http:          &http.Client{Timeout: 10 * time.Second},
		limiter:       rate.NewLimiter(rate.Limit(perSecond), 1),
		markers:       markers,
		log:           log,
	}
}

// Send delivers items in order. Items already delivered under the same dedupe
// key are skipped, so a retried batch resumes where the previous attempt
// stopped.
func (c *Client) Send(ctx context.Context, recipient string, items []domain.OutboxItem) error {
	if c == nil {
		return nil
	}

	to := phone.WhatsAppID(recipient, c.region)
	for _, item := range items {
		sent, err := c.alreadySent(ctx, item.DedupeKey)
		if err != nil {
			return err
		}
		if sent {
			continue
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := c.post(ctx, buildMessage(to, item)); err != nil {
			return fmt.Errorf("send %s: %w", item.DedupeKey, err)
		}
		if err := c.markers.SetWithExpiry(ctx, sentKey(item.DedupeKey), []byte("1"), sentMarkerTTL); err != nil {
			c.log.StoreError("mark_sent", err)
		}
	}

	c.log.Info("whatsapp sent", "phone", to, "items", len(items))
	return nil
}

func sentKey(dedupeKey string) string {
	return "whatsapp:sent:" + dedupeKey
}

func (c *Client) alreadySent(ctx context.Context, dedupeKey string) (bool, error) {
	if dedupeKey == "" {
		return false, nil
	}
	_, err := c.markers.Get(ctx, sentKey(dedupeKey))
	if errors.Is(err, ports.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) post(ctx context.Context, msg message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("whatsapp cloud api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

type message struct {
	MessagingProduct string          `json:"messaging_product"`
	RecipientType    string          `json:"recipient_type"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Text             *textBody       `json:"text,omitempty"`
	Interactive      *interactive    `json:"interactive,omitempty"`
	Template         *templateObject `json:"template,omitempty"`
}

type textBody struct {
	PreviewURL bool   `json:"preview_url,omitempty"`
	Body       string `json:"body"`
}

type interactive struct {
	Type   string            `json:"type"`
	Body   interactiveBody   `json:"body"`
	Action interactiveAction `json:"action"`
}

type interactiveBody struct {
	Text string `json:"text"`
}

type interactiveAction struct {
	Buttons []replyButton `json:"buttons"`
}

type replyButton struct {
	Type  string `json:"type"`
	Reply struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"reply"`
}

type templateObject struct {
	Name       string      `json:"name"`
	Language   language    `json:"language"`
	Components []component `json:"components,omitempty"`
}

type language struct {
	Code string `json:"code"`
}

type component struct {
	Type       string      `json:"type"`
	SubType    string      `json:"sub_type,omitempty"`
	Index      string      `json:"index,omitempty"`
	Parameters []parameter `json:"parameters"`
}

type parameter struct {
	Type    string     `json:"type"`
	Text    string     `json:"text,omitempty"`
	Payload string     `json:"payload,omitempty"`
	Image   *mediaLink `json:"image,omitempty"`
}

type mediaLink struct {
	Link string `json:"link"`
}

func buildMessage(to string, item domain.OutboxItem) message {
	msg := message{MessagingProduct: "whatsapp", RecipientType: "individual", To: to}

	switch {
	case item.Kind == domain.OutboxTemplate && item.TemplateName != "":
		msg.Type = "template"
		msg.Template = buildTemplate(item)
	case len(item.Buttons) > 0:
		msg.Type = "interactive"
		msg.Interactive = buildButtons(item)
	default:
		msg.Type = "text"
		msg.Text = &textBody{Body: item.Text, PreviewURL: strings.Contains(item.Text, "https://")}
	}
	return msg
}

func buildButtons(item domain.OutboxItem) *interactive {
	buttons := make([]replyButton, 0, len(item.Buttons))
	for _, b := range item.Buttons {
		var rb replyButton
		rb.Type = "reply"
		rb.Reply.ID = b.ID
		rb.Reply.Title = truncate(b.Title, maxButtonTitle)
		buttons = append(buttons, rb)
	}
	return &interactive{
		Type:   "button",
		Body:   interactiveBody{Text: item.Text},
		Action: interactiveAction{Buttons: buttons},
	}
}

func buildTemplate(item domain.OutboxItem) *templateObject {
	tpl := &templateObject{Name: item.TemplateName, Language: language{Code: templateLanguage}}

	if image := item.Var(varImage); image != "" {
		tpl.Components = append(tpl.Components, component{
			Type:       "header",
			Parameters: []parameter{{Type: "image", Image: &mediaLink{Link: image}}},
		})
	}

	var body []parameter
	for _, v := range item.Variables {
		switch v.Name {
		case varImage, varVehicleID, varCheckoutToken, varButtonLabel:
			continue
		}
		body = append(body, parameter{Type: "text", Text: v.Value})
	}
	if len(body) > 0 {
		tpl.Components = append(tpl.Components, component{Type: "body", Parameters: body})
	}

	if id := item.Var(varVehicleID); id != "" {
		tpl.Components = append(tpl.Components, component{
			Type: "button", SubType: "quick_reply", Index: "0",
			Parameters: []parameter{{Type: "payload", Payload: "select_vehicle:" + id}},
		})
	}
	if token := item.Var(varCheckoutToken); token != "" {
		tpl.Components = append(tpl.Components, component{
			Type: "button", SubType: "url", Index: "0",
			Parameters: []parameter{{Type: "text", Text: token}},
		})
	}
	return tpl
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
