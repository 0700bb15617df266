// Package outbox turns a generated reply into ordered delivery items for the
// messaging transport.
package outbox

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/platform/sanitize"
)

const defaultCardButton = "Select"

var checkoutTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{6,}$`)

// Config names the templates and currency used in delivery items.
type Config struct {
	CurrencySymbol      string
	VehicleCardTemplate string
	PaymentLinkTemplate string
}

// Builder creates outbox items.
type Builder struct {
	cfg     Config
	printer *message.Printer
}

// NewBuilder creates a Builder.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg, printer: message.NewPrinter(language.English)}
}

// Input is the reply and the state context it was generated for.
type Input struct {
	ConversationID   string
	MessageID        string
	Reply            domain.Reply
	Stage            domain.Stage
	AvailableOptions []domain.VehicleSearchOption
	CheckoutURL      string
}

// DedupeKey derives the delivery key for the item at index. Redelivery of the
// same inbound message yields the same keys.
func DedupeKey(conversationID, messageID string, index int) string {
	return fmt.Sprintf("%s:%s:%d", conversationID, messageID, index)
}

// Build returns the ordered items for one turn. It never returns an empty batch.
func (b *Builder) Build(in Input) []domain.OutboxItem {
	text := sanitize.Outbound(in.Reply.Text)

	if len(in.Reply.VehicleCards) > 0 {
		if items := b.vehicleCards(in, text); len(items) > 0 {
			return items
		}
		return []domain.OutboxItem{b.textItem(in, 0, text, nil)}
	}

	if in.Stage == domain.StageAwaitingPayment && in.CheckoutURL != "" {
		if token, ok := CheckoutToken(in.CheckoutURL); ok {
			return []domain.OutboxItem{{
				DedupeKey:    DedupeKey(in.ConversationID, in.MessageID, 0),
				Kind:         domain.OutboxTemplate,
				Text:         text,
				TemplateName: b.cfg.PaymentLinkTemplate,
				Variables: []domain.TemplateVar{
					{Name: "body", Value: text},
					{Name: "checkout_token", Value: token},
				},
			}}
		}
		withLink := text
		if !strings.Contains(withLink, in.CheckoutURL) {
			withLink = strings.TrimSpace(withLink + "\n\n" + in.CheckoutURL)
		}
		return []domain.OutboxItem{b.textItem(in, 0, withLink, nil)}
	}

	return []domain.OutboxItem{b.textItem(in, 0, text, in.Reply.Buttons)}
}

func (b *Builder) vehicleCards(in Input, intro string) []domain.OutboxItem {
	available := make(map[string]domain.VehicleSearchOption, len(in.AvailableOptions))
	for _, o := range in.AvailableOptions {
		available[o.VehicleID] = o
	}

	var cards []domain.OutboxItem
	for _, card := range in.Reply.VehicleCards {
		opt, ok := available[card.VehicleID]
		if !ok {
			continue
		}
		label := card.ButtonLabel
		if label == "" {
			label = defaultCardButton
		}
		cards = append(cards, domain.OutboxItem{
			Kind:         domain.OutboxTemplate,
			TemplateName: b.cfg.VehicleCardTemplate,
			Variables: []domain.TemplateVar{
				{Name: "title", Value: opt.Title()},
				{Name: "price", Value: b.PriceLabel(opt)},
				{Name: "image", Value: opt.ImageURL},
				{Name: "button_label", Value: label},
				{Name: "vehicle_id", Value: opt.VehicleID},
			},
		})
	}
	if len(cards) == 0 {
		return nil
	}

	items := make([]domain.OutboxItem, 0, len(cards)+1)
	items = append(items, b.textItem(in, 0, intro, nil))
	for i, card := range cards {
		card.DedupeKey = DedupeKey(in.ConversationID, in.MessageID, i+1)
		items = append(items, card)
	}
	return items
}

func (b *Builder) textItem(in Input, index int, text string, buttons []domain.Button) domain.OutboxItem {
	return domain.OutboxItem{
		DedupeKey: DedupeKey(in.ConversationID, in.MessageID, index),
		Kind:      domain.OutboxText,
		Text:      text,
		Buttons:   buttons,
	}
}

// FormatPrice renders an amount with the currency symbol and thousands separators.
func (b *Builder) FormatPrice(amount int64) string {
	return b.printer.Sprintf("%s%d", b.cfg.CurrencySymbol, amount)
}

// PriceLabel renders the estimate of an option, falling back to its day rate.
func (b *Builder) PriceLabel(o domain.VehicleSearchOption) string {
	if o.EstimatedTotalInclVAT > 0 {
		if o.PriceBasis != "" {
			return fmt.Sprintf("%s (%s)", b.FormatPrice(o.EstimatedTotalInclVAT), o.PriceBasis)
		}
		return b.FormatPrice(o.EstimatedTotalInclVAT)
	}
	return b.FormatPrice(int64(o.DayRate)) + " per day"
}

// CheckoutToken extracts the short token from a checkout link: the last path
// segment, or a token query parameter.
func CheckoutToken(link string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return "", false
	}
	if segment := path.Base(u.Path); checkoutTokenPattern.MatchString(segment) {
		return segment, true
	}
	for _, param := range []string{"token", "session_id"} {
		if v := u.Query().Get(param); checkoutTokenPattern.MatchString(v) {
			return v, true
		}
	}
	return "", false
}
