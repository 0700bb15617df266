package agent

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/ports"
)

// Button ids understood by the extraction service.
const (
	ButtonConfirm       = "confirm_booking"
	ButtonReject        = "reject_option"
	ButtonChangeVehicle = "change_vehicle"
	ButtonCancel        = "cancel_booking"
	ButtonAgent         = "talk_to_agent"
	ButtonNewBooking    = "new_booking"
	ButtonTypeDay       = "booking_type_day"
	ButtonTypeNight     = "booking_type_night"
	ButtonTypeFullDay   = "booking_type_full_day"
	ButtonTypeAirport   = "booking_type_airport"
)

// maxButtons is the WhatsApp limit for reply buttons on one message.
const maxButtons = 3

var knownButtons = map[string]bool{
	ButtonConfirm:       true,
	ButtonReject:        true,
	ButtonChangeVehicle: true,
	ButtonCancel:        true,
	ButtonAgent:         true,
	ButtonNewBooking:    true,
	ButtonTypeDay:       true,
	ButtonTypeNight:     true,
	ButtonTypeFullDay:   true,
	ButtonTypeAirport:   true,
}

var fieldQuestions = map[string]string{
	"bookingType":    "What kind of booking do you need: day, night, full day or an airport pickup?",
	"from":           "What date should the booking start?",
	"to":             "And what date should it end?",
	"pickupTime":     "What time should we pick you up?",
	"pickupLocation": "Where should the driver pick you up?",
}

var bookingTypeButtons = []domain.Button{
	{ID: ButtonTypeDay, Title: "Day"},
	{ID: ButtonTypeNight, Title: "Night"},
	{ID: ButtonTypeAirport, Title: "Airport pickup"},
}

// Composer writes replies from templates. It never fails.
type Composer struct {
	printer *message.Printer
}

var _ ports.ReplyGenerator = (*Composer)(nil)

func NewComposer() *Composer {
	return &Composer{printer: message.NewPrinter(language.English)}
}

// GenerateReply implements ports.ReplyGenerator.
func (c *Composer) GenerateReply(_ context.Context, rc ports.ReplyContext) (domain.Reply, error) {
	return c.Compose(rc), nil
}

// Compose builds the reply for the turn.
func (c *Composer) Compose(rc ports.ReplyContext) domain.Reply {
	reply := c.compose(rc)
	if rc.PendingErrorText != "" {
		reply.Text = strings.TrimSpace(rc.PendingErrorText + "\n\n" + reply.Text)
	}
	return reply
}

func (c *Composer) compose(rc ports.ReplyContext) domain.Reply {
	if rc.Node == domain.NodeHandoff {
		return domain.Reply{Text: "I'm connecting you with one of our agents. Someone will reply here shortly."}
	}

	switch rc.Stage {
	case domain.StageGreeting:
		return domain.Reply{
			Text:    "Hello! I can help you book a car with a driver. What kind of booking do you need?",
			Buttons: bookingTypeButtons,
		}

	case domain.StageCancelled:
		return domain.Reply{
			Text:    "Your booking request has been cancelled. Message us any time to start a new one.",
			Buttons: []domain.Button{{ID: ButtonNewBooking, Title: "New booking"}},
		}

	case domain.StageCompleted:
		return domain.Reply{
			Text:    "Your booking is complete. Thank you for riding with us!",
			Buttons: []domain.Button{{ID: ButtonNewBooking, Title: "New booking"}},
		}

	case domain.StageAwaitingPayment:
		text := "Your vehicle is on hold. Please complete payment to confirm the booking."
		if rc.CheckoutURL != "" {
			text += "\n\n" + rc.CheckoutURL
		}
		return domain.Reply{Text: text}

	case domain.StageConfirming, domain.StageCreatingHold:
		if rc.Selected != nil {
			return domain.Reply{
				Text: fmt.Sprintf("You picked the %s at %s. Shall I reserve it for you?",
					rc.Selected.Title(), c.price(*rc.Selected, rc.CurrencySymbol)),
				Buttons: []domain.Button{
					{ID: ButtonConfirm, Title: "Confirm"},
					{ID: ButtonChangeVehicle, Title: "Change vehicle"},
					{ID: ButtonCancel, Title: "Cancel"},
				},
			}
		}

	case domain.StagePresentingOptions, domain.StageAwaitingSelection, domain.StageSearching:
		return c.options(rc)
	}

	return c.collecting(rc)
}

func (c *Composer) collecting(rc ports.ReplyContext) domain.Reply {
	if rc.Question != "" {
		return domain.Reply{
			Text:    "Good question. One of our agents can confirm that for you. Meanwhile, " + lowerFirst(c.nextQuestion(rc)),
			Buttons: []domain.Button{{ID: ButtonAgent, Title: "Talk to an agent"}},
		}
	}
	reply := domain.Reply{Text: c.nextQuestion(rc)}
	if len(rc.Missing) > 0 && rc.Missing[0] == "bookingType" && rc.Prompt == "" {
		reply.Buttons = bookingTypeButtons
	}
	return reply
}

func (c *Composer) nextQuestion(rc ports.ReplyContext) string {
	if rc.Prompt != "" {
		return rc.Prompt
	}
	if len(rc.Missing) > 0 {
		if q, ok := fieldQuestions[rc.Missing[0]]; ok {
			return q
		}
	}
	return "Is there anything else you'd like to change about the booking?"
}

func (c *Composer) options(rc ports.ReplyContext) domain.Reply {
	if len(rc.Options) == 0 {
		return domain.Reply{
			Text:    "Sorry, no vehicles are available for those details. Would you like to try different dates or another vehicle type?",
			Buttons: []domain.Button{{ID: ButtonAgent, Title: "Talk to an agent"}},
		}
	}

	intro := "Here are the vehicles that match your request. Tap one to select it."
	if !rc.ExactMatchFound {
		intro = "I couldn't find an exact match, but these vehicles are available. Tap one to select it."
	}
	return domain.Reply{Text: intro, VehicleCards: VehicleCards(rc.Options)}
}

func (c *Composer) price(o domain.VehicleSearchOption, symbol string) string {
	if o.EstimatedTotalInclVAT > 0 {
		return c.printer.Sprintf("%s%d", symbol, o.EstimatedTotalInclVAT)
	}
	return c.printer.Sprintf("%s%d per day", symbol, int64(o.DayRate))
}

// VehicleCards renders one card per option in presentation order.
func VehicleCards(options []domain.VehicleSearchOption) []domain.VehicleCard {
	cards := make([]domain.VehicleCard, 0, len(options))
	for _, o := range options {
		cards = append(cards, domain.VehicleCard{VehicleID: o.VehicleID})
	}
	return cards
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
