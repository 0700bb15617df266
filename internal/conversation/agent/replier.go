package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/adk/model"

	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/ai/moonshot"
	"booking_concierge_backend/platform/validator"
)

const replyInstruction = `You are the WhatsApp concierge of a chauffeured car rental company.
Write the next assistant message for the conversation described in the CONTEXT JSON.

Rules:
- Be brief and friendly. Plain text only, no markdown, no HTML.
- Never invent vehicles, prices, dates or links. Use only what CONTEXT contains.
- If "prompt" is set, the message must ask exactly that question.
- If "missing" is not empty and "prompt" is empty, ask for the first missing field only.
- stage "presenting_options": introduce the options and reference each one in "vehicleCards" by vehicleId.
  If "exactMatchFound" is false, say these are the closest alternatives.
- stage "confirming": summarise the selected vehicle and its price, and ask for confirmation.
- stage "awaiting_payment": ask the customer to pay using "checkoutUrl".
- node "handoff": say a human agent will take over.
- If "question" is set, answer it only when CONTEXT holds the answer, otherwise offer an agent.
- If "pendingError" is set, start with that sentence unchanged.

Allowed button ids: confirm_booking, reject_option, change_vehicle, cancel_booking, talk_to_agent,
new_booking, booking_type_day, booking_type_night, booking_type_full_day, booking_type_airport.
At most 3 buttons, titles at most 20 characters.

Respond with JSON only:
{"text": "...", "buttons": [{"id": "...", "title": "..."}], "vehicleCards": [{"vehicleId": "...", "buttonLabel": "..."}]}`

type replyContextView struct {
	Stage           domain.Stage                 `json:"stage"`
	Node            domain.Node                  `json:"node"`
	Draft           domain.BookingDraft          `json:"draft"`
	Missing         []string                     `json:"missing,omitempty"`
	Prompt          string                       `json:"prompt,omitempty"`
	Options         []domain.VehicleSearchOption `json:"options,omitempty"`
	Selected        *domain.VehicleSearchOption  `json:"selected,omitempty"`
	CheckoutURL     string                       `json:"checkoutUrl,omitempty"`
	Question        string                       `json:"question,omitempty"`
	Currency        string                       `json:"currency"`
	ExactMatchFound bool                         `json:"exactMatchFound"`
	PendingError    string                       `json:"pendingError,omitempty"`
	History         []domain.Message             `json:"history,omitempty"`
}

type replyPayload struct {
	Text    string `json:"text" validate:"required,max=4096"`
	Buttons []struct {
		ID    string `json:"id" validate:"required"`
		Title string `json:"title" validate:"required,max=20"`
	} `json:"buttons" validate:"max=3,dive"`
	VehicleCards []domain.VehicleCard `json:"vehicleCards"`
}

// historyWindow is how many recent messages the reply model sees.
const historyWindow = 8

// Replier writes replies with the language model.
type Replier struct {
	llm model.LLM
	val *validator.Validator
}

var _ ports.ReplyGenerator = (*Replier)(nil)

func NewReplier(llm model.LLM, val *validator.Validator) *Replier {
	return &Replier{llm: llm, val: val}
}

// GenerateReply asks the model for the reply. Buttons with unknown ids and
// cards for vehicles outside the context are dropped.
func (r *Replier) GenerateReply(ctx context.Context, rc ports.ReplyContext) (domain.Reply, error) {
	view := replyContextView{
		Stage:           rc.Stage,
		Node:            rc.Node,
		Draft:           rc.Draft,
		Missing:         rc.Missing,
		Prompt:          rc.Prompt,
		Options:         rc.Options,
		Selected:        rc.Selected,
		CheckoutURL:     rc.CheckoutURL,
		Question:        rc.Question,
		Currency:        rc.CurrencySymbol,
		ExactMatchFound: rc.ExactMatchFound,
		PendingError:    rc.PendingErrorText,
		History:         tail(rc.History, historyWindow),
	}
	contextJSON, err := json.Marshal(view)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("encode reply context: %w", err)
	}

	raw, err := moonshot.Text(r.llm.GenerateContent(ctx, jsonRequest(replyInstruction, "CONTEXT:\n"+string(contextJSON)), false))
	if err != nil {
		return domain.Reply{}, fmt.Errorf("generate reply via %s: %w", r.llm.Name(), err)
	}

	var payload replyPayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return domain.Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	if err := r.val.Struct(payload); err != nil {
		return domain.Reply{}, fmt.Errorf("invalid reply: %s", validator.Describe(err))
	}

	reply := domain.Reply{Text: strings.TrimSpace(payload.Text)}
	for _, b := range payload.Buttons {
		if knownButtons[b.ID] && len(reply.Buttons) < maxButtons {
			reply.Buttons = append(reply.Buttons, domain.Button{ID: b.ID, Title: b.Title})
		}
	}

	offered := make(map[string]bool, len(rc.Options))
	for _, o := range rc.Options {
		offered[o.VehicleID] = true
	}
	for _, card := range payload.VehicleCards {
		if offered[card.VehicleID] {
			reply.VehicleCards = append(reply.VehicleCards, card)
		}
	}
	if rc.Stage == domain.StagePresentingOptions && len(reply.VehicleCards) == 0 {
		reply.VehicleCards = VehicleCards(rc.Options)
	}
	return reply, nil
}

func tail(messages []domain.Message, n int) []domain.Message {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
