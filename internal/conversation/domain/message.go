package domain

// Interactive is a structured reply the user tapped: a button or a list row.
type Interactive struct {
	Type  string `json:"type" validate:"required,oneof=button list"`
	ID    string `json:"id" validate:"required,max=200"`
	Title string `json:"title,omitempty" validate:"omitempty,max=200"`
}

// Button is a quick-reply control attached to an outbound message.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// VehicleCard asks the outbox to render one vehicle as a rich card.
type VehicleCard struct {
	VehicleID   string `json:"vehicleId"`
	ButtonLabel string `json:"buttonLabel,omitempty"`
}

// Reply is the generated assistant response for a turn.
type Reply struct {
	Text         string        `json:"text"`
	Buttons      []Button      `json:"buttons,omitempty"`
	VehicleCards []VehicleCard `json:"vehicleCards,omitempty"`
}

// OutboxKind is the delivery form of an outbox item.
type OutboxKind string

const (
	OutboxText     OutboxKind = "text"
	OutboxTemplate OutboxKind = "template"
)

// TemplateVar is one positional variable bound into a template message.
type TemplateVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OutboxItem is one deliverable unit for the messaging transport.
type OutboxItem struct {
	DedupeKey    string        `json:"dedupeKey"`
	Kind         OutboxKind    `json:"kind"`
	Text         string        `json:"text,omitempty"`
	Buttons      []Button      `json:"buttons,omitempty"`
	TemplateName string        `json:"templateName,omitempty"`
	Variables    []TemplateVar `json:"variables,omitempty"`
}

// Var returns the value of a bound template variable.
func (o OutboxItem) Var(name string) string {
	for _, v := range o.Variables {
		if v.Name == name {
			return v.Value
		}
	}
	return ""
}
