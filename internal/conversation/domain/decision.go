package domain

// Override is an optional replacement value. Set distinguishes "replace with
// the zero value" from "leave unchanged".
type Override[T any] struct {
	Set   bool
	Value T
}

// SetTo returns an override that replaces the current value with v.
func SetTo[T any](v T) Override[T] {
	return Override[T]{Set: true, Value: v}
}

// Clear returns an override that replaces the current value with its zero value.
func Clear[T any]() Override[T] {
	return Override[T]{Set: true}
}

// RouteDecision is the outcome of routing one turn.
type RouteDecision struct {
	Node        Node
	Stage       Override[Stage]
	Draft       Override[BookingDraft]
	Preferences Override[Preferences]
	Selection   Override[*VehicleSearchOption]
	Options     Override[[]VehicleSearchOption]
	// ClearBooking drops the hold, booking and payment of an earlier request.
	ClearBooking bool
	Rule         string
}

// Apply writes the decision's overrides into the state.
func (d RouteDecision) Apply(s *ConversationState) {
	if d.Stage.Set {
		s.Stage = d.Stage.Value
	}
	if d.Draft.Set {
		s.Draft = d.Draft.Value
	}
	if d.Preferences.Set {
		s.Preferences = d.Preferences.Value
	}
	if d.Selection.Set {
		s.SelectedOption = d.Selection.Value
	}
	if d.Options.Set {
		s.AvailableOptions = d.Options.Value
		if len(d.Options.Value) == 0 {
			s.LastShownOptions = nil
		}
	}
	if d.ClearBooking {
		s.ClearBooking()
	}
	s.NextNode = d.Node
}
