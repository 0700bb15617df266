package policy

import (
	"booking_concierge_backend/internal/conversation/control"
	"booking_concierge_backend/internal/conversation/domain"
)

// RouteInput is everything routing looks at. Route never reads anything else.
type RouteInput struct {
	Stage       domain.Stage
	Extraction  domain.ExtractionResult
	Message     string
	Draft       domain.BookingDraft
	Preferences domain.Preferences
	Options     []domain.VehicleSearchOption
	// Shown is the option list in the order the customer last saw it.
	Shown    []domain.VehicleSearchOption
	Selected *domain.VehicleSearchOption
}

type guard struct {
	name    string
	applies func(RouteInput) bool
	decide  func(RouteInput) domain.RouteDecision
}

// guards run before intent dispatch, in order. They only fire while a vehicle
// is selected, so a model that misreads "yes" cannot derail a confirmation.
var guards = []guard{
	{
		name: "selected_affirmative",
		applies: func(in RouteInput) bool {
			return confirmationPending(in) && control.Classify(in.Message) == control.ClassAffirmative
		},
		decide: func(RouteInput) domain.RouteDecision {
			return domain.RouteDecision{
				Node:  domain.NodeCreateBooking,
				Stage: domain.SetTo(domain.StageCreatingHold),
			}
		},
	},
	{
		name: "selected_negative",
		applies: func(in RouteInput) bool {
			return confirmationPending(in) && control.Classify(in.Message) == control.ClassNegative
		},
		decide: func(RouteInput) domain.RouteDecision {
			return domain.RouteDecision{
				Node:      domain.NodeRespond,
				Stage:     domain.SetTo(domain.StageCollecting),
				Selection: domain.Clear[*domain.VehicleSearchOption](),
				Options:   domain.Clear[[]domain.VehicleSearchOption](),
			}
		},
	},
}

func confirmationPending(in RouteInput) bool {
	return in.Selected != nil && in.Message != "" &&
		in.Stage != domain.StageAwaitingPayment && !in.Stage.IsTerminal()
}

// Route decides the next node and state overrides for one turn. It is pure:
// identical inputs always yield identical decisions.
func Route(in RouteInput) domain.RouteDecision {
	for _, g := range guards {
		if g.applies(in) {
			d := g.decide(in)
			d.Rule = g.name
			return d
		}
	}

	switch in.Extraction.Intent {
	case domain.IntentRequestAgent:
		return domain.RouteDecision{Node: domain.NodeHandoff, Rule: "request_agent"}

	case domain.IntentReset:
		return domain.RouteDecision{
			Node:         domain.NodeRespond,
			Stage:        domain.SetTo(domain.StageGreeting),
			Draft:        domain.Clear[domain.BookingDraft](),
			Preferences:  domain.Clear[domain.Preferences](),
			Selection:    domain.Clear[*domain.VehicleSearchOption](),
			Options:      domain.Clear[[]domain.VehicleSearchOption](),
			ClearBooking: true,
			Rule:         "reset",
		}

	case domain.IntentNewBooking:
		return domain.RouteDecision{
			Node:         domain.NodeRespond,
			Stage:        domain.SetTo(domain.StageCollecting),
			Draft:        domain.SetTo(domain.ApplyPatch(domain.BookingDraft{}, domain.Replace(in.Extraction.Patch))),
			Selection:    domain.Clear[*domain.VehicleSearchOption](),
			Options:      domain.Clear[[]domain.VehicleSearchOption](),
			ClearBooking: true,
			Rule:         "new_booking",
		}

	case domain.IntentGreeting:
		d := domain.RouteDecision{
			Node:  domain.NodeRespond,
			Stage: domain.SetTo(domain.StageGreeting),
			Rule:  "greeting",
		}
		if in.Stage.IsStale() {
			d.Draft = domain.Clear[domain.BookingDraft]()
			d.Selection = domain.Clear[*domain.VehicleSearchOption]()
			d.Options = domain.Clear[[]domain.VehicleSearchOption]()
			d.ClearBooking = true
			d.Rule = "greeting_stale_reset"
		}
		return d
	}

	if in.Stage.IsTerminal() {
		return domain.RouteDecision{Node: domain.NodeRespond, Rule: "terminal_hold"}
	}

	switch in.Extraction.Intent {
	case domain.IntentCancel:
		return domain.RouteDecision{
			Node:  domain.NodeRespond,
			Stage: domain.SetTo(domain.StageCancelled),
			Rule:  "cancel",
		}
	}

	switch in.Extraction.Intent {
	case domain.IntentSelectOption:
		if opt, ok := ResolveSelection(in.Extraction.SelectionHint, selectable(in)); ok {
			selected := opt
			return domain.RouteDecision{
				Node:      domain.NodeRespond,
				Stage:     domain.SetTo(domain.StageConfirming),
				Selection: domain.SetTo(&selected),
				Rule:      "select_option",
			}
		}

	case domain.IntentConfirm:
		if in.Selected != nil {
			return domain.RouteDecision{
				Node:  domain.NodeCreateBooking,
				Stage: domain.SetTo(domain.StageCreatingHold),
				Rule:  "confirm",
			}
		}

	case domain.IntentReject:
		return domain.RouteDecision{
			Node:      domain.NodeRespond,
			Stage:     domain.SetTo(domain.StageCollecting),
			Selection: domain.Clear[*domain.VehicleSearchOption](),
			Options:   domain.Clear[[]domain.VehicleSearchOption](),
			Rule:      "reject",
		}
	}

	return routeDefault(in)
}

func routeDefault(in RouteInput) domain.RouteDecision {
	if in.Selected != nil && in.Stage == domain.StageConfirming {
		return domain.RouteDecision{Node: domain.NodeRespond, Rule: "confirming_hold"}
	}

	if len(in.Draft.MissingRequired()) > 0 {
		return domain.RouteDecision{
			Node:  domain.NodeRespond,
			Stage: domain.SetTo(domain.StageCollecting),
			Rule:  "collect_missing",
		}
	}

	if len(in.Options) == 0 {
		return domain.RouteDecision{
			Node:  domain.NodeSearch,
			Stage: domain.SetTo(domain.StageSearching),
			Rule:  "search",
		}
	}

	return domain.RouteDecision{
		Node:  domain.NodeRespond,
		Stage: domain.SetTo(domain.StagePresentingOptions),
		Rule:  "present_options",
	}
}

// selectable lists what a selection hint resolves against: the cards last
// shown when there are any, else every available option.
func selectable(in RouteInput) []domain.VehicleSearchOption {
	if len(in.Shown) > 0 {
		return in.Shown
	}
	return in.Options
}
