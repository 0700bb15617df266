package policy

import (
	"reflect"
	"testing"

	"booking_concierge_backend/internal/conversation/domain"
)

func completeDraft() domain.BookingDraft {
	return domain.BookingDraft{
		BookingType:    domain.BookingTypeDay,
		From:           "2026-11-02",
		To:             "2026-11-04",
		PickupTime:     "09:00",
		PickupLocation: "Lekki Phase 1",
	}
}

func sampleOptions() []domain.VehicleSearchOption {
	return []domain.VehicleSearchOption{
		{VehicleID: "v-prado", Make: "Toyota", Model: "Prado", Color: "Black", EstimatedTotalInclVAT: 150000},
		{VehicleID: "v-camry", Make: "Toyota", Model: "Camry", Color: "White", EstimatedTotalInclVAT: 80000},
	}
}

func TestRoute_SelectedAffirmativeOverridesIntent(t *testing.T) {
	opts := sampleOptions()
	in := RouteInput{
		Stage:      domain.StageConfirming,
		Extraction: domain.ExtractionResult{Intent: domain.IntentAskQuestion},
		Message:    "Yes please",
		Draft:      completeDraft(),
		Options:    opts,
		Selected:   &opts[0],
	}

	d := Route(in)
	if d.Node != domain.NodeCreateBooking {
		t.Fatalf("expected create_booking, got %s (%s)", d.Node, d.Rule)
	}
	if !d.Stage.Set || d.Stage.Value != domain.StageCreatingHold {
		t.Fatalf("expected creating_hold stage, got %+v", d.Stage)
	}
}

func TestRoute_SelectedNegativeClearsSelection(t *testing.T) {
	opts := sampleOptions()
	d := Route(RouteInput{
		Stage:      domain.StageConfirming,
		Extraction: domain.ExtractionResult{Intent: domain.IntentConfirm},
		Message:    "no",
		Draft:      completeDraft(),
		Options:    opts,
		Selected:   &opts[0],
	})

	if d.Node != domain.NodeRespond || d.Stage.Value != domain.StageCollecting {
		t.Fatalf("expected respond+collecting, got %s/%s", d.Node, d.Stage.Value)
	}
	if !d.Selection.Set || d.Selection.Value != nil {
		t.Fatalf("expected selection cleared")
	}
	if !d.Options.Set || len(d.Options.Value) != 0 {
		t.Fatalf("expected options cleared")
	}
}

func TestRoute_GuardSkippedWhileAwaitingPayment(t *testing.T) {
	opts := sampleOptions()
	d := Route(RouteInput{
		Stage:      domain.StageAwaitingPayment,
		Extraction: domain.ExtractionResult{Intent: domain.IntentAskQuestion},
		Message:    "yes",
		Draft:      completeDraft(),
		Options:    opts,
		Selected:   &opts[0],
	})
	if d.Node == domain.NodeCreateBooking {
		t.Fatalf("expected a bare yes not to rebook while awaiting payment (%s)", d.Rule)
	}
}

func TestRoute_AwaitingPaymentDispatchesIntents(t *testing.T) {
	opts := sampleOptions()

	reject := Route(RouteInput{
		Stage:      domain.StageAwaitingPayment,
		Extraction: domain.ExtractionResult{Intent: domain.IntentReject},
		Draft:      completeDraft(),
		Options:    opts,
		Selected:   &opts[0],
	})
	if reject.Rule != "reject" || reject.Stage.Value != domain.StageCollecting {
		t.Fatalf("expected reject to return to collecting, got %+v", reject)
	}
	if !reject.Selection.Set || reject.Selection.Value != nil || !reject.Options.Set || len(reject.Options.Value) != 0 {
		t.Fatalf("expected selection and options cleared, got %+v", reject)
	}

	sel := Route(RouteInput{
		Stage:      domain.StageAwaitingPayment,
		Extraction: domain.ExtractionResult{Intent: domain.IntentSelectOption, SelectionHint: "cheapest"},
		Draft:      completeDraft(),
		Options:    opts,
		Selected:   &opts[0],
	})
	if sel.Rule != "select_option" || sel.Selection.Value == nil || sel.Selection.Value.VehicleID != "v-camry" {
		t.Fatalf("expected the cheaper option selected, got %+v", sel)
	}

	search := Route(RouteInput{
		Stage:      domain.StageAwaitingPayment,
		Extraction: domain.ExtractionResult{Intent: domain.IntentProvideInfo},
		Draft:      completeDraft(),
	})
	if search.Node != domain.NodeSearch || search.Stage.Value != domain.StageSearching {
		t.Fatalf("expected default route to search, got %s/%s (%s)", search.Node, search.Stage.Value, search.Rule)
	}
}

func TestRoute_NewRequestsClearBooking(t *testing.T) {
	cases := []struct {
		name  string
		stage domain.Stage
		in    domain.Intent
		want  bool
		prefs bool
	}{
		{"reset", domain.StageAwaitingPayment, domain.IntentReset, true, true},
		{"new booking", domain.StageAwaitingPayment, domain.IntentNewBooking, true, false},
		{"stale greeting", domain.StageCompleted, domain.IntentGreeting, true, false},
		{"greeting mid collection", domain.StageCollecting, domain.IntentGreeting, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Route(RouteInput{Stage: tc.stage, Extraction: domain.ExtractionResult{Intent: tc.in}, Draft: completeDraft()})
			if d.ClearBooking != tc.want {
				t.Fatalf("expected ClearBooking=%v, got %+v", tc.want, d)
			}
			if d.Preferences.Set != tc.prefs {
				t.Fatalf("expected preferences override=%v, got %+v", tc.prefs, d.Preferences)
			}
		})
	}
}

func TestRoute_IntentDispatch(t *testing.T) {
	opts := sampleOptions()

	cases := []struct {
		name      string
		in        RouteInput
		wantNode  domain.Node
		wantStage domain.Stage
	}{
		{
			name:     "agent",
			in:       RouteInput{Stage: domain.StageCollecting, Extraction: domain.ExtractionResult{Intent: domain.IntentRequestAgent}},
			wantNode: domain.NodeHandoff,
		},
		{
			name:      "cancel",
			in:        RouteInput{Stage: domain.StageCollecting, Extraction: domain.ExtractionResult{Intent: domain.IntentCancel}},
			wantNode:  domain.NodeRespond,
			wantStage: domain.StageCancelled,
		},
		{
			name:      "reset",
			in:        RouteInput{Stage: domain.StagePresentingOptions, Extraction: domain.ExtractionResult{Intent: domain.IntentReset}, Options: opts},
			wantNode:  domain.NodeRespond,
			wantStage: domain.StageGreeting,
		},
		{
			name:      "new booking",
			in:        RouteInput{Stage: domain.StageCompleted, Extraction: domain.ExtractionResult{Intent: domain.IntentNewBooking}},
			wantNode:  domain.NodeRespond,
			wantStage: domain.StageCollecting,
		},
		{
			name:      "select cheapest",
			in:        RouteInput{Stage: domain.StagePresentingOptions, Extraction: domain.ExtractionResult{Intent: domain.IntentSelectOption, SelectionHint: "cheapest"}, Draft: completeDraft(), Options: opts},
			wantNode:  domain.NodeRespond,
			wantStage: domain.StageConfirming,
		},
		{
			name:      "select unresolvable falls through",
			in:        RouteInput{Stage: domain.StagePresentingOptions, Extraction: domain.ExtractionResult{Intent: domain.IntentSelectOption, SelectionHint: "the purple bus"}, Draft: completeDraft(), Options: opts},
			wantNode:  domain.NodeRespond,
			wantStage: domain.StagePresentingOptions,
		},
		{
			name:      "confirm without selection falls through to search",
			in:        RouteInput{Stage: domain.StageCollecting, Extraction: domain.ExtractionResult{Intent: domain.IntentConfirm}, Draft: completeDraft()},
			wantNode:  domain.NodeSearch,
			wantStage: domain.StageSearching,
		},
		{
			name:      "confirm with selection",
			in:        RouteInput{Stage: domain.StageConfirming, Extraction: domain.ExtractionResult{Intent: domain.IntentConfirm}, Draft: completeDraft(), Options: opts, Selected: &opts[1]},
			wantNode:  domain.NodeCreateBooking,
			wantStage: domain.StageCreatingHold,
		},
		{
			name:      "reject",
			in:        RouteInput{Stage: domain.StageConfirming, Extraction: domain.ExtractionResult{Intent: domain.IntentReject}, Draft: completeDraft(), Options: opts, Selected: &opts[1]},
			wantNode:  domain.NodeRespond,
			wantStage: domain.StageCollecting,
		},
		{
			name:      "incomplete draft collects",
			in:        RouteInput{Stage: domain.StageGreeting, Extraction: domain.ExtractionResult{Intent: domain.IntentProvideInfo}, Draft: domain.BookingDraft{Make: "Lexus"}},
			wantNode:  domain.NodeRespond,
			wantStage: domain.StageCollecting,
		},
		{
			name:      "complete draft with options presents",
			in:        RouteInput{Stage: domain.StageCollecting, Extraction: domain.ExtractionResult{Intent: domain.IntentProvideInfo}, Draft: completeDraft(), Options: opts},
			wantNode:  domain.NodeRespond,
			wantStage: domain.StagePresentingOptions,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Route(tc.in)
			if d.Node != tc.wantNode {
				t.Fatalf("expected node %s, got %s (%s)", tc.wantNode, d.Node, d.Rule)
			}
			if tc.wantStage != "" && (!d.Stage.Set || d.Stage.Value != tc.wantStage) {
				t.Fatalf("expected stage %s, got %+v (%s)", tc.wantStage, d.Stage, d.Rule)
			}
		})
	}
}

func TestRoute_GreetingFromStaleStageResets(t *testing.T) {
	opts := sampleOptions()
	for _, stage := range []domain.Stage{domain.StageCompleted, domain.StageCancelled, domain.StageAwaitingPayment} {
		d := Route(RouteInput{
			Stage:      stage,
			Extraction: domain.ExtractionResult{Intent: domain.IntentGreeting},
			Draft:      completeDraft(),
			Options:    opts,
			Selected:   &opts[0],
		})
		if !d.Draft.Set || !d.Draft.Value.IsEmpty() {
			t.Fatalf("expected draft cleared from %s", stage)
		}
		if !d.Options.Set || !d.Selection.Set {
			t.Fatalf("expected options and selection cleared from %s", stage)
		}
	}

	d := Route(RouteInput{Stage: domain.StageCollecting, Extraction: domain.ExtractionResult{Intent: domain.IntentGreeting}, Draft: completeDraft()})
	if d.Draft.Set {
		t.Fatalf("expected draft kept for greeting mid-collection")
	}
}

func TestRoute_TerminalStageHoldsForOtherIntents(t *testing.T) {
	for _, intent := range []domain.Intent{domain.IntentProvideInfo, domain.IntentConfirm, domain.IntentCancel, domain.IntentUnknown} {
		d := Route(RouteInput{Stage: domain.StageCompleted, Extraction: domain.ExtractionResult{Intent: intent}, Draft: completeDraft()})
		if d.Node != domain.NodeRespond || d.Stage.Set {
			t.Fatalf("expected terminal hold for %s, got %+v", intent, d)
		}
	}
}

func TestRoute_IsDeterministic(t *testing.T) {
	opts := sampleOptions()
	stages := []domain.Stage{domain.StageGreeting, domain.StageCollecting, domain.StagePresentingOptions, domain.StageConfirming, domain.StageAwaitingPayment, domain.StageCompleted}
	messages := []string{"", "yes", "no", "show me the prado"}

	for _, stage := range stages {
		for _, intent := range domain.Intents {
			for _, msg := range messages {
				for _, selected := range []*domain.VehicleSearchOption{nil, &opts[0]} {
					in := RouteInput{
						Stage:      stage,
						Extraction: domain.ExtractionResult{Intent: intent, SelectionHint: "2"},
						Message:    msg,
						Draft:      completeDraft(),
						Options:    opts,
						Selected:   selected,
					}
					first, second := Route(in), Route(in)
					if !reflect.DeepEqual(first, second) {
						t.Fatalf("non-deterministic decision for %+v: %+v vs %+v", in, first, second)
					}
				}
			}
		}
	}
}

func TestRoute_SelectionUsesShownOrder(t *testing.T) {
	opts := sampleOptions()
	shown := []domain.VehicleSearchOption{opts[1], opts[0]}

	d := Route(RouteInput{
		Stage:      domain.StagePresentingOptions,
		Extraction: domain.ExtractionResult{Intent: domain.IntentSelectOption, SelectionHint: "the first one"},
		Draft:      completeDraft(),
		Options:    opts,
		Shown:      shown,
	})
	if d.Rule != "select_option" || d.Selection.Value == nil || d.Selection.Value.VehicleID != "v-camry" {
		t.Fatalf("expected the first shown card, got %+v", d)
	}

	d = Route(RouteInput{
		Stage:      domain.StagePresentingOptions,
		Extraction: domain.ExtractionResult{Intent: domain.IntentSelectOption, SelectionHint: "the first one"},
		Draft:      completeDraft(),
		Options:    opts,
	})
	if d.Selection.Value == nil || d.Selection.Value.VehicleID != "v-prado" {
		t.Fatalf("expected available order without shown cards, got %+v", d)
	}
}
