// Package domain contains the conversation state model and pure state helpers.
package domain

// Stage is the position of a conversation in the booking dialog.
type Stage string

const (
	StageGreeting          Stage = "greeting"
	StageCollecting        Stage = "collecting"
	StageSearching         Stage = "searching"
	StagePresentingOptions Stage = "presenting_options"
	StageAwaitingSelection Stage = "awaiting_selection"
	StageConfirming        Stage = "confirming"
	StageCreatingHold      Stage = "creating_hold"
	StageAwaitingPayment   Stage = "awaiting_payment"
	StageCompleted         Stage = "completed"
	StageCancelled         Stage = "cancelled"
)

var knownStages = map[Stage]bool{
	StageGreeting:          true,
	StageCollecting:        true,
	StageSearching:         true,
	StagePresentingOptions: true,
	StageAwaitingSelection: true,
	StageConfirming:        true,
	StageCreatingHold:      true,
	StageAwaitingPayment:   true,
	StageCompleted:         true,
	StageCancelled:         true,
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	return knownStages[s]
}

// IsTerminal reports whether no automatic transition leaves this stage.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageCancelled
}

// IsStale reports whether a greeting in this stage should start over.
func (s Stage) IsStale() bool {
	return s.IsTerminal() || s == StageAwaitingPayment
}

// Intent is the closed set of user intents the extractor may report.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentProvideInfo  Intent = "provide_info"
	IntentUpdateInfo   Intent = "update_info"
	IntentSelectOption Intent = "select_option"
	IntentConfirm      Intent = "confirm"
	IntentReject       Intent = "reject"
	IntentCancel       Intent = "cancel"
	IntentReset        Intent = "reset"
	IntentNewBooking   Intent = "new_booking"
	IntentRequestAgent Intent = "request_agent"
	IntentAskQuestion  Intent = "ask_question"
	IntentUnknown      Intent = "unknown"
)

// Intents lists every intent in a stable order.
var Intents = []Intent{
	IntentGreeting,
	IntentProvideInfo,
	IntentUpdateInfo,
	IntentSelectOption,
	IntentConfirm,
	IntentReject,
	IntentCancel,
	IntentReset,
	IntentNewBooking,
	IntentRequestAgent,
	IntentAskQuestion,
	IntentUnknown,
}

// MutatesDraft reports whether the intent's patch may be applied to the draft.
// Confirm, reject and cancel never touch the draft.
func (i Intent) MutatesDraft() bool {
	switch i {
	case IntentProvideInfo, IntentUpdateInfo, IntentSelectOption, IntentNewBooking:
		return true
	default:
		return false
	}
}

// Node is the next action a turn performs after routing.
type Node string

const (
	NodeRespond       Node = "respond"
	NodeSearch        Node = "search"
	NodeCreateBooking Node = "create_booking"
	NodeHandoff       Node = "handoff"
)

// BookingType is how the vehicle is billed.
type BookingType string

const (
	BookingTypeDay           BookingType = "day"
	BookingTypeNight         BookingType = "night"
	BookingTypeFullDay       BookingType = "full_day"
	BookingTypeAirportPickup BookingType = "airport_pickup"
)

// AlternativeReason tags why a non-exact candidate was offered.
type AlternativeReason string

const (
	ReasonSameModelDifferentColor AlternativeReason = "SAME_MODEL_DIFFERENT_COLOR"
	ReasonSameClassDifferentModel AlternativeReason = "SAME_CLASS_DIFFERENT_MODEL"
	ReasonSimilarPriceRange       AlternativeReason = "SIMILAR_PRICE_RANGE"
	ReasonOtherAvailable          AlternativeReason = "OTHER_AVAILABLE"
)
