// Package conversation runs one booking conversation turn end to end: state
// load, intent extraction, routing, vehicle search, booking creation, reply
// and outbox.
package conversation

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"booking_concierge_backend/internal/conversation/agent"
	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/extraction"
	"booking_concierge_backend/internal/conversation/outbox"
	"booking_concierge_backend/internal/conversation/policy"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/internal/conversation/search"
	"booking_concierge_backend/internal/conversation/store"
	"booking_concierge_backend/platform/apperr"
	"booking_concierge_backend/platform/logger"
	"booking_concierge_backend/platform/sanitize"
)

const (
	defaultNightPickupTime = "19:00"
	defaultCandidateLimit  = 20
	defaultSearchTimeout   = 8 * time.Second
	dateLayout             = "2006-01-02"
)

// User-facing failure texts. Raw errors never reach the customer.
const (
	apologyText         = "Sorry, something went wrong on our side. Please try again in a moment."
	searchTimeoutText   = "Sorry, our vehicle search is taking longer than usual. Please send your message again in a moment."
	vehicleTakenText    = "Sorry, that vehicle was just booked by someone else."
	noAlternativesText  = "Would you like to try different dates or another vehicle type?"
	bookingFailedText   = "Sorry, we couldn't reserve that vehicle right now. Please confirm again in a moment."
	stateUnreadableText = "Sorry, we couldn't load your booking. An agent will follow up with you shortly."
)

var sameLocationPattern = regexp.MustCompile(`(?i)\bsame\s+(location|place|address|spot)\b|\bsame\s+as\s+(the\s+)?pick\s?-?up\b`)

// TurnInput is one inbound message for a conversation.
type TurnInput struct {
	ConversationID string              `json:"conversationId"`
	MessageID      string              `json:"messageId"`
	Message        string              `json:"message,omitempty"`
	Interactive    *domain.Interactive `json:"interactive,omitempty"`
	CustomerID     string              `json:"customerId,omitempty"`
}

// TurnResult is the outcome of a turn. Error carries the failure code when the
// turn failed; Outbox then holds a sanitized apology.
type TurnResult struct {
	Reply  domain.Reply        `json:"reply"`
	Outbox []domain.OutboxItem `json:"outbox"`
	Stage  domain.Stage        `json:"stage"`
	Draft  domain.BookingDraft `json:"draft"`
	Error  string              `json:"error,omitempty"`
}

// Config tunes the turn.
type Config struct {
	SearchTimeout            time.Duration
	AlternativeSearchTimeout time.Duration
	CandidateLimit           int
	Rank                     search.RankConfig
	NightPickupTime          string
	CurrencySymbol           string
}

// Deps are the collaborators of the orchestrator. Replier may be nil, in which
// case replies come from the template composer.
type Deps struct {
	Store      *store.Store
	Extraction *extraction.Service
	Searcher   ports.VehicleSearcher
	TaxRates   ports.TaxRateProvider
	Bookings   ports.BookingCreator
	Replier    ports.ReplyGenerator
	Outbox     *outbox.Builder
	Log        *logger.Logger
}

// Orchestrator runs conversation turns. Turns for one conversation must be
// serialized by the caller.
type Orchestrator struct {
	deps     Deps
	cfg      Config
	runner   *search.Runner
	composer *agent.Composer
	now      func() time.Time
}

// New creates an Orchestrator.
func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = defaultSearchTimeout
	}
	if cfg.AlternativeSearchTimeout <= 0 {
		cfg.AlternativeSearchTimeout = cfg.SearchTimeout
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = defaultCandidateLimit
	}
	if cfg.NightPickupTime == "" {
		cfg.NightPickupTime = defaultNightPickupTime
	}
	return &Orchestrator{
		deps:     deps,
		cfg:      cfg,
		runner:   search.NewRunner(deps.Searcher, cfg.SearchTimeout, cfg.AlternativeSearchTimeout, deps.Log),
		composer: agent.NewComposer(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// turn carries what one Invoke accumulates besides the state itself.
type turn struct {
	in         TurnInput
	state      *domain.ConversationState
	extraction domain.ExtractionResult
	node       domain.Node
	missing    []string
	prompt     string
	exactFound bool
}

// Invoke runs one turn. On failure the returned result still carries the
// current stage and draft, the error code and an apology outbox item.
func (o *Orchestrator) Invoke(ctx context.Context, in TurnInput) (TurnResult, error) {
	started := time.Now()
	ctx = logger.WithConversation(ctx, in.ConversationID, in.MessageID)
	log := o.deps.Log.WithContext(ctx)

	state, found, err := o.deps.Store.Load(ctx, in.ConversationID)
	if err != nil {
		return o.fail(ctx, in, nil, stateUnreadableText, err)
	}
	if !found {
		state = domain.NewConversationState(in.ConversationID, o.now())
	}
	if in.CustomerID != "" {
		state.CustomerID = in.CustomerID
	}

	t := &turn{in: in, state: state}
	state.Turn++
	state.UpdatedAt = o.now()
	message := sanitize.Inbound(in.Message, sanitize.MaxWhatsAppText)
	state.AppendMessage(domain.RoleUser, historyText(message, in.Interactive), state.UpdatedAt)

	t.extraction, err = o.deps.Extraction.Extract(ctx, extraction.Input{
		Message:     message,
		Interactive: in.Interactive,
		Stage:       state.Stage,
		LastShown:   state.LastShownOptions,
		Draft:       state.Draft,
		Now:         state.UpdatedAt,
	})
	if err != nil {
		o.saveQuietly(ctx, state)
		return o.fail(ctx, in, state, apologyText, err)
	}
	state.LastExtraction = &t.extraction

	before := state.Draft
	intent := t.extraction.Intent
	if intent.MutatesDraft() {
		if intent == domain.IntentNewBooking {
			state.Draft = domain.ApplyPatch(domain.BookingDraft{}, domain.Replace(t.extraction.Patch))
		} else {
			state.Draft = domain.ApplyPatch(state.Draft, domain.Merge(t.extraction.Patch))
		}
	}
	state.Draft = o.deriveImplicitFields(state.Draft, message)
	if len(state.AvailableOptions) > 0 && domain.KeyFieldsChanged(before, state.Draft) {
		log.Info("draft key fields changed, dropping vehicle options")
		state.ClearOptions()
	}

	decision := policy.Route(policy.RouteInput{
		Stage:       state.Stage,
		Extraction:  t.extraction,
		Message:     message,
		Draft:       state.Draft,
		Preferences: state.Preferences,
		Options:     state.AvailableOptions,
		Shown:       state.LastShownOptions,
		Selected:    state.SelectedOption,
	})
	decision.Apply(state)
	if t.extraction.PreferenceHint != nil {
		state.Preferences = state.Preferences.Merge(*t.extraction.PreferenceHint)
	}
	if decision.Draft.Set {
		state.Draft = o.deriveImplicitFields(state.Draft, message)
	}
	t.node = decision.Node
	log.Debug("turn routed", "rule", decision.Rule, "node", string(t.node), "stage", string(state.Stage))

	switch t.node {
	case domain.NodeSearch:
		if err := o.runSearch(ctx, t); err != nil {
			state.Stage = domain.StageCollecting
			o.saveQuietly(ctx, state)
			return o.fail(ctx, in, state, searchTimeoutOrApology(err), err)
		}
	case domain.NodeCreateBooking:
		if err := o.createBooking(ctx, t); err != nil {
			state.Stage = domain.StageConfirming
			o.saveQuietly(ctx, state)
			return o.fail(ctx, in, state, bookingFailedText, err)
		}
	case domain.NodeHandoff:
		log.Info("customer asked for a human agent", "stage", string(state.Stage))
	}

	if state.Stage == domain.StageCollecting && t.prompt == "" {
		t.missing = state.Draft.MissingRequired()
		if len(t.missing) == 0 {
			if pc := policy.CheckSearchPreconditions(state.Draft); pc != nil {
				t.missing, t.prompt = []string{pc.MissingField}, pc.Prompt
			}
		}
	}

	reply := o.reply(ctx, t)
	items := o.deps.Outbox.Build(outbox.Input{
		ConversationID:   in.ConversationID,
		MessageID:        in.MessageID,
		Reply:            reply,
		Stage:            state.Stage,
		AvailableOptions: state.AvailableOptions,
		CheckoutURL:      state.CheckoutURL,
	})
	if len(reply.VehicleCards) > 0 {
		state.LastShownOptions = shownOptions(reply.VehicleCards, state.AvailableOptions)
	}
	state.PendingError = ""
	state.AppendMessage(domain.RoleAssistant, reply.Text, o.now())

	if state.Stage == domain.StageCancelled {
		o.deps.Store.Clear(ctx, state.ConversationID)
	} else if err := o.deps.Store.Save(ctx, state); err != nil {
		return o.fail(ctx, in, state, apologyText, err)
	}

	log.TurnCompleted(in.ConversationID, state.Turn, string(state.Stage), string(t.node), len(items), time.Since(started))
	return TurnResult{
		Reply:  reply,
		Outbox: items,
		Stage:  state.Stage,
		Draft:  state.Draft,
	}, nil
}

// runSearch checks preconditions, runs the exact query and, when nothing
// matches exactly, the relaxed queries. An exact query failure fails the turn
// and leaves the state without options.
func (o *Orchestrator) runSearch(ctx context.Context, t *turn) error {
	state := t.state
	if pc := policy.CheckSearchPreconditions(state.Draft); pc != nil {
		state.Stage = domain.StageCollecting
		t.missing, t.prompt = []string{pc.MissingField}, pc.Prompt
		return nil
	}

	ranked, err := o.search(ctx, state)
	if err != nil {
		return err
	}
	state.AvailableOptions = ranked.Options()
	state.LastShownOptions = nil
	state.SelectedOption = nil
	state.Stage = domain.StagePresentingOptions
	t.exactFound = len(ranked.Exact) > 0
	return nil
}

func (o *Orchestrator) search(ctx context.Context, state *domain.ConversationState) (search.RankResult, error) {
	draft := state.Draft
	exact, err := o.runner.Exact(ctx, search.BuildExactQuery(draft, o.cfg.CandidateLimit))
	if err != nil {
		return search.RankResult{}, err
	}

	batches := [][]domain.VehicleSearchOption{exact}
	if len(exact) == 0 || !anyExact(exact, draft) {
		batches = append(batches, o.runner.Alternatives(ctx, search.BuildAlternativeQueries(draft, o.cfg.CandidateLimit))...)
	}

	ranked := search.Rank(search.Pool(batches...), draft, state.Preferences, o.cfg.Rank)
	vat := o.vatRate(ctx)
	ranked.Exact = search.EstimateAll(ranked.Exact, draft, vat)
	ranked.Alternatives = search.EstimateAll(ranked.Alternatives, draft, vat)
	return ranked, nil
}

func anyExact(options []domain.VehicleSearchOption, d domain.BookingDraft) bool {
	for _, opt := range options {
		if search.IsExactMatch(opt, d) {
			return true
		}
	}
	return false
}

// vatRate falls back to zero so an estimate without tax is still shown.
func (o *Orchestrator) vatRate(ctx context.Context) float64 {
	if o.deps.TaxRates == nil {
		return 0
	}
	rate, err := o.deps.TaxRates.VATRate(ctx)
	if err != nil {
		o.deps.Log.WithContext(ctx).ExternalCallFailed("catalog", "vat_rate", err)
		return 0
	}
	return rate
}

// createBooking holds the selected vehicle. A vehicle taken in the meantime is
// recovered by presenting fresh options, or by asking to re-collect details
// when none are left.
func (o *Orchestrator) createBooking(ctx context.Context, t *turn) error {
	state := t.state
	selected := state.SelectedOption
	if selected == nil {
		state.Stage = domain.StageCollecting
		return nil
	}

	result, err := o.deps.Bookings.CreateBooking(ctx, ports.BookingInput{
		ConversationID: state.ConversationID,
		CustomerID:     state.CustomerID,
		VehicleID:      selected.VehicleID,
		Draft:          state.Draft,
		Subtotal:       selected.Subtotal,
		VATAmount:      selected.VATAmount,
		Total:          selected.EstimatedTotalInclVAT,
		IdempotencyKey: state.ConversationID + ":" + t.in.MessageID,
	})
	if errors.Is(err, ports.ErrVehicleUnavailable) {
		o.deps.Log.WithContext(ctx).Info("selected vehicle no longer available", "vehicle_id", selected.VehicleID)
		return o.recoverUnavailable(ctx, t, selected.VehicleID)
	}
	if err != nil {
		o.deps.Log.WithContext(ctx).ExternalCallFailed("booking", "create_booking", err)
		if apperr.GetKind(err) == apperr.KindUnknown {
			err = apperr.ExternalService("create booking", err).WithOp("conversation.createBooking")
		}
		return err
	}

	state.BookingID = result.BookingID
	state.HoldID = result.HoldID
	state.PaymentID = result.PaymentID
	state.CheckoutURL = result.CheckoutURL
	state.Stage = domain.StageAwaitingPayment
	return nil
}

func (o *Orchestrator) recoverUnavailable(ctx context.Context, t *turn, takenID string) error {
	state := t.state
	state.ClearOptions()
	state.PendingError = vehicleTakenText

	ranked, err := o.search(ctx, state)
	if err != nil {
		o.deps.Log.WithContext(ctx).ExternalCallFailed("vehicle_search", "research_after_conflict", err)
	}
	fresh := withoutVehicle(ranked.Options(), takenID)
	if err != nil || len(fresh) == 0 {
		state.Stage = domain.StageCollecting
		t.prompt = noAlternativesText
		return nil
	}

	state.AvailableOptions = fresh
	state.Stage = domain.StagePresentingOptions
	t.exactFound = len(ranked.Exact) > 0
	return nil
}

func withoutVehicle(options []domain.VehicleSearchOption, vehicleID string) []domain.VehicleSearchOption {
	kept := make([]domain.VehicleSearchOption, 0, len(options))
	for _, opt := range options {
		if opt.VehicleID != vehicleID {
			kept = append(kept, opt)
		}
	}
	return kept
}

// reply asks the reply generator and falls back to the composer on failure.
func (o *Orchestrator) reply(ctx context.Context, t *turn) domain.Reply {
	state := t.state
	rc := ports.ReplyContext{
		Stage:            state.Stage,
		Node:             t.node,
		Draft:            state.Draft,
		Missing:          t.missing,
		Prompt:           t.prompt,
		Options:          state.AvailableOptions,
		Selected:         state.SelectedOption,
		CheckoutURL:      state.CheckoutURL,
		Question:         t.extraction.Question,
		History:          state.Messages,
		CurrencySymbol:   o.cfg.CurrencySymbol,
		ExactMatchFound:  t.exactFound,
		PendingErrorText: state.PendingError,
	}

	if o.deps.Replier != nil {
		reply, err := o.deps.Replier.GenerateReply(ctx, rc)
		if err == nil && strings.TrimSpace(reply.Text) != "" {
			return reply
		}
		if err != nil {
			o.deps.Log.WithContext(ctx).ExternalCallFailed("llm", "generate_reply", err)
		}
	}
	return o.composer.Compose(rc)
}

// deriveImplicitFields fills draft fields that follow from others: night
// bookings use the fixed night pickup time, a duration sets the end date, an
// airport pickup ends on its start date and "same location" copies the pickup
// location into the dropoff.
func (o *Orchestrator) deriveImplicitFields(d domain.BookingDraft, message string) domain.BookingDraft {
	switch d.BookingType {
	case domain.BookingTypeNight:
		d.PickupTime = o.cfg.NightPickupTime
	case domain.BookingTypeAirportPickup:
		if d.To == "" && d.From != "" {
			d.To = d.From
		}
	}

	if d.To == "" && d.Duration > 0 {
		if start, ok := policy.ParseDate(d.From); ok {
			days := d.Duration - 1
			if d.BookingType == domain.BookingTypeNight {
				days = d.Duration
			}
			d.To = start.AddDate(0, 0, days).Format(dateLayout)
		}
	}

	if d.PickupLocation != "" && (sameLocationPattern.MatchString(message) || strings.EqualFold(strings.TrimSpace(d.DropoffLocation), "same")) {
		d.DropoffLocation = d.PickupLocation
	}
	return d
}

func (o *Orchestrator) saveQuietly(ctx context.Context, state *domain.ConversationState) {
	if err := o.deps.Store.Save(ctx, state); err != nil {
		o.deps.Log.WithContext(ctx).Error("failed to save state after turn failure", "error", err.Error())
	}
}

func (o *Orchestrator) fail(ctx context.Context, in TurnInput, state *domain.ConversationState, text string, err error) (TurnResult, error) {
	kind := apperr.GetKind(err)
	o.deps.Log.WithContext(ctx).Error("conversation turn failed",
		"error_code", kind.Code(),
		"error", err.Error(),
	)

	reply := domain.Reply{Text: text}
	result := TurnResult{
		Reply: reply,
		Outbox: o.deps.Outbox.Build(outbox.Input{
			ConversationID: in.ConversationID,
			MessageID:      in.MessageID,
			Reply:          reply,
		}),
		Error: kind.Code(),
	}
	if state != nil {
		result.Stage = state.Stage
		result.Draft = state.Draft
	}
	return result, err
}

func searchTimeoutOrApology(err error) string {
	if apperr.Is(err, apperr.KindTimeout) {
		return searchTimeoutText
	}
	return apologyText
}

func historyText(message string, ia *domain.Interactive) string {
	if message != "" || ia == nil {
		return message
	}
	if ia.Title != "" {
		return ia.Title
	}
	return ia.ID
}

func shownOptions(cards []domain.VehicleCard, available []domain.VehicleSearchOption) []domain.VehicleSearchOption {
	byID := make(map[string]domain.VehicleSearchOption, len(available))
	for _, opt := range available {
		byID[opt.VehicleID] = opt
	}
	shown := make([]domain.VehicleSearchOption, 0, len(cards))
	for _, card := range cards {
		if opt, ok := byID[card.VehicleID]; ok {
			shown = append(shown, opt)
		}
	}
	return shown
}
