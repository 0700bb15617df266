// Package extraction resolves what the customer meant: deterministically for
// buttons and short control phrases, through the extraction model otherwise.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"booking_concierge_backend/internal/conversation/control"
	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/apperr"
	"booking_concierge_backend/platform/logger"
	"booking_concierge_backend/platform/sanitize"
	"booking_concierge_backend/platform/validator"
)

const (
	maxMessageRunes = 2000

	SourceButton  = "button"
	SourceControl = "control"
	SourceModel   = "model"
)

// Input is one inbound interaction with the context needed to interpret it.
type Input struct {
	Message     string
	Interactive *domain.Interactive
	Stage       domain.Stage
	LastShown   []domain.VehicleSearchOption
	Draft       domain.BookingDraft
	Now         time.Time
}

type buttonRule struct {
	intent domain.Intent
	patch  domain.BookingDraft
}

var buttonIntents = map[string]buttonRule{
	"confirm_booking":       {intent: domain.IntentConfirm},
	"reject_option":         {intent: domain.IntentReject},
	"change_vehicle":        {intent: domain.IntentReject},
	"cancel_booking":        {intent: domain.IntentCancel},
	"talk_to_agent":         {intent: domain.IntentRequestAgent},
	"new_booking":           {intent: domain.IntentNewBooking},
	"booking_type_day":      {intent: domain.IntentProvideInfo, patch: domain.BookingDraft{BookingType: domain.BookingTypeDay}},
	"booking_type_night":    {intent: domain.IntentProvideInfo, patch: domain.BookingDraft{BookingType: domain.BookingTypeNight}},
	"booking_type_full_day": {intent: domain.IntentProvideInfo, patch: domain.BookingDraft{BookingType: domain.BookingTypeFullDay}},
	"booking_type_airport":  {intent: domain.IntentProvideInfo, patch: domain.BookingDraft{BookingType: domain.BookingTypeAirportPickup}},
}

var vehicleSelectionPrefixes = []string{"select_vehicle:", "vehicle_"}

// Service interprets inbound messages.
type Service struct {
	extractor ports.Extractor
	val       *validator.Validator
	log       *logger.Logger
}

// New creates an extraction Service.
func New(extractor ports.Extractor, val *validator.Validator, log *logger.Logger) *Service {
	return &Service{extractor: extractor, val: val, log: log}
}

// Extract returns the interpretation of the inbound interaction. Deterministic
// paths are tried first; the model is only called for free text they cannot
// resolve. Model failures surface as ExternalService errors and malformed
// model output as DataIntegrity errors.
func (s *Service) Extract(ctx context.Context, in Input) (domain.ExtractionResult, error) {
	if in.Interactive != nil {
		return resolveInteractive(*in.Interactive, in.LastShown), nil
	}

	if result, ok := resolveControl(in.Message, in.Stage); ok {
		return result, nil
	}

	message := sanitize.Inbound(in.Message, maxMessageRunes)
	if message == "" {
		return domain.ExtractionResult{Intent: domain.IntentUnknown, Confidence: 0, Source: SourceControl}, nil
	}

	raw, err := s.extractor.Extract(ctx, BuildSystemPrompt(in), WrapUserMessage(message))
	if err != nil {
		return domain.ExtractionResult{}, apperr.ExternalService("intent extraction failed", err).WithOp("extraction.Extract")
	}

	result, err := s.parse(raw)
	if err != nil {
		s.log.WithContext(ctx).Warn("extraction output rejected", "error", err.Error(), "shown_options", summarizeOptions(in.LastShown))
		return domain.ExtractionResult{}, err
	}
	return result, nil
}

func resolveInteractive(ia domain.Interactive, lastShown []domain.VehicleSearchOption) domain.ExtractionResult {
	id := strings.TrimSpace(ia.ID)

	if rule, ok := buttonIntents[id]; ok {
		return domain.ExtractionResult{Intent: rule.intent, Patch: rule.patch, Confidence: 1, Source: SourceButton}
	}

	vehicleID := id
	for _, prefix := range vehicleSelectionPrefixes {
		if strings.HasPrefix(id, prefix) {
			vehicleID = strings.TrimPrefix(id, prefix)
			break
		}
	}
	for _, opt := range lastShown {
		if opt.VehicleID == vehicleID {
			return domain.ExtractionResult{
				Intent:        domain.IntentSelectOption,
				SelectionHint: opt.VehicleID,
				Confidence:    1,
				Source:        SourceButton,
			}
		}
	}

	return domain.ExtractionResult{Intent: domain.IntentUnknown, Confidence: 0.5, Source: SourceButton}
}

func resolveControl(message string, stage domain.Stage) (domain.ExtractionResult, bool) {
	class := control.Classify(message)
	intent := domain.Intent("")
	switch class {
	case control.ClassAgent:
		intent = domain.IntentRequestAgent
	case control.ClassCancel:
		intent = domain.IntentCancel
	case control.ClassAffirmative:
		if stage == domain.StageConfirming {
			intent = domain.IntentConfirm
		}
	case control.ClassNegative:
		if stage == domain.StageConfirming {
			intent = domain.IntentReject
		}
	}
	if intent == "" {
		return domain.ExtractionResult{}, false
	}
	return domain.ExtractionResult{Intent: intent, Confidence: 1, Source: SourceControl}, true
}

type modelPayload struct {
	Intent         string              `json:"intent" validate:"required,oneof=greeting provide_info update_info select_option confirm reject cancel reset new_booking request_agent ask_question unknown"`
	DraftPatch     domain.BookingDraft `json:"draftPatch"`
	SelectionHint  string              `json:"selectionHint" validate:"max=200"`
	PreferenceHint *domain.Preferences `json:"preferenceHint"`
	Question       string              `json:"question" validate:"max=1000"`
	Confidence     *float64            `json:"confidence" validate:"required,gte=0,lte=1"`
}

func (s *Service) parse(raw string) (domain.ExtractionResult, error) {
	body, err := jsonObject(raw)
	if err != nil {
		return domain.ExtractionResult{}, apperr.DataIntegrity("extraction output is not JSON", err).WithOp("extraction.parse")
	}

	var payload modelPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return domain.ExtractionResult{}, apperr.DataIntegrity("extraction output does not match schema", err).WithOp("extraction.parse")
	}
	if err := s.val.Struct(payload); err != nil {
		return domain.ExtractionResult{}, apperr.DataIntegrity("extraction output failed validation", err).
			WithOp("extraction.parse").
			WithDetails(validator.Describe(err))
	}

	var prefs *domain.Preferences
	if payload.PreferenceHint != nil && !payload.PreferenceHint.IsEmpty() {
		prefs = payload.PreferenceHint
	}

	return domain.ExtractionResult{
		Intent:         domain.Intent(payload.Intent),
		Patch:          payload.DraftPatch,
		SelectionHint:  strings.TrimSpace(payload.SelectionHint),
		PreferenceHint: prefs,
		Question:       strings.TrimSpace(payload.Question),
		Confidence:     *payload.Confidence,
		Source:         SourceModel,
	}, nil
}

// jsonObject strips code fences and surrounding prose from a model answer.
func jsonObject(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object found")
	}
	return text[start : end+1], nil
}
