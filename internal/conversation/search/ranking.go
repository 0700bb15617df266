package search

import (
	"math"
	"sort"
	"strings"

	"booking_concierge_backend/internal/conversation/domain"
)

// DefaultPriceTolerance is the similar-price band used when none is configured.
const DefaultPriceTolerance = 0.15

// RankConfig bounds the ranking output.
type RankConfig struct {
	MaxExact        int
	MaxAlternatives int
	PriceTolerance  float64
}

// RankResult holds exact matches or, when there are none, ranked alternatives.
// A vehicle never appears in both.
type RankResult struct {
	Exact        []domain.VehicleSearchOption
	Alternatives []domain.VehicleSearchOption
}

// Options returns the list to present: exact matches when any, else alternatives.
func (r RankResult) Options() []domain.VehicleSearchOption {
	if len(r.Exact) > 0 {
		return r.Exact
	}
	return r.Alternatives
}

// Pool concatenates result batches, keeping the first occurrence of each
// vehicle id in discovery order.
func Pool(batches ...[]domain.VehicleSearchOption) []domain.VehicleSearchOption {
	seen := make(map[string]bool)
	var pooled []domain.VehicleSearchOption
	for _, batch := range batches {
		for _, o := range batch {
			if o.VehicleID == "" || seen[o.VehicleID] {
				continue
			}
			seen[o.VehicleID] = true
			pooled = append(pooled, o)
		}
	}
	return pooled
}

var reasonPriority = map[domain.AlternativeReason]int{
	domain.ReasonSameModelDifferentColor: 0,
	domain.ReasonSameClassDifferentModel: 1,
	domain.ReasonSimilarPriceRange:       2,
	domain.ReasonOtherAvailable:          3,
}

// Rank splits pooled candidates into exact matches and reason-tagged
// alternatives for the draft.
func Rank(candidates []domain.VehicleSearchOption, d domain.BookingDraft, prefs domain.Preferences, cfg RankConfig) RankResult {
	if cfg.PriceTolerance <= 0 {
		cfg.PriceTolerance = DefaultPriceTolerance
	}

	var result RankResult
	for _, c := range candidates {
		if IsExactMatch(c, d) {
			if cfg.MaxExact > 0 && len(result.Exact) >= cfg.MaxExact {
				break
			}
			c.Reason = ""
			result.Exact = append(result.Exact, c)
		}
	}
	if len(result.Exact) > 0 {
		return result
	}

	ref := referencePoint(candidates, d, prefs)

	type ranked struct {
		option   domain.VehicleSearchOption
		index    int
		distance float64
	}
	items := make([]ranked, 0, len(candidates))
	for i, c := range candidates {
		c.Reason = classify(c, d, ref, cfg.PriceTolerance)
		distance := 0.0
		if ref.price > 0 {
			distance = math.Abs(c.DayRate - ref.price)
		}
		items = append(items, ranked{option: c, index: i, distance: distance})
	}

	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := reasonPriority[items[i].option.Reason], reasonPriority[items[j].option.Reason]
		if pi != pj {
			return pi < pj
		}
		if items[i].distance != items[j].distance {
			return items[i].distance < items[j].distance
		}
		return items[i].index < items[j].index
	})

	for _, it := range items {
		if cfg.MaxAlternatives > 0 && len(result.Alternatives) >= cfg.MaxAlternatives {
			break
		}
		result.Alternatives = append(result.Alternatives, it.option)
	}
	return result
}

// IsExactMatch reports whether every attribute the draft asks for matches.
func IsExactMatch(c domain.VehicleSearchOption, d domain.BookingDraft) bool {
	return matchesIfRequested(d.Make, c.Make) &&
		matchesIfRequested(d.Model, c.Model) &&
		matchesIfRequested(d.Color, c.Color) &&
		matchesIfRequested(d.VehicleType, c.VehicleType)
}

type reference struct {
	vehicleType string
	price       float64
}

// referencePoint derives the class and price the user implicitly asked for:
// the budget preference, else the first candidate with the requested make and
// model, else the first candidate of the requested vehicle type.
func referencePoint(candidates []domain.VehicleSearchOption, d domain.BookingDraft, prefs domain.Preferences) reference {
	ref := reference{vehicleType: strings.TrimSpace(d.VehicleType)}

	var refVehicle *domain.VehicleSearchOption
	if d.Make != "" || d.Model != "" {
		for i := range candidates {
			if matchesIfRequested(d.Make, candidates[i].Make) && matchesIfRequested(d.Model, candidates[i].Model) {
				refVehicle = &candidates[i]
				break
			}
		}
	}
	if ref.vehicleType == "" && refVehicle != nil {
		ref.vehicleType = refVehicle.VehicleType
	}

	switch {
	case prefs.Budget > 0:
		ref.price = prefs.Budget
	case refVehicle != nil && refVehicle.DayRate > 0:
		ref.price = refVehicle.DayRate
	case ref.vehicleType != "":
		for _, c := range candidates {
			if equalFold(c.VehicleType, ref.vehicleType) && c.DayRate > 0 {
				ref.price = c.DayRate
				break
			}
		}
	}
	return ref
}

func classify(c domain.VehicleSearchOption, d domain.BookingDraft, ref reference, tolerance float64) domain.AlternativeReason {
	sameModel := d.Model != "" && equalFold(c.Model, d.Model) && matchesIfRequested(d.Make, c.Make)
	if sameModel && (d.Color == "" || !equalFold(c.Color, d.Color)) {
		return domain.ReasonSameModelDifferentColor
	}
	if ref.vehicleType != "" && equalFold(c.VehicleType, ref.vehicleType) && !sameModel {
		return domain.ReasonSameClassDifferentModel
	}
	if ref.price > 0 && c.DayRate > 0 && math.Abs(c.DayRate-ref.price) <= tolerance*ref.price {
		return domain.ReasonSimilarPriceRange
	}
	return domain.ReasonOtherAvailable
}

func matchesIfRequested(requested, actual string) bool {
	requested = strings.TrimSpace(requested)
	return requested == "" || equalFold(requested, actual)
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
