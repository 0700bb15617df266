package policy

import (
	"regexp"
	"strconv"
	"strings"

	"booking_concierge_backend/internal/conversation/control"
	"booking_concierge_backend/internal/conversation/domain"
)

var ordinalWords = map[string]int{
	"first": 0, "1st": 0,
	"second": 1, "2nd": 1,
	"third": 2, "3rd": 2,
	"fourth": 3, "4th": 3,
	"fifth": 4, "5th": 4,
	"sixth": 5, "6th": 5,
	"seventh": 6, "7th": 6,
	"eighth": 7, "8th": 7,
	"ninth": 8, "9th": 8,
	"tenth": 9, "10th": 9,
}

var cardinalWords = map[string]int{
	"one": 0, "two": 1, "three": 2, "four": 3, "five": 4,
	"six": 5, "seven": 6, "eight": 7, "nine": 8, "ten": 9,
}

var (
	numberPattern        = regexp.MustCompile(`^(?:(?:option|number|no|car|vehicle) )?(\d{1,2})$`)
	cardinalPattern      = regexp.MustCompile(`^(?:(?:option|number|car|vehicle) )?(one|two|three|four|five|six|seven|eight|nine|ten)$`)
	cheapestPattern      = regexp.MustCompile(`\b(cheapest|most affordable|least expensive|lowest price|lowest|cheaper one)\b`)
	mostExpensivePattern = regexp.MustCompile(`\b(most expensive|expensive|premium|best|luxury|highest)\b`)
)

// ResolveSelection maps a free-form selection hint onto one of options.
// Ordinals and numbers come first, then price extremes, then id, make, model
// and color matches. The first hit wins.
func ResolveSelection(hint string, options []domain.VehicleSearchOption) (domain.VehicleSearchOption, bool) {
	if len(options) == 0 {
		return domain.VehicleSearchOption{}, false
	}
	raw := strings.TrimSpace(hint)
	normalized := control.Normalize(raw)
	if normalized == "" {
		return domain.VehicleSearchOption{}, false
	}

	if idx, ok := ordinalIndex(normalized, len(options)); ok {
		return options[idx], true
	}

	switch {
	case cheapestPattern.MatchString(normalized):
		return extremeByPrice(options, false), true
	case mostExpensivePattern.MatchString(normalized):
		return extremeByPrice(options, true), true
	}

	for _, opt := range options {
		if strings.EqualFold(opt.VehicleID, raw) {
			return opt, true
		}
	}

	fields := []func(domain.VehicleSearchOption) string{
		func(o domain.VehicleSearchOption) string { return o.Make },
		func(o domain.VehicleSearchOption) string { return o.Model },
		func(o domain.VehicleSearchOption) string { return o.Color },
	}
	for _, field := range fields {
		for _, opt := range options {
			value := control.Normalize(field(opt))
			if value != "" && strings.Contains(normalized, value) {
				return opt, true
			}
		}
	}

	return domain.VehicleSearchOption{}, false
}

func ordinalIndex(normalized string, count int) (int, bool) {
	idx := -1
	switch {
	case normalized == "last" || strings.HasPrefix(normalized, "last ") || strings.HasSuffix(normalized, " last"):
		idx = count - 1
	case numberPattern.MatchString(normalized):
		n, _ := strconv.Atoi(numberPattern.FindStringSubmatch(normalized)[1])
		idx = n - 1
	case cardinalPattern.MatchString(normalized):
		idx = cardinalWords[cardinalPattern.FindStringSubmatch(normalized)[1]]
	default:
		for _, token := range strings.Fields(normalized) {
			if n, ok := ordinalWords[token]; ok {
				idx = n
				break
			}
		}
	}
	if idx < 0 || idx >= count {
		return 0, false
	}
	return idx, true
}

// OptionPrice is the price used to compare options: the estimated total when
// known, else the day rate.
func OptionPrice(o domain.VehicleSearchOption) float64 {
	if o.EstimatedTotalInclVAT > 0 {
		return float64(o.EstimatedTotalInclVAT)
	}
	return o.DayRate
}

func extremeByPrice(options []domain.VehicleSearchOption, highest bool) domain.VehicleSearchOption {
	best := options[0]
	for _, opt := range options[1:] {
		price, bestPrice := OptionPrice(opt), OptionPrice(best)
		if (highest && price > bestPrice) || (!highest && price < bestPrice) {
			best = opt
		}
	}
	return best
}
