// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "NG"

// NormalizeE164 formats a phone number to E.164 using the default region.
// If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	return NormalizeE164In(input, defaultRegion)
}

// NormalizeE164In formats a phone number to E.164 using region for numbers
// written without a country code. If parsing fails, it returns the trimmed input.
func NormalizeE164In(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = defaultRegion
	}

	// WhatsApp sends wa_id without the leading plus.
	candidate := trimmed
	if !strings.HasPrefix(candidate, "+") && !strings.HasPrefix(candidate, "0") {
		candidate = "+" + candidate
	}

	number, err := phonenumbers.Parse(candidate, region)
	if err != nil {
		number, err = phonenumbers.Parse(trimmed, region)
		if err != nil {
			return trimmed
		}
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// WhatsAppID returns the digits-only recipient form the WhatsApp API expects.
func WhatsAppID(input, region string) string {
	return strings.TrimPrefix(NormalizeE164In(input, region), "+")
}
