// Package policy holds the pure decision rules of the booking dialog: search
// preconditions, routing and option selection.
package policy

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"booking_concierge_backend/internal/conversation/domain"
)

// Precondition names the single field that blocks a vehicle search.
type Precondition struct {
	MissingField string
	Prompt       string
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
}

var (
	time24Pattern = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)
	time12Pattern = regexp.MustCompile(`^(1[0-2]|0?[1-9])(?::([0-5]\d))?\s*([ap])\.?m\.?$`)
)

// CheckSearchPreconditions returns nil when the draft can be searched, or the
// first blocking field in priority order: pickup date, dropoff date, pickup time.
func CheckSearchPreconditions(d domain.BookingDraft) *Precondition {
	from, ok := ParseDate(d.From)
	if !ok {
		return &Precondition{
			MissingField: "from",
			Prompt:       "What date should the vehicle be picked up? For example 2026-11-02.",
		}
	}

	to, ok := ParseDate(d.To)
	if !ok {
		return &Precondition{
			MissingField: "to",
			Prompt:       "Until what date do you need the vehicle?",
		}
	}
	if to.Before(from) {
		return &Precondition{
			MissingField: "to",
			Prompt:       "The return date is before the pickup date. What date will you return the vehicle?",
		}
	}

	if _, _, ok := ParsePickupTime(d.PickupTime); !ok {
		return &Precondition{
			MissingField: "pickupTime",
			Prompt:       "What time should we pick you up? For example 9:30am or 14:00.",
		}
	}

	return nil
}

// ParseDate parses a draft date in any accepted layout.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParsePickupTime parses a 24-hour ("15:00") or 12-hour ("3pm", "3:30 pm") time.
func ParsePickupTime(value string) (hour, minute int, ok bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return 0, 0, false
	}

	if m := time24Pattern.FindStringSubmatch(value); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		return hour, minute, true
	}

	if m := time12Pattern.FindStringSubmatch(value); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour == 12 {
			hour = 0
		}
		if m[3] == "p" {
			hour += 12
		}
		return hour, minute, true
	}

	return 0, 0, false
}
