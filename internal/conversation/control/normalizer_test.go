package control

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Yes, PLEASE!!  ": "yes please",
		"Don't":             "dont",
		"Café   Olé":        "cafe ole",
		"book/it":           "book it",
		"":                  "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		text string
		want Class
	}{
		{"Yes", ClassAffirmative},
		{"ok, book it!", ClassAffirmative},
		{"Yeah sure go ahead", ClassAffirmative},
		{"Confirm this one please", ClassAffirmative},
		{"No thanks", ClassNegative},
		{"nooo", ClassNegative},
		{"not that car", ClassNegative},
		{"Cancel my booking", ClassCancel},
		{"I want to cancel", ClassCancel},
		{"Can I speak to a human?", ClassAgent},
		{"customer care", ClassAgent},
		{"I need a Prado tomorrow at Lekki", ClassNone},
		{"", ClassNone},
	}
	for _, tc := range cases {
		if got := Classify(tc.text); got != tc.want {
			t.Fatalf("Classify(%q): expected %q, got %q", tc.text, tc.want, got)
		}
	}
}

func TestClassify_LongMessagesNeverMatch(t *testing.T) {
	long := "yes " + strings.Repeat("and also the car should be clean ", 3)
	if got := Classify(long); got != ClassNone {
		t.Fatalf("expected no match for long message, got %q", got)
	}
}

func TestNewClassifier_InvalidYAML(t *testing.T) {
	if _, err := NewClassifier([]byte("affirmative: [unterminated")); err == nil {
		t.Fatalf("expected parse error")
	}
}
