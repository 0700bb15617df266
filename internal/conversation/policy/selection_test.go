package policy

import (
	"testing"

	"booking_concierge_backend/internal/conversation/domain"
)

func TestResolveSelection_Cheapest(t *testing.T) {
	opts := []domain.VehicleSearchOption{
		{VehicleID: "premium", EstimatedTotalInclVAT: 150000},
		{VehicleID: "budget", EstimatedTotalInclVAT: 80000},
	}

	got, ok := ResolveSelection("cheapest", opts)
	if !ok || got.VehicleID != "budget" {
		t.Fatalf("expected the 80000 option, got %+v ok=%v", got, ok)
	}

	got, ok = ResolveSelection("the most expensive one", opts)
	if !ok || got.VehicleID != "premium" {
		t.Fatalf("expected the 150000 option, got %+v ok=%v", got, ok)
	}
}

func TestResolveSelection_Hints(t *testing.T) {
	opts := []domain.VehicleSearchOption{
		{VehicleID: "v-1", Make: "Toyota", Model: "Prado", Color: "Black", DayRate: 90000},
		{VehicleID: "v-2", Make: "Lexus", Model: "GX460", Color: "White", DayRate: 120000},
		{VehicleID: "v-3", Make: "Mercedes-Benz", Model: "GLE", Color: "Silver", DayRate: 200000},
	}

	cases := []struct {
		hint string
		want string
	}{
		{"2", "v-2"},
		{"option 3", "v-3"},
		{"the second one", "v-2"},
		{"first", "v-1"},
		{"last", "v-3"},
		{"two", "v-2"},
		{"v-3", "v-3"},
		{"the lexus", "v-2"},
		{"I like the prado", "v-1"},
		{"silver please", "v-3"},
		{"mercedes benz", "v-3"},
	}
	for _, tc := range cases {
		got, ok := ResolveSelection(tc.hint, opts)
		if !ok || got.VehicleID != tc.want {
			t.Fatalf("hint %q: expected %s, got %+v ok=%v", tc.hint, tc.want, got, ok)
		}
	}

	for _, miss := range []string{"", "7", "a bus", "the purple one"} {
		if _, ok := ResolveSelection(miss, opts); ok {
			t.Fatalf("expected no selection for %q", miss)
		}
	}
}

func TestResolveSelection_NoOptions(t *testing.T) {
	if _, ok := ResolveSelection("cheapest", nil); ok {
		t.Fatalf("expected no selection without options")
	}
}
