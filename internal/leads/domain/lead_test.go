package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusNew, StatusNegotiating, true},
		{StatusNew, StatusWon, true},
		{StatusNew, StatusLost, true},
		{StatusNegotiating, StatusWon, true},
		{StatusNegotiating, StatusLost, true},
		{StatusNegotiating, StatusNegotiating, true},
		{StatusNegotiating, StatusNew, false},
		{StatusWon, StatusLost, false},
		{StatusLost, StatusWon, false},
		{StatusWon, StatusNegotiating, false},
		{StatusNew, Status("archived"), false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestWidenMatchTypeNeverNarrows(t *testing.T) {
	cases := []struct {
		current, candidate, want MatchType
	}{
		{MatchNone, MatchExact, MatchExact},
		{MatchNone, MatchSimilar, MatchSimilar},
		{MatchExact, MatchSimilar, MatchSimilar},
		{MatchSimilar, MatchExact, MatchSimilar},
		{MatchSimilar, MatchNone, MatchSimilar},
		{MatchExact, MatchNone, MatchExact},
	}
	for _, tc := range cases {
		if got := WidenMatchType(tc.current, tc.candidate); got != tc.want {
			t.Errorf("WidenMatchType(%q, %q) = %q, want %q", tc.current, tc.candidate, got, tc.want)
		}
	}
}

func TestMatchTypeJSONNull(t *testing.T) {
	lead := NewLead(FormFields{FirstName: "Ana"}, "US", time.Now())
	raw, err := json.Marshal(lead)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := generic["matchType"]; !ok || v != nil {
		t.Fatalf("expected matchType null, got %#v", v)
	}

	var decoded Lead
	lead.MatchType = MatchSimilar
	raw, _ = json.Marshal(lead)
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal lead: %v", err)
	}
	if decoded.MatchType != MatchSimilar {
		t.Fatalf("expected similar, got %q", decoded.MatchType)
	}
}

func TestNewLeadInitialState(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	lead := NewLead(FormFields{
		FirstName: "  Ana ",
		Email:     "Ana@Example.com",
		Phone:     "(650) 253-0000",
		DealType:  DealTypeCash,
		CashMax:   "$25,000",
		Make:      "Honda",
	}, "US", now)

	if lead.Status != StatusNew || lead.MatchType != MatchNone {
		t.Fatalf("unexpected initial state %q/%q", lead.Status, lead.MatchType)
	}
	if len(lead.Conversation) != 0 || lead.Conversation == nil {
		t.Fatalf("expected empty non-nil conversation")
	}
	if lead.Customer.FirstName != "Ana" || lead.Customer.Email != "ana@example.com" {
		t.Fatalf("expected trimmed customer, got %+v", lead.Customer)
	}
	if lead.Customer.Phone != "+16502530000" {
		t.Fatalf("expected E.164 phone, got %q", lead.Customer.Phone)
	}
	if lead.Constraints.Cash.MaxOTD != "$25,000" {
		t.Fatalf("constraints must keep the entered value, got %q", lead.Constraints.Cash.MaxOTD)
	}
	if !lead.CreatedAt.Equal(now) {
		t.Fatalf("expected createdAt %v, got %v", now, lead.CreatedAt)
	}
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$25,000", 25000, true},
		{"400", 400, true},
		{"$399.99/mo", 399.99, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"$0", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseMoney(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseMoney(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAddDealerEmailsIsSetUnion(t *testing.T) {
	var lead Lead
	if !lead.AddDealerEmails("sales@dealer.com", " ", "SALES@dealer.com") {
		t.Fatalf("expected first add to report change")
	}
	if lead.AddDealerEmails("sales@dealer.com") {
		t.Fatalf("expected duplicate add to be a no-op")
	}
	if len(lead.DealerEmails) != 1 {
		t.Fatalf("expected one dealer email, got %#v", lead.DealerEmails)
	}
}

func TestVehicleSpecSkipsBlanks(t *testing.T) {
	v := Vehicle{Year: "2024", Make: "Toyota", Model: "RAV4"}
	if got := v.Spec(); got != "2024 Toyota RAV4" {
		t.Fatalf("unexpected spec %q", got)
	}
}
