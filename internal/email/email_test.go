package email

import (
	"bytes"
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"lotshoppr_backend/internal/leads/domain"

	"github.com/google/uuid"
)

func testLead(dealType string) domain.Lead {
	l := domain.Lead{
		ID:        uuid.MustParse("8d7f3c1e-2b4a-4c6d-9e8f-0a1b2c3d4e5f"),
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:    domain.StatusNew,
		Customer:  domain.Customer{FirstName: "Dana", LastName: "Reyes", Email: "dana@example.com", Zip: "94107"},
		Vehicle:   domain.Vehicle{Year: "2024", Make: "Honda", Model: "Accord", Trim: "EX", Color: "Black"},
		Constraints: domain.Constraints{
			DealType: dealType,
			Lease:    domain.LeaseTerms{Miles: "10000", Months: "36", Down: "2000", MaxPayment: "400"},
			Cash:     domain.CashTerms{MaxOTD: "$25,000"},
		},
		DealerEmails: []string{"sales@dealer.com"},
		Conversation: []domain.ConversationEntry{},
	}
	return l
}

func TestOutreachBodyIncludesDealBlock(t *testing.T) {
	c := NewComposer(rand.New(rand.NewPCG(1, 2)))

	tests := []struct {
		dealType string
		want     []string
		notWant  string
	}{
		{domain.DealTypeLease, []string{"lease it around these terms", "Term: 36 months", "Target monthly payment: 400"}, "pay cash"},
		{domain.DealTypeCash, []string{"pay cash", "around $25,000"}, "lease it"},
		{domain.DealTypeFinance, []string{"finance it roughly"}, "pay cash"},
	}

	for _, tt := range tests {
		body, err := c.OutreachBody(testLead(tt.dealType))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.dealType, err)
		}
		for _, w := range tt.want {
			if !strings.Contains(body, w) {
				t.Errorf("%s: expected body to contain %q, got:\n%s", tt.dealType, w, body)
			}
		}
		if strings.Contains(body, tt.notWant) {
			t.Errorf("%s: body should not contain %q", tt.dealType, tt.notWant)
		}
		if !strings.HasSuffix(body, "Dana Reyes\nZip code: 94107") {
			t.Errorf("%s: unexpected signature:\n%s", tt.dealType, body)
		}
	}
}

func TestOutreachIsDeterministicForSeed(t *testing.T) {
	lead := testLead(domain.DealTypeCash)
	a := NewComposer(rand.New(rand.NewPCG(7, 7)))
	b := NewComposer(rand.New(rand.NewPCG(7, 7)))

	for i := 0; i < 5; i++ {
		if a.OutreachSubject(lead) != b.OutreachSubject(lead) {
			t.Fatalf("subjects diverged on iteration %d", i)
		}
		ba, _ := a.OutreachBody(lead)
		bb, _ := b.OutreachBody(lead)
		if ba != bb {
			t.Fatalf("bodies diverged on iteration %d", i)
		}
	}
}

func TestOutreachSubjectMentionsVehicle(t *testing.T) {
	c := NewComposer(nil)
	lead := testLead(domain.DealTypeCash)
	for i := 0; i < 20; i++ {
		if s := c.OutreachSubject(lead); !strings.Contains(s, "Honda Accord") {
			t.Fatalf("subject %q does not mention the vehicle", s)
		}
	}
}

func TestAdminNewLeadBody(t *testing.T) {
	body, err := AdminNewLeadBody(testLead(domain.DealTypeLease), "tally")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, w := range []string{
		"New LotShoppr submission (tally)",
		"Name: Dana Reyes",
		"Lease Terms",
		"Miles per year: 10000",
		"Interior: -",
		`"firstName": "Dana"`,
	} {
		if !strings.Contains(body, w) {
			t.Errorf("expected admin body to contain %q", w)
		}
	}
	if strings.Contains(body, "Cash Deal") {
		t.Error("lease lead should not render the cash block")
	}
}

func TestDealAcceptedBodyFlagsSimilar(t *testing.T) {
	lead := testLead(domain.DealTypeCash)
	body, err := DealAcceptedBody(lead, "sales@dealer.com", "OTD is $24,500", "similar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "similar vehicle") || !strings.Contains(body, "OTD is $24,500") {
		t.Fatalf("unexpected body:\n%s", body)
	}

	exact, _ := DealAcceptedBody(lead, "sales@dealer.com", "OTD is $24,500", "exact")
	if strings.Contains(exact, "similar vehicle") {
		t.Fatal("exact match should not carry the similar-vehicle note")
	}
}

func TestReplySubject(t *testing.T) {
	tests := map[string]string{
		"":                   "Re: your quote",
		"Quote for Accord":   "Re: Quote for Accord",
		"RE: Quote":          "RE: Quote",
		"  re: lower case  ": "re: lower case",
	}
	for in, want := range tests {
		if got := ReplySubject(in); got != want {
			t.Errorf("ReplySubject(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLeadAddressRoundTrip(t *testing.T) {
	id := uuid.New()
	addr := LeadAddress(id, "deals.lotshoppr.com")
	if addr != "deals+"+id.String()+"@deals.lotshoppr.com" {
		t.Fatalf("unexpected address %q", addr)
	}

	got, ok := LeadIDFromAddresses("someone@else.com", "Deals <"+addr+">")
	if !ok || got != id {
		t.Fatalf("expected %s, got %s (ok=%v)", id, got, ok)
	}

	if _, ok := LeadIDFromAddresses("deals+not-a-uuid@x.com", "plain@x.com"); ok {
		t.Fatal("expected no lead id")
	}
}

func TestSMTPBuildMsgHeaders(t *testing.T) {
	s := NewSMTPSender("localhost", 25, "", "", "hello@lotshoppr.com", "LotShoppr")
	msg, err := s.buildMsg(Message{
		To:        []string{"sales@dealer.com"},
		From:      "deals+abc@deals.lotshoppr.com",
		FromName:  "Dana Reyes",
		ReplyTo:   "deals+abc@deals.lotshoppr.com",
		Subject:   "Re: Accord",
		Text:      "Thanks for the quick reply.",
		InReplyTo: "msg-1@dealer.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw := buf.String()
	for _, w := range []string{
		"In-Reply-To: <msg-1@dealer.com>",
		"References: <msg-1@dealer.com>",
		"Reply-To:",
		"deals+abc@deals.lotshoppr.com",
		"Dana Reyes",
		"Subject: Re: Accord",
	} {
		if !strings.Contains(raw, w) {
			t.Errorf("expected raw message to contain %q, got:\n%s", w, raw)
		}
	}
}

func TestSMTPBuildMsgRequiresRecipient(t *testing.T) {
	s := NewSMTPSender("localhost", 25, "", "", "hello@lotshoppr.com", "LotShoppr")
	if _, err := s.buildMsg(Message{Subject: "x"}); err != ErrNoRecipients {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestNoopSender(t *testing.T) {
	if err := (NoopSender{}).Send(context.Background(), Message{}); err != nil {
		t.Fatalf("noop sender returned %v", err)
	}
}
