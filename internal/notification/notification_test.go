package notification

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"lotshoppr_backend/internal/email"
	"lotshoppr_backend/internal/events"
	"lotshoppr_backend/internal/leads/domain"
	"lotshoppr_backend/internal/leads/repository"
	"lotshoppr_backend/internal/negotiation"
	"lotshoppr_backend/internal/scheduler"
	"lotshoppr_backend/platform/logger"

	"github.com/google/uuid"
)

type recordingJobs struct {
	mu       sync.Mutex
	outreach []scheduler.DealerOutreachPayload
	replies  []scheduler.DealerReplyPayload
	accepted []scheduler.CustomerDealAcceptedPayload
	admin    []scheduler.AdminNewLeadPayload
	failFor  string
}

func (r *recordingJobs) DealerOutreach(_ context.Context, p scheduler.DealerOutreachPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.Dealer == r.failFor {
		return errors.New("queue unavailable")
	}
	r.outreach = append(r.outreach, p)
	return nil
}

func (r *recordingJobs) DealerReply(_ context.Context, p scheduler.DealerReplyPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, p)
	return nil
}

func (r *recordingJobs) CustomerDealAccepted(_ context.Context, p scheduler.CustomerDealAcceptedPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accepted = append(r.accepted, p)
	return nil
}

func (r *recordingJobs) AdminNewLead(_ context.Context, p scheduler.AdminNewLeadPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admin = append(r.admin, p)
	return nil
}

type captureSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (s *captureSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

type testMailbox struct {
	admins []string
}

func (m testMailbox) GetInboundDomain() string     { return "deals.lotshoppr.com" }
func (m testMailbox) GetAdminRecipients() []string { return m.admins }
func (m testMailbox) GetDealerEmails() []string    { return nil }

func TestLeadCreatedQueuesAdminSummaryAndOutreach(t *testing.T) {
	jobs := &recordingJobs{}
	m := New(jobs, logger.Discard())
	leadID := uuid.New()

	err := m.Handle(context.Background(), events.LeadCreated{
		LeadID: leadID,
		Source: "tally",
		Lead:   domain.Lead{ID: leadID, DealerEmails: []string{"a@dealer.com", "b@dealer.com"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs.admin) != 1 || jobs.admin[0].Source != "tally" {
		t.Fatalf("expected one admin job, got %#v", jobs.admin)
	}
	if len(jobs.outreach) != 2 {
		t.Fatalf("expected outreach to both dealers, got %#v", jobs.outreach)
	}
}

func TestOutreachContinuesPastFailedDealer(t *testing.T) {
	jobs := &recordingJobs{failFor: "a@dealer.com"}
	m := New(jobs, logger.Discard())

	err := m.Handle(context.Background(), events.DealerContactsAdded{
		LeadID: uuid.New(),
		Emails: []string{"a@dealer.com", "b@dealer.com"},
	})
	if err == nil {
		t.Fatal("expected the failed enqueue to be reported")
	}
	if len(jobs.outreach) != 1 || jobs.outreach[0].Dealer != "b@dealer.com" {
		t.Fatalf("expected the second dealer to be queued, got %#v", jobs.outreach)
	}
}

func TestDealerReplyHandledOnlySendsRealReplies(t *testing.T) {
	tests := []struct {
		name   string
		action negotiation.Action
		body   string
		dealer string
		want   int
	}{
		{"reply", negotiation.ActionReply, "Thanks, can you send numbers?", "a@dealer.com", 1},
		{"accept", negotiation.ActionAcceptAndNotify, "Deal.", "a@dealer.com", 1},
		{"no reply", negotiation.ActionNoReply, "", "a@dealer.com", 0},
		{"unknown dealer", negotiation.ActionReply, "Thanks", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := &recordingJobs{}
			m := New(jobs, logger.Discard())
			err := m.Handle(context.Background(), events.DealerReplyHandled{
				LeadID:          uuid.New(),
				Dealer:          tt.dealer,
				DealerMessageID: "m-1",
				Action:          string(tt.action),
				Body:            tt.body,
				CustomerName:    "Dana Reyes",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(jobs.replies) != tt.want {
				t.Fatalf("expected %d reply jobs, got %d", tt.want, len(jobs.replies))
			}
			if tt.want == 1 && jobs.replies[0].FromName != "Dana Reyes" {
				t.Fatalf("expected customer name on reply, got %q", jobs.replies[0].FromName)
			}
		})
	}
}

func TestDealAcceptedQueuesCustomerEmail(t *testing.T) {
	jobs := &recordingJobs{}
	m := New(jobs, logger.Discard())
	if err := m.Handle(context.Background(), events.DealAccepted{LeadID: uuid.New(), Dealer: "a@dealer.com", OfferText: "OTD $24,000", MatchType: "exact"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs.accepted) != 1 || jobs.accepted[0].MatchType != "exact" {
		t.Fatalf("unexpected accepted jobs: %#v", jobs.accepted)
	}
}

type mailerFixture struct {
	mailer *Mailer
	sender *captureSender
	lead   domain.Lead
	store  *repository.MemoryStore
}

func newMailerFixture(t *testing.T, admins ...string) mailerFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	lead := domain.NewLead(domain.FormFields{
		FirstName: "Dana",
		LastName:  "Reyes",
		Email:     "dana@example.com",
		Make:      "Honda",
		Model:     "Accord",
		Year:      "2024",
		DealType:  domain.DealTypeCash,
		CashMax:   "$25,000",
	}, "US", testNow())
	lead.AddDealerEmails("a@dealer.com")
	lead, err := store.Create(context.Background(), lead)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sender := &captureSender{}
	composer := email.NewComposer(rand.New(rand.NewPCG(3, 4)))
	mailer := NewMailer(store, sender, composer, testMailbox{admins: admins}, logger.Discard())
	return mailerFixture{mailer: mailer, sender: sender, lead: lead, store: store}
}

func TestMailerOutreachSendsFromLeadMailbox(t *testing.T) {
	f := newMailerFixture(t)
	err := f.mailer.DealerOutreach(context.Background(), scheduler.DealerOutreachPayload{LeadID: f.lead.ID.String(), Dealer: "a@dealer.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(f.sender.sent))
	}
	msg := f.sender.sent[0]
	want := "deals+" + f.lead.ID.String() + "@deals.lotshoppr.com"
	if msg.From != want || msg.ReplyTo != want {
		t.Fatalf("expected lead mailbox %q, got from=%q reply-to=%q", want, msg.From, msg.ReplyTo)
	}
	if msg.FromName != "Dana Reyes" || msg.To[0] != "a@dealer.com" {
		t.Fatalf("unexpected addressing: %#v", msg)
	}
	if !strings.Contains(msg.Text, "pay cash") {
		t.Fatalf("expected cash deal block, got:\n%s", msg.Text)
	}
}

func TestMailerSkipsOutreachForClosedLead(t *testing.T) {
	f := newMailerFixture(t)
	lost := domain.StatusLost
	if _, err := f.store.Update(context.Background(), f.lead.ID, repository.UpdateLeadParams{Status: &lost}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := f.mailer.DealerOutreach(context.Background(), scheduler.DealerOutreachPayload{LeadID: f.lead.ID.String(), Dealer: "a@dealer.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("expected no mail for a closed lead, got %d", len(f.sender.sent))
	}
}

func TestMailerReplyThreadsOnDealerMessage(t *testing.T) {
	f := newMailerFixture(t)
	err := f.mailer.DealerReply(context.Background(), scheduler.DealerReplyPayload{
		LeadID:          f.lead.ID.String(),
		Dealer:          "a@dealer.com",
		DealerMessageID: "<m-1@dealer.com>",
		Subject:         "Your Accord",
		Body:            "Could you send the out-the-door number?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := f.sender.sent[0]
	if msg.Subject != "Re: Your Accord" || msg.InReplyTo != "<m-1@dealer.com>" {
		t.Fatalf("unexpected threading: %#v", msg)
	}
}

func TestMailerAdminSummary(t *testing.T) {
	f := newMailerFixture(t)
	if err := f.mailer.AdminNewLead(context.Background(), scheduler.AdminNewLeadPayload{LeadID: f.lead.ID.String()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatal("expected no admin mail without recipients")
	}

	f = newMailerFixture(t, "ops@lotshoppr.com")
	if err := f.mailer.AdminNewLead(context.Background(), scheduler.AdminNewLeadPayload{LeadID: f.lead.ID.String(), Source: "tally"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0].To[0] != "ops@lotshoppr.com" {
		t.Fatalf("unexpected admin mail: %#v", f.sender.sent)
	}
}

func TestMailerDealAcceptedGoesToCustomer(t *testing.T) {
	f := newMailerFixture(t)
	err := f.mailer.CustomerDealAccepted(context.Background(), scheduler.CustomerDealAcceptedPayload{
		LeadID:    f.lead.ID.String(),
		Dealer:    "a@dealer.com",
		OfferText: "OTD $24,000",
		MatchType: "exact",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0].To[0] != "dana@example.com" {
		t.Fatalf("unexpected customer mail: %#v", f.sender.sent)
	}
}

func TestMailerDropsJobsForMissingLead(t *testing.T) {
	f := newMailerFixture(t)
	if err := f.mailer.DealerReply(context.Background(), scheduler.DealerReplyPayload{LeadID: uuid.NewString(), Dealer: "a@dealer.com", Body: "hi"}); err != nil {
		t.Fatalf("expected missing lead to be dropped, got %v", err)
	}
	if err := f.mailer.DealerReply(context.Background(), scheduler.DealerReplyPayload{LeadID: "not-a-uuid", Dealer: "a@dealer.com", Body: "hi"}); err != nil {
		t.Fatalf("expected bad id to be dropped, got %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatal("expected nothing sent")
	}
}

func testNow() time.Time {
	return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}
