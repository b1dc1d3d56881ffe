package notification

import (
	"context"
	"errors"
	"fmt"

	"lotshoppr_backend/internal/email"
	"lotshoppr_backend/internal/leads/domain"
	"lotshoppr_backend/internal/leads/repository"
	"lotshoppr_backend/internal/scheduler"
	"lotshoppr_backend/platform/config"
	"lotshoppr_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadReader loads the lead an email job refers to.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// Mailer performs email jobs: it loads the lead, renders the copy and sends it.
// Negotiation mail goes out from the lead's plus-addressed mailbox so dealer
// replies route back to the same lead.
type Mailer struct {
	leads    LeadReader
	sender   email.Sender
	composer *email.Composer
	mailbox  config.MailboxConfig
	log      *logger.Logger
}

var _ scheduler.Jobs = (*Mailer)(nil)

func NewMailer(leads LeadReader, sender email.Sender, composer *email.Composer, mailbox config.MailboxConfig, log *logger.Logger) *Mailer {
	if composer == nil {
		composer = email.NewComposer(nil)
	}
	return &Mailer{leads: leads, sender: sender, composer: composer, mailbox: mailbox, log: log}
}

func (m *Mailer) DealerOutreach(ctx context.Context, p scheduler.DealerOutreachPayload) error {
	lead, ok, err := m.load(ctx, p.LeadID)
	if !ok {
		return err
	}
	if lead.Status.IsTerminal() {
		m.log.Info("mailer: skipping outreach for closed lead", "leadId", p.LeadID, "status", lead.Status)
		return nil
	}

	body, err := m.composer.OutreachBody(lead)
	if err != nil {
		return err
	}
	return m.sendAsLead(ctx, lead, email.Message{
		To:      []string{p.Dealer},
		Subject: m.composer.OutreachSubject(lead),
		Text:    body,
	})
}

func (m *Mailer) DealerReply(ctx context.Context, p scheduler.DealerReplyPayload) error {
	lead, ok, err := m.load(ctx, p.LeadID)
	if !ok {
		return err
	}

	msg := email.Message{
		To:        []string{p.Dealer},
		Subject:   email.ReplySubject(p.Subject),
		Text:      p.Body,
		InReplyTo: p.DealerMessageID,
	}
	if p.FromName != "" {
		msg.FromName = p.FromName
	}
	return m.sendAsLead(ctx, lead, msg)
}

func (m *Mailer) CustomerDealAccepted(ctx context.Context, p scheduler.CustomerDealAcceptedPayload) error {
	lead, ok, err := m.load(ctx, p.LeadID)
	if !ok {
		return err
	}
	if lead.Customer.Email == "" {
		m.log.Warn("mailer: accepted deal has no customer email", "leadId", p.LeadID)
		return nil
	}

	body, err := email.DealAcceptedBody(lead, p.Dealer, p.OfferText, p.MatchType)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, email.Message{
		To:      []string{lead.Customer.Email},
		ReplyTo: email.LeadAddress(lead.ID, m.mailbox.GetInboundDomain()),
		Subject: email.DealAcceptedSubject(lead),
		Text:    body,
	})
}

func (m *Mailer) AdminNewLead(ctx context.Context, p scheduler.AdminNewLeadPayload) error {
	recipients := m.mailbox.GetAdminRecipients()
	if len(recipients) == 0 {
		return nil
	}
	lead, ok, err := m.load(ctx, p.LeadID)
	if !ok {
		return err
	}

	body, err := email.AdminNewLeadBody(lead, p.Source)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, email.Message{
		To:      recipients,
		Subject: email.AdminNewLeadSubject(lead),
		Text:    body,
	})
}

func (m *Mailer) sendAsLead(ctx context.Context, lead domain.Lead, msg email.Message) error {
	addr := email.LeadAddress(lead.ID, m.mailbox.GetInboundDomain())
	msg.From = addr
	msg.ReplyTo = addr
	if msg.FromName == "" {
		msg.FromName = email.OutreachFromName(lead)
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send to %v: %w", msg.To, err)
	}
	return nil
}

// load returns ok=false when the job cannot proceed. A lead that no longer
// exists is dropped without error; retrying would not bring it back.
func (m *Mailer) load(ctx context.Context, rawID string) (domain.Lead, bool, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		m.log.Warn("mailer: bad lead id in job", "leadId", rawID)
		return domain.Lead{}, false, nil
	}
	lead, err := m.leads.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		m.log.Warn("mailer: lead not found", "leadId", rawID)
		return domain.Lead{}, false, nil
	}
	if err != nil {
		return domain.Lead{}, false, err
	}
	return lead, true, nil
}

const (
	testEmailSubject = "LotShoppr app test"
	testEmailBody    = "This email was sent from the LotShoppr app to check outbound delivery."
)

// SendTest sends a fixed message to the given addresses, or to the admin
// recipients when none are given. It runs synchronously so the caller sees
// delivery errors.
func (m *Mailer) SendTest(ctx context.Context, to []string) ([]string, error) {
	if len(to) == 0 {
		to = m.mailbox.GetAdminRecipients()
	}
	if len(to) == 0 {
		return nil, email.ErrNoRecipients
	}
	if err := m.sender.Send(ctx, email.Message{To: to, Subject: testEmailSubject, Text: testEmailBody}); err != nil {
		return nil, err
	}
	m.log.Info("mailer: test email sent", "recipients", len(to))
	return to, nil
}
