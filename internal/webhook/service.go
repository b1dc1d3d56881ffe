package webhook

import (
	"bytes"
	"context"
	"path"
	"time"

	"lotshoppr_backend/internal/adapters/storage"
	"lotshoppr_backend/internal/email"
	"lotshoppr_backend/internal/leads/domain"
	"lotshoppr_backend/platform/apperr"
	"lotshoppr_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	tallySource        = "tally"
	submissionTTL      = 7 * 24 * time.Hour
	archiveContentType = "application/json"
)

// Reasons an inbound email was accepted but not negotiated.
const (
	IgnoredNoRecipient = "no_recipient"
	IgnoredNoLeadID    = "no_lead_id"
	IgnoredUnknownLead = "unknown_lead"
	IgnoredEmptyBody   = "empty_body"
)

// LeadIntake creates leads from form fields. Satisfied by management.Service.
type LeadIntake interface {
	CreateFromForm(ctx context.Context, fields domain.FormFields, dealerEmails []string, source string) (domain.Lead, error)
}

// DealerMessage is one dealer email reduced to what negotiation needs.
type DealerMessage struct {
	Text      string
	Dealer    string
	MessageID string
	Subject   string
}

// ReplyOutcome summarizes what negotiation did with a dealer message.
type ReplyOutcome struct {
	Action    string
	Duplicate bool
	Terminal  bool
}

// ReplyHandler runs a dealer message through negotiation.
type ReplyHandler interface {
	HandleDealerReply(ctx context.Context, leadID uuid.UUID, msg DealerMessage) (ReplyOutcome, error)
}

// TallyResult is returned to Tally after a form response.
type TallyResult struct {
	OK           bool       `json:"ok"`
	LeadID       *uuid.UUID `json:"leadId,omitempty"`
	IsDuplicate  bool       `json:"isDuplicate"`
	IsIncomplete bool       `json:"isIncomplete"`
}

// InboundResult is returned to the email provider. OK is true whenever the
// provider should not retry, including payloads we deliberately ignore.
type InboundResult struct {
	OK        bool       `json:"ok"`
	LeadID    *uuid.UUID `json:"leadId,omitempty"`
	Action    string     `json:"action,omitempty"`
	Duplicate bool       `json:"duplicate,omitempty"`
	Ignored   string     `json:"ignored,omitempty"`
}

// Service handles inbound provider webhooks.
type Service struct {
	repo          Repository
	intake        LeadIntake
	replies       ReplyHandler
	storageSvc    storage.StorageService
	storageBucket string
	log           *logger.Logger
	now           func() time.Time
}

// NewService creates a new webhook service. storageSvc may be nil, which
// disables payload archiving.
func NewService(repo Repository, intake LeadIntake, replies ReplyHandler, storageSvc storage.StorageService, storageBucket string, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		intake:        intake,
		replies:       replies,
		storageSvc:    storageSvc,
		storageBucket: storageBucket,
		log:           log,
		now:           time.Now,
	}
}

// ProcessTally turns a Tally form response into a lead. A redelivered
// response is acknowledged without creating a second lead.
func (s *Service) ProcessTally(ctx context.Context, payload TallyPayload, raw []byte) (TallyResult, error) {
	key := payload.SubmissionKey()
	s.archive(ctx, tallySource, key, raw)

	if key != "" {
		fresh, err := s.repo.MarkProcessed(ctx, "tally:"+key, submissionTTL)
		if err != nil {
			// Continue anyway, better to have a duplicate than lose a lead
			s.log.Error("webhook: failed to check for duplicate submission", "error", err, "submission", key)
		} else if !fresh {
			s.log.Info("webhook: duplicate tally submission ignored", "submission", key)
			return TallyResult{OK: true, IsDuplicate: true}, nil
		}
	}

	fields := ExtractTallyFields(payload)
	lead, err := s.intake.CreateFromForm(ctx, fields, nil, tallySource)
	if err != nil {
		if key != "" {
			if ferr := s.repo.Forget(ctx, "tally:"+key); ferr != nil {
				s.log.Warn("webhook: failed to release submission marker", "error", ferr, "submission", key)
			}
		}
		s.log.Error("webhook: failed to create lead from tally submission", "error", err, "submission", key)
		return TallyResult{}, err
	}

	s.log.Info("webhook: lead created from tally", "leadId", lead.ID, "form", payload.Data.FormName)
	return TallyResult{OK: true, LeadID: &lead.ID, IsIncomplete: IsIncomplete(fields)}, nil
}

// ProcessInboundEmail routes a dealer's email to its lead by plus-addressing
// and runs it through negotiation. Mail that cannot be routed is acknowledged
// and dropped.
func (s *Service) ProcessInboundEmail(ctx context.Context, payload InboundEmailPayload, raw []byte) (InboundResult, error) {
	data := payload.Data
	s.archive(ctx, "email-inbound", data.EmailID, raw)

	if len(data.To) == 0 {
		s.log.Warn("webhook: inbound email has no recipient", "emailId", data.EmailID)
		return InboundResult{OK: true, Ignored: IgnoredNoRecipient}, nil
	}

	leadID, ok := email.LeadIDFromAddresses(data.To...)
	if !ok {
		s.log.Warn("webhook: could not extract lead id", "emailId", data.EmailID, "to", []string(data.To))
		return InboundResult{OK: true, Ignored: IgnoredNoLeadID}, nil
	}
	log := s.log.WithLeadID(leadID.String())

	text := data.BodyText()
	if text == "" {
		log.Warn("webhook: inbound email has no body", "emailId", data.EmailID)
		return InboundResult{OK: true, LeadID: &leadID, Ignored: IgnoredEmptyBody}, nil
	}

	outcome, err := s.replies.HandleDealerReply(ctx, leadID, DealerMessage{
		Text:      text,
		Dealer:    data.DealerAddress(),
		MessageID: data.ProviderMessageID(),
		Subject:   data.Subject,
	})
	if apperr.Is(err, apperr.KindNotFound) {
		log.Warn("webhook: inbound email for unknown lead", "emailId", data.EmailID)
		return InboundResult{OK: true, LeadID: &leadID, Ignored: IgnoredUnknownLead}, nil
	}
	if err != nil {
		log.Error("webhook: dealer reply failed", "error", err, "emailId", data.EmailID)
		return InboundResult{}, err
	}

	return InboundResult{OK: true, LeadID: &leadID, Action: outcome.Action, Duplicate: outcome.Duplicate}, nil
}

// archive stores the raw payload for audit. Failures are logged, never returned.
func (s *Service) archive(ctx context.Context, source, id string, raw []byte) {
	if s.storageSvc == nil || len(raw) == 0 {
		return
	}
	if id == "" {
		id = uuid.NewString()
	}
	folder := path.Join(source, s.now().UTC().Format("2006/01/02"))
	key, err := s.storageSvc.UploadFile(ctx, s.storageBucket, folder, id+".json", archiveContentType, bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		s.log.Warn("webhook: failed to archive payload", "error", err, "source", source)
		return
	}
	s.log.Debug("webhook: payload archived", "key", key)
}
