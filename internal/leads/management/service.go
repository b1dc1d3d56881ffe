// Package management handles lead intake and the dealer negotiation loop.
// This is a vertically sliced feature package: it owns the atomic
// read-decide-write cycle for each inbound dealer message.
package management

import (
	"context"
	"errors"
	"strings"
	"time"

	"lotshoppr_backend/internal/events"
	"lotshoppr_backend/internal/leads/domain"
	"lotshoppr_backend/internal/leads/repository"
	"lotshoppr_backend/internal/leads/transport"
	"lotshoppr_backend/internal/negotiation"
	"lotshoppr_backend/platform/apperr"
	"lotshoppr_backend/platform/logger"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
}

// Decider picks the reply to a dealer message. Implemented by *negotiation.Engine.
type Decider interface {
	Decide(lead domain.Lead, text string) (negotiation.Directive, error)
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	DefaultDealerEmails []string
	PhoneRegion         string
	DuplicateWindow     time.Duration
	Now                 func() time.Time
}

// Service handles lead management and negotiation.
type Service struct {
	repo     Repository
	decider  Decider
	eventBus events.Bus
	log      *logger.Logger
	opts     Options
}

// New creates a new lead management service.
func New(repo Repository, decider Decider, eventBus events.Bus, log *logger.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.DuplicateWindow < 0 {
		opts.DuplicateWindow = 0
	}
	return &Service{repo: repo, decider: decider, eventBus: eventBus, log: log, opts: opts}
}

// DealerReply is one inbound dealer message in plain text.
type DealerReply struct {
	Text      string
	Dealer    string
	MessageID string
	Subject   string
}

// ReplyResult is the outcome of HandleDealerReply.
type ReplyResult struct {
	Directive negotiation.Directive
	// Duplicate is set when the message was already processed; nothing was recorded.
	Duplicate bool
	// Terminal is set when the lead was already won or lost; the message was
	// recorded but not negotiated.
	Terminal bool
	Lead     domain.Lead
}

// CreateFromForm stores a new lead built from normalized form fields and
// announces it. Dealer contacts from the request are merged with the defaults.
func (s *Service) CreateFromForm(ctx context.Context, fields domain.FormFields, dealerEmails []string, source string) (domain.Lead, error) {
	lead := domain.NewLead(fields, s.opts.PhoneRegion, s.opts.Now())
	lead.AddDealerEmails(dealerEmails...)
	lead.AddDealerEmails(s.opts.DefaultDealerEmails...)

	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return domain.Lead{}, mapRepoError(err)
	}

	s.log.Info("lead created", "leadId", created.ID, "source", source, "dealType", created.Constraints.DealType, "dealers", len(created.DealerEmails))
	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    created.ID,
		Source:    source,
		Lead:      created,
	})
	return created, nil
}

// Create creates a lead from the public API.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	lead, err := s.CreateFromForm(ctx, ToFormFields(req), req.DealerEmails, "api")
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// Get returns the stored lead.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Lead{}, mapRepoError(err)
	}
	return lead, nil
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// List returns leads newest first.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	leads, err := s.repo.List(ctx, repository.ListParams{
		Status: domain.Status(req.Status),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead)
	}
	return transport.LeadListResponse{Items: items, Page: page, PageSize: pageSize}, nil
}

// HandleDealerReply records a dealer message and decides the customer's answer.
// Recording, deciding and updating status/matchType happen in one atomic store
// mutation, so concurrent or redelivered messages for the same lead cannot
// interleave or accept twice.
func (s *Service) HandleDealerReply(ctx context.Context, leadID uuid.UUID, reply DealerReply) (ReplyResult, error) {
	reply.Dealer = strings.TrimSpace(reply.Dealer)
	reply.MessageID = strings.TrimSpace(reply.MessageID)

	var result ReplyResult
	lead, err := s.repo.Mutate(ctx, leadID, func(l *domain.Lead) error {
		result = ReplyResult{}
		now := s.opts.Now()

		if isDuplicate(l.Conversation, reply, s.opts.DuplicateWindow, now) {
			result.Duplicate = true
			result.Directive = negotiation.Directive{Action: negotiation.ActionNoReply, MatchType: l.MatchType}
			return repository.ErrNoChange
		}

		l.Conversation = append(l.Conversation, domain.ConversationEntry{
			From:      domain.FromDealer,
			Dealer:    reply.Dealer,
			MessageID: reply.MessageID,
			Text:      reply.Text,
			At:        now,
		})
		if reply.Dealer != "" {
			l.AddDealerEmails(reply.Dealer)
		}

		if l.Status.IsTerminal() {
			result.Terminal = true
			result.Directive = negotiation.Directive{Action: negotiation.ActionNoReply, MatchType: l.MatchType}
			return nil
		}

		directive, err := s.decider.Decide(*l, reply.Text)
		if err != nil {
			return err
		}

		l.MatchType = domain.WidenMatchType(l.MatchType, directive.MatchType)
		if l.Status == domain.StatusNew {
			l.Status = domain.StatusNegotiating
		}
		if directive.Action == negotiation.ActionAcceptAndNotify {
			l.Status = domain.StatusWon
		}
		if directive.Body != "" {
			l.Conversation = append(l.Conversation, domain.ConversationEntry{
				From:   domain.FromCustomer,
				Dealer: reply.Dealer,
				Text:   directive.Body,
				At:     now,
			})
		}
		directive.MatchType = l.MatchType
		result.Directive = directive
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("dealer reply for unknown lead", "leadId", leadID)
		}
		return ReplyResult{}, mapRepoError(err)
	}
	result.Lead = lead

	log := s.log.WithContext(ctx).WithLeadID(leadID.String())
	if result.Duplicate {
		log.Info("duplicate dealer reply ignored", "messageId", reply.MessageID, "dealer", reply.Dealer)
		return result, nil
	}

	outcome := ""
	if result.Directive.Evaluation != nil {
		outcome = string(result.Directive.Evaluation.Outcome)
	}
	log.NegotiationDecision(leadID.String(), string(result.Directive.Intent), outcome, string(result.Directive.Action), string(result.Directive.MatchType))

	s.eventBus.Publish(ctx, events.DealerReplyHandled{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          leadID,
		Dealer:          reply.Dealer,
		DealerMessageID: reply.MessageID,
		Subject:         reply.Subject,
		Intent:          string(result.Directive.Intent),
		Action:          string(result.Directive.Action),
		Body:            result.Directive.Body,
		MatchType:       result.Directive.MatchType,
		CustomerName:    lead.Customer.FullName(),
	})
	if result.Directive.Action == negotiation.ActionAcceptAndNotify {
		s.eventBus.Publish(ctx, events.DealAccepted{
			BaseEvent:   events.NewBaseEvent(),
			LeadID:      leadID,
			Dealer:      reply.Dealer,
			OfferText:   reply.Text,
			Lead:        lead,
			MatchType:   string(lead.MatchType),
			VehicleSpec: lead.Vehicle.Spec(),
		})
	}
	return result, nil
}

// ReplyFromDealer is the HTTP entry point for HandleDealerReply.
func (s *Service) ReplyFromDealer(ctx context.Context, leadID uuid.UUID, req transport.DealerReplyRequest) (transport.DirectiveResponse, error) {
	result, err := s.HandleDealerReply(ctx, leadID, DealerReply{
		Text:      req.Text,
		Dealer:    req.Dealer,
		MessageID: req.MessageID,
		Subject:   req.Subject,
	})
	if err != nil {
		return transport.DirectiveResponse{}, err
	}
	return ToDirectiveResponse(result), nil
}

// Abandon marks a lead as lost. Abandoning a lost lead is a no-op; a won lead
// cannot be abandoned.
func (s *Service) Abandon(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	changed := false
	lead, err := s.repo.Mutate(ctx, id, func(l *domain.Lead) error {
		changed = false
		switch l.Status {
		case domain.StatusLost:
			return repository.ErrNoChange
		case domain.StatusWon:
			return apperr.Conflict("a won lead cannot be abandoned")
		}
		l.Status = domain.StatusLost
		changed = true
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	if changed {
		s.eventBus.Publish(ctx, events.LeadAbandoned{BaseEvent: events.NewBaseEvent(), LeadID: id})
	}
	return ToLeadResponse(lead), nil
}

// AddDealerContacts attaches more dealers to a lead and announces the new ones.
func (s *Service) AddDealerContacts(ctx context.Context, id uuid.UUID, req transport.AddDealerContactsRequest) (transport.LeadResponse, error) {
	var added []string
	lead, err := s.repo.Mutate(ctx, id, func(l *domain.Lead) error {
		added = nil
		if l.Status.IsTerminal() {
			return apperr.Conflict("lead is no longer being negotiated")
		}
		before := len(l.DealerEmails)
		if !l.AddDealerEmails(req.Emails...) {
			return repository.ErrNoChange
		}
		added = append(added, l.DealerEmails[before:]...)
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, mapRepoError(err)
	}

	if len(added) > 0 {
		s.eventBus.Publish(ctx, events.DealerContactsAdded{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    id,
			Emails:    added,
			Lead:      lead,
		})
	}
	return ToLeadResponse(lead), nil
}

// isDuplicate reports whether reply was already recorded: the same provider
// message id anywhere in history, or the same text from the same dealer within window.
func isDuplicate(conversation []domain.ConversationEntry, reply DealerReply, window time.Duration, now time.Time) bool {
	text := normalizeText(reply.Text)
	for i := len(conversation) - 1; i >= 0; i-- {
		entry := conversation[i]
		if entry.From != domain.FromDealer {
			continue
		}
		if reply.MessageID != "" && entry.MessageID == reply.MessageID {
			return true
		}
		if window > 0 && now.Sub(entry.At) <= window &&
			strings.EqualFold(entry.Dealer, reply.Dealer) &&
			normalizeText(entry.Text) == text {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func mapRepoError(err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found")
	case errors.Is(err, repository.ErrInvalidTransition):
		return apperr.Wrap(apperr.KindConflict, "lead state does not allow this change", err)
	case errors.Is(err, repository.ErrAlreadyExists):
		return apperr.Conflict("lead already exists")
	}
	return err
}
