// Package notification provides event handlers for sending notifications
// in response to domain events.
// This module subscribes to events and inverts the dependency: domain modules
// no longer need to know about email providers, templates or the job queue.
package notification

import (
	"context"
	"errors"

	"lotshoppr_backend/internal/events"
	"lotshoppr_backend/internal/negotiation"
	"lotshoppr_backend/internal/scheduler"
	"lotshoppr_backend/platform/logger"
)

// Module handles all notification-related event subscriptions. Jobs is either
// the queue client or a Mailer when no queue is configured.
type Module struct {
	jobs scheduler.Jobs
	log  *logger.Logger
}

func New(jobs scheduler.Jobs, log *logger.Logger) *Module {
	return &Module{jobs: jobs, log: log}
}

func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.DealerContactsAdded{}.EventName(), m)
	bus.Subscribe(events.DealerReplyHandled{}.EventName(), m)
	bus.Subscribe(events.DealAccepted{}.EventName(), m)
}

// Handle implements events.Handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return m.handleLeadCreated(ctx, e)
	case events.DealerContactsAdded:
		return m.outreach(ctx, e.LeadID.String(), e.Emails)
	case events.DealerReplyHandled:
		return m.handleDealerReply(ctx, e)
	case events.DealAccepted:
		return m.jobs.CustomerDealAccepted(ctx, scheduler.CustomerDealAcceptedPayload{
			LeadID:    e.LeadID.String(),
			Dealer:    e.Dealer,
			OfferText: e.OfferText,
			MatchType: e.MatchType,
		})
	default:
		m.log.Debug("notification: unhandled event", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	leadID := e.LeadID.String()
	adminErr := m.jobs.AdminNewLead(ctx, scheduler.AdminNewLeadPayload{LeadID: leadID, Source: e.Source})
	if adminErr != nil {
		m.log.Warn("notification: admin summary not queued", "leadId", leadID, "error", adminErr)
	}
	return errors.Join(adminErr, m.outreach(ctx, leadID, e.Lead.DealerEmails))
}

func (m *Module) outreach(ctx context.Context, leadID string, dealers []string) error {
	var errs []error
	for _, dealer := range dealers {
		if err := m.jobs.DealerOutreach(ctx, scheduler.DealerOutreachPayload{LeadID: leadID, Dealer: dealer}); err != nil {
			m.log.Warn("notification: dealer outreach not queued", "leadId", leadID, "dealer", dealer, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Module) handleDealerReply(ctx context.Context, e events.DealerReplyHandled) error {
	switch negotiation.Action(e.Action) {
	case negotiation.ActionReply, negotiation.ActionAcceptAndNotify:
	default:
		return nil
	}
	if e.Body == "" || e.Dealer == "" {
		m.log.Info("notification: reply has no recipient or body", "leadId", e.LeadID, "action", e.Action)
		return nil
	}

	return m.jobs.DealerReply(ctx, scheduler.DealerReplyPayload{
		LeadID:          e.LeadID.String(),
		Dealer:          e.Dealer,
		DealerMessageID: e.DealerMessageID,
		Subject:         e.Subject,
		Body:            e.Body,
		FromName:        e.CustomerName,
	})
}
