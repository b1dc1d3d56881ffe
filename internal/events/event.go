// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lotshoppr_backend/internal/leads/domain"
	"lotshoppr_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published after a lead is stored. Lead is a snapshot at creation.
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID   `json:"leadId"`
	Source string      `json:"source"`
	Lead   domain.Lead `json:"lead"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// DealerContactsAdded is published when new dealers are attached to a lead.
// Emails holds only the newly added addresses.
type DealerContactsAdded struct {
	BaseEvent
	LeadID uuid.UUID   `json:"leadId"`
	Emails []string    `json:"emails"`
	Lead   domain.Lead `json:"lead"`
}

func (e DealerContactsAdded) EventName() string { return "leads.dealer_contacts.added" }

// LeadAbandoned is published when an operator gives up on a lead.
type LeadAbandoned struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (e LeadAbandoned) EventName() string { return "leads.lead.abandoned" }

// =============================================================================
// Negotiation Domain Events
// =============================================================================

// DealerReplyHandled is published after a dealer message was recorded and a
// decision made. Body is empty when Action is NO_REPLY.
type DealerReplyHandled struct {
	BaseEvent
	LeadID          uuid.UUID        `json:"leadId"`
	Dealer          string           `json:"dealer"`
	DealerMessageID string           `json:"dealerMessageId"`
	Subject         string           `json:"subject"`
	Intent          string           `json:"intent"`
	Action          string           `json:"action"`
	Body            string           `json:"body"`
	MatchType       domain.MatchType `json:"matchType"`
	CustomerName    string           `json:"customerName"`
}

func (e DealerReplyHandled) EventName() string { return "negotiation.dealer_reply.handled" }

// DealAccepted is published once per lead when an offer meets the customer's terms.
type DealAccepted struct {
	BaseEvent
	LeadID      uuid.UUID   `json:"leadId"`
	Dealer      string      `json:"dealer"`
	OfferText   string      `json:"offerText"`
	Lead        domain.Lead `json:"lead"`
	MatchType   string      `json:"matchType"`
	VehicleSpec string      `json:"vehicleSpec"`
}

func (e DealAccepted) EventName() string { return "negotiation.deal.accepted" }
