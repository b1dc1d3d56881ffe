// Package adapters wires bounded contexts together without letting them
// import each other. Each adapter satisfies a consumer-side interface.
package adapters

import (
	"context"

	"lotshoppr_backend/internal/leads/management"
	"lotshoppr_backend/internal/webhook"

	"github.com/google/uuid"
)

// DealerReplyHandler is the narrow slice of the lead service the adapter needs.
type DealerReplyHandler interface {
	HandleDealerReply(ctx context.Context, leadID uuid.UUID, reply management.DealerReply) (management.ReplyResult, error)
}

// DealerReplyAdapter implements webhook.ReplyHandler using the lead
// management service's negotiation loop.
type DealerReplyAdapter struct {
	svc DealerReplyHandler
}

// NewDealerReplyAdapter creates a new adapter.
func NewDealerReplyAdapter(svc DealerReplyHandler) *DealerReplyAdapter {
	return &DealerReplyAdapter{svc: svc}
}

// HandleDealerReply forwards an inbound dealer email to negotiation.
func (a *DealerReplyAdapter) HandleDealerReply(ctx context.Context, leadID uuid.UUID, msg webhook.DealerMessage) (webhook.ReplyOutcome, error) {
	result, err := a.svc.HandleDealerReply(ctx, leadID, management.DealerReply{
		Text:      msg.Text,
		Dealer:    msg.Dealer,
		MessageID: msg.MessageID,
		Subject:   msg.Subject,
	})
	if err != nil {
		return webhook.ReplyOutcome{}, err
	}
	return webhook.ReplyOutcome{
		Action:    string(result.Directive.Action),
		Duplicate: result.Duplicate,
		Terminal:  result.Terminal,
	}, nil
}

// Compile-time check.
var _ webhook.ReplyHandler = (*DealerReplyAdapter)(nil)
