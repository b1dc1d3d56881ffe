package scheduler

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TaskDealerOutreach       = "email:dealer_outreach"
	TaskDealerReply          = "email:dealer_reply"
	TaskCustomerDealAccepted = "email:customer_deal_accepted"
	TaskAdminNewLead         = "email:admin_new_lead"
)

// Jobs is the set of outbound email jobs. Client enqueues them; Worker hands
// dequeued tasks to an implementation that performs delivery.
type Jobs interface {
	DealerOutreach(ctx context.Context, payload DealerOutreachPayload) error
	DealerReply(ctx context.Context, payload DealerReplyPayload) error
	CustomerDealAccepted(ctx context.Context, payload CustomerDealAcceptedPayload) error
	AdminNewLead(ctx context.Context, payload AdminNewLeadPayload) error
}

type DealerOutreachPayload struct {
	LeadID string `json:"leadId"`
	Dealer string `json:"dealer"`
}

type DealerReplyPayload struct {
	LeadID          string `json:"leadId"`
	Dealer          string `json:"dealer"`
	DealerMessageID string `json:"dealerMessageId,omitempty"`
	Subject         string `json:"subject,omitempty"`
	Body            string `json:"body"`
	FromName        string `json:"fromName,omitempty"`
}

type CustomerDealAcceptedPayload struct {
	LeadID    string `json:"leadId"`
	Dealer    string `json:"dealer"`
	OfferText string `json:"offerText"`
	MatchType string `json:"matchType,omitempty"`
}

type AdminNewLeadPayload struct {
	LeadID string `json:"leadId"`
	Source string `json:"source,omitempty"`
}

func newTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}

func parsePayload[T any](task *asynq.Task) (T, error) {
	var payload T
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func NewDealerOutreachTask(payload DealerOutreachPayload) (*asynq.Task, error) {
	return newTask(TaskDealerOutreach, payload)
}

func NewDealerReplyTask(payload DealerReplyPayload) (*asynq.Task, error) {
	return newTask(TaskDealerReply, payload)
}

func NewCustomerDealAcceptedTask(payload CustomerDealAcceptedPayload) (*asynq.Task, error) {
	return newTask(TaskCustomerDealAccepted, payload)
}

func NewAdminNewLeadTask(payload AdminNewLeadPayload) (*asynq.Task, error) {
	return newTask(TaskAdminNewLead, payload)
}

// taskID gives a job a stable identity so a redelivered event does not send twice.
func taskID(taskType string, parts ...string) string {
	id := taskType
	for _, p := range parts {
		id += ":" + p
	}
	return id
}
