package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lotshoppr_backend/internal/leads/domain"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("lead not found")
	ErrAlreadyExists     = errors.New("lead already exists")
	ErrInvalidTransition = errors.New("invalid lead state transition")
	// ErrNoChange may be returned from a MutateFunc to finish without writing.
	ErrNoChange = errors.New("no change")
)

// MutateFunc edits a lead in place. Stores may invoke it more than once when an
// optimistic write has to be retried, so it must not have side effects beyond the lead.
type MutateFunc func(lead *domain.Lead) error

// UpdateLeadParams is a partial update. Nil fields are left untouched.
type UpdateLeadParams struct {
	Status       *domain.Status
	MatchType    *domain.MatchType
	DealerEmails []string
}

// ListParams filters the admin listing.
type ListParams struct {
	Status domain.Status
	Limit  int
	Offset int
}

// =====================================
// Segregated Interfaces
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	List(ctx context.Context, params ListParams) ([]domain.Lead, error)
}

// LeadWriter provides write operations. Every write to one lead id is applied
// atomically and serialized against other writes to the same id.
type LeadWriter interface {
	Create(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (domain.Lead, error)
	AppendConversation(ctx context.Context, id uuid.UUID, entry domain.ConversationEntry) (domain.Lead, error)
	Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (domain.Lead, error)
}

// Store is the full lead persistence contract.
type Store interface {
	LeadReader
	LeadWriter
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type mutator interface {
	Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (domain.Lead, error)
}

func updateVia(ctx context.Context, m mutator, id uuid.UUID, params UpdateLeadParams) (domain.Lead, error) {
	return m.Mutate(ctx, id, func(lead *domain.Lead) error {
		if params.Status != nil {
			lead.Status = *params.Status
		}
		if params.MatchType != nil {
			lead.MatchType = domain.WidenMatchType(lead.MatchType, *params.MatchType)
		}
		if len(params.DealerEmails) > 0 {
			lead.AddDealerEmails(params.DealerEmails...)
		}
		return nil
	})
}

func appendVia(ctx context.Context, m mutator, id uuid.UUID, entry domain.ConversationEntry) (domain.Lead, error) {
	return m.Mutate(ctx, id, func(lead *domain.Lead) error {
		lead.Conversation = append(lead.Conversation, entry)
		return nil
	})
}

// applyMutation runs fn against a copy of current and enforces the lead
// invariants on the result. It returns the lead to persist and whether a write
// is needed.
func applyMutation(current domain.Lead, fn MutateFunc, now time.Time) (domain.Lead, bool, error) {
	next := current.Clone()
	if err := fn(&next); err != nil {
		if errors.Is(err, ErrNoChange) {
			return current, false, nil
		}
		return domain.Lead{}, false, err
	}
	if err := checkInvariants(current, next); err != nil {
		return domain.Lead{}, false, err
	}
	for i := len(current.Conversation); i < len(next.Conversation); i++ {
		if next.Conversation[i].At.IsZero() {
			next.Conversation[i].At = now
		}
	}
	next.UpdatedAt = now
	return next, true, nil
}

func checkInvariants(before, after domain.Lead) error {
	if after.ID != before.ID || !after.CreatedAt.Equal(before.CreatedAt) {
		return fmt.Errorf("%w: identity is immutable", ErrInvalidTransition)
	}
	if after.Customer != before.Customer || after.Vehicle != before.Vehicle || after.Constraints != before.Constraints {
		return fmt.Errorf("%w: customer, vehicle and constraints are immutable", ErrInvalidTransition)
	}
	if !domain.CanTransition(before.Status, after.Status) {
		return fmt.Errorf("%w: status %s -> %s", ErrInvalidTransition, before.Status, after.Status)
	}
	if domain.WidenMatchType(before.MatchType, after.MatchType) != after.MatchType {
		return fmt.Errorf("%w: matchType %q -> %q", ErrInvalidTransition, before.MatchType, after.MatchType)
	}
	if len(after.Conversation) < len(before.Conversation) {
		return fmt.Errorf("%w: conversation is append-only", ErrInvalidTransition)
	}
	for i := range before.Conversation {
		if !sameEntry(after.Conversation[i], before.Conversation[i]) {
			return fmt.Errorf("%w: conversation entry %d was modified", ErrInvalidTransition, i)
		}
	}
	return nil
}

func sameEntry(a, b domain.ConversationEntry) bool {
	return a.From == b.From && a.Dealer == b.Dealer && a.MessageID == b.MessageID &&
		a.Text == b.Text && a.At.Equal(b.At)
}

func prepareCreate(lead domain.Lead, now time.Time) (domain.Lead, error) {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = lead.CreatedAt
	if lead.Status == "" {
		lead.Status = domain.StatusNew
	}
	if !lead.Status.Valid() {
		return domain.Lead{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, lead.Status)
	}
	lead = lead.Clone()
	for i := range lead.Conversation {
		if lead.Conversation[i].At.IsZero() {
			lead.Conversation[i].At = now
		}
	}
	return lead, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
