package repository

import (
	"context"
	"sort"
	"sync"

	"lotshoppr_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// MemoryStore keeps leads in process memory. Writes to one lead are serialized
// by a per-lead mutex; different leads proceed in parallel.
type MemoryStore struct {
	opts  options
	mu    sync.RWMutex
	leads map[uuid.UUID]domain.Lead
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:  buildOptions(opts),
		leads: make(map[uuid.UUID]domain.Lead),
	}
}

func (s *MemoryStore) lockFor(id uuid.UUID) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s *MemoryStore) Create(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	lead, err := prepareCreate(lead, s.opts.now())
	if err != nil {
		return domain.Lead{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.leads[lead.ID]; exists {
		return domain.Lead{}, ErrAlreadyExists
	}
	s.leads[lead.ID] = lead
	return lead.Clone(), nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	return lead.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (domain.Lead, error) {
	return updateVia(ctx, s, id, params)
}

func (s *MemoryStore) AppendConversation(ctx context.Context, id uuid.UUID, entry domain.ConversationEntry) (domain.Lead, error) {
	return appendVia(ctx, s, id, entry)
}

func (s *MemoryStore) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (domain.Lead, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.Lead{}, err
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Lead{}, err
	}

	next, changed, err := applyMutation(current, fn, s.opts.now())
	if err != nil {
		return domain.Lead{}, err
	}
	if !changed {
		return current, nil
	}

	s.mu.Lock()
	s.leads[id] = next
	s.mu.Unlock()
	return next.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, params ListParams) ([]domain.Lead, error) {
	s.mu.RLock()
	items := make([]domain.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		if params.Status != "" && lead.Status != params.Status {
			continue
		}
		items = append(items, lead.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return paginate(items, params), nil
}

func paginate(items []domain.Lead, params ListParams) []domain.Lead {
	limit := normalizeLimit(params.Limit)
	if params.Offset >= len(items) {
		return []domain.Lead{}
	}
	if params.Offset > 0 {
		items = items[params.Offset:]
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

var _ Store = (*MemoryStore)(nil)
