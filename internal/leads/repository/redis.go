package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lotshoppr_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "lotshoppr:lead:"
	redisIndexKey    = "lotshoppr:leads:by_created"
	redisMaxAttempts = 50
)

// RedisStore keeps each lead as one JSON document. Mutations use WATCH/MULTI
// so concurrent writers on the same lead retry instead of overwriting each other.
type RedisStore struct {
	client redis.UniversalClient
	opts   options
}

// NewRedisStore creates a store on top of an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: buildOptions(opts)}
}

func leadKey(id uuid.UUID) string {
	return redisKeyPrefix + id.String()
}

func (s *RedisStore) Create(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	lead, err := prepareCreate(lead, s.opts.now())
	if err != nil {
		return domain.Lead{}, err
	}
	data, err := json.Marshal(lead)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("encode lead: %w", err)
	}

	ok, err := s.client.SetNX(ctx, leadKey(lead.ID), data, 0).Result()
	if err != nil {
		return domain.Lead{}, err
	}
	if !ok {
		return domain.Lead{}, ErrAlreadyExists
	}
	if err := s.client.ZAdd(ctx, redisIndexKey, redis.Z{
		Score:  float64(lead.CreatedAt.UnixMilli()),
		Member: lead.ID.String(),
	}).Err(); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

func (s *RedisStore) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	raw, err := s.client.Get(ctx, leadKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}
	return decodeLead(raw)
}

func (s *RedisStore) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (domain.Lead, error) {
	return updateVia(ctx, s, id, params)
}

func (s *RedisStore) AppendConversation(ctx context.Context, id uuid.UUID, entry domain.ConversationEntry) (domain.Lead, error) {
	return appendVia(ctx, s, id, entry)
}

func (s *RedisStore) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (domain.Lead, error) {
	key := leadKey(id)
	var result domain.Lead

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeLead(raw)
		if err != nil {
			return err
		}

		next, changed, err := applyMutation(current, fn, s.opts.now())
		if err != nil {
			return err
		}
		if !changed {
			result = current
			return nil
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode lead: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for attempt := 0; attempt < redisMaxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			select {
			case <-ctx.Done():
				return domain.Lead{}, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Millisecond):
			}
			continue
		}
		if err != nil {
			return domain.Lead{}, err
		}
		return result, nil
	}
	return domain.Lead{}, fmt.Errorf("mutate lead %s: too much contention", id)
}

func (s *RedisStore) List(ctx context.Context, params ListParams) ([]domain.Lead, error) {
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Lead{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKeyPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	items := make([]domain.Lead, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		lead, err := decodeLead([]byte(str))
		if err != nil {
			return nil, err
		}
		if params.Status != "" && lead.Status != params.Status {
			continue
		}
		items = append(items, lead)
	}
	return paginate(items, params), nil
}

func decodeLead(raw []byte) (domain.Lead, error) {
	var lead domain.Lead
	if err := json.Unmarshal(raw, &lead); err != nil {
		return domain.Lead{}, fmt.Errorf("decode lead: %w", err)
	}
	return lead.Clone(), nil
}

var _ Store = (*RedisStore)(nil)
