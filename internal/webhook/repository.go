// Package webhook provides the inbound provider webhooks: form intake and
// dealer email replies.
package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const submissionKeyPrefix = "lotshoppr:webhook:seen:"

// Repository remembers which provider deliveries were already processed so a
// redelivered webhook does not create a second lead.
type Repository interface {
	// MarkProcessed records key and reports whether it was new.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget removes key so a failed delivery can be retried.
	Forget(ctx context.Context, key string) error
}

// RedisRepository stores markers as expiring Redis keys.
type RedisRepository struct {
	client redis.UniversalClient
}

func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, submissionKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (r *RedisRepository) Forget(ctx context.Context, key string) error {
	return r.client.Del(ctx, submissionKeyPrefix+key).Err()
}

// MemoryRepository keeps markers in process memory.
type MemoryRepository struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{seen: make(map[string]time.Time), now: time.Now}
}

func (r *MemoryRepository) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, exp := range r.seen {
		if !exp.After(now) {
			delete(r.seen, k)
		}
	}
	if _, ok := r.seen[key]; ok {
		return false, nil
	}
	r.seen[key] = now.Add(ttl)
	return true, nil
}

func (r *MemoryRepository) Forget(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, key)
	return nil
}
