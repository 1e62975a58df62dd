package session

import (
	"context"
	"fmt"
	"time"

	"quote-orchestrator/internal/cache"
)

const redisKeyPrefix = "quote:session:"

// RedisStore keeps sessions in Redis so several instances can serve one conversation.
// Idle sessions expire through the key TTL, refreshed on every update.
type RedisStore struct {
	cache *cache.Redis
	ttl   time.Duration
	now   func() time.Time
}

// NewRedisStore creates a store whose keys expire after ttl of inactivity.
func NewRedisStore(c *cache.Redis, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: c, ttl: ttl, now: time.Now}
}

func (r *RedisStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	var s Session
	ok, err := r.cache.GetJSON(ctx, redisKeyPrefix+id, &s)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if ok {
		if s.Context == nil {
			s.Context = &Context{}
		}
		return &s, nil
	}

	created := New(id, r.now())
	stored, err := r.cache.SetJSONNX(ctx, redisKeyPrefix+id, created, r.ttl)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if !stored {
		// another instance created it between GET and SETNX
		return r.GetOrCreate(ctx, id)
	}
	return created, nil
}

func (r *RedisStore) Update(ctx context.Context, s *Session) error {
	s.LastUpdated = r.now()
	if err := r.cache.SetJSON(ctx, redisKeyPrefix+s.ID, s, r.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, id string) error {
	return r.cache.Del(ctx, redisKeyPrefix+id)
}
