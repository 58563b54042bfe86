package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"equiptrack-backend/internal/checkout"
	"equiptrack-backend/internal/domain"
)

// RedisStore shares sessions between API instances so an operator can
// continue a checkout from another terminal.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(id string) string { return fmt.Sprintf("checkout:session:%s", id) }

func (s *RedisStore) Save(ctx context.Context, cs *checkout.Session) error {
	b, err := json.Marshal(cs)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key(cs.ID), b, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (*checkout.Session, error) {
	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cs checkout.Session
	if err := json.Unmarshal(b, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, key(id)).Err()
}
