package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ensure redisStore implements the port at compile time.
var _ Store = (*redisStore)(nil)

// redisStore keeps sessions in Redis with a TTL matching the session
// expiry, so expired sessions vanish without a sweeper.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis at addr and namespaces keys under prefix.
func NewRedisStore(addr, prefix string) Store {
	return &redisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
	}
}

func (s *redisStore) Put(ctx context.Context, token string, rec Record, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: marshal record: %w", err)
	}
	return s.client.Set(ctx, s.key(token), payload, ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, token string) (Record, error) {
	payload, err := s.client.Get(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return Record{}, fmt.Errorf("session: unmarshal record: %w", err)
	}
	return rec, nil
}

func (s *redisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.key(token)).Err()
}

func (s *redisStore) key(token string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, token)
}
