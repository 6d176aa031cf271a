package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"ideon/internal/observability"
)

// Store keeps snapshot blobs under plain Redis string keys. Values never
// expire.
type Store struct {
	client *redis.Client
}

// NewStore wraps client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get returns the value at key and whether it existed.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := observability.StartClientSpan(ctx, "redis", "get")
	defer span.End()

	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		span.SetError(err)
		return "", false, err
	}
	return val, true, nil
}

// Set writes value at key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	ctx, span := observability.StartClientSpan(ctx, "redis", "set")
	defer span.End()

	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Name identifies the backend in logs and metrics.
func (s *Store) Name() string { return "redis" }
