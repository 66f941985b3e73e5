package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultSessionTTL is used when SaveSession is called without a TTL (7 days)
	DefaultSessionTTL = 7 * 24 * time.Hour
	// DefaultThumbnailTTL is the default TTL for shared thumbnail entries (1 hour)
	DefaultThumbnailTTL = time.Hour
)

// Store handles Redis operations for sessions and the shared thumbnail cache
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// SaveSession stores a serialized session and resets its TTL
func (s *Store) SaveSession(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if err := s.client.Set(ctx, SessionKey(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession retrieves a serialized session, nil when absent or expired
func (s *Store) LoadSession(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, SessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return data, nil
}

// DeleteSession removes a session
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, SessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
