package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheThumbnail stores a page URL -> image URL resolution.
// Empty values are stored too so that pages without an image are not refetched.
func (s *Store) CacheThumbnail(ctx context.Context, pageURL, imageURL string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultThumbnailTTL
	}
	if err := s.client.Set(ctx, ThumbnailKey(pageURL), imageURL, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache thumbnail: %w", err)
	}
	return nil
}

// GetCachedThumbnail retrieves a cached resolution; found is false on a miss
func (s *Store) GetCachedThumbnail(ctx context.Context, pageURL string) (imageURL string, found bool, err error) {
	imageURL, err = s.client.Get(ctx, ThumbnailKey(pageURL)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil // Cache miss
		}
		return "", false, fmt.Errorf("failed to get cached thumbnail: %w", err)
	}
	return imageURL, true, nil
}

// CountSessions returns how many sessions are currently stored
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixSession+"*", 0).Iterator()
	for iter.Next(ctx) {
		if _, err := ExtractSessionID(iter.Val()); err == nil {
			count++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}
