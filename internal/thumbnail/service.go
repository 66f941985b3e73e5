package thumbnail

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/toonshare/internal/logger"
	"github.com/MrSnakeDoc/toonshare/internal/metrics"
)

// maxParallelFetches bounds outbound requests for one page render.
const maxParallelFetches = 8

// SharedCache is an optional second level shared between instances.
type SharedCache interface {
	GetCachedThumbnail(ctx context.Context, pageURL string) (string, bool, error)
	CacheThumbnail(ctx context.Context, pageURL, imageURL string, ttl time.Duration) error
}

// Service resolves thumbnails through the local cache, then the shared
// cache when configured, then the network.
type Service struct {
	fetcher *Fetcher
	cache   *Cache
	shared  SharedCache
	logger  logger.Logger
	group   singleflight.Group
}

// NewService wires a Service. shared may be nil.
func NewService(fetcher *Fetcher, cache *Cache, shared SharedCache, log logger.Logger) *Service {
	return &Service{fetcher: fetcher, cache: cache, shared: shared, logger: log}
}

// Thumbnail returns the image URL declared by pageURL, or "".
func (s *Service) Thumbnail(ctx context.Context, pageURL string) string {
	if pageURL == "" {
		return ""
	}
	if v, ok := s.cache.Get(pageURL); ok {
		metrics.ThumbnailLookups.WithLabelValues(metrics.OutcomeHit).Inc()
		return v
	}
	metrics.ThumbnailLookups.WithLabelValues(metrics.OutcomeMiss).Inc()

	if ctx.Err() != nil {
		return ""
	}

	// Concurrent misses for the same page share one fetch. It runs detached
	// from the first caller so a caller giving up never caches an empty
	// result for everyone else.
	ch := s.group.DoChan(pageURL, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetcher.Timeout())
		defer cancel()
		return s.resolve(fetchCtx, pageURL), nil
	})
	select {
	case res := <-ch:
		return res.Val.(string)
	case <-ctx.Done():
		return ""
	}
}

// Thumbnails resolves several pages concurrently. Duplicates are fetched once.
func (s *Service) Thumbnails(ctx context.Context, pageURLs []string) map[string]string {
	out := make(map[string]string, len(pageURLs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)

	seen := make(map[string]bool, len(pageURLs))
	for _, u := range pageURLs {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		u := u
		g.Go(func() error {
			v := s.Thumbnail(gctx, u)
			mu.Lock()
			out[u] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Sweep drops stale local entries. Used by the housekeeping scheduler.
func (s *Service) Sweep() int { return s.cache.Sweep() }

func (s *Service) resolve(ctx context.Context, pageURL string) string {
	if s.shared != nil {
		v, found, err := s.shared.GetCachedThumbnail(ctx, pageURL)
		if err != nil {
			s.logger.Debug("shared thumbnail cache unavailable", logger.Error(err))
		} else if found {
			s.cache.Set(pageURL, v)
			return v
		}
	}

	v := s.fetcher.Fetch(ctx, pageURL)
	s.cache.Set(pageURL, v)

	if s.shared != nil {
		if err := s.shared.CacheThumbnail(ctx, pageURL, v, s.cache.TTL()); err != nil {
			s.logger.Debug("failed to populate shared thumbnail cache", logger.Error(err))
		}
	}
	return v
}
