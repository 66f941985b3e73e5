package engagement

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
)

// Backend stores likes, views and comments keyed by share id.
// Implementations accept ids of shares they have never heard of.
type Backend interface {
	LikeCount(ctx context.Context, shareID string) (uint64, error)
	HasLiked(ctx context.Context, shareID, email string) (bool, error)
	AddLike(ctx context.Context, shareID, email string) error
	RemoveLike(ctx context.Context, shareID, email string) error
	InsertView(ctx context.Context, shareID string, at time.Time) error
	ViewCount(ctx context.Context, shareID string) (uint64, error)
	InsertComment(ctx context.Context, c domain.Comment) error
	ListComments(ctx context.Context, shareID string, limit int) ([]domain.Comment, error)
	Ping(ctx context.Context) error
}

// MemoryBackend keeps engagement data in process memory.
// Used for local runs without a database and in tests.
type MemoryBackend struct {
	mu       sync.RWMutex
	likes    map[string]map[string]struct{} // share -> emails
	views    map[string]uint64               // share -> count
	comments map[string][]domain.Comment     // share -> insertion order
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		likes:    make(map[string]map[string]struct{}),
		views:    make(map[string]uint64),
		comments: make(map[string][]domain.Comment),
	}
}

func (m *MemoryBackend) LikeCount(_ context.Context, shareID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint64(len(m.likes[shareID])), nil
}

func (m *MemoryBackend) HasLiked(_ context.Context, shareID, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.likes[shareID][email]
	return ok, nil
}

func (m *MemoryBackend) AddLike(_ context.Context, shareID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.likes[shareID]
	if !ok {
		set = make(map[string]struct{})
		m.likes[shareID] = set
	}
	set[email] = struct{}{}
	return nil
}

func (m *MemoryBackend) RemoveLike(_ context.Context, shareID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.likes[shareID], email)
	return nil
}

func (m *MemoryBackend) InsertView(_ context.Context, shareID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.views[shareID]++
	return nil
}

func (m *MemoryBackend) ViewCount(_ context.Context, shareID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.views[shareID], nil
}

func (m *MemoryBackend) InsertComment(_ context.Context, c domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.comments[c.ShareID] = append(m.comments[c.ShareID], c)
	return nil
}

// ListComments returns a newest-first snapshot truncated to limit.
func (m *MemoryBackend) ListComments(_ context.Context, shareID string, limit int) ([]domain.Comment, error) {
	m.mu.RLock()
	stored := m.comments[shareID]
	out := make([]domain.Comment, len(stored))
	copy(out, stored)
	m.mu.RUnlock()

	// Reverse insertion order first so equal timestamps still put the latest on top.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }
