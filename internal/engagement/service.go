package engagement

import (
	"context"
	"strings"
	"time"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
	"github.com/MrSnakeDoc/toonshare/internal/logger"
	"github.com/MrSnakeDoc/toonshare/internal/metrics"
)

// DefaultCommentLimit caps how many comments a share page shows.
const DefaultCommentLimit = 100

// ViewTracker remembers which shares a session has already viewed.
type ViewTracker interface {
	// MarkViewed flags shareID and reports whether it was not flagged before.
	MarkViewed(shareID string) bool
}

// Stats is the engagement summary shown on a share page.
type Stats struct {
	Likes uint64 `json:"likes"`
	Liked bool   `json:"liked"`
	Views uint64 `json:"views"`
}

// Service fronts a Backend for request handlers.
//
// Backend failures never reach the caller: they are logged and the call
// degrades to zero, false or empty.
type Service struct {
	backend Backend
	logger  logger.Logger
	now     func() time.Time
}

// NewService creates a Service. now may be nil to use time.Now.
func NewService(backend Backend, log logger.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{backend: backend, logger: log, now: now}
}

func (s *Service) LikeCount(ctx context.Context, shareID string) uint64 {
	n, err := s.backend.LikeCount(ctx, shareID)
	if err != nil {
		s.degraded("like count", shareID, err)
		return 0
	}
	return n
}

func (s *Service) HasLiked(ctx context.Context, shareID, email string) bool {
	if email == "" {
		return false
	}
	liked, err := s.backend.HasLiked(ctx, shareID, email)
	if err != nil {
		s.degraded("has liked", shareID, err)
		return false
	}
	return liked
}

// ToggleLike flips the like of email on shareID and returns the new state.
// The check and the write are separate calls; concurrent toggles by the same
// user resolve last-write-wins.
func (s *Service) ToggleLike(ctx context.Context, shareID, email string) bool {
	if email == "" {
		return false
	}

	liked, err := s.backend.HasLiked(ctx, shareID, email)
	if err != nil {
		s.degraded("toggle like", shareID, err)
		return false
	}

	if liked {
		if err := s.backend.RemoveLike(ctx, shareID, email); err != nil {
			s.degraded("remove like", shareID, err)
			return true
		}
		metrics.LikesToggled.WithLabelValues(metrics.OutcomeUnliked).Inc()
		return false
	}

	if err := s.backend.AddLike(ctx, shareID, email); err != nil {
		s.degraded("add like", shareID, err)
		return false
	}
	metrics.LikesToggled.WithLabelValues(metrics.OutcomeLiked).Inc()
	return true
}

// RecordViewOncePerSession inserts one view the first time a session sees
// shareID. The session flag is set before the insert, so a failed insert is
// not retried by the same session.
func (s *Service) RecordViewOncePerSession(ctx context.Context, shareID string, tracker ViewTracker) {
	if !tracker.MarkViewed(shareID) {
		return
	}
	if err := s.backend.InsertView(ctx, shareID, s.now().UTC()); err != nil {
		s.degraded("record view", shareID, err)
		return
	}
	metrics.ViewsRecorded.Inc()
}

func (s *Service) ViewCount(ctx context.Context, shareID string) uint64 {
	n, err := s.backend.ViewCount(ctx, shareID)
	if err != nil {
		s.degraded("view count", shareID, err)
		return 0
	}
	return n
}

// AddComment stores the trimmed text. Blank text is ignored.
// It reports whether a comment was stored.
func (s *Service) AddComment(ctx context.Context, shareID, email, name, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	err := s.backend.InsertComment(ctx, domain.Comment{
		ShareID:   shareID,
		Email:     email,
		Name:      name,
		Text:      text,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.degraded("add comment", shareID, err)
		return false
	}
	metrics.CommentsAdded.Inc()
	return true
}

// ListComments returns up to limit comments, newest first. A limit of zero
// or less yields an empty list; pages pass DefaultCommentLimit.
func (s *Service) ListComments(ctx context.Context, shareID string, limit int) []domain.Comment {
	if limit <= 0 {
		return []domain.Comment{}
	}
	comments, err := s.backend.ListComments(ctx, shareID, limit)
	if err != nil {
		s.degraded("list comments", shareID, err)
		return []domain.Comment{}
	}
	return comments
}

// Stats collects like and view counters for one share as seen by email.
func (s *Service) Stats(ctx context.Context, shareID, email string) Stats {
	return Stats{
		Likes: s.LikeCount(ctx, shareID),
		Liked: s.HasLiked(ctx, shareID, email),
		Views: s.ViewCount(ctx, shareID),
	}
}

// Ping reports backend health for the infra endpoint.
func (s *Service) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Service) degraded(op, shareID string, err error) {
	metrics.EngagementErrors.Inc()
	s.logger.Warn("engagement backend call failed, degrading",
		logger.String("op", op),
		logger.String("share_id", shareID),
		logger.Error(err))
}
