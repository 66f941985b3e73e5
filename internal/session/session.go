package session

import (
	"context"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
)

// Session is the per-visitor state carried across requests.
//
// It is loaded by Manager.Middleware, handed to handlers through the request
// context and written back when a handler changed it. Nothing here is shared
// between sessions.
type Session struct {
	ID       string           `json:"id"`
	Identity *domain.Identity `json:"identity,omitempty"`
	Draft    domain.DraftList `json:"draft"`
	Viewed   map[string]bool  `json:"viewed,omitempty"`
	EditMode map[string]bool  `json:"edit_mode,omitempty"`
	SortMode domain.SortMode  `json:"sort_mode,omitempty"`
	Lang     string           `json:"lang,omitempty"`

	dirty bool
}

// New returns an empty anonymous session.
func New(id, lang string) *Session {
	return &Session{
		ID:       id,
		Viewed:   make(map[string]bool),
		EditMode: make(map[string]bool),
		SortMode: domain.SortRecent,
		Lang:     lang,
		dirty:    true,
	}
}

// Touch marks the session as modified so it gets persisted.
func (s *Session) Touch() { s.dirty = true }

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool { return s.dirty }

// Email returns the signed-in email, or "" for anonymous visitors.
func (s *Session) Email() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Email
}

// LoggedIn reports whether an identity is attached.
func (s *Session) LoggedIn() bool { return s.Email() != "" }

// SignIn attaches identity.
func (s *Session) SignIn(identity *domain.Identity) {
	s.Identity = identity
	s.dirty = true
}

// SignOut drops the identity together with any edit-mode toggles, which only
// make sense for the identity that enabled them.
func (s *Session) SignOut() {
	s.Identity = nil
	s.EditMode = make(map[string]bool)
	s.dirty = true
}

// MarkViewed implements engagement.ViewTracker.
func (s *Session) MarkViewed(shareID string) bool {
	if s.Viewed == nil {
		s.Viewed = make(map[string]bool)
	}
	if s.Viewed[shareID] {
		return false
	}
	s.Viewed[shareID] = true
	s.dirty = true
	return true
}

// SetEditMode toggles the local edit flag for a share.
func (s *Session) SetEditMode(shareID string, enabled bool) {
	if s.EditMode == nil {
		s.EditMode = make(map[string]bool)
	}
	if enabled {
		s.EditMode[shareID] = true
	} else {
		delete(s.EditMode, shareID)
	}
	s.dirty = true
}

// Editing reports whether edit mode is on for a share.
func (s *Session) Editing(shareID string) bool { return s.EditMode[shareID] }

// SetSortMode changes how the draft list is displayed.
func (s *Session) SetSortMode(mode domain.SortMode) {
	s.SortMode = mode
	s.dirty = true
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by the middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
