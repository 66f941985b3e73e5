package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/MrSnakeDoc/toonshare/internal/logger"
)

const (
	// CookieName is the cookie holding the session id.
	CookieName = "toonshare_session"
	sidKey     = "sid"

	// DefaultTTL bounds how long an idle session is kept.
	DefaultTTL = 7 * 24 * time.Hour

	persistTimeout = 2 * time.Second
)

// Backend persists serialized sessions.
type Backend interface {
	LoadSession(ctx context.Context, id string) ([]byte, error)
	SaveSession(ctx context.Context, id string, data []byte, ttl time.Duration) error
	DeleteSession(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Options tune a Manager.
type Options struct {
	TTL         time.Duration
	DefaultLang string
	Languages   []string // accepted values for the lang query parameter
}

// Manager binds a signed cookie to server-side session state.
type Manager struct {
	cookies   sessions.Store
	backend   Backend
	ttl       time.Duration
	lang      string
	languages map[string]bool
	logger    logger.Logger
	newID     func() string
}

// NewManager creates a Manager. The cookie store only ever carries the id.
func NewManager(cookies sessions.Store, backend Backend, opts Options, log logger.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	langs := make(map[string]bool, len(opts.Languages))
	for _, l := range opts.Languages {
		langs[l] = true
	}
	return &Manager{
		cookies:   cookies,
		backend:   backend,
		ttl:       opts.TTL,
		lang:      opts.DefaultLang,
		languages: langs,
		logger:    log,
		newID:     uuid.NewString,
	}
}

// NewCookieStore builds the signed cookie store shared with the OAuth flow.
// Without keys a random one is generated, which invalidates cookies on restart.
func NewCookieStore(keys []string, ttl time.Duration, secure bool) *sessions.CookieStore {
	pairs := make([][]byte, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, []byte(k))
	}
	if len(pairs) == 0 {
		pairs = append(pairs, randomKey())
	}

	store := sessions.NewCookieStore(pairs...)
	store.MaxAge(int(ttl.Seconds()))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// Middleware loads the session before the handler and persists it after
// when the handler changed it.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(w, r)

		if lang := r.URL.Query().Get("lang"); lang != "" && m.languages[lang] && lang != sess.Lang {
			sess.Lang = lang
			sess.Touch()
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))

		if sess.Dirty() {
			m.persist(r.Context(), sess)
		}
	})
}

func (m *Manager) load(w http.ResponseWriter, r *http.Request) *Session {
	// Get returns a fresh cookie session alongside a decode error; that is
	// the same as having no cookie.
	cookie, err := m.cookies.Get(r, CookieName)
	if err != nil {
		m.logger.Debug("ignoring unreadable session cookie", logger.Error(err))
	}

	if id, ok := cookie.Values[sidKey].(string); ok && id != "" {
		if sess := m.fetch(r.Context(), id); sess != nil {
			return sess
		}
	}

	sess := New(m.newID(), m.lang)
	cookie.Values[sidKey] = sess.ID
	if err := cookie.Save(r, w); err != nil {
		m.logger.Warn("failed to write session cookie", logger.Error(err))
	}
	return sess
}

// Rotate moves sess to a fresh id, rewrites the cookie and drops the state
// stored under the old id. Contents are kept. Call it when the identity
// changes, before the handler writes its response.
func (m *Manager) Rotate(w http.ResponseWriter, r *http.Request, sess *Session) {
	old := sess.ID
	sess.ID = m.newID()
	sess.Touch()

	cookie, err := m.cookies.Get(r, CookieName)
	if err != nil {
		m.logger.Debug("ignoring unreadable session cookie", logger.Error(err))
	}
	cookie.Values[sidKey] = sess.ID
	if err := cookie.Save(r, w); err != nil {
		m.logger.Warn("failed to write session cookie", logger.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), persistTimeout)
	defer cancel()
	if err := m.backend.DeleteSession(ctx, old); err != nil {
		m.logger.Warn("failed to delete rotated session", logger.String("session_id", old), logger.Error(err))
	}
}

func (m *Manager) fetch(ctx context.Context, id string) *Session {
	data, err := m.backend.LoadSession(ctx, id)
	if err != nil {
		m.logger.Warn("failed to load session, starting a fresh one",
			logger.String("session_id", id),
			logger.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		m.logger.Warn("failed to decode session, starting a fresh one",
			logger.String("session_id", id),
			logger.Error(err))
		return nil
	}
	sess.ID = id
	if sess.Viewed == nil {
		sess.Viewed = make(map[string]bool)
	}
	if sess.EditMode == nil {
		sess.EditMode = make(map[string]bool)
	}
	if sess.Lang == "" {
		sess.Lang = m.lang
	}
	return &sess
}

func (m *Manager) persist(parent context.Context, sess *Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), persistTimeout)
	defer cancel()

	data, err := json.Marshal(sess)
	if err != nil {
		m.logger.Error("failed to encode session", logger.String("session_id", sess.ID), logger.Error(err))
		return
	}
	if err := m.backend.SaveSession(ctx, sess.ID, data, m.ttl); err != nil {
		m.logger.Warn("failed to save session", logger.String("session_id", sess.ID), logger.Error(err))
		return
	}
	sess.dirty = false
}

func randomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("failed to generate cookie signing key: %v", err))
	}
	return key
}
