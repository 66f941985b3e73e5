package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
	"github.com/MrSnakeDoc/toonshare/internal/engagement"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/i18n"
	"github.com/MrSnakeDoc/toonshare/internal/logger"
	"github.com/MrSnakeDoc/toonshare/internal/session"
	"github.com/MrSnakeDoc/toonshare/internal/store/sqlite"
	"github.com/MrSnakeDoc/toonshare/internal/thumbnail"
)

// fakeAuth signs in whoever the callback names in ?email=.
type fakeAuth struct{}

func (fakeAuth) Begin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/auth/google/callback", http.StatusTemporaryRedirect)
}

func (fakeAuth) Complete(_ http.ResponseWriter, r *http.Request) (*domain.Identity, error) {
	email := r.URL.Query().Get("email")
	if email == "" {
		return nil, errors.New("no code")
	}
	return &domain.Identity{Email: email, Name: strings.Split(email, "@")[0]}, nil
}

func (fakeAuth) Logout(http.ResponseWriter, *http.Request) error { return nil }

type testEnv struct {
	srv   *httptest.Server
	pages *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logger.Nop()

	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `<html><head><meta property="og:image" content="//cdn.example.com/a.png"></head></html>`)
	}))
	t.Cleanup(pages.Close)

	shares, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "shares.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = shares.Close() })

	catalog, err := i18n.Default()
	require.NoError(t, err)

	cache, err := thumbnail.NewCache(16, time.Hour)
	require.NoError(t, err)

	sessions := session.NewManager(
		session.NewCookieStore([]string{"0123456789abcdef0123456789abcdef"}, time.Hour, false),
		session.NewMemoryBackend(),
		session.Options{TTL: time.Hour, DefaultLang: catalog.DefaultLanguage(), Languages: catalog.Languages()},
		log,
	)

	d := deps.Deps{
		Logger:         log,
		StartTime:      time.Now(),
		Version:        "test",
		BaseURL:        "http://toon.test/",
		AdminEmail:     "admin@example.com",
		DiscoverLimit:  100,
		Shares:         shares,
		Engagement:     engagement.NewService(engagement.NewMemoryBackend(), log, nil),
		Thumbnails:     thumbnail.NewService(thumbnail.NewFetcher(nil, time.Second), cache, nil, log),
		Sessions:       sessions,
		Auth:           fakeAuth{},
		Messages:       catalog,
		SessionBackend: "memory",
	}

	srv := httptest.NewServer(NewRouter(5*time.Second, log, d))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, pages: pages}
}

// visitor is one browser: its own cookie jar, hence its own session.
type visitor struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (e *testEnv) newVisitor(t *testing.T) *visitor {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &visitor{t: t, base: e.srv.URL, client: &http.Client{Jar: jar}}
}

func (v *visitor) do(method, path string, body any, out any) int {
	v.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(v.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, v.base+path, &buf)
	require.NoError(v.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	require.NoError(v.t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(v.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (v *visitor) signIn(email string) {
	v.t.Helper()
	var home struct {
		Identity *domain.Identity `json:"identity"`
	}
	require.Equal(v.t, http.StatusOK, v.do(http.MethodGet, "/auth/google/callback?email="+email, nil, &home))
	require.NotNil(v.t, home.Identity)
	require.Equal(v.t, email, home.Identity.Email)
}

type shareView struct {
	Share struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		IsPublic bool   `json:"is_public"`
		URL      string `json:"url"`
	} `json:"share"`
	Items []struct {
		Index     int    `json:"index"`
		Title     string `json:"title"`
		Link      string `json:"link"`
		Thumbnail string `json:"thumbnail"`
	} `json:"items"`
	Likes    uint64 `json:"likes"`
	Liked    bool   `json:"liked"`
	Views    uint64 `json:"views"`
	CanEdit  bool   `json:"can_edit"`
	EditMode bool   `json:"edit_mode"`
	Comments []struct {
		Name string `json:"name"`
		Text string `json:"text"`
	} `json:"comments"`
}

type discoverList struct {
	Shares []struct {
		ID string `json:"id"`
	} `json:"shares"`
}

func (l discoverList) contains(id string) bool {
	for _, s := range l.Shares {
		if s.ID == id {
			return true
		}
	}
	return false
}

func TestPublishShareFlow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.newVisitor(t)
	owner.signIn("user@example.com")

	// build a two item draft
	require.Equal(t, http.StatusCreated, owner.do(http.MethodPost, "/list/items", nil, nil))
	require.Equal(t, http.StatusCreated, owner.do(http.MethodPost, "/list/items", nil, nil))
	require.Equal(t, http.StatusOK, owner.do(http.MethodPatch, "/list/items/0",
		map[string]string{"title": "A", "link": env.pages.URL + "/a"}, nil))
	require.Equal(t, http.StatusOK, owner.do(http.MethodPatch, "/list/items/1",
		map[string]string{"title": "B", "link": strings.TrimPrefix(env.pages.URL, "http://") + "/b"}, nil))
	assert.Equal(t, http.StatusNotFound, owner.do(http.MethodPatch, "/list/items/7",
		map[string]string{"title": "C"}, nil))

	var published struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	require.Equal(t, http.StatusCreated, owner.do(http.MethodPost, "/list/publish",
		map[string]any{"title": "Mine", "is_public": true}, &published))
	require.Len(t, published.ID, 12)
	assert.Equal(t, "http://toon.test/?share="+published.ID, published.URL)

	var view shareView
	require.Equal(t, http.StatusOK, owner.do(http.MethodGet, "/?share="+published.ID, nil, &view))
	require.Len(t, view.Items, 2)
	assert.Equal(t, "A", view.Items[0].Title)
	assert.Equal(t, "B", view.Items[1].Title)
	assert.Equal(t, env.pages.URL+"/b", view.Items[1].Link, "scheme added on save")
	assert.Equal(t, "https://cdn.example.com/a.png", view.Items[0].Thumbnail)
	assert.True(t, view.Share.IsPublic)
	assert.True(t, view.CanEdit)
	assert.Equal(t, uint64(1), view.Views)

	// second view in the same session is not counted
	require.Equal(t, http.StatusOK, owner.do(http.MethodGet, "/?share="+published.ID, nil, &view))
	assert.Equal(t, uint64(1), view.Views)

	var list discoverList
	require.Equal(t, http.StatusOK, owner.do(http.MethodGet, "/discover?limit=10", nil, &list))
	assert.True(t, list.contains(published.ID))

	var stats engagement.Stats
	require.Equal(t, http.StatusOK, owner.do(http.MethodPost, "/shares/"+published.ID+"/like", nil, &stats))
	assert.True(t, stats.Liked)
	assert.Equal(t, uint64(1), stats.Likes)

	// another session counts as another view
	visitor := env.newVisitor(t)
	require.Equal(t, http.StatusOK, visitor.do(http.MethodGet, "/?share="+published.ID, nil, &view))
	assert.Equal(t, uint64(2), view.Views)
	assert.Equal(t, uint64(1), view.Likes)
	assert.False(t, view.Liked)
	assert.False(t, view.CanEdit)
}

func TestAnonymousAndForeignVisitors(t *testing.T) {
	env := newTestEnv(t)
	owner := env.newVisitor(t)
	owner.signIn("user@example.com")
	require.Equal(t, http.StatusCreated, owner.do(http.MethodPost, "/list/items", nil, nil))
	require.Equal(t, http.StatusOK, owner.do(http.MethodPatch, "/list/items/0", map[string]string{"title": "A"}, nil))

	var published struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, owner.do(http.MethodPost, "/list/publish", map[string]any{"title": ""}, &published))

	anon := env.newVisitor(t)
	var errResp struct {
		Error string `json:"error"`
	}
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPost, "/shares/"+published.ID+"/like", nil, &errResp))
	assert.Equal(t, "로그인하세요.", errResp.Error)
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPost, "/list/publish", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPut, "/shares/"+published.ID, map[string]string{"title": "x"}, nil))
	assert.Equal(t, http.StatusForbidden, anon.do(http.MethodPut, "/shares/"+published.ID+"/edit-mode", map[string]bool{"enabled": true}, nil))

	// unknown share, English messages
	assert.Equal(t, http.StatusNotFound, anon.do(http.MethodGet, "/?share=doesnotexist&lang=en", nil, &errResp))
	assert.Equal(t, "Share link not found.", errResp.Error)
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPost, "/shares/doesnotexist/import", nil, &errResp))
	assert.Equal(t, "Please sign in.", errResp.Error, "lang is kept in the session")

	other := env.newVisitor(t)
	other.signIn("other@example.com")
	assert.Equal(t, http.StatusNotFound, other.do(http.MethodPost, "/shares/doesnotexist/like", nil, nil))
	assert.Equal(t, http.StatusForbidden, other.do(http.MethodPut, "/shares/"+published.ID, map[string]string{"title": "x"}, nil))

	var imported struct {
		Imported int `json:"imported"`
		Draft    struct {
			Items []struct {
				Title string `json:"title"`
			} `json:"items"`
		} `json:"draft"`
	}
	require.Equal(t, http.StatusOK, other.do(http.MethodPost, "/shares/"+published.ID+"/import", nil, &imported))
	assert.Equal(t, 1, imported.Imported)
	require.Equal(t, http.StatusOK, other.do(http.MethodPost, "/shares/"+published.ID+"/import", nil, &imported))
	assert.Equal(t, 0, imported.Imported)
	assert.Len(t, imported.Draft.Items, 1)

	// the admin may edit any share
	admin := env.newVisitor(t)
	admin.signIn("admin@example.com")
	var view shareView
	require.Equal(t, http.StatusOK, admin.do(http.MethodGet, "/?share="+published.ID, nil, &view))
	assert.True(t, view.CanEdit)
	assert.Equal(t, "내가 좋아하는 웹툰", view.Share.Title, "blank publish title falls back to the localized default")
}

func TestEditShare(t *testing.T) {
	env := newTestEnv(t)
	owner := env.newVisitor(t)
	owner.signIn("user@example.com")
	require.Equal(t, http.StatusCreated, owner.do(http.MethodPost, "/list/items", nil, nil))
	require.Equal(t, http.StatusOK, owner.do(http.MethodPatch, "/list/items/0", map[string]string{"title": "A"}, nil))

	var published struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, owner.do(http.MethodPost, "/list/publish", map[string]any{"title": "Mine"}, &published))

	var mode struct {
		EditMode bool `json:"edit_mode"`
	}
	require.Equal(t, http.StatusOK, owner.do(http.MethodPut, "/shares/"+published.ID+"/edit-mode", map[string]bool{"enabled": true}, &mode))
	assert.True(t, mode.EditMode)

	var view shareView
	require.Equal(t, http.StatusOK, owner.do(http.MethodGet, "/?share="+published.ID, nil, &view))
	assert.True(t, view.EditMode)

	// blank title keeps the stored one, omitted items stay as they are
	require.Equal(t, http.StatusOK, owner.do(http.MethodPut, "/shares/"+published.ID,
		map[string]any{"title": " ", "is_public": false}, nil))
	require.Equal(t, http.StatusOK, owner.do(http.MethodGet, "/?share="+published.ID, nil, &view))
	assert.Equal(t, "Mine", view.Share.Title)
	assert.False(t, view.Share.IsPublic)
	require.Len(t, view.Items, 1)

	var list discoverList
	require.Equal(t, http.StatusOK, owner.do(http.MethodGet, "/discover", nil, &list))
	assert.False(t, list.contains(published.ID), "private shares are not listed")

	// whole document rewrite
	require.Equal(t, http.StatusOK, owner.do(http.MethodPut, "/shares/"+published.ID,
		map[string]any{"items": []map[string]string{{"title": "Z", "link": "z.example.com"}, {"title": "A"}}}, nil))
	require.Equal(t, http.StatusOK, owner.do(http.MethodGet, "/?share="+published.ID, nil, &view))
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Z", view.Items[0].Title)
	assert.Equal(t, "http://z.example.com", view.Items[0].Link)
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	owner := env.newVisitor(t)
	owner.signIn("user@example.com")

	var published struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, owner.do(http.MethodPost, "/list/publish", map[string]any{"title": "Empty"}, &published))

	var resp struct {
		Added    bool `json:"added"`
		Comments []struct {
			Name string `json:"name"`
			Text string `json:"text"`
		} `json:"comments"`
	}
	require.Equal(t, http.StatusOK, owner.do(http.MethodPost, "/shares/"+published.ID+"/comments", map[string]string{"text": "   "}, &resp))
	assert.False(t, resp.Added)
	assert.Empty(t, resp.Comments)

	require.Equal(t, http.StatusCreated, owner.do(http.MethodPost, "/shares/"+published.ID+"/comments", map[string]string{"text": " nice list "}, &resp))
	assert.True(t, resp.Added)
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "user", resp.Comments[0].Name)
	assert.Equal(t, "nice list", resp.Comments[0].Text)
}

func TestDraftListAndLogout(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVisitor(t)

	require.Equal(t, http.StatusCreated, v.do(http.MethodPost, "/list/items", nil, nil))
	require.Equal(t, http.StatusCreated, v.do(http.MethodPost, "/list/items", nil, nil))
	require.Equal(t, http.StatusOK, v.do(http.MethodPatch, "/list/items/0", map[string]string{"title": "b"}, nil))
	require.Equal(t, http.StatusOK, v.do(http.MethodPatch, "/list/items/1", map[string]string{"title": "A"}, nil))

	var draft struct {
		SortMode string `json:"sort_mode"`
		Items    []struct {
			Index int    `json:"index"`
			Title string `json:"title"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, v.do(http.MethodPut, "/list/sort", map[string]string{"mode": "title"}, &draft))
	assert.Equal(t, "title", draft.SortMode)
	require.Len(t, draft.Items, 2)
	assert.Equal(t, "A", draft.Items[0].Title)
	assert.Equal(t, 1, draft.Items[0].Index)

	require.Equal(t, http.StatusOK, v.do(http.MethodDelete, "/list/items/0", nil, &draft))
	require.Len(t, draft.Items, 1)
	assert.Equal(t, http.StatusNotFound, v.do(http.MethodDelete, "/list/items/5", nil, nil))
	assert.Equal(t, http.StatusBadRequest, v.do(http.MethodDelete, "/list/items/x", nil, nil))

	v.signIn("user@example.com")
	var out struct {
		LoggedIn bool `json:"logged_in"`
	}
	require.Equal(t, http.StatusOK, v.do(http.MethodPost, "/auth/logout", nil, &out))
	assert.False(t, out.LoggedIn)

	var home struct {
		Identity *domain.Identity `json:"identity"`
		Draft    struct {
			Items []any `json:"items"`
		} `json:"draft"`
	}
	require.Equal(t, http.StatusOK, v.do(http.MethodGet, "/", nil, &home))
	assert.Nil(t, home.Identity)
	assert.Len(t, home.Draft.Items, 1, "draft survives sign out")
}

func TestOpsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVisitor(t)

	var health struct {
		Status      string `json:"status"`
		DefaultLang string `json:"default_lang"`
	}
	require.Equal(t, http.StatusOK, v.do(http.MethodGet, "/healthz", nil, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ko", health.DefaultLang)
	assert.Equal(t, http.StatusOK, v.do(http.MethodGet, "/readyz", nil, nil))

	var miss struct {
		Error string `json:"error"`
	}
	assert.Equal(t, http.StatusNotFound, v.do(http.MethodGet, "/no/such/page", nil, &miss))
	assert.Equal(t, "not found", miss.Error)
	assert.Equal(t, http.StatusMethodNotAllowed, v.do(http.MethodDelete, "/discover", nil, nil))

	var infra struct {
		Status string `json:"status"`
	}
	require.Equal(t, http.StatusOK, v.do(http.MethodGet, "/infra", nil, &infra))
	assert.Equal(t, "optimal", infra.Status)

	resp, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFailedSignInStaysAnonymous(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVisitor(t)

	var home struct {
		Identity *domain.Identity `json:"identity"`
	}
	require.Equal(t, http.StatusOK, v.do(http.MethodGet, "/auth/google/callback?error=access_denied", nil, &home))
	assert.Nil(t, home.Identity)
}

func (v *visitor) sessionCookie() string {
	v.t.Helper()
	u, err := url.Parse(v.base)
	require.NoError(v.t, err)
	for _, c := range v.client.Jar.Cookies(u) {
		if c.Name == session.CookieName {
			return c.Value
		}
	}
	return ""
}

func TestSignInAndOutRotateSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	v := env.newVisitor(t)

	require.Equal(t, http.StatusCreated, v.do(http.MethodPost, "/list/items", nil, nil))
	anonymous := v.sessionCookie()
	require.NotEmpty(t, anonymous)

	v.signIn("user@example.com")
	signedIn := v.sessionCookie()
	assert.NotEqual(t, anonymous, signedIn)

	require.Equal(t, http.StatusOK, v.do(http.MethodPost, "/auth/logout", nil, nil))
	assert.NotEqual(t, signedIn, v.sessionCookie())

	var home struct {
		Identity *domain.Identity `json:"identity"`
		Draft    struct {
			Items []json.RawMessage `json:"items"`
		} `json:"draft"`
	}
	require.Equal(t, http.StatusOK, v.do(http.MethodGet, "/", nil, &home))
	assert.Nil(t, home.Identity)
	assert.Len(t, home.Draft.Items, 1, "draft carried across both rotations")
}
