package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/logger"
	"github.com/MrSnakeDoc/toonshare/internal/session"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("invalid request body: %w", err)
}

// sessionOf returns the request session. Routes serving visitors are always
// wrapped by the session middleware; the fallback keeps handlers nil-safe.
func sessionOf(d deps.Deps, r *http.Request) *session.Session {
	if s := session.FromContext(r.Context()); s != nil {
		return s
	}
	return session.New("", d.Messages.DefaultLanguage())
}

func t(d deps.Deps, sess *session.Session, key string) string {
	return d.Messages.T(sess.Lang, key)
}

// requireLogin writes 401 and returns false for anonymous sessions.
func requireLogin(d deps.Deps, w http.ResponseWriter, sess *session.Session) bool {
	if sess.LoggedIn() {
		return true
	}
	writeError(w, http.StatusUnauthorized, t(d, sess, "need_login"))
	return false
}

// loadShare resolves id or writes the matching error response.
func loadShare(d deps.Deps, w http.ResponseWriter, r *http.Request, sess *session.Session, id string) (*domain.ShareDocument, bool) {
	doc, err := d.Shares.Get(r.Context(), id)
	if err != nil {
		d.Logger.Warn("failed to load share",
			logger.String("share_id", id),
			logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
		return nil, false
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, t(d, sess, "not_found"))
		return nil, false
	}
	return doc, true
}

func ownerName(identity *domain.Identity) string {
	if identity.Name != "" {
		return identity.Name
	}
	return identity.Email
}
