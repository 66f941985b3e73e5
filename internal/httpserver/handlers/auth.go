package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/logger"
)

type logoutResponse struct {
	LoggedIn bool `json:"logged_in"`
}

// Login starts the OAuth flow.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Auth.Begin(w, r)
	}
}

// Callback finishes the OAuth flow. Any failure leaves the visitor anonymous.
func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)

		identity, err := d.Auth.Complete(w, r)
		if err != nil {
			d.Logger.Warn("sign in failed, continuing anonymous", logger.Error(err))
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		sess.SignIn(identity)
		d.Sessions.Rotate(w, r, sess)
		d.Logger.Info("user signed in", logger.String("email", identity.Email))
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// Logout drops the identity and moves the session to a fresh id. The draft
// list is kept. GET redirects home, other
// methods answer with JSON.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionOf(d, r)
		sess.SignOut()
		d.Sessions.Rotate(w, r, sess)

		if err := d.Auth.Logout(w, r); err != nil {
			d.Logger.Warn("provider logout failed", logger.Error(err))
		}

		if r.Method == http.MethodGet {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, logoutResponse{LoggedIn: false})
	}
}
