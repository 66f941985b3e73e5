package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
)

// ProviderName is the goth provider used for sign in.
const ProviderName = "google"

var (
	// ErrDenied is returned when the provider redirects back with an error.
	ErrDenied = errors.New("authorization denied")
	// ErrNoEmail is returned when the provider does not disclose an email.
	ErrNoEmail = errors.New("identity has no email")
)

// Provider is the identity adapter contract used by the HTTP layer.
type Provider interface {
	// Begin redirects the browser to the provider consent page.
	Begin(w http.ResponseWriter, r *http.Request)
	// Complete exchanges the callback code for the signed in identity.
	Complete(w http.ResponseWriter, r *http.Request) (*domain.Identity, error)
	// Logout drops the provider session.
	Logout(w http.ResponseWriter, r *http.Request) error
}

type GoogleOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Google signs users in with goth's Google provider.
type Google struct{}

// NewGoogle registers the Google provider with goth and points gothic at store.
func NewGoogle(opts GoogleOptions, store sessions.Store) *Google {
	goth.UseProviders(google.New(opts.ClientID, opts.ClientSecret, opts.RedirectURI, "email", "profile"))
	gothic.Store = store
	return &Google{}
}

func (g *Google) Begin(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, withProvider(r))
}

func (g *Google) Complete(w http.ResponseWriter, r *http.Request) (*domain.Identity, error) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		if desc := q.Get("error_description"); desc != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrDenied, e, desc)
		}
		return nil, fmt.Errorf("%w: %s", ErrDenied, e)
	}

	user, err := gothic.CompleteUserAuth(w, withProvider(r))
	if err != nil {
		return nil, fmt.Errorf("failed to complete user auth: %w", err)
	}
	return identityFromUser(user)
}

func (g *Google) Logout(w http.ResponseWriter, r *http.Request) error {
	if err := gothic.Logout(w, withProvider(r)); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

func identityFromUser(user goth.User) (*domain.Identity, error) {
	email := strings.TrimSpace(user.Email)
	if email == "" {
		return nil, ErrNoEmail
	}
	return &domain.Identity{
		Email:   email,
		Name:    displayName(user),
		Picture: user.AvatarURL,
	}, nil
}

func displayName(user goth.User) string {
	if name := strings.TrimSpace(user.Name); name != "" {
		return name
	}
	if full := strings.TrimSpace(user.FirstName + " " + user.LastName); full != "" {
		return full
	}
	return strings.TrimSpace(user.NickName)
}

// withProvider pins the provider query parameter gothic resolves providers from.
func withProvider(r *http.Request) *http.Request {
	q := r.URL.Query()
	if q.Get("provider") == ProviderName {
		return r
	}
	q.Set("provider", ProviderName)
	r2 := r.Clone(r.Context())
	r2.URL.RawQuery = q.Encode()
	return r2
}
