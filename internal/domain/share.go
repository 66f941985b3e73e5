package domain

import (
	"errors"
	"net/url"
	"time"
)

var (
	// ErrShareNotFound is returned when an update targets a key that was never stored.
	ErrShareNotFound = errors.New("share not found")
	// ErrItemIndex is returned when a list operation addresses a position that does not exist.
	ErrItemIndex = errors.New("item index out of range")
)

// GuestName is shown for comments that carry neither a name nor an email.
const GuestName = "Guest"

// ShareDocument is a published snapshot of a curated list.
//
// The document is addressed by ID only. IsPublic controls whether it shows up
// in the discovery listing; a private document is still readable by anyone
// holding the key.
type ShareDocument struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is 12 lowercase hex characters, allocated on first save.
	ID string `json:"id"`

	// OwnerEmail and OwnerName are captured from the identity that first
	// published the document and never change afterwards.
	OwnerEmail string `json:"owner_email"`
	OwnerName  string `json:"owner_name"`

	// ─────────────────────────────
	// Content (rewritten on every save)
	// ─────────────────────────────

	Title    string `json:"title"`
	Items    []Item `json:"items"`
	IsPublic bool   `json:"is_public"`

	// ─────────────────────────────
	// Timestamps
	// ─────────────────────────────

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns the discovery row for the document.
func (d *ShareDocument) Summary() ShareSummary {
	return ShareSummary{
		ID:        d.ID,
		OwnerName: d.OwnerName,
		Title:     d.Title,
		UpdatedAt: d.UpdatedAt,
	}
}

// Item is one entry of a list. Items have no identity of their own; they are
// addressed by position.
type Item struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Note      string    `json:"note"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShareSummary is the projection used by the discovery listing.
type ShareSummary struct {
	ID        string    `json:"id"`
	OwnerName string    `json:"owner_name"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is an append-only remark attached to a share.
type Comment struct {
	ShareID   string    `json:"share_id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName picks the name shown next to a comment.
func (c Comment) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Email != "" {
		return c.Email
	}
	return GuestName
}

// Identity is the authenticated user attached to a session.
type Identity struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// ShareURL builds the public address of a share: the base URL with a share
// query parameter. Other query parameters already on the base are kept.
func ShareURL(baseURL, id string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + "?share=" + url.QueryEscape(id)
	}
	q := u.Query()
	q.Set("share", id)
	u.RawQuery = q.Encode()
	return u.String()
}
