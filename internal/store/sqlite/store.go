package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
)

const (
	// idLength is the number of hex characters kept from a random UUID.
	idLength = 12
	// maxIDAttempts bounds retries on the (unlikely) primary key collision.
	maxIDAttempts = 5

	// timeLayout is fixed width so that text ordering equals time ordering.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

const schema = `
CREATE TABLE IF NOT EXISTS shares (
	id          TEXT PRIMARY KEY,
	owner_email TEXT NOT NULL,
	owner_name  TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	data_json   TEXT NOT NULL DEFAULT '[]',
	is_public   INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shares_public_updated ON shares (is_public, updated_at);
`

// Owner captures who publishes a share. It is only used on creation.
type Owner struct {
	Email string
	Name  string
}

// Store persists share documents in a local SQLite file.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides key allocation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, now: time.Now, newID: NewID}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewID returns 12 lowercase hex characters taken from a random UUID.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}

// Save creates a share when key is empty, otherwise rewrites the share stored
// under key. It returns the key of the stored document.
//
// On update only title, items, the public flag and updated_at change; the
// owner and created_at stay as first written. Updating an unknown key
// returns domain.ErrShareNotFound.
func (s *Store) Save(ctx context.Context, key string, owner Owner, title string, items []domain.Item, isPublic bool) (string, error) {
	now := s.now().UTC()
	data, err := json.Marshal(domain.NormalizeItems(items, now))
	if err != nil {
		return "", fmt.Errorf("failed to marshal items: %w", err)
	}

	if key == "" {
		return s.insert(ctx, owner, title, data, isPublic, now)
	}
	return key, s.update(ctx, key, title, data, isPublic, now)
}

func (s *Store) insert(ctx context.Context, owner Owner, title string, data []byte, isPublic bool, now time.Time) (string, error) {
	ts := formatTime(now)

	var lastErr error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID()
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO shares (id, owner_email, owner_name, title, data_json, is_public, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			id, owner.Email, owner.Name, title, string(data), boolToInt(isPublic), ts, ts)
		if err != nil {
			return "", fmt.Errorf("failed to insert share: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			return id, nil
		}
		lastErr = fmt.Errorf("share id collision on %s", id)
	}
	return "", fmt.Errorf("failed to allocate share id: %w", lastErr)
}

func (s *Store) update(ctx context.Context, key, title string, data []byte, isPublic bool, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shares SET title = ?, data_json = ?, is_public = ?, updated_at = ? WHERE id = ?`,
		title, string(data), boolToInt(isPublic), formatTime(now), key)
	if err != nil {
		return fmt.Errorf("failed to update share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrShareNotFound, key)
	}
	return nil
}

// Get returns the share stored under id, or nil when there is none.
func (s *Store) Get(ctx context.Context, id string) (*domain.ShareDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_email, owner_name, title, data_json, is_public, created_at, updated_at
		 FROM shares WHERE id = ?`, id)

	var (
		doc                  domain.ShareDocument
		data                 string
		isPublic             int
		createdAt, updatedAt string
	)
	err := row.Scan(&doc.ID, &doc.OwnerEmail, &doc.OwnerName, &doc.Title, &data, &isPublic, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get share: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &doc.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items of %s: %w", id, err)
	}
	if doc.Items == nil {
		doc.Items = []domain.Item{}
	}
	doc.IsPublic = isPublic != 0
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListPublic returns up to limit public shares, most recently updated first.
func (s *Store) ListPublic(ctx context.Context, limit int) ([]domain.ShareSummary, error) {
	if limit <= 0 {
		return []domain.ShareSummary{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_name, title, updated_at FROM shares
		 WHERE is_public = 1 ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list public shares: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]domain.ShareSummary, 0, limit)
	for rows.Next() {
		var (
			doc       domain.ShareDocument
			updatedAt string
		)
		if err := rows.Scan(&doc.ID, &doc.OwnerName, &doc.Title, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan share summary: %w", err)
		}
		if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, doc.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate public shares: %w", err)
	}
	return out, nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by other tools may carry RFC 3339 timestamps.
		if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
			return t2.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
