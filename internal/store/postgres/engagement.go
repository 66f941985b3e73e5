package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/MrSnakeDoc/toonshare/internal/domain"
	"github.com/MrSnakeDoc/toonshare/internal/logger"
)

// Schema creates the engagement tables when they are missing.
const Schema = `
CREATE TABLE IF NOT EXISTS likes (
	share_id   TEXT NOT NULL,
	email      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (share_id, email)
);
CREATE TABLE IF NOT EXISTS views (
	id         BIGSERIAL PRIMARY KEY,
	share_id   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_views_share ON views (share_id);
CREATE TABLE IF NOT EXISTS comments (
	id         BIGSERIAL PRIMARY KEY,
	share_id   TEXT NOT NULL,
	email      TEXT,
	name       TEXT,
	text       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_comments_share_created ON comments (share_id, created_at DESC);
`

// ConnectOptions controls the initial connection attempts.
type ConnectOptions struct {
	DSN           string
	Attempts      int           // ping attempts before giving up
	RetryInterval time.Duration // wait between attempts
	MaxOpenConns  int
}

// EngagementStore keeps likes, views and comments in PostgreSQL.
//
// It does not know about shares: rows for unknown share ids are accepted.
type EngagementStore struct {
	db *sql.DB
}

// NewEngagementStore wraps an already opened database.
func NewEngagementStore(db *sql.DB) *EngagementStore {
	return &EngagementStore{db: db}
}

// Connect opens the database and pings it until it answers or attempts run out.
func Connect(ctx context.Context, opts ConnectOptions, log logger.Logger) (*EngagementStore, error) {
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open engagement database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}

	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			log.Info("connected to engagement database", logger.Int("attempts", attempt))
			return NewEngagementStore(db), nil
		}
		if attempt >= opts.Attempts {
			break
		}
		log.Warn("engagement database unavailable, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", opts.RetryInterval),
			logger.Error(err))

		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to engagement database: %w", ctx.Err())
		case <-time.After(opts.RetryInterval):
		}
	}

	_ = db.Close()
	return nil, fmt.Errorf("engagement database unavailable after %d attempts: %w", opts.Attempts, err)
}

// Migrate applies Schema.
func (s *EngagementStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate engagement schema: %w", err)
	}
	return nil
}

func (s *EngagementStore) LikeCount(ctx context.Context, shareID string) (uint64, error) {
	var n uint64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE share_id = $1`, shareID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return n, nil
}

func (s *EngagementStore) HasLiked(ctx context.Context, shareID, email string) (bool, error) {
	var liked bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE share_id = $1 AND email = $2)`, shareID, email).Scan(&liked)
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return liked, nil
}

func (s *EngagementStore) AddLike(ctx context.Context, shareID, email string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO likes (share_id, email) VALUES ($1, $2) ON CONFLICT (share_id, email) DO NOTHING`, shareID, email)
	if err != nil {
		return fmt.Errorf("failed to add like: %w", err)
	}
	return nil
}

func (s *EngagementStore) RemoveLike(ctx context.Context, shareID, email string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM likes WHERE share_id = $1 AND email = $2`, shareID, email); err != nil {
		return fmt.Errorf("failed to remove like: %w", err)
	}
	return nil
}

func (s *EngagementStore) InsertView(ctx context.Context, shareID string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO views (share_id, created_at) VALUES ($1, $2)`, shareID, at); err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	return nil
}

func (s *EngagementStore) ViewCount(ctx context.Context, shareID string) (uint64, error) {
	var n uint64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM views WHERE share_id = $1`, shareID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count views: %w", err)
	}
	return n, nil
}

func (s *EngagementStore) InsertComment(ctx context.Context, c domain.Comment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (share_id, email, name, text, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ShareID, nullString(c.Email), nullString(c.Name), c.Text, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

// ListComments returns the newest comments first.
func (s *EngagementStore) ListComments(ctx context.Context, shareID string, limit int) ([]domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT share_id, email, name, text, created_at FROM comments
		 WHERE share_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, shareID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	comments := make([]domain.Comment, 0)
	for rows.Next() {
		var (
			c           domain.Comment
			email, name sql.NullString
		)
		if err := rows.Scan(&c.ShareID, &email, &name, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Email = email.String
		c.Name = name.String
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

func (s *EngagementStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *EngagementStore) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
