package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/toonshare/internal/auth"
	"github.com/MrSnakeDoc/toonshare/internal/domain"
	"github.com/MrSnakeDoc/toonshare/internal/engagement"
	"github.com/MrSnakeDoc/toonshare/internal/i18n"
	"github.com/MrSnakeDoc/toonshare/internal/logger"
	"github.com/MrSnakeDoc/toonshare/internal/session"
	"github.com/MrSnakeDoc/toonshare/internal/store/sqlite"
	"github.com/MrSnakeDoc/toonshare/internal/thumbnail"
)

// ShareStore is the persistence contract handlers need from the share store.
type ShareStore interface {
	Save(ctx context.Context, key string, owner sqlite.Owner, title string, items []domain.Item, isPublic bool) (string, error)
	Get(ctx context.Context, id string) (*domain.ShareDocument, error)
	ListPublic(ctx context.Context, limit int) ([]domain.ShareSummary, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time     // for testing, defaults to time.Now
	AllowedHosts   []string             // Host headers allowed to access the server
	AllowedCIDRS   []string             // IPs allowed to access ops endpoints
	TrustProxy     bool                 // true if running behind a trusted reverse proxy (e.g., cloudflared)
	BaseURL        string               // public URL share links are built on
	AdminEmail     string               // may edit every share (optional)
	DiscoverLimit  int                  // max public shares listed
	Shares         ShareStore           // share documents
	Engagement     *engagement.Service  // likes, views, comments
	Thumbnails     *thumbnail.Service   // og:image resolution
	Sessions       *session.Manager     // per-visitor state
	Auth           auth.Provider        // identity provider adapter
	Messages       *i18n.Catalog        // ko/en strings
	SessionBackend string               // "redis" | "memory", reported by /infra
	RedisClient    *redis.Client        // Redis client connection (nil when sessions live in memory)
}

// Now returns the current time through TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
