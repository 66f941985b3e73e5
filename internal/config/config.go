package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per request handler timeout (default: 30s)

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	BaseURL       string // public URL share links are built on (default: redirect URI origin)
	AdminEmail    string // optional, may edit every share
	DefaultLang   string // "ko" | "en"
	DiscoverLimit int    // max public shares listed (default: 100)

	// Share store
	SQLitePath string // path to the shares database (default: shares.db)

	// Engagement
	EngagementBackend string // "postgres" | "memory"
	EngagementDSN     string // required when backend is postgres
	EngagementMigrate bool   // apply the engagement schema on startup
	EngagementRetries int    // connection attempts before giving up

	// Identity provider
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	// Sessions
	SessionBackend string        // "redis" | "memory"
	SessionKeys    []string      // cookie signing keys, first one signs (random when empty)
	SessionTTL     time.Duration // idle lifetime (default: 168h)
	SecureCookie   bool          // mark cookies Secure (https only)

	// Thumbnails
	ThumbTTL       time.Duration // freshness window (default: 1h)
	ThumbTimeout   time.Duration // fetch timeout (default: 4s)
	ThumbCacheSize int           // local cache entries (default: 1024)

	SweepInterval time.Duration // housekeeping interval (default: 10m)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict ops endpoints to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	loadEnvFile(getenv("TOONSHARE_ENV_FILE", ".env"))

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("TOONSHARE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("TOONSHARE_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("TOONSHARE_REQUEST_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:  getenv("TOONSHARE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("TOONSHARE_PRETTY_LOG", true),

		// Identity provider
		GoogleClientID:     requireEnv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: requireEnv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  requireEnv("GOOGLE_REDIRECT_URI"),

		// Application
		AdminEmail:    strings.TrimSpace(getenv("TOONSHARE_ADMIN_EMAIL", "")),
		DefaultLang:   getenv("TOONSHARE_DEFAULT_LANG", "ko"),
		DiscoverLimit: getenvInt("TOONSHARE_DISCOVER_LIMIT", 100),
		SQLitePath:    getenv("TOONSHARE_SQLITE_PATH", "shares.db"),

		// Engagement
		EngagementBackend: strings.ToLower(getenv("TOONSHARE_ENGAGEMENT_BACKEND", BackendMemory)),
		EngagementMigrate: mustBool("TOONSHARE_ENGAGEMENT_MIGRATE", false),
		EngagementRetries: getenvInt("TOONSHARE_ENGAGEMENT_RETRIES", 5),

		// Sessions
		SessionBackend: strings.ToLower(getenv("TOONSHARE_SESSION_BACKEND", BackendMemory)),
		SessionKeys:    splitAndTrim(getenv("TOONSHARE_SESSION_KEYS", "")),
		SessionTTL:     mustDuration("TOONSHARE_SESSION_TTL", 7*24*time.Hour),
		SecureCookie:   mustBool("TOONSHARE_SECURE_COOKIE", false),

		// Thumbnails
		ThumbTTL:       mustDuration("TOONSHARE_THUMB_TTL", time.Hour),
		ThumbTimeout:   mustDuration("TOONSHARE_THUMB_TIMEOUT", 4*time.Second),
		ThumbCacheSize: getenvInt("TOONSHARE_THUMB_CACHE_SIZE", 1024),

		SweepInterval: mustDuration("TOONSHARE_SWEEP_INTERVAL", 10*time.Minute),

		// Redis settings
		RedisUser:             getenv("TOONSHARE_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("TOONSHARE_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("TOONSHARE_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("TOONSHARE_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("TOONSHARE_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("TOONSHARE_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("TOONSHARE_TRUST_PROXY", true),
	}

	cfg.BaseURL = getenv("TOONSHARE_BASE_URL", baseFromRedirect(cfg.GoogleRedirectURI))

	switch cfg.EngagementBackend {
	case BackendPostgres:
		cfg.EngagementDSN = requireEnv("TOONSHARE_ENGAGEMENT_DSN")
	case BackendMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: Unknown TOONSHARE_ENGAGEMENT_BACKEND %q (want postgres or memory)", cfg.EngagementBackend))
	}

	switch cfg.SessionBackend {
	case BackendRedis:
		cfg.RedisAddr = requireEnv("TOONSHARE_REDIS_ADDR")
		// Validate Redis password configuration
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: TOONSHARE_REDIS_PASSWORD is required when TOONSHARE_REDIS_PASSWORD_REQUIRED=true")
		}
	case BackendMemory:
		cfg.RedisAddr = getenv("TOONSHARE_REDIS_ADDR", "")
	default:
		panic(fmt.Sprintf("❌ FATAL: Unknown TOONSHARE_SESSION_BACKEND %q (want redis or memory)", cfg.SessionBackend))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	const redacted = "***REDACTED***"
	cp.GoogleClientSecret = redacted
	if c.RedisPassword != "" {
		cp.RedisPassword = redacted
	}
	if c.RedisUser != "" {
		cp.RedisUser = redacted
	}
	if c.EngagementDSN != "" {
		cp.EngagementDSN = redacted
	}
	if len(c.SessionKeys) > 0 {
		cp.SessionKeys = []string{redacted}
	}
	return cp
}

// loadEnvFile populates the environment from path. Variables already set win.
func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Sprintf("❌ FATAL: Failed to read env file %s: %v", path, err))
	}
}

// baseFromRedirect keeps scheme and host of the OAuth callback URL.
// Example: "https://toon.example.com/auth/google/callback" -> "https://toon.example.com/"
func baseFromRedirect(redirect string) string {
	u, err := url.Parse(redirect)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "http://localhost:8080/"
	}
	return u.Scheme + "://" + u.Host + "/"
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
