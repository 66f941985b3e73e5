package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/toonshare/internal/auth"
	"github.com/MrSnakeDoc/toonshare/internal/config"
	"github.com/MrSnakeDoc/toonshare/internal/engagement"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver"
	"github.com/MrSnakeDoc/toonshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/toonshare/internal/i18n"
	"github.com/MrSnakeDoc/toonshare/internal/logger"
	"github.com/MrSnakeDoc/toonshare/internal/redis"
	"github.com/MrSnakeDoc/toonshare/internal/scheduler"
	"github.com/MrSnakeDoc/toonshare/internal/session"
	"github.com/MrSnakeDoc/toonshare/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/toonshare/internal/store/redis"
	"github.com/MrSnakeDoc/toonshare/internal/store/sqlite"
	"github.com/MrSnakeDoc/toonshare/internal/thumbnail"
	"github.com/MrSnakeDoc/toonshare/internal/utils"
	"github.com/MrSnakeDoc/toonshare/internal/version"
)

// engagementRetryInterval is the pause between engagement database pings at startup.
const engagementRetryInterval = 2 * time.Second

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	shares      *sqlite.Store
	engagement  io.Closer // nil for the memory backend
	redisClient *goredis.Client
	gc          *scheduler.GarbageCollector
}

// New wires every component. Stores are opened eagerly so that a broken
// configuration fails before anything is served.
func New(cfg *config.Config) (*App, error) {
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	ctx := context.Background()

	a := &App{cfg: cfg, logger: loggerClient}

	// Share store
	shares, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open share store: %w", err)
	}
	a.shares = shares
	loggerClient.Info("share store opened", logger.String("path", cfg.SQLitePath))

	// Engagement
	backend, err := a.openEngagement(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	engagementSvc := engagement.NewService(backend, loggerClient.Named("engagement"), nil)

	catalog, err := i18n.Default()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	lang := cfg.DefaultLang
	if !catalog.Supports(lang) {
		loggerClient.Warn("unsupported default language, using catalog default",
			logger.String("lang", lang),
			logger.String("fallback", catalog.DefaultLanguage()))
		lang = catalog.DefaultLanguage()
	}

	// Sessions, and the shared thumbnail cache when Redis is around
	var (
		sessionBackend session.Backend
		sharedThumbs   thumbnail.SharedCache
		jobs           []scheduler.Job
	)
	switch cfg.SessionBackend {
	case config.BackendRedis:
		redisClient, err := redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient.Named("redis"))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redisClient = redisClient
		store := redisstore.NewStore(redisClient)
		sessionBackend = store
		sharedThumbs = store
	default:
		loggerClient.Warn("sessions are kept in memory and are lost on restart")
		mem := session.NewMemoryBackend()
		sessionBackend = mem
		jobs = append(jobs, scheduler.Job{Name: "sessions", Sweep: mem.Sweep})
	}

	cookieStore := session.NewCookieStore(cfg.SessionKeys, cfg.SessionTTL, cfg.SecureCookie)
	if len(cfg.SessionKeys) == 0 {
		loggerClient.Warn("no session keys configured, cookies are invalidated on restart")
	}
	sessions := session.NewManager(cookieStore, sessionBackend, session.Options{
		TTL:         cfg.SessionTTL,
		DefaultLang: lang,
		Languages:   catalog.Languages(),
	}, loggerClient.Named("session"))

	// Thumbnails
	cache, err := thumbnail.NewCache(cfg.ThumbCacheSize, cfg.ThumbTTL)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create thumbnail cache: %w", err)
	}
	thumbs := thumbnail.NewService(thumbnail.NewFetcher(nil, cfg.ThumbTimeout), cache, sharedThumbs, loggerClient.Named("thumbnail"))
	jobs = append(jobs, scheduler.Job{Name: "thumbnails", Sweep: thumbs.Sweep})

	// Identity provider shares the cookie store for its OAuth state
	provider := auth.NewGoogle(auth.GoogleOptions{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
	}, cookieStore)

	a.gc = scheduler.NewGarbageCollector(loggerClient.Named("gc"), cfg.SweepInterval, jobs...)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		BaseURL:        cfg.BaseURL,
		AdminEmail:     cfg.AdminEmail,
		DiscoverLimit:  cfg.DiscoverLimit,
		Shares:         shares,
		Engagement:     engagementSvc,
		Thumbnails:     thumbs,
		Sessions:       sessions,
		Auth:           provider,
		Messages:       catalog,
		SessionBackend: cfg.SessionBackend,
		RedisClient:    a.redisClient,
	}

	a.server = httpserver.New(cfg, loggerClient, d)
	return a, nil
}

func (a *App) openEngagement(ctx context.Context) (engagement.Backend, error) {
	if a.cfg.EngagementBackend != config.BackendPostgres {
		a.logger.Warn("engagement is kept in memory, likes, views and comments are lost on restart")
		return engagement.NewMemoryBackend(), nil
	}

	store, err := postgres.Connect(ctx, postgres.ConnectOptions{
		DSN:           a.cfg.EngagementDSN,
		Attempts:      a.cfg.EngagementRetries,
		RetryInterval: engagementRetryInterval,
		MaxOpenConns:  10,
	}, a.logger.Named("postgres"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to engagement database: %w", err)
	}
	a.engagement = store

	if a.cfg.EngagementMigrate {
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate engagement database: %w", err)
		}
		a.logger.Info("engagement schema applied")
	}
	return store, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting toonshare v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start garbage collector
	a.gc.Start(ctx)
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.SweepInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.gc.Stop()
		a.close()
		return err
	}

	// Stop garbage collector
	a.gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	stopErr := a.server.Stop(shutdownCtx)
	a.close()
	if stopErr != nil {
		return fmt.Errorf("failed to stop server: %w", stopErr)
	}

	a.logger.Info("✅ toonshare stopped cleanly", logger.Duration("uptime", a.server.Uptime()))
	_ = a.logger.Sync()
	return nil
}

// close releases the stores. Safe on a partially built App.
func (a *App) close() {
	if a.redisClient != nil {
		_ = utils.CloseLogged(a.logger, "redis", a.redisClient)
	}
	if a.engagement != nil {
		_ = utils.CloseLogged(a.logger, "engagement database", a.engagement)
	}
	if a.shares != nil {
		_ = utils.CloseLogged(a.logger, "share store", a.shares)
	}
}
