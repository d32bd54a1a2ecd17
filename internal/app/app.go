package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/mentorbridge-backend/internal/data/db"
	"github.com/yungbote/mentorbridge-backend/internal/data/repos"
	"github.com/yungbote/mentorbridge-backend/internal/observability"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
	"github.com/yungbote/mentorbridge-backend/internal/platform/redislock"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Redis    *redis.Client
	Metrics  *observability.Metrics
	Repos    repos.Repos
	Services Services

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func NewLogger(cfg LogConfig) (*logger.Logger, error) {
	redact := cfg.Redaction
	return logger.NewWithOptions(logger.Options{
		Mode:             cfg.Mode,
		Level:            cfg.Level,
		RedactionEnabled: &redact,
		HashSalt:         cfg.HashSalt,
	})
}

// OpenDB connects to the configured database and applies migrations.
func OpenDB(log *logger.Logger, cfg Config) (*db.PostgresService, error) {
	pg, err := db.NewPostgresService(log, cfg.Postgres.DB())
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	return pg, nil
}

// New wires the whole service graph. Nothing is started; call Start for the
// background collectors.
func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)
	a.Metrics = observability.Init(log, observability.Options{
		Enabled:        cfg.Metrics.Enabled,
		ScrapeInterval: cfg.Metrics.ScrapeInterval,
	})

	pg, err := OpenDB(log, cfg)
	if err != nil {
		return nil, err
	}
	a.pg = pg
	a.DB = pg.DB()

	var locker redislock.Locker = redislock.NewLocal()
	if cfg.Redis.Addr != "" {
		rdb, err := redislock.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.Redis = rdb
		locker = redislock.NewRedis(log, rdb, redislock.Options{TTL: cfg.Redis.LockTTL, Wait: cfg.Redis.LockWait})
	} else {
		log.Info("REDIS addr not set; ingestion locks are process-local")
	}

	a.Repos = repos.New(a.DB, log)
	services, err := wireServices(ctx, log, cfg, a.DB, pg.IsPostgres(), a.Repos, locker, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Services = services
	return a, nil
}

func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	if a.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Redis)
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
