package main

import (
	"context"
	"database/sql"

	"github.com/iamasit07/sessionbridge/internal/config"
	"github.com/iamasit07/sessionbridge/internal/repository/postgres"
	"github.com/iamasit07/sessionbridge/internal/repository/redis"
	"github.com/iamasit07/sessionbridge/internal/service/cleanup"
	"github.com/iamasit07/sessionbridge/internal/service/handoff"
	"github.com/iamasit07/sessionbridge/internal/service/ratelimit"
	"github.com/iamasit07/sessionbridge/internal/service/session"
	transportHttp "github.com/iamasit07/sessionbridge/internal/transport/http"
	"github.com/iamasit07/sessionbridge/pkg/auth"
	"github.com/iamasit07/sessionbridge/pkg/clock"
	"github.com/iamasit07/sessionbridge/pkg/logger"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// app holds the wired dependency graph shared by every command.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	db    *sql.DB
	redis *goredis.Client

	users   *postgres.UserRepo
	auth    *session.AuthService
	handoff *handoff.Service
	limiter *ratelimit.Limiter
	worker  *cleanup.Worker
}

func newApp(ctx context.Context) (*app, error) {
	config.LoadEnv()
	cfg := config.LoadConfig()
	log := logger.New(cfg.Environment)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeMin)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, db: db}

	// Redis is optional. Without it the session cache is skipped and rate
	// limiting runs on Postgres.
	var cache session.CacheRepository
	var rateStore ratelimit.Store = postgres.NewRateLimitRepo(db)
	if cfg.RedisEnabled {
		client, err := redis.NewClient(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Warn("Could not connect to Redis, falling back to PostgreSQL only")
		} else {
			log.Info("Connected to Redis")
			a.redis = client
			cache = redis.NewRedisCache(client)
			rateStore = redis.NewRateLimitStore(client)
		}
	}

	sealer, err := auth.NewSealer(cfg.HandoffSealKey)
	if err != nil {
		a.Close()
		return nil, err
	}
	if _, plain := sealer.(auth.PlainSealer); plain {
		log.Warn("HANDOFF_SEAL_KEY not set, handoff credentials are stored unsealed")
	}

	clk := clock.Real{}
	sessionRepo := postgres.NewSessionRepo(db)

	a.users = postgres.NewUserRepo(db)
	a.auth = session.NewAuthService(sessionRepo, cache, cfg.JWTSecret, clk, log)
	a.handoff = handoff.NewService(postgres.NewHandoffRepo(db), clk, handoff.Options{
		CodeLength: cfg.HandoffCodeLength,
		MaxRetries: cfg.HandoffMaxCollisionRetries,
		Sealer:     sealer,
	}, log)
	a.limiter = ratelimit.New(rateStore, clk, map[string]ratelimit.Policy{
		ratelimit.ActionSearch:        {MaxCount: cfg.SearchRateLimit.MaxCount, Window: cfg.SearchRateLimit.Window},
		ratelimit.ActionHandoffRedeem: {MaxCount: cfg.RedeemRateLimit.MaxCount, Window: cfg.RedeemRateLimit.Window},
	}, log)
	a.worker = cleanup.NewWorker(a.handoff, a.limiter, sessionRepo, cfg.CleanupInterval, cfg.SessionRetentionDays, log)

	return a, nil
}

func (a *app) handlers() transportHttp.Handlers {
	var redisPing transportHttp.PingFunc
	if a.redis != nil {
		redisPing = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return transportHttp.Handlers{
		Handoff: transportHttp.NewHandoffHandler(a.handoff, a.limiter, a.cfg.TrustProxyHeaders, a.log),
		Search:  transportHttp.NewSearchHandler(a.users, a.limiter, a.cfg.SearchResultLimit, transportHttp.NewErrorResponder(a.log)),
		Health:  transportHttp.NewHealthHandler(a.db, redisPing),
		Auth:    a.auth,
	}
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close Redis")
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close database")
	}
}
