package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/ankunstudio/backoffice/internal/core/ports"
	"github.com/ankunstudio/backoffice/internal/core/service"
	"github.com/ankunstudio/backoffice/internal/infrastructure/content"
	"github.com/ankunstudio/backoffice/internal/infrastructure/db/mongo"
	"github.com/ankunstudio/backoffice/internal/infrastructure/db/postgres"
	"github.com/ankunstudio/backoffice/internal/infrastructure/db/redis"
	"github.com/ankunstudio/backoffice/internal/infrastructure/db/sqlite"
	"github.com/ankunstudio/backoffice/internal/infrastructure/queue"
	"github.com/ankunstudio/backoffice/internal/pkg/config"
)

// stack is the fully wired application. Optional pieces stay nil.
type stack struct {
	service *service.CredentialService
	tokens  *service.TokenIssuer
	limiter ports.LoginLimiter
	events  ports.AuthEventReader
	mongoDB *mongodriver.Database
	redis   *goredis.Client

	closers []func(context.Context) error
}

// bootstrapOptions lets short-lived commands skip the audit and throttle
// backends.
type bootstrapOptions struct {
	withAudit    bool
	withThrottle bool
	auditWorkers int
}

func bootstrap(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts bootstrapOptions) (_ *stack, err error) {
	st := &stack{}
	defer func() {
		if err != nil {
			st.close(context.Background(), log)
		}
	}()

	store, err := st.openIdentityStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var provider ports.ContentProvider
	if cfg.Content.URL != "" {
		client, err := content.NewClient(content.Config{
			BaseURL:      cfg.Content.URL,
			APIKey:       cfg.Content.APIKey,
			APIKeyHeader: cfg.Content.APIKeyHeader,
			Timeout:      cfg.Auth.BackendTimeout,
		}, nil)
		if err != nil {
			return nil, err
		}
		provider = client
	}

	demo := service.DefaultDemoAccounts()
	if cfg.Auth.DemoAccountsFile != "" {
		demo, err = service.LoadDemoAccounts(cfg.Auth.DemoAccountsFile)
		if err != nil {
			return nil, err
		}
		log.Info().Int("accounts", demo.Len()).Str("file", cfg.Auth.DemoAccountsFile).Msg("demo accounts loaded")
	}

	var audit ports.AuthEventRepository
	if opts.withAudit && cfg.Mongo.URI != "" {
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, client.Disconnect)
		repo := mongo.NewAuthEventRepository(db)
		dispatcher := queue.NewDispatcher(opts.auditWorkers, repo, log)
		dispatcher.Start()
		st.closers = append(st.closers, dispatcher.Stop)
		audit, st.events, st.mongoDB = dispatcher, repo, db
		log.Info().Str("database", cfg.Mongo.Database).Msg("audit trail enabled")
	}

	if opts.withThrottle && cfg.Redis.Addr != "" {
		limiter, err := redis.OpenLoginLimiter(ctx, redis.Config{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			Timeout:     cfg.Auth.BackendTimeout,
			MaxFailures: cfg.Redis.LoginMaxFailures,
			Lockout:     cfg.Redis.LoginLockout,
		})
		if err != nil {
			return nil, err
		}
		rdb := limiter.Client()
		st.closers = append(st.closers, func(context.Context) error { return rdb.Close() })
		st.redis = rdb
		st.limiter = limiter
		log.Info().Int("max_failures", cfg.Redis.LoginMaxFailures).Dur("lockout", cfg.Redis.LoginLockout).Msg("login throttle enabled")
	}

	if !cfg.Auth.AllowDemoLogin {
		log.Info().Msg("demo login disabled")
	}

	st.service = service.NewCredentialService(store, provider, service.Options{
		Demo:              demo,
		Audit:             audit,
		AllowDemoLogin:    cfg.Auth.AllowDemoLogin,
		StrictPersistence: cfg.Auth.StrictPersistence,
		BackendTimeout:    cfg.Auth.BackendTimeout,
		ProbeInterval:     cfg.Auth.ProbeInterval,
	}, log)
	st.tokens = service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	return st, nil
}

// openIdentityStore selects the primary backend from DATABASE_URL. An empty
// URL yields a nil store, which the service treats as unavailable.
func (st *stack) openIdentityStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.IdentityStore, error) {
	url := cfg.Database.URL
	switch {
	case url == "":
		log.Warn().Msg("DATABASE_URL not set, primary database disabled")
		return nil, nil

	case postgres.IsPostgresURL(url):
		if cfg.Database.Migrate {
			version, err := postgres.Migrate(url)
			if err != nil {
				// The chain still serves content API and demo logins.
				log.Warn().Err(err).Msg("postgres migrations failed")
			} else {
				log.Info().Uint("version", version).Msg("postgres migrations applied")
			}
		}
		pool, err := postgres.Open(ctx, postgres.Config{URL: url, ConnectTimeout: cfg.Auth.BackendTimeout})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, closePool(pool))
		return postgres.NewIdentityRepository(pool), nil

	case sqlite.IsSQLiteURL(url):
		store, err := sqlite.Open(ctx, url)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func(context.Context) error { return store.Close() })
		return store, nil
	}

	return nil, errors.New("DATABASE_URL must start with postgres://, postgresql://, sqlite: or file:")
}

func closePool(pool *pgxpool.Pool) func(context.Context) error {
	return func(context.Context) error {
		pool.Close()
		return nil
	}
}

func (st *stack) close(ctx context.Context, log zerolog.Logger) {
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](ctx); err != nil {
			log.Warn().Err(fmt.Errorf("close: %w", err)).Msg("shutdown")
		}
	}
	st.closers = nil
}
