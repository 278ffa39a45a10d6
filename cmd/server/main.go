// @title        Account Service API
// @version      1.0
// @description  Account directory with username and email uniqueness.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/rednet/account-service/internal/api"
	"github.com/rednet/account-service/internal/core/ports"
	"github.com/rednet/account-service/internal/core/service"
	"github.com/rednet/account-service/internal/infrastructure/cache"
	"github.com/rednet/account-service/internal/infrastructure/config"
	mongostore "github.com/rednet/account-service/internal/infrastructure/db/mongo"
	redisstore "github.com/rednet/account-service/internal/infrastructure/db/redis"
	"github.com/rednet/account-service/internal/infrastructure/db/sqlite"
	"github.com/rednet/account-service/internal/infrastructure/http/handlers"
	"github.com/rednet/account-service/internal/infrastructure/queue"
	"github.com/rednet/account-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// store bundles the selected account backend with its health check and teardown.
type store struct {
	accounts ports.AccountRepository
	roles    ports.RoleRepository
	name     string
	ping     handlers.Pinger
	close    func(context.Context) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "account-service",
	})
	log.Info().Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("starting account service")

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("account service stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// 3. Open the account store and register the bootstrap roles
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Error().Err(err).Msg("close account store")
		}
	}()

	if err := st.roles.EnsureRoles(ctx, cfg.BootstrapRoles); err != nil {
		return err
	}
	log.Info().Strs("roles", cfg.BootstrapRoles).Msg("role registry ready")

	readiness := map[string]handlers.Pinger{st.name: st.ping}
	accounts := st.accounts
	var events ports.AccountEventPublisher

	// 4. Optional Redis-backed cache and event feed
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if cfg.RedisRequired() {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		readiness["redis"] = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

		if cfg.Cache.Enabled {
			accountCache := redisstore.NewAccountCache(rdb, cfg.Cache.TTL, logger.Component("account_cache"))
			accounts = cache.NewAccountRepository(accounts, accountCache)
			log.Info().Dur("ttl", cfg.Cache.TTL).Msg("account cache enabled")
		}

		if cfg.Events.Enabled {
			sink := redisstore.NewStreamSink(rdb, cfg.Events.Stream)
			dispatcher := queue.NewDispatcher(cfg.Events.Workers, sink, logger.Component("event_dispatcher"))
			dispatcher.Start(workerCtx)
			defer dispatcher.Close()
			events = dispatcher
			log.Info().Str("stream", cfg.Events.Stream).Int("workers", cfg.Events.Workers).Msg("account event feed enabled")
		}
	}

	// 5. Services and transport
	accountService := service.NewAccountService(accounts, events, logger.Component("account_service"))
	e := api.NewRouter(api.RouterDeps{
		Accounts:  accountService,
		Readiness: readiness,
		Log:       logger.Component("http"),
	})

	// 6. Serve until signalled, then drain
	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return &store{
			accounts: db,
			roles:    db,
			name:     "sqlite",
			ping:     db,
			close:    func(context.Context) error { return db.Close() },
		}, nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		accounts := mongostore.NewAccountRepository(db)
		if err := accounts.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &store{
			accounts: accounts,
			roles:    mongostore.NewRoleRepository(db),
			name:     "mongodb",
			ping:     handlers.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) }),
			close:    client.Disconnect,
		}, nil
	}
}
