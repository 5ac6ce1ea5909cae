package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seoulquant/arbstreamer/internal/cache/redis"
	"github.com/seoulquant/arbstreamer/internal/config"
	"github.com/seoulquant/arbstreamer/internal/domain"
	"github.com/seoulquant/arbstreamer/internal/export"
	"github.com/seoulquant/arbstreamer/internal/market"
	"github.com/seoulquant/arbstreamer/internal/market/bithumb"
	"github.com/seoulquant/arbstreamer/internal/market/upbit"
	"github.com/seoulquant/arbstreamer/internal/notify"
	"github.com/seoulquant/arbstreamer/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	Books       domain.OrderbookStore
	Commanders  domain.CommanderStore
	LedgerStore domain.LedgerStore
	BalanceCmds domain.BalanceCommandStore

	// Caches and messaging
	BookCache   domain.BookCache
	Bus         domain.CommanderBus
	RateLimiter *redis.RateLimiter
	SessionLock *redis.SessionLock

	// Market clients
	Markets *market.Registry

	// Export and notifications
	Exporter *export.LedgerExporter
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function to call on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.Books = postgres.NewOrderbookStore(pgClient)
	deps.Commanders = postgres.NewCommanderStore(pgClient)
	deps.LedgerStore = postgres.NewLedgerStore(pgClient)
	deps.BalanceCmds = postgres.NewBalanceCommandStore(pgClient)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.BookCache = redis.NewBookCache(redisClient)
	deps.Bus = redis.NewCommanderBus(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SessionLock = redis.NewSessionLock(redisClient)

	// --- Market clients ---
	deps.Markets = market.NewRegistry(
		upbit.NewClient(cfg.Upbit.BaseURL, cfg.Upbit.AccessKey, cfg.Upbit.SecretKey,
			cfg.Upbit.TakerFee, deps.RateLimiter),
		bithumb.NewClient(cfg.Bithumb.BaseURL, cfg.Bithumb.ApiKey, cfg.Bithumb.ApiSecret,
			cfg.Bithumb.TakerFee, deps.RateLimiter),
	)

	// --- S3 ledger export ---
	if cfg.S3.Enabled {
		s3Client, err := export.NewS3Client(ctx, export.S3Config{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Exporter = export.NewLedgerExporter(s3Client, cfg.S3.KeyPrefix, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.SlackWebhookURL != "" {
		senders = append(senders, notify.NewSlackSender(cfg.Notify.SlackWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	return deps, cleanup, nil
}
