// Package app builds the adapters selected by configuration. Both binaries
// share it so the server and the cron runner always agree on wiring.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bikeshare-backend/internal/config"
	"bikeshare-backend/internal/fx"
	"bikeshare-backend/internal/logger"
	"bikeshare-backend/internal/notify"
	"bikeshare-backend/internal/payment"
	"bikeshare-backend/internal/repository"
	"bikeshare-backend/internal/repository/memory"
	"bikeshare-backend/internal/repository/postgres"
	"bikeshare-backend/internal/seed"

	_ "github.com/lib/pq"
)

// Storage is an opened repository backend.
type Storage struct {
	Store repository.Store
	close func() error
}

func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage connects the configured backend, runs schema migrations for
// postgres and applies the seed file when one is configured.
func OpenStorage(ctx context.Context, cfg *config.Config, migrate bool) (*Storage, error) {
	var (
		st     *Storage
		target seed.Target
	)

	switch cfg.Storage.Type {
	case "memory":
		logger.Warn("Using in-memory storage; data is lost on restart")
		mem := memory.NewStore(cfg.LockTimeout())
		st = &Storage{Store: mem}
		target = mem

	case "postgres":
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetConnMaxIdleTime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Database connection established")

		if migrate {
			if err := postgres.RunMigrations(cfg.GetDatabaseConnectionString()); err != nil {
				db.Close()
				return nil, err
			}
			logger.Info("Database migrations applied")
		}

		pg := postgres.NewStore(db, cfg.LockTimeout())
		st = &Storage{Store: pg, close: db.Close}
		target = pg

	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Storage.Type)
	}

	if cfg.Storage.SeedFile != "" {
		data, err := seed.ReadFile(cfg.Storage.SeedFile)
		if err == nil {
			err = seed.Apply(ctx, target, data)
		}
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("seed %s: %w", cfg.Storage.SeedFile, err)
		}
	}
	return st, nil
}

func NewConverter(cfg *config.Config) *fx.Service {
	var provider fx.RateProvider
	switch cfg.FX.Provider {
	case "exchangerate_api":
		provider = fx.NewExchangeRateAPIProvider(cfg.FX.BaseURL, cfg.FX.APIKey, 0)
	default:
		provider = fx.NewStaticProvider()
	}
	logger.Info("FX provider configured", "provider", provider.Name(), "cacheTTL", cfg.FXCacheTTL())
	return fx.NewService(provider, cfg.FX.CacheSize, cfg.FXCacheTTL())
}

func NewGateway(cfg *config.Config) payment.Gateway {
	switch cfg.Payment.Gateway {
	case "stripe":
		logger.Info("Payment gateway configured", "gateway", "stripe")
		return payment.NewStripeGateway(cfg.Payment.StripeSecretKey)
	default:
		logger.Info("Payment gateway configured", "gateway", "simulated")
		return payment.NewSimulatedGateway()
	}
}

type closingChannel interface {
	notify.Channel
	Close() error
}

// kafkaChannel and pushChannel are swapped in tests.
var kafkaChannel = func(brokers []string, topic string) closingChannel {
	return notify.NewKafkaChannel(brokers, topic)
}

var pushChannel = func(ctx context.Context, credentialsFile string) (notify.Channel, error) {
	return notify.NewPushChannel(ctx, credentialsFile)
}

// NewDispatcher returns nil when no notification channel is enabled. The
// returned close func releases channel resources and is never nil.
func NewDispatcher(ctx context.Context, cfg *config.Config, store repository.Store) (*notify.Dispatcher, func(), error) {
	n := cfg.Notification
	var channels []notify.Channel
	closers := []func() error{}

	if n.Kafka.Enabled {
		k := kafkaChannel(n.Kafka.Brokers, n.Kafka.Topic)
		channels = append(channels, k)
		closers = append(closers, k.Close)
	}
	if n.Email.Enabled {
		channels = append(channels, notify.NewEmailChannel(n.Email.SendGridAPIKey, n.Email.FromAddress, n.Email.FromName))
	}
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("Failed to close notification channel", "error", err)
			}
		}
	}

	if n.Push.Enabled {
		p, err := pushChannel(ctx, n.Push.CredentialsFile)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		channels = append(channels, p)
	}
	if len(channels) == 0 {
		logger.Info("No notification channels enabled")
		return nil, closeAll, nil
	}
	logger.Info("Notification channels configured", "count", len(channels))
	return notify.NewDispatcher(store, n.BatchSize, channels...), closeAll, nil
}
