// Package app wires storage, cache, events and services from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-simulation/internal/cache"
	"github.com/aliskhannn/exam-simulation/internal/config"
	"github.com/aliskhannn/exam-simulation/internal/domain/contracts"
	"github.com/aliskhannn/exam-simulation/internal/events"
	"github.com/aliskhannn/exam-simulation/internal/infra/postgres"
	"github.com/aliskhannn/exam-simulation/internal/infra/postgres/repository"
	"github.com/aliskhannn/exam-simulation/internal/metrics"
	"github.com/aliskhannn/exam-simulation/internal/service"
	"github.com/aliskhannn/exam-simulation/internal/storage"
)

// App holds the wired services shared by the API and the bot.
type App struct {
	Sessions *service.SessionService
	Progress *service.ProgressService
	Sweeper  *service.Sweeper
	// Health pings the storage backend.
	Health func(ctx context.Context) error

	closers []func()
}

// New builds an App. Redis and RabbitMQ are optional: when they are not
// configured or unreachable the app runs without a cache and logs events.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Health: func(context.Context) error { return nil }}

	store, questions, err := a.storage(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var summaries service.SummaryCache
	if cfg.Redis.Enabled() {
		client, err := cache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("redis unavailable, progress cache disabled", zap.Error(err))
		} else {
			a.closers = append(a.closers, func() { _ = client.Close() })
			summaries = cache.NewSummaryCache(client, cfg.Redis.SummaryTTL)
		}
	}

	var publisher service.EventPublisher = events.NewLogPublisher(logger)
	if cfg.RabbitMQ.Enabled() {
		p, err := events.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events are only logged", zap.Error(err))
		} else {
			a.closers = append(a.closers, p.Close)
			publisher = p
		}
	}

	opts := []service.Option{
		service.WithPublisher(publisher),
		service.WithMetrics(metrics.NewRecorder()),
		service.WithStorageTimeout(cfg.Storage.Timeout),
	}
	if summaries != nil {
		opts = append(opts, service.WithSummaryCache(summaries))
	}

	a.Sessions = service.NewSessionService(store, questions, logger, opts...)
	a.Progress = service.NewProgressService(store.Answers(), questions, summaries, logger, cfg.Storage.Timeout)
	a.Sweeper = service.NewSweeper(a.Sessions, cfg.Session.SweepSchedule, cfg.Session.Timeout, logger)

	return a, nil
}

func (a *App) storage(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
) (contracts.Store, contracts.QuestionStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		bank, err := storage.LoadQuestionBank(cfg.Questions.SeedPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load question bank: %w", err)
		}
		logger.Info("using in-memory storage", zap.Int("questions", bank.Len()))
		return storage.NewMemoryStore(), bank, nil

	case config.DriverPostgres:
		dsn, err := cfg.DB.DSN()
		if err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
			MaxConns:        int32(cfg.DB.MaxConnections),
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
			ConnectTimeout:  cfg.Storage.Timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		store := repository.NewStore(pool)
		a.Health = store.Ping
		logger.Info("using postgres storage")
		return store, repository.NewQuestionRepository(pool), nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageDriver, cfg.Storage.Driver)
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
