// Package app wires storage, the change bus, the services and the optional
// AMQP relay into one handle.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/cache"
	"gastos/internal/config"
	"gastos/internal/core"
	"gastos/internal/events"
	"gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/storage"
	"gastos/internal/transfer"
)

// amqpDialTimeout bounds the broker dial at startup; the relay is optional.
const amqpDialTimeout = 10 * time.Second

type App struct {
	Config     *config.Config
	Location   *time.Location
	Bus        *events.Bus
	Categories *services.CategoryService
	Expenses   *services.ExpenseService
	Transfer   *transfer.Transfer

	logger  *log.Logger
	db      *storage.DB
	caches  *cache.Manager
	relay   *amqp.Relay
	amqp    *amqp.Client
	cleanup []func()
}

// New opens the database named by cfg and builds every service on top of it.
// Storage failures are returned as is so callers can tell
// core.ErrStorageUnavailable apart.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentApp)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	seed, err := services.LoadSeedFile(cfg.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("load seed categories: %w", err)
	}

	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Location: loc,
		Bus:      events.NewBus(logger.WithComponent(log.ComponentEvents).Logger),
		logger:   logger,
		db:       db,
		caches:   cache.NewManager(logger.Logger),
	}

	periods := cache.NewLRUCache[[]core.Expense](cfg.CacheSize, cfg.CacheTTL)
	a.caches.Register(periods)
	a.caches.StartCleanup(cfg.CacheCleanup)

	a.Categories = services.NewCategoryService(
		storage.NewCategoryRepository(db), a.Bus,
		services.WithDefaults(seed),
		services.WithCategoryLogger(logger))
	a.Expenses = services.NewExpenseService(
		storage.NewExpenseRepository(db, storage.WithLocation(loc)), a.Bus,
		services.WithLocation(loc),
		services.WithCache(periods),
		services.WithExpenseLogger(logger))
	a.Transfer = transfer.New(a.Expenses, a.Categories, loc, logger)

	if cfg.AMQPURL != "" {
		a.attachRelay(ctx)
	}

	logger.Debug("Application ready",
		log.FieldPath, db.Path(),
		log.FieldVersion, db.Version(),
		"timezone", loc.String(),
		"amqp_enabled", a.amqp != nil,
		"expense_listeners", a.Bus.Subscribers(events.ExpensesChanged))
	return a, nil
}

// attachRelay connects the AMQP relay. A broker that cannot be reached is
// logged and skipped.
func (a *App) attachRelay(ctx context.Context) {
	dialCtx, cancel := context.WithTimeout(ctx, amqpDialTimeout)
	defer cancel()

	client, err := amqp.NewClient(dialCtx, a.Config.AMQPURL, a.Config.AMQPExchange)
	if err != nil {
		a.logger.Warn("Failed to initialize AMQP client, continuing without relay", log.FieldError, err.Error())
		return
	}
	a.amqp = client
	a.relay = amqp.NewRelay(client, a.logger.WithComponent(log.ComponentAMQP).Logger)
	a.cleanup = append(a.cleanup, a.relay.Attach(a.Bus))
	a.logger.Info("Relaying changes to AMQP", "exchange", a.Config.AMQPExchange)
}

// Categories are loaded (and seeded on first run) before anything else
// touches them.
func (a *App) Start(ctx context.Context) error {
	_, err := a.Categories.Load(ctx)
	return err
}

// Close detaches the relay, waits for in-flight forwards, and releases the
// database.
func (a *App) Close() error {
	for _, fn := range a.cleanup {
		fn()
	}
	var errs []error
	if a.relay != nil {
		a.relay.Wait()
	}
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
		}
	}
	if err := a.Expenses.Close(); err != nil {
		errs = append(errs, err)
	}
	a.caches.Stop()
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
