package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/pts-sync/modules/production"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/syncrun"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/persistence"
	"github.com/iota-uz/pts-sync/modules/production/services"
	"github.com/iota-uz/pts-sync/pkg/application"
	"github.com/iota-uz/pts-sync/pkg/composables"
	"github.com/iota-uz/pts-sync/pkg/configuration"
	"github.com/iota-uz/pts-sync/pkg/eventbus"
	"github.com/iota-uz/pts-sync/pkg/logging"
)

type runtime struct {
	svc     *services.PtsSyncService
	runs    syncrun.Repository
	migrate func(ctx context.Context) error
	closers []func()
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

type runtimeFactory func(ctx context.Context, g *globalOptions) (context.Context, *runtime, error)

// openRuntime wires the production module against the configured database,
// spreadsheet and lock backend.
func openRuntime(ctx context.Context, g *globalOptions) (context.Context, *runtime, error) {
	if _, err := configuration.LoadEnv([]string{".env", ".env.local"}); err != nil {
		return nil, nil, withCode(exitUsage, fmt.Errorf("load env: %w", err))
	}
	conf, err := configuration.Parse()
	if err != nil {
		return nil, nil, withCode(exitUsage, err)
	}
	if g.workbook != "" {
		conf.PTS.WorkbookPath = g.workbook
	}
	cfg, err := services.NewConfig(conf.PTS, conf.Lock)
	if err != nil {
		return nil, nil, withCode(exitUsage, err)
	}
	logger := logging.ConsoleLogger(conf.LogrusLogLevel())

	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, nil, withCode(exitDB, fmt.Errorf("connect db: %w", err))
	}
	rt := &runtime{closers: []func(){pool.Close}}
	if err := pool.Ping(ctx); err != nil {
		rt.close()
		return nil, nil, withCode(exitDB, fmt.Errorf("ping db: %w", err))
	}

	source, closeSource := production.NewSource(ctx, conf, logger)
	rt.closers = append(rt.closers, closeSource)
	locker, closeLocker, err := production.NewLocker(ctx, conf.Lock)
	if err != nil {
		rt.close()
		return nil, nil, withCode(exitDB, fmt.Errorf("connect lock backend: %w", err))
	}
	rt.closers = append(rt.closers, closeLocker)

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	module := production.NewModule(&production.ModuleOptions{Source: source, Locker: locker, Config: cfg})
	if err := module.Register(app); err != nil {
		rt.close()
		return nil, nil, withCode(exitFailure, err)
	}
	rt.svc = app.Service(services.PtsSyncService{}).(*services.PtsSyncService)
	rt.runs = persistence.NewSyncRunRepository()
	rt.migrate = func(ctx context.Context) error {
		return app.Migrations().Run(ctx, conf.Database.Opts)
	}

	ctx = composables.WithPool(ctx, pool)
	ctx = composables.WithLogger(ctx, logrus.NewEntry(logger))
	return ctx, rt, nil
}
