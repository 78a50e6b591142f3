package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/pts-sync/modules"
	"github.com/iota-uz/pts-sync/modules/production"
	"github.com/iota-uz/pts-sync/modules/production/services"
	"github.com/iota-uz/pts-sync/pkg/application"
	"github.com/iota-uz/pts-sync/pkg/configuration"
	"github.com/iota-uz/pts-sync/pkg/eventbus"
	"github.com/iota-uz/pts-sync/pkg/httpapi"
	"github.com/iota-uz/pts-sync/pkg/logging"
	"github.com/iota-uz/pts-sync/pkg/metrics"
	"github.com/iota-uz/pts-sync/pkg/middleware"
	"github.com/iota-uz/pts-sync/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	cfg, err := services.NewConfig(conf.PTS, conf.Lock)
	if err != nil {
		panic(err)
	}
	source, closeSource := production.NewSource(ctx, conf, logger)
	defer closeSource()
	locker, closeLocker, err := production.NewLocker(ctx, conf.Lock)
	if err != nil {
		panic(err)
	}
	defer closeLocker()

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, production.NewModule(&production.ModuleOptions{
		Source: source,
		Locker: locker,
		Config: cfg,
	})); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if conf.MigrateOnStart {
		if err := app.Migrations().Run(ctx, conf.Database.Opts); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}
	app.RegisterMiddleware(
		middleware.WithLogger(logger),
		middleware.Provide(pool),
		middleware.ProvideUserID(),
	)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	srv := server.NewHTTPServer(app, notFound, notAllowed)
	log.Printf("Listening on: %s\n", conf.SocketAddress)
	if err := srv.Start(ctx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
