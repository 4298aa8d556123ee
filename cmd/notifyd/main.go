// Command notifyd serves the notification API and live event streams, and
// optionally consumes notification requests from Kafka.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/dmitrymomot/notifyhub/pkg/broadcast"
	"github.com/dmitrymomot/notifyhub/pkg/config"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/jwt"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/metrics"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/notifications/ingest"
	"github.com/dmitrymomot/notifyhub/pkg/notifications/sqlstore"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
	"github.com/dmitrymomot/notifyhub/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		slog.Error("notifyd stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load[appConfig]()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, serviceName),
		logger.WithConfig(cfg.Log),
		logger.WithContextExtractors(traceID),
	)
	logger.SetAsDefault(log)

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.Env)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			log.Warn("tracing shutdown failed", logger.Error(err))
		}
	}()

	db, closeDB, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	store := sqlstore.New(db)
	m := metrics.New()

	bus := broadcast.New[notifications.Notification](
		broadcast.WithLogger(log),
		broadcast.WithObserver(m),
		broadcast.WithBufferSize(cfg.BusBufferSize),
		broadcast.WithSlowConsumerTimeout(cfg.BusSlowConsumerTimeout),
	)
	defer func() { _ = bus.Close() }()

	svc := notifications.NewService(store, bus,
		notifications.WithLogger(log),
		notifications.WithRecorder(m),
	)

	tokens, err := jwt.New([]byte(cfg.JWTSecret), jwt.WithIssuer(cfg.JWTIssuer))
	if err != nil {
		return err
	}

	router := newRouter(routerDeps{
		svc:      svc,
		bus:      bus,
		tokens:   tokens,
		metrics:  m,
		log:      log,
		stream:   cfg.Stream,
		origins:  cfg.CORSAllowedOrigins,
		checks:   []httpserver.Check{{Name: "store", Check: store.Ping}},
		readyTTL: cfg.ReadinessTimeout,
	})

	server := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		// Closing the bus ends every open stream before the server waits on them.
		httpserver.WithDrainHook(func(context.Context) { _ = bus.Close() }),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx, router) })
	if cfg.Ingest.Enabled() {
		consumer := ingest.New(ingest.NewReader(cfg.Ingest), svc,
			ingest.WithLogger(log),
			ingest.WithRecorder(m),
			ingest.WithRetry(cfg.Ingest.RetryAttempts, cfg.Ingest.RetryInterval),
		)
		g.Go(func() error { return consumer.Run(ctx) })
	} else {
		log.Info("kafka ingest disabled")
	}

	return g.Wait()
}

// openStore connects to the configured database and applies migrations.
func openStore(ctx context.Context, cfg appConfig, log *slog.Logger) (*sqlx.DB, func(), error) {
	switch cfg.StoreDriver {
	case driverPostgres:
		pgCfg, err := config.Load[pg.Config]()
		if err != nil {
			return nil, nil, err
		}
		pool, err := pg.Connect(ctx, pgCfg, log)
		if err != nil {
			return nil, nil, err
		}
		db := pg.OpenDB(pool)
		if err := sqlstore.Migrate(ctx, db.DB, sqlstore.DialectPostgres, log); err != nil {
			_ = db.Close()
			pool.Close()
			return nil, nil, err
		}
		return db, func() {
			_ = db.Close()
			pool.Close()
		}, nil

	case driverSQLite:
		db, err := sqlx.Open("sqlite", cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		if err := sqlstore.Migrate(ctx, db.DB, sqlstore.DialectSQLite, log); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	}

	return nil, nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
}

// traceID tags records logged inside a sampled span.
func traceID(ctx context.Context) (slog.Attr, bool) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Attr{}, false
	}
	return slog.String("trace_id", sc.TraceID().String()), true
}
