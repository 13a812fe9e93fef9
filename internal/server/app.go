// Package server initializes and runs the slotkeeper server: it opens the
// database, applies migrations, picks the config blob backend and serves the
// HTTP API until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/slotkeeper/internal/dbx"
	"github.com/dmitrijs2005/slotkeeper/internal/logging"
	"github.com/dmitrijs2005/slotkeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/slotkeeper/internal/server/config"
	"github.com/dmitrijs2005/slotkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/slotkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/slotkeeper/internal/server/rest"
	"github.com/dmitrijs2005/slotkeeper/internal/server/services"
)

const metricsNamespace = "slotkeeper"

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	closers []func() error
	limiter *rest.LimiterStore
	server  *rest.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, parseLevel(c.LogLevel))

	db, err := sql.Open(repomanager.DriverName, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: c, logger: logger, db: db}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = app.close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	blobs, closer, err := newBlobStore(ctx, c)
	if err != nil {
		_ = app.close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mc, err := metrics.NewPrometheus(reg, metricsNamespace)
	if err != nil {
		_ = app.close()
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	runner := dbx.NewSQLRunner(db, nil)
	cs := services.NewCredentialService(runner, rm, c, logger, mc)
	ls := services.NewLeaseService(runner, rm, blobs, c, logger, mc)
	cl := services.NewClientService(runner, rm, logger)

	h := rest.NewHandler(cs, ls, cl, rest.DefaultValidators(), logger, c.TrustXForwardedFor)
	app.limiter = rest.NewLimiterStore(c.RegisterRPS, c.RegisterBurst)
	router := rest.NewRouter(h, app.limiter, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	app.server = rest.NewServer(c.EndpointAddrHTTP, router, logger, c.ShutdownTimeout)

	return app, nil
}

// newBlobStore builds the backend named by c.BlobBackend. The returned
// closer, when not nil, releases the backend's connections.
func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, func() error, error) {
	switch c.BlobBackend {
	case config.BlobBackendFS, "":
		s, err := blobstore.NewFSStore(c.BlobDir)
		return s, nil, err
	case config.BlobBackendS3:
		s, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			User:     c.S3RootUser,
			Password: c.S3RootPassword,
			Bucket:   c.S3Bucket,
			Region:   c.S3Region,
			Endpoint: c.S3BaseEndpoint,
			Prefix:   c.S3Prefix,
		})
		return s, nil, err
	case config.BlobBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		return blobstore.NewRedisStore(rdb, c.RedisPrefix), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the database and the blob backend.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	app.limiter.StartJanitor(ctx)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.close(); err != nil {
		app.logger.Error(ctx, "shutdown error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close() error {
	var errs []error
	for _, c := range app.closers {
		errs = append(errs, c())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}
