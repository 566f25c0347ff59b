// Package server initializes and runs the account server.
// It selects the storage backend, applies migrations, handles graceful
// shutdown and starts the HTTP API and the gRPC health endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/accountkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/accountkeeper/internal/server/grpc"
)

const dbConnectRetries = 5

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpapi.Server
	grpcServer *gs.GRPCServer
}

// openStorage returns the repository manager for the configured backend
// and, for postgres, the migrated database handle.
func openStorage(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	switch c.Storage {
	case config.StorageMemory:
		return nil, repomanager.NewInMemoryRepositoryManager(), nil
	case config.StoragePostgres:
		db, err := repomanager.OpenPostgres(c.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db init error: %w", err)
		}
		if err := repomanager.WaitForDB(ctx, db, dbConnectRetries); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db unreachable: %w", err)
		}
		m := repomanager.NewPostgresRepositoryManager()
		if err := m.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migration error: %w", err)
		}
		return db, m, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage %q", c.Storage)
	}
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, rm, err := openStorage(context.Background(), c)
	if err != nil {
		return nil, err
	}

	reg := metrics.NewRegistry()
	m := metrics.NewMetrics(reg)

	svc := services.NewAccountService(db, rm, c, services.WithRecorder(m))

	var pinger httpapi.Pinger
	if db != nil {
		pinger = db
	}

	hs := httpapi.NewServer(c.EndpointAddrHTTP, logger, httpapi.NewHandler(svc, logger), pinger, m, metrics.Handler(reg))
	gsrv := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, svc)

	return &App{config: c, logger: logger, db: db, httpServer: hs, grpcServer: gsrv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

type runner interface {
	Run(ctx context.Context) error
}

func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, r runner) {
	if err := r.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	for _, r := range []runner{app.httpServer, app.grpcServer} {
		wg.Add(1)
		go func(r runner) {
			defer wg.Done()
			app.start(ctx, cancelFunc, r)
		}(r)
	}

	wg.Wait()

	app.closeDBIfNeeded(ctx)
}

func (app *App) closeDBIfNeeded(ctx context.Context) {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
