// Package server wires the docusigner server together: database and
// migrations, artifact storage, fonts and stamper, services, the REST API
// and the gRPC health endpoint. It handles graceful shutdown on signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/docusigner/internal/fonts"
	"github.com/dmitrijs2005/docusigner/internal/logging"
	"github.com/dmitrijs2005/docusigner/internal/pdfstamp"
	"github.com/dmitrijs2005/docusigner/internal/server/api"
	"github.com/dmitrijs2005/docusigner/internal/server/config"
	"github.com/dmitrijs2005/docusigner/internal/server/notify"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docusigner/internal/server/services"
	"github.com/dmitrijs2005/docusigner/internal/server/storage"

	gs "github.com/dmitrijs2005/docusigner/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *api.Server
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogBackend)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	st, err := storage.New(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	registry, err := fonts.NewRegistry(ctx, c.FontsDir, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("fonts init error: %w", err)
	}

	stamper := pdfstamp.NewStamper(registry)
	mailer := notify.New(c, logger)

	ds := services.NewDocumentService(db, rm, st, logger)
	ss := services.NewSigningService(db, rm, st, stamper, logger)
	is := services.NewInviteService(db, rm, c, mailer, logger)

	router := api.NewRouter(logger, c.SecretKey, ds, ss, is)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		httpServer: api.NewServer(c.EndpointAddrHTTP, router, logger),
		grpcServer: gs.NewGRPCServer(c.EndpointAddrGRPC, logger, db.PingContext),
	}, nil
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	go func() {
		select {
		case <-app.httpServer.Ready():
			app.grpcServer.SetServing(true)
		case <-ctx.Done():
			return
		}
		<-ctx.Done()
		app.grpcServer.SetServing(false)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
	app.logger.Info(context.Background(), "Stopped")
}
