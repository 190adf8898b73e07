// Package server initializes and runs the escalation engine: it opens the
// database, runs migrations, wires the services, and supervises the HTTP
// endpoint and the cron scheduler until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/lifevault/internal/logging"
	"github.com/dmitrijs2005/lifevault/internal/server/config"
	"github.com/dmitrijs2005/lifevault/internal/server/httpapi"
	"github.com/dmitrijs2005/lifevault/internal/server/notify"
	"github.com/dmitrijs2005/lifevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lifevault/internal/server/scheduler"
	"github.com/dmitrijs2005/lifevault/internal/server/services"
	"github.com/dmitrijs2005/lifevault/internal/timex"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	scheduler  *scheduler.Scheduler
	httpServer *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	clock := timex.RealClock{}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	notifier := notify.NewNotifier(cfg, logger)

	activitySvc := services.NewActivityService(db, rm, cfg, clock, logger)
	disclosureSvc := services.NewDisclosureService(db, rm, cfg, notifier, clock, logger)

	sched := scheduler.NewScheduler(db, rm, cfg, activitySvc, disclosureSvc, notifier, clock, logger)

	router := httpapi.NewRouter(cfg, activitySvc, sched, logger)
	httpServer := httpapi.NewServer(cfg, router, logger)

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		scheduler:  sched,
		httpServer: httpServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.scheduler.Start(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	app.scheduler.Stop()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
	app.logger.Info(ctx, "App stopped")
}
