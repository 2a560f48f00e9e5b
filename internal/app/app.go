// -----------------------------------------------------------------------
// App - Component wiring and lifecycle
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/analyzers"
	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/handlers"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/jobs"
	"github.com/ternarybob/scrutor/internal/storage/badger"
	"github.com/ternarybob/scrutor/internal/storage/files"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	ctx       context.Context
	cancelCtx context.CancelFunc

	StorageManager interfaces.StorageManager
	Attachments    interfaces.AttachmentStore

	Registry   *analyzers.Service
	JobService *jobs.Service
	Facade     *jobs.Facade
	Pool       *jobs.WorkerPool
	Scanner    *jobs.Scanner

	cron *cron.Cron

	JobHandler      *handlers.JobHandler
	AnalyzerHandler *handlers.AnalyzerHandler
	StatusHandler   *handlers.StatusHandler
}

// New wires the application together and loads the registries. The worker
// pool and sweep scheduler are not running yet; call Start.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	storageManager, err := badger.NewManager(&config.Storage.Badger, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	attachments, err := files.NewAttachmentStore(config.Storage.Filesystem.Attachments, logger)
	if err != nil {
		storageManager.Close()
		cancel()
		return nil, fmt.Errorf("failed to initialize attachment store: %w", err)
	}

	if err := badger.LoadAnalyzersFromFiles(ctx, storageManager.Analyzers(), config.Analyzers.DefinitionsDir, logger); err != nil {
		storageManager.Close()
		cancel()
		return nil, fmt.Errorf("failed to load analyzer definitions: %w", err)
	}
	if err := badger.LoadUsersFromFile(ctx, storageManager.Users(), config.Auth.UsersFile, logger); err != nil {
		storageManager.Close()
		cancel()
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	cacheTTL, err := config.CacheTTL()
	if err != nil {
		storageManager.Close()
		cancel()
		return nil, err
	}
	timeout, err := config.AnalyzerTimeout()
	if err != nil {
		storageManager.Close()
		cancel()
		return nil, err
	}
	staleAfter, err := config.StaleAfter()
	if err != nil {
		storageManager.Close()
		cancel()
		return nil, err
	}

	registry := analyzers.NewService(storageManager.Analyzers(), logger)
	runner := analyzers.NewShellRunner(logger)
	inputs := analyzers.NewInputBuilder(attachments, logger)

	admission := jobs.NewAdmissionController(storageManager.Jobs(), cacheTTL, logger)
	ingestor := jobs.NewIngestor(storageManager.Reports(), logger)
	pool := jobs.NewWorkerPool(config.Analyzers.Concurrency, config.Analyzers.QueueSize, logger)

	jobService := jobs.NewService(
		storageManager.Jobs(),
		registry,
		runner,
		inputs,
		admission,
		ingestor,
		pool,
		timeout,
		logger,
	)
	facade := jobs.NewFacade(storageManager.Jobs(), storageManager.Reports(), logger)
	scanner := jobs.NewScanner(storageManager.Jobs(), jobService, staleAfter, logger)

	a := &App{
		Config:         config,
		Logger:         logger,
		ctx:            ctx,
		cancelCtx:      cancel,
		StorageManager: storageManager,
		Attachments:    attachments,
		Registry:       registry,
		JobService:     jobService,
		Facade:         facade,
		Pool:           pool,
		Scanner:        scanner,
		cron:           cron.New(),
	}

	a.JobHandler = handlers.NewJobHandler(jobService, facade, attachments, logger)
	a.AnalyzerHandler = handlers.NewAnalyzerHandler(registry, logger)
	a.StatusHandler = handlers.NewStatusHandler(pool, logger)

	return a, nil
}

// Start launches the worker pool, runs startup recovery and schedules
// the stale-job sweep.
func (a *App) Start() error {
	a.Pool.Start(a.ctx)

	if err := a.Scanner.RecoverOnStartup(a.ctx); err != nil {
		return fmt.Errorf("startup recovery failed: %w", err)
	}

	if schedule := a.Config.Jobs.SweepSchedule; schedule != "" {
		_, err := a.cron.AddFunc(schedule, func() {
			if err := a.Scanner.SweepStale(a.ctx); err != nil {
				a.Logger.Warn().Err(err).Msg("Stale job sweep failed")
			}
		})
		if err != nil {
			return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
		}
		a.cron.Start()
		a.Logger.Info().Str("schedule", schedule).Msg("Stale job sweep scheduled")
	}

	return nil
}

// Shutdown stops the scheduler and workers and closes storage
func (a *App) Shutdown() error {
	a.Logger.Info().Msg("Shutting down application...")

	cronCtx := a.cron.Stop()
	<-cronCtx.Done()

	a.Pool.Stop()
	a.cancelCtx()

	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}
