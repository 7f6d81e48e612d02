// Package server wires configuration, storage, services and transports into
// the evidence server and runs it until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/cryptox"
	"github.com/dmitrijs2005/evidencevault/internal/logging"
	"github.com/dmitrijs2005/evidencevault/internal/server/config"
	"github.com/dmitrijs2005/evidencevault/internal/server/contentstore"
	"github.com/dmitrijs2005/evidencevault/internal/server/httpapi"
	"github.com/dmitrijs2005/evidencevault/internal/server/metrics"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
	"github.com/dmitrijs2005/evidencevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/evidencevault/internal/server/services"
	"github.com/dmitrijs2005/evidencevault/internal/server/sweep"

	gs "github.com/dmitrijs2005/evidencevault/internal/server/grpc"
)

var sqlOpen = sql.Open

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	metrics    *metrics.Metrics
	evidence   *services.EvidenceService
	reconciler *sweep.Reconciler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(c.LogBackend, os.Stdout)
	if err != nil {
		return nil, err
	}

	key, err := cryptox.ParseKey(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	db, manager, err := openRepositories(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	backend, err := newBackend(ctx, c)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("content store init error: %w", err)
	}

	store, err := contentstore.New(backend, key, logger)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	m := metrics.New()
	es := services.NewEvidenceService(db, manager, store, m, logger, c.MaxUploadBytes)
	rc := sweep.NewReconciler(store, es.Ledger(), m, logger)

	logger.Info(ctx, "App initialized",
		"storage_backend", c.StorageBackend,
		"key_fingerprint", cryptox.KeyFingerprint(key),
		"in_memory_db", db == nil,
	)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		metrics:    m,
		evidence:   es,
		reconciler: rc,
	}, nil
}

func openRepositories(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == config.MemoryDSN {
		m := repomanager.NewMemoryRepositoryManager()
		if err := seedCases(ctx, m, c.MemorySeedCases); err != nil {
			return nil, nil, err
		}
		return nil, m, nil
	}

	db, err := sqlOpen("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		closeDB(db)
		return nil, nil, err
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return db, m, nil
}

// seedCases creates one case per title, numbered from 1 in order.
func seedCases(ctx context.Context, m repomanager.RepositoryManager, titles []string) error {
	repo := m.Cases(nil)
	for _, title := range titles {
		if err := repo.Create(ctx, &models.Case{Title: title, CreatedAt: time.Now().UTC()}); err != nil {
			return fmt.Errorf("seed case %q: %w", title, err)
		}
	}
	return nil
}

func newBackend(ctx context.Context, c *config.Config) (contentstore.Backend, error) {
	if c.StorageBackend == config.StorageBackendS3 {
		return contentstore.NewS3Backend(ctx, contentstore.S3Config{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			Prefix:       c.S3Prefix,
		})
	}
	return contentstore.NewFSBackend(c.StorageRoot)
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}

// health pings the database. The in-memory store is always healthy.
func (app *App) health(ctx context.Context) error {
	if app.db == nil {
		return nil
	}
	return app.db.PingContext(ctx)
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
	s, err := httpapi.NewServer(app.evidence, app.metrics, app.logger, httpapi.Options{
		Address:         app.config.EndpointAddrHTTP,
		Secret:          []byte(app.config.SecretKey),
		MaxUploadBytes:  app.config.MaxUploadBytes,
		RateLimitRPS:    app.config.RateLimitRPS,
		RateLimitBurst:  app.config.RateLimitBurst,
		ShutdownTimeout: app.config.ShutdownTimeout,
		Health:          app.health,
	})
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.health)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run starts the HTTP API, the gRPC health service and the sweep scheduler
// and blocks until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	scheduler := sweep.NewScheduler(app.reconciler, app.config.SweepSchedule, app.logger)
	if err := scheduler.Start(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}

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

	wg.Wait()
	scheduler.Stop()
	app.Close()

	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the database connection and flushes buffered logs.
func (app *App) Close() {
	closeDB(app.db)
	if s, ok := app.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}
