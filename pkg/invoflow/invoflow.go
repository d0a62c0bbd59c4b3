package invoflow

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/invoflow/invoflow/internal/actions"
	"github.com/invoflow/invoflow/internal/config"
	"github.com/invoflow/invoflow/internal/controllers"
	"github.com/invoflow/invoflow/internal/engine"
	"github.com/invoflow/invoflow/internal/migrations"
	"github.com/invoflow/invoflow/internal/repository"
	"github.com/invoflow/invoflow/pkg/invoflow/core"
	"github.com/invoflow/invoflow/pkg/invoflow/models"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	_ "github.com/go-sql-driver/mysql"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Options holds the collaborators the host application plugs into the
// engine. EmailSender and StatusUpdater are required; Mux is optional and
// lets the host mount its own routes next to the engine's API.
type Options struct {
	EmailSender   core.EmailSender
	StatusUpdater core.StatusUpdater
	Mux           *http.ServeMux
}

// Start boots the workflow engine and HTTP server. It blocks until ctx is
// cancelled or the HTTP server stops.
func Start(ctx context.Context, opts Options) error {
	if opts.EmailSender == nil {
		panic("invoflow: Options.EmailSender is required")
	}
	if opts.StatusUpdater == nil {
		panic("invoflow: Options.StatusUpdater is required")
	}

	databaseType := config.GetSystemSettingString(config.DATABASE_TYPE)
	if databaseType == "" || (databaseType != config.DATABASE_TYPE_POSTGRES && databaseType != config.DATABASE_TYPE_MYSQL && databaseType != config.DATABASE_TYPE_SQLLITE) {
		panic("INVOFLOW_DATABASE_TYPE must be set to one of the following values: POSTGRES, MYSQL, SQLLITE")
	}

	var db *sql.DB
	if databaseType == config.DATABASE_TYPE_POSTGRES {
		db = setupPostgresDatabase()
		defer db.Close()
	}
	if databaseType == config.DATABASE_TYPE_SQLLITE {
		db = setupSqlLiteDatabase()
		defer db.Close()
	}
	if databaseType == config.DATABASE_TYPE_MYSQL {
		db = setupMysqlDatabase()
		defer db.Close()
	}

	clock := core.NewRealClock()
	executionRepo := repository.NewExecutionRepository(db, clock)
	executionActionRepo := repository.NewExecutionActionRepository(db, clock)
	executorRepo := repository.NewExecutorRepository(db, clock)
	definitionRepo := repository.NewDefinitionRepository(db, clock)
	notificationRepo := repository.NewNotificationRepository(db, clock)
	emailReceiptRepo := repository.NewEmailReceiptRepository(db, clock)

	registry := actions.NewRegistry(
		actions.NewSendEmailHandler(opts.EmailSender, emailReceiptRepo),
		actions.NewWaitHandler(),
		actions.NewUpdateStatusHandler(opts.StatusUpdater),
		actions.NewNotifyHandler(notificationRepo),
	)

	retry := models.RetryConfig{
		MaxRetryCount:    config.GetSystemSettingInteger(config.ENGINE_MAX_RETRY_COUNT),
		RetryIntervalMin: mustParseDuration(config.GetSystemSettingString(config.ENGINE_RETRY_INTERVAL_MIN)),
		RetryIntervalMax: mustParseDuration(config.GetSystemSettingString(config.ENGINE_RETRY_INTERVAL_MAX)),
	}

	scheduler := engine.NewScheduler(executionRepo, executionActionRepo, executorRepo, definitionRepo, clock)
	dispatcher := engine.NewDispatcher(definitionRepo, executionRepo, executionActionRepo, clock,
		config.GetSystemSettingString(config.ENGINE_EXECUTOR_GROUP), scheduler.Wakeup)

	mux := opts.Mux
	if mux == nil {
		mux = http.NewServeMux()
	}
	definitionsController := controllers.NewDefinitionsController(definitionRepo, clock)
	definitionsController.RegisterRoutes(mux)
	eventsController := controllers.NewEventsController(dispatcher)
	eventsController.RegisterRoutes(mux)
	executionsController := controllers.NewExecutionsController(executionRepo, executionActionRepo, scheduler)
	executionsController.RegisterRoutes(mux)
	notificationsController := controllers.NewNotificationsController(notificationRepo)
	notificationsController.RegisterRoutes(mux)

	pollInterval := mustParseDuration(config.GetSystemSettingString(config.ENGINE_CHECK_DB_INTERVAL))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.StartEngine(ctx, pollInterval, registry, retry)
		return nil
	})
	g.Go(func() error {
		addr := ":" + config.GetSystemSettingString(config.ENGINE_SERVER_WEB_PORT)
		if v := os.Getenv("HTTP_ADDR"); v != "" {
			addr = v
		}
		server := &http.Server{Addr: addr, Handler: mux}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		slog.Info("Starting HTTP server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			return err
		}
		return nil
	})
	return g.Wait()
}

func setupPostgresDatabase() *sql.DB {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		panic("INVOFLOW_DATABASE_URL must be set when using the POSTGRES database type")
	}
	slog.Info("Using Postgres database", "url", dbURL)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("postgres", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening Postgres database")
	dbPostgres, err := sql.Open("postgres", dbURL)
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbPostgres
}

func setupSqlLiteDatabase() *sql.DB {
	fileName := config.GetSystemSettingString(config.DATABASE_SQLLITE_FILE_NAME)
	if fileName == "" {
		panic("INVOFLOW_DATABASE_SQLLITE_FILE_NAME must be set")
	}
	dbURL := "sqlite3://" + fileName
	slog.Info("Using SQLite database", "file", fileName)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("sqllite3", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening SQLite database")
	dbSqlLite, err := sql.Open("sqlite3", fileName)
	if err != nil {
		log.Fatalf("Failed to open SQLite DB: %v", err)
	}
	if err := dbSqlLite.Ping(); err != nil {
		log.Fatalf("Failed to ping SQLite DB: %v", err)
	}
	return dbSqlLite
}

func setupMysqlDatabase() *sql.DB {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		panic("INVOFLOW_DATABASE_URL must be set when using the MYSQL database type")
	}
	if !strings.Contains(dbURL, "parseTime=true") {
		panic("INVOFLOW_DATABASE_URL must contain 'parseTime=true' for MySQL")
	}
	if !strings.HasPrefix(dbURL, "mysql://") {
		panic("INVOFLOW_DATABASE_URL must start with 'mysql://' for MySQL")
	}

	slog.Info("Using MySQL database", "url", dbURL)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("mysql", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening MySQL database")
	dbMysql, err := sql.Open("mysql", strings.Replace(dbURL, "mysql://", "", 1))
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbMysql
}

func runMigrationsFromEmbed(migrationsPath string, dbURL string) error {
	sub, err := fs.Sub(migrations.FS, migrationsPath)
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func mustParseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic("invalid duration setting: " + s)
	}
	return d
}

func SetupLogger() {
	w := os.Stderr
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}
