package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Ramsey-B/taproot/config"
	"github.com/Ramsey-B/taproot/internal/handlers"
	recordrepo "github.com/Ramsey-B/taproot/internal/repositories/record"
	"github.com/Ramsey-B/taproot/pkg/database"
	"github.com/Ramsey-B/taproot/pkg/middleware"
	"github.com/Ramsey-B/taproot/pkg/ownership"
	"github.com/Ramsey-B/taproot/pkg/routes/health"
	"github.com/Ramsey-B/taproot/pkg/schema"
	"github.com/Ramsey-B/taproot/pkg/tracing"
	"github.com/Ramsey-B/taproot/pkg/tracing/exporters"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(cfg config.Config, logger ectologger.Logger) error {
	ctx := context.Background()

	if cfg.TracingEnabled {
		exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
			Insecure: cfg.TracingOTLPInsecure,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return err
		}
		shutdown, err := tracing.InitProvider(ctx, cfg.AppName, exporter)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword,
		cfg.DatabaseName, cfg.DatabaseSSLMode)

	sqlxDB, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return err
	}
	defer sqlxDB.Close()

	db := database.NewDatabaseInstance(sqlxDB, logger)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)

	if err := migrateDatabase(cfg, logger, sqlxDB); err != nil {
		return err
	}

	types := buildRegistry()
	engine := ownership.NewEngine(types, db, logger)
	repo := recordrepo.NewRepository(db, engine, types, logger)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(
		echomiddleware.Recover(),
		echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: cfg.AllowMethods,
		}),
		middleware.Context(),
		middleware.Logger(logger),
	)

	checker := health.NewChecker(db, version)
	checker.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	handlers.NewRecordHandler(repo, engine, types, logger).RegisterRoutes(api)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:    time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:    time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		checker.SetReady(true)
		logger.WithFields(map[string]any{"port": cfg.Port, "app": cfg.AppName}).Info("starting server")
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.WithFields(map[string]any{"signal": sig.String()}).Info("shutting down")
	}

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) (ectologger.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = level
	}
	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

func migrateDatabase(cfg config.Config, logger ectologger.Logger, sqlxDB *sqlx.DB) error {
	driver, err := postgres.WithInstance(sqlxDB.DB, &postgres.Config{})
	if err != nil {
		return err
	}
	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})
	return ms.Migrate(cfg.DatabaseName, driver)
}

// buildRegistry declares the record types the engine serves. Accounts own
// folders and tags directly; items reach their account through their folder.
func buildRegistry() *schema.Registry {
	accounts := schema.NewType("accounts", "accounts",
		[]string{"id", "name", "email"}, []string{"id"}).
		WithProvider(schema.NewActorSession())

	folders := schema.NewType("folders", "folders",
		[]string{"id", "account_id", "name"}, []string{"id"}).
		BelongsTo("account", "accounts", schema.KeyPair{ForeignKey: "account_id", BindingKey: "id"}).
		OwnedBy("accounts", "account")

	items := schema.NewType("items", "items",
		[]string{"id", "folder_id", "name"}, []string{"id"}).
		BelongsTo("folder", "folders", schema.KeyPair{ForeignKey: "folder_id", BindingKey: "id"}).
		BelongsToMany("tags", "tags", "items_tags",
			[]schema.KeyPair{{ForeignKey: "item_id", BindingKey: "id"}},
			[]schema.KeyPair{{ForeignKey: "tag_id", BindingKey: "id"}}).
		OwnedBy("accounts", "folder")

	tags := schema.NewType("tags", "tags",
		[]string{"id", "account_id", "label"}, []string{"id"}).
		BelongsTo("account", "accounts", schema.KeyPair{ForeignKey: "account_id", BindingKey: "id"}).
		BelongsToMany("items", "items", "items_tags",
			[]schema.KeyPair{{ForeignKey: "tag_id", BindingKey: "id"}},
			[]schema.KeyPair{{ForeignKey: "item_id", BindingKey: "id"}}).
		OwnedBy("accounts", "account")

	return schema.NewRegistry().
		MustRegister(accounts).
		MustRegister(folders).
		MustRegister(items).
		MustRegister(tags)
}
