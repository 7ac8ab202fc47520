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
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/functioncategory"
	"github.com/Ramsey-B/fern/internal/repositories/relationship"
	"github.com/Ramsey-B/fern/internal/repositories/role"
	"github.com/Ramsey-B/fern/internal/repositories/roletag"
	"github.com/Ramsey-B/fern/pkg/cache"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/dictsync"
	"github.com/Ramsey-B/fern/pkg/events"
	graphpkg "github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/graphview"
	"github.com/Ramsey-B/fern/pkg/hierarchy"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/raci"
	dictsyncroutes "github.com/Ramsey-B/fern/pkg/routes/dictsync"
	functioncategoryroutes "github.com/Ramsey-B/fern/pkg/routes/functioncategory"
	graphviewroutes "github.com/Ramsey-B/fern/pkg/routes/graphview"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/routes/hierarchyimport"
	mirrorroutes "github.com/Ramsey-B/fern/pkg/routes/mirror"
	raciroutes "github.com/Ramsey-B/fern/pkg/routes/raci"
	relationshiproutes "github.com/Ramsey-B/fern/pkg/routes/relationship"
	roleroutes "github.com/Ramsey-B/fern/pkg/routes/role"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.Config{}
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("service exited with error")
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, _ = zap.NewDevelopment()
	} else {
		zapLogger, _ = zap.NewProduction()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func run(ctx context.Context, cfg config.Config, logger ectologger.Logger) error {
	if cfg.TracingEnabled {
		shutdown, err := setupTracing(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		defer shutdown(context.Background())
	}

	db, err := database.Connect(ctx, database.ConnectConfig{
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	dbInstance, ok := db.(*database.DatabaseInstance)
	if !ok {
		return fmt.Errorf("unexpected database instance type")
	}

	driver, err := migratepg.WithInstance(dbInstance.DB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	roleRepo := role.NewRepository(db, logger)
	relationshipRepo := relationship.NewRepository(db, logger)
	categoryRepo := functioncategory.NewRepository(db, logger)
	tagRepo := roletag.NewRepository(db, logger)

	var viewCache *cache.Cache
	if cfg.RedisEnabled {
		viewCache, err = cache.New(cache.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.GraphCacheTTL,
		}, logger)
		if err != nil {
			return err
		}
		defer viewCache.Close()
	}

	var mirror *graphpkg.Mirror
	if cfg.GraphDBEnabled {
		graphClient, err := graphpkg.NewClient(graphpkg.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			return err
		}
		defer graphClient.Close(context.Background())

		if err := graphClient.VerifyConnectivity(ctx); err != nil {
			return fmt.Errorf("graph database unreachable: %w", err)
		}
		mirror = graphpkg.NewMirror(graphClient, logger)
	}

	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaOutputTopic != "" {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
	}
	emitter := events.NewEmitter(producer, logger)

	views := graphview.NewService(roleRepo, relationshipRepo, tagRepo, viewCache, logger)
	importer := hierarchy.NewImporter(roleRepo, relationshipRepo, categoryRepo, tagRepo, logger)
	adjudicator := raci.NewAdjudicator(roleRepo, logger)
	syncService := dictsync.NewService(roleRepo, categoryRepo, logger)

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled && len(cfg.KafkaBrokers) > 0 {
		ingestor := events.NewMentionIngestor(roleRepo, logger)
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaMentionsTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, ingestor.Handle)
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start mention consumer: %w", err)
		}
		defer consumer.Stop()
	}

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}
	if err := registerDependencies(container, roleRepo, relationshipRepo, categoryRepo, tagRepo,
		views, importer, adjudicator, syncService, emitter, mirror); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var cachePinger health.Pinger
	if viewCache != nil {
		cachePinger = viewCache
	}
	var consumerHealth interface{ Health() bool }
	if consumer != nil {
		consumerHealth = consumer
	}
	checker := health.NewChecker(dbInstance.DB, cachePinger, consumerHealth, version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	roleroutes.Register(api.Group("/roles"))
	relationshiproutes.Register(api.Group("/relationships"))
	functioncategoryroutes.Register(api.Group("/categories"))
	hierarchyimport.Register(api.Group("/import"))
	graphviewroutes.Register(api.Group("/views"))
	raciroutes.Register(api.Group("/raci"))
	dictsyncroutes.Register(api.Group("/sync"))
	mirrorroutes.NewHandler(mirror, logger).Register(api.Group("/mirror"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("%s listening on port %d", cfg.AppName, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	checker.SetReady(true)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	checker.SetReady(false)
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func registerDependencies(
	container ectocontainer.DIContainer,
	roleRepo *role.Repository,
	relationshipRepo *relationship.Repository,
	categoryRepo *functioncategory.Repository,
	tagRepo *roletag.Repository,
	views *graphview.Service,
	importer *hierarchy.Importer,
	adjudicator *raci.Adjudicator,
	syncService *dictsync.Service,
	emitter *events.Emitter,
	mirror *graphpkg.Mirror,
) error {
	if err := ectoinject.RegisterInstance[role.RoleRepository](container, roleRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[relationship.RelationshipRepository](container, relationshipRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[functioncategory.FunctionCategoryRepository](container, categoryRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[roletag.RoleTagRepository](container, tagRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*graphview.Service](container, views); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*hierarchy.Importer](container, importer); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*raci.Adjudicator](container, adjudicator); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*dictsync.Service](container, syncService); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*events.Emitter](container, emitter); err != nil {
		return err
	}
	if mirror != nil {
		if err := ectoinject.RegisterInstance[*graphpkg.Mirror](container, mirror); err != nil {
			return err
		}
	}
	return nil
}

func setupTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.TracingOTLPEndpoint,
		Insecure: cfg.TracingInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewSchemaless(
			attribute.String("service.name", cfg.AppName),
			attribute.String("service.version", version),
		)),
	)

	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return tp.Shutdown, nil
}
