package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	appconfig "github.com/cararth/marigold/config"
	"github.com/cararth/marigold/internal/repositories/dedupresult"
	"github.com/cararth/marigold/internal/repositories/listingcache"
	"github.com/cararth/marigold/pkg/cache"
	"github.com/cararth/marigold/pkg/candidates"
	"github.com/cararth/marigold/pkg/database"
	dedupengine "github.com/cararth/marigold/pkg/dedup"
	"github.com/cararth/marigold/pkg/events"
	"github.com/cararth/marigold/pkg/httpclient"
	"github.com/cararth/marigold/pkg/judges"
	"github.com/cararth/marigold/pkg/kafka"
	"github.com/cararth/marigold/pkg/logging"
	"github.com/cararth/marigold/pkg/middleware"
	"github.com/cararth/marigold/pkg/processor"
	"github.com/cararth/marigold/pkg/redis"
	deduproutes "github.com/cararth/marigold/pkg/routes/dedup"
	"github.com/cararth/marigold/pkg/routes/health"
	"github.com/cararth/marigold/pkg/routes/maintenance"
	"github.com/cararth/marigold/pkg/routes/search"
	"github.com/cararth/marigold/pkg/startup"
	"github.com/cararth/marigold/pkg/tracing"
)

const version = "1.0.0"

func main() {
	// Missing .env is fine in deployed environments
	_ = godotenv.Load()

	var cfg appconfig.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, flushLogs, err := logging.New(cfg.AppName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer flushLogs()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.AppName,
		Endpoint:    cfg.TracingEndpoint,
		Protocol:    cfg.TracingProtocol,
		Insecure:    cfg.TracingInsecure,
		SampleRatio: cfg.TracingSampleRate,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		os.Exit(1)
	}

	var (
		db          database.DB
		redisClient *redis.Client
		consumer    *kafka.Consumer
		producer    *kafka.Producer
		server      *echo.Echo
		checker     *health.Checker
	)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	boot.AddDependency(startup.Func("database", nil,
		func(ctx context.Context) error {
			port, err := strconv.Atoi(cfg.DatabasePort)
			if err != nil {
				return fmt.Errorf("invalid DB_PORT %q: %w", cfg.DatabasePort, err)
			}
			db, err = database.Connect(ctx, database.ConnectionConfig{
				Host:            cfg.DatabaseHost,
				Port:            port,
				User:            cfg.DatabaseUserName,
				Password:        cfg.DatabasePassword,
				Name:            cfg.DatabaseName,
				SSLMode:         cfg.DatabaseSSLMode,
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, logger)
			return err
		},
		func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
	))

	boot.AddDependency(startup.Func("migrations", []string{"database"},
		func(ctx context.Context) error {
			return database.NewMigrationService(logger, cfg.DatabaseMigrationFolderPath).Migrate(cfg.DatabaseName, db)
		},
		nil,
	))

	boot.AddDependency(startup.Func("redis", nil,
		func(ctx context.Context) error {
			if !cfg.RedisEnabled {
				return nil
			}
			var err error
			redisClient, err = redis.NewClient(redis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			return err
		},
		func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Close()
		},
	))

	boot.AddDependency(startup.Func("server", []string{"database", "migrations", "redis"},
		func(ctx context.Context) error {
			listingRepo := listingcache.NewRepository(db, logger)
			ledger := dedupresult.NewRepository(db, logger)

			orchestrator := cache.NewOrchestrator(listingRepo, cache.Config{
				Tier1TTL:    cfg.Tier1TTL,
				Tier2TTL:    cfg.Tier2TTL,
				Tier1Max:    cfg.Tier1MaxEntries,
				SearchLimit: cfg.SearchLimit,
			}, logger)

			httpClient := httpclient.NewClient(httpclient.DefaultConfig(), logger)
			retriever := candidates.NewHTTPRetriever(cfg.ScrapeServiceURL, httpClient, logger)

			var limiter *redis.RateLimiter
			if redisClient != nil {
				limiter = redis.NewRateLimiter(redisClient, "judge_quota")
			}
			panel := make([]judges.Judge, 0, len(cfg.Judges()))
			for _, spec := range cfg.Judges() {
				panel = append(panel, judges.NewLLMJudge(judges.LLMJudgeConfig{
					Name:        spec.Name,
					Endpoint:    spec.Endpoint,
					Model:       spec.Model,
					APIKey:      spec.APIKey,
					MaxTokens:   cfg.JudgeMaxTokens,
					QuotaLimit:  cfg.JudgeQuotaLimit,
					QuotaWindow: cfg.JudgeQuotaWindow,
				}, httpClient, limiter, logger))
			}

			engine := dedupengine.NewEngine(dedupengine.Config{
				Platforms:          cfg.DedupPlatforms,
				ConsensusThreshold: cfg.DedupConsensusThreshold,
				MaxCandidates:      cfg.DedupMaxCandidates,
				JudgeTimeout:       cfg.DedupJudgeTimeout,
				PlatformTimeout:    cfg.DedupPlatformTimeout,
			}, retriever, panel, ledger, logger)

			var emitter *events.Emitter
			if cfg.KafkaProducerEnabled {
				producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				emitter = events.NewEmitter(producer, logger)
			}

			if cfg.KafkaConsumerEnabled {
				proc := processor.NewProcessor(processor.Config{AutoResolve: cfg.DedupAutoResolve}, logger, listingRepo, engine, emitter)
				consumer = kafka.NewConsumer(kafka.ConsumerConfig{
					Brokers:       cfg.KafkaBrokers,
					Topic:         cfg.KafkaInputTopic,
					ConsumerGroup: cfg.KafkaConsumerGroup,
				}, logger, proc.HandleMessage)
				if err := consumer.Start(ctx); err != nil {
					return err
				}
			}

			server = echo.New()
			server.HideBanner = true
			server.HTTPErrorHandler = middleware.Error(logger)
			server.Use(middleware.Context())
			server.Use(middleware.Logger(logger))
			server.Use(otelecho.Middleware(cfg.AppName))
			server.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
				AllowOrigins: cfg.AllowOrigins,
				AllowMethods: cfg.AllowMethods,
			}))

			server.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

			checker = health.NewChecker(db, redisClient, version)
			checker.RegisterRoutes(server)

			api := server.Group("/api/v1")
			search.NewHandler(orchestrator, logger).Register(api)
			deduproutes.NewHandler(engine).Register(api)
			maintenance.NewHandler(orchestrator, ledger, cfg.DedupLedgerRetention, logger).Register(api)

			server.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
			server.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
			server.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
			server.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
			server.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

			go func() {
				if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server failed")
					os.Exit(1)
				}
			}()
			checker.SetReady(true)
			return nil
		},
		func(ctx context.Context) error {
			if checker != nil {
				checker.SetReady(false)
			}
			if consumer != nil {
				if err := consumer.Stop(); err != nil {
					logger.WithError(err).Error("Failed to stop Kafka consumer")
				}
			}
			if producer != nil {
				if err := producer.Close(); err != nil {
					logger.WithError(err).Error("Failed to close Kafka producer")
				}
			}
			if server != nil {
				return server.Shutdown(ctx)
			}
			return nil
		},
	))

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}
	logger.WithField("port", cfg.Port).Infof("%s listening on :%d", cfg.AppName, cfg.Port)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := boot.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
	}
	if err := shutdownTracing(stopCtx); err != nil {
		logger.WithError(err).Error("Tracer shutdown failed")
	}
}
