package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-admin-gateway/config"
	httpHandler "course-admin-gateway/internal/adapter/http/handler"
	pgStorage "course-admin-gateway/internal/adapter/storage/postgres"
	redisStorage "course-admin-gateway/internal/adapter/storage/redis"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/internal/monitoring"
	"course-admin-gateway/internal/service"
	"course-admin-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret is required (ELA_JWT_SECRET)")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("partner", cfg.Webhook.PartnerName).
		Msg("Starting course admin gateway")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := pgStorage.MigrateUp(cfg.Database.DSN(), log); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close() //nolint:errcheck

	metrics := monitoring.New()

	// Initialize repositories
	webhookConfigRepo := pgStorage.NewWebhookConfigRepo(pool)
	webhookLogRepo := pgStorage.NewWebhookLogRepo(pool)
	enrollmentRepo := pgStorage.NewEnrollmentRepo(pool)
	profileRepo := pgStorage.NewProfileRepo(pool)
	identityRepo := pgStorage.NewIdentityRepo(pool)
	mappingRepo := pgStorage.NewProductMappingRepo(pool)
	courseRepo := pgStorage.NewCourseRepo(pool)
	topicRepo := pgStorage.NewTopicRepo(pool)
	questionRepo := pgStorage.NewQuestionRepo()
	apiKeyRepo := pgStorage.NewAPIKeyRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	var apiLogRepo ports.APILogRepository
	if cfg.Gateway.AccessLogEnabled {
		apiLogRepo = pgStorage.NewAPILogRepo(pool)
	}

	// Initialize Redis stores
	keyCache := redisStorage.NewAPIKeyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Outbound delivery; per-attempt timeouts come from each config.
	senderSvc := service.NewSenderService(
		webhookConfigRepo,
		webhookLogRepo,
		sigSvc,
		&http.Client{},
		cfg.Webhook.DefaultTimeout,
		metrics,
		logger.Component(log, "sender"),
	)
	// The worker outlives the signal context so Close can drain the queue.
	publisher := service.NewEventPublisher(senderSvc, cfg.Webhook.PublisherBuffer, metrics, logger.Component(log, "publisher"))
	publisher.Start(context.Background())

	// Initialize business services
	userSvc := service.NewUserService(profileRepo, identityRepo, hashSvc, tokenSvc, transactor, cfg.Users.DefaultPassword, logger.Component(log, "users"))
	reconciler := service.NewEnrollmentReconciler(mappingRepo, enrollmentRepo, userSvc, transactor, publisher, logger.Component(log, "reconciler"))
	receiverSvc := service.NewReceiverService(webhookConfigRepo, webhookLogRepo, sigSvc, reconciler, cfg.Webhook.PartnerName, metrics, logger.Component(log, "receiver"))
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo)
	topicSvc := service.NewTopicService(courseRepo, topicRepo, questionRepo, transactor, logger.Component(log, "topics"))
	apiKeySvc := service.NewAPIKeyService(apiKeyRepo, keyCache, cfg.Gateway.KeyCacheTTL, metrics, logger.Component(log, "apikeys"))
	accessLogSvc := service.NewAccessLogService(apiLogRepo, logger.Component(log, "access_log"))
	webhookAdminSvc := service.NewWebhookAdminService(
		webhookConfigRepo,
		webhookLogRepo,
		mappingRepo,
		courseRepo,
		cfg.Webhook.DefaultRetryCount,
		cfg.Webhook.DefaultTimeout,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewSchemaCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if err := httpHandler.LoadSwaggerSpec("docs/api/openapi.yaml"); err == nil {
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		ReceiverSvc:     receiverSvc,
		SenderSvc:       senderSvc,
		UserSvc:         userSvc,
		CourseSvc:       courseSvc,
		TopicSvc:        topicSvc,
		APIKeySvc:       apiKeySvc,
		AccessLogSvc:    accessLogSvc,
		WebhookAdminSvc: webhookAdminSvc,
		TokenSvc:        tokenSvc,
		RateLimitStore:  rateLimitStore,
		Metrics:         metrics,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		Logger:          log,
		PartnerName:     cfg.Webhook.PartnerName,
		KeyRateWindow:   cfg.Gateway.RateLimitWindow,
		CORSOrigins:     cfg.Server.CORSOrigins,
		Mode:            cfg.Server.Mode,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain queued enrollment events after the last request has finished.
	publisher.Close()

	log.Info().Msg("Server exited")
}
