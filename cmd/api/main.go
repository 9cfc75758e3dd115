package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	_ "github.com/lib/pq"

	"github.com/lettermill/lettermill/internal/config"
	"github.com/lettermill/lettermill/internal/handler"
	articleHandler "github.com/lettermill/lettermill/internal/handler/article"
	authHandler "github.com/lettermill/lettermill/internal/handler/auth"
	newsletterHandler "github.com/lettermill/lettermill/internal/handler/newsletter"
	resourceHandler "github.com/lettermill/lettermill/internal/handler/resource"
	subscriberHandler "github.com/lettermill/lettermill/internal/handler/subscriber"
	tagHandler "github.com/lettermill/lettermill/internal/handler/tag"
	"github.com/lettermill/lettermill/internal/middleware"
	"github.com/lettermill/lettermill/internal/repository/postgres"
	"github.com/lettermill/lettermill/internal/router"
	articleService "github.com/lettermill/lettermill/internal/service/article"
	authService "github.com/lettermill/lettermill/internal/service/auth"
	engagementService "github.com/lettermill/lettermill/internal/service/engagement"
	eventService "github.com/lettermill/lettermill/internal/service/event"
	resourceService "github.com/lettermill/lettermill/internal/service/resource"
	subscriberService "github.com/lettermill/lettermill/internal/service/subscriber"
	tagService "github.com/lettermill/lettermill/internal/service/tag"
	"github.com/lettermill/lettermill/internal/storage"
	"github.com/lettermill/lettermill/pkg/logger"
	"github.com/lettermill/lettermill/pkg/messaging/redis"
	"github.com/lettermill/lettermill/pkg/metrics"
	"github.com/lettermill/lettermill/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("lettermill", "api")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	subscriberRepo := postgres.NewSubscriberRepository(db)
	tagRepo := postgres.NewTagRepository(db)
	segmentRepo := postgres.NewSegmentRepository(db)
	engagementRepo := postgres.NewEngagementRepository(db)
	articleRepo := postgres.NewArticleRepository(db)
	resourceRepo := postgres.NewResourceRepository(db)
	staffRepo := postgres.NewStaffRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Object storage
	storageClient, err := storage.NewS3Client(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	// Services
	eventSvc := eventService.NewService(outboxRepo)
	subscriberSvc := subscriberService.NewService(subscriberRepo, eventSvc, appMetrics, cfg.Newsletter.DefaultLanguage)
	tagSvc := tagService.NewService(tagRepo, segmentRepo, subscriberRepo)
	engagementSvc := engagementService.NewService(engagementRepo, subscriberRepo)
	articleSvc := articleService.NewService(articleRepo)
	resourceSvc := resourceService.NewService(resourceRepo, storageClient)
	authSvc := authService.NewService(staffRepo, cfg.JWT)

	// Handlers
	h := handler.NewHandler(db)
	authH := authHandler.NewHandler(authSvc)
	newsletterH := newsletterHandler.NewHandler(subscriberSvc)
	subscriberH := subscriberHandler.NewHandler(subscriberSvc, engagementSvc)
	tagH := tagHandler.NewHandler(tagSvc)
	articleH := articleHandler.NewHandler(articleSvc)
	resourceH := resourceHandler.NewHandler(resourceSvc)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	r := router.NewRouter(
		authMiddleware,
		authH,
		newsletterH,
		subscriberH,
		tagH,
		articleH,
		resourceH,
		h,
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:     cfg.Server.RateLimitBurst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "lettermill_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Message broker and outbox processor. The API publishes its own outbox
	// so confirmation emails go out even when no dedicated worker runs.
	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &appLogger.ZL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  time.Duration(cfg.Outbox.PollIntervalSeconds) * time.Second,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    time.Duration(cfg.Outbox.RetryDelaySeconds) * time.Second,
	}, appLogger, appMetrics)
	go outboxProcessor.Start(ctx)

	go func() {
		appLogger.Info("starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("server exited")
}
