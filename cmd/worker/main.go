package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	_ "github.com/lib/pq"

	"github.com/lettermill/lettermill/internal/config"
	"github.com/lettermill/lettermill/internal/email"
	"github.com/lettermill/lettermill/internal/repository/postgres"
	"github.com/lettermill/lettermill/internal/worker"
	"github.com/lettermill/lettermill/pkg/logger"
	"github.com/lettermill/lettermill/pkg/messaging/redis"
	"github.com/lettermill/lettermill/pkg/metrics"
	pkgworker "github.com/lettermill/lettermill/pkg/worker"
)

// workerConfig is read from the environment; the delivery worker typically
// runs as a sidecar without the API's config file.
type workerConfig struct {
	DatabaseHost     string `envconfig:"DB_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DB_PORT" default:"5432"`
	DatabaseUser     string `envconfig:"DB_USER" default:"lettermill"`
	DatabasePassword string `envconfig:"DB_PASSWORD"`
	DatabaseName     string `envconfig:"DB_NAME" default:"lettermill"`
	DatabaseSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"newsletter@lettermill.io"`

	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	MetricsPort         int `envconfig:"METRICS_PORT" default:"9090"`
	OutboxBatchSize     int `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxPollSeconds   int `envconfig:"OUTBOX_POLL_SECONDS" default:"5"`
	OutboxRetryAttempts int `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	OutboxRetrySeconds  int `envconfig:"OUTBOX_RETRY_SECONDS" default:"5"`
	RetentionDays       int `envconfig:"OUTBOX_RETENTION_DAYS" default:"7"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("LETTERMILL", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("lettermill", "worker")

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Name:     cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{URL: cfg.RedisURL}, &appLogger.ZL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	subscriberRepo := postgres.NewSubscriberRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	emailSvc := email.NewSMTPService(config.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, appMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor := pkgworker.NewOutboxProcessor(outboxRepo, broker, pkgworker.OutboxProcessorConfig{
		BatchSize:     cfg.OutboxBatchSize,
		PollInterval:  time.Duration(cfg.OutboxPollSeconds) * time.Second,
		RetryAttempts: cfg.OutboxRetryAttempts,
		RetryDelay:    time.Duration(cfg.OutboxRetrySeconds) * time.Second,
	}, appLogger, appMetrics)
	go processor.Start(ctx)

	cleanup := worker.NewOutboxCleanup(outboxRepo, time.Duration(cfg.RetentionDays)*24*time.Hour, appLogger)
	go cleanup.Start(ctx)

	dispatcher := worker.NewDispatcher(broker, emailSvc, subscriberRepo, cfg.BaseURL, appLogger)
	go func() {
		if err := dispatcher.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("dispatcher stopped")
		}
	}()

	// Health and metrics endpoint for the scheduler.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.MetricsPort), Handler: mux}
	go func() {
		appLogger.Info("starting worker metrics server", "port", cfg.MetricsPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start metrics server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
