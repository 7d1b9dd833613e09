package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/orderdesk/orderdesk-api/internal/config"
	"github.com/orderdesk/orderdesk-api/internal/email"
	"github.com/orderdesk/orderdesk-api/internal/repository/postgres"
	auditService "github.com/orderdesk/orderdesk-api/internal/service/audit"
	"github.com/orderdesk/orderdesk-api/internal/service/scheduler"
	"github.com/orderdesk/orderdesk-api/internal/sideeffect"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
	"github.com/orderdesk/orderdesk-api/pkg/messaging/redis"
	"github.com/orderdesk/orderdesk-api/pkg/metrics"
	"github.com/orderdesk/orderdesk-api/pkg/worker"
)

// The worker process owns everything that runs on a clock: outbox delivery,
// the deadline and unread sweeps, and retention pruning. The API process
// only writes intents; this one makes them happen.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	baseRepo := postgres.NewBaseRepository(db)
	orderRepo := postgres.NewOrderRepository(baseRepo)
	notificationRepo := postgres.NewNotificationRepository(baseRepo)
	reminderRepo := postgres.NewReminderRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)
	userRepo := postgres.NewUserRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	auditSvc := auditService.NewService(auditRepo)
	auditor := auditService.NewLogger(auditSvc, appLogger)
	queue := sideeffect.NewQueue(outboxRepo)
	m := metrics.New("orderdesk_worker")

	mailer := email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, appLogger)

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		mailer,
		cfg.Outbox.ToWorkerConfig(),
		appLogger,
		m,
	)

	sweeper := scheduler.New(
		cfg.Scheduler.ToSchedulerConfig(),
		orderRepo,
		notificationRepo,
		reminderRepo,
		userRepo,
		queue,
		auditor,
		appLogger,
		m,
	)

	retention := worker.NewRetentionWorker(auditRepo, outboxRepo, 90, time.Hour, appLogger)

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down...")
		cancel()
	}()

	go sweeper.Start(ctx)
	go retention.Start(ctx)
	processor.Start(ctx)
}

func setupHealthCheck(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}
