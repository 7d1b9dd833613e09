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

	"github.com/orderdesk/orderdesk-api/internal/config"
	auditHandler "github.com/orderdesk/orderdesk-api/internal/handler/audit"
	authHandler "github.com/orderdesk/orderdesk-api/internal/handler/auth"
	healthHandler "github.com/orderdesk/orderdesk-api/internal/handler/health"
	notificationHandler "github.com/orderdesk/orderdesk-api/internal/handler/notification"
	orderHandler "github.com/orderdesk/orderdesk-api/internal/handler/order"
	realtimeHandler "github.com/orderdesk/orderdesk-api/internal/handler/realtime"
	"github.com/orderdesk/orderdesk-api/internal/middleware"
	"github.com/orderdesk/orderdesk-api/internal/repository/postgres"
	"github.com/orderdesk/orderdesk-api/internal/router"
	auditService "github.com/orderdesk/orderdesk-api/internal/service/audit"
	authService "github.com/orderdesk/orderdesk-api/internal/service/auth"
	notificationService "github.com/orderdesk/orderdesk-api/internal/service/notification"
	orderService "github.com/orderdesk/orderdesk-api/internal/service/order"
	realtimeService "github.com/orderdesk/orderdesk-api/internal/service/realtime"
	"github.com/orderdesk/orderdesk-api/internal/service/statemachine"
	"github.com/orderdesk/orderdesk-api/internal/service/workflow"
	"github.com/orderdesk/orderdesk-api/internal/sideeffect"
	"github.com/orderdesk/orderdesk-api/pkg/auth"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
	"github.com/orderdesk/orderdesk-api/pkg/metrics"
	"github.com/orderdesk/orderdesk-api/pkg/security"
)

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

	baseRepo := postgres.NewBaseRepository(db)
	orderRepo := postgres.NewOrderRepository(baseRepo)
	notificationRepo := postgres.NewNotificationRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)
	userRepo := postgres.NewUserRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	auditSvc := auditService.NewService(auditRepo)
	auditor := auditService.NewLogger(auditSvc, appLogger)
	queue := sideeffect.NewQueue(outboxRepo)
	m := metrics.New("orderdesk_api")

	machine, err := statemachine.NewMachine(statemachine.DefaultTable(), orderRepo, auditor, appLogger, m)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid transition table")
	}

	registry, err := workflow.NewRegistry(workflow.DefaultEvents())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid workflow templates")
	}
	dispatcher := workflow.NewDispatcher(registry, notificationRepo, orderRepo, userRepo, queue, appLogger, m)

	orderSvc := orderService.NewService(machine, dispatcher, orderRepo, userRepo, appLogger)
	notificationSvc := notificationService.NewService(notificationRepo)
	guard := realtimeService.NewGuard(orderRepo, auditor, appLogger)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(0)
	authSvc := authService.NewService(userRepo, hasher, jwtSvc, auditor)

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		orderHandler.NewHandler(orderSvc),
		notificationHandler.NewHandler(notificationSvc),
		realtimeHandler.NewHandler(guard),
		auditHandler.NewHandler(auditSvc),
		healthHandler.NewHandler(db),
		router.Config{
			RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:     cfg.RateLimit.Burst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "orderdesk_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
