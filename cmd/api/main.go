package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richi-sixt/calisthenics-progression/internal/api"
	"github.com/richi-sixt/calisthenics-progression/internal/auth"
	"github.com/richi-sixt/calisthenics-progression/internal/config"
	"github.com/richi-sixt/calisthenics-progression/internal/domain"
	"github.com/richi-sixt/calisthenics-progression/internal/migrate"
	"github.com/richi-sixt/calisthenics-progression/internal/outbox"
	persistence "github.com/richi-sixt/calisthenics-progression/internal/persistence/postgres"
	httptransport "github.com/richi-sixt/calisthenics-progression/internal/transport/http"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := migrate.Up(ctx, cfg.PostgresURL); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := persistence.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("connect to postgres", zap.Error(err))
	}
	defer db.Close()

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	dispatcher := outbox.NewDispatcher(db.Pool, producer, registry, logger, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	userRepo := persistence.NewUserRepo(db)
	catalogRepo := persistence.NewCatalogRepo(db)
	workoutRepo := persistence.NewWorkoutRepo(db)
	socialRepo := persistence.NewSocialRepo(db)
	messageRepo := persistence.NewMessageRepo(db)
	notificationRepo := persistence.NewNotificationRepo(db)

	handler := api.NewHandler(api.Services{
		Users:    domain.NewUserService(userRepo),
		Social:   domain.NewSocialService(socialRepo, userRepo),
		Catalog:  domain.NewCatalogService(catalogRepo),
		Workouts: domain.NewWorkoutService(workoutRepo, catalogRepo),
		Feed:     domain.NewFeedService(notificationRepo),
		Messages: domain.NewMessageService(messageRepo, userRepo),
	}, cfg.PageSize, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		func(r *http.Request) bool {
			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
		},
	)

	chain := httptransport.Recover(logger)(
		httptransport.RequestLogger(logger)(
			authMiddleware.Wrap(
				handler.TouchUser(mux))))

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, chain)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("api listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	dispatcher.Wait()
}
