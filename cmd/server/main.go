package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pm-health/patient-service/internal/api"
	"github.com/pm-health/patient-service/internal/infrastructure/billing"
	"github.com/pm-health/patient-service/internal/infrastructure/config"
	mongodb "github.com/pm-health/patient-service/internal/infrastructure/db/mongo"
	redisdb "github.com/pm-health/patient-service/internal/infrastructure/db/redis"
	"github.com/pm-health/patient-service/internal/infrastructure/kafka"
	"github.com/pm-health/patient-service/internal/infrastructure/reconcile"
	"github.com/pm-health/patient-service/pkg/logger"
)

// main wires the concrete infrastructure, starts the reconciler, and keeps
// the server lifecycle small. Business logic lives in internal/core.
func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Record store ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	patientRepo := mongodb.NewPatientRepository(db)
	if err := patientRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create patient indexes")
	}
	authRepo := mongodb.NewAuthRepository(db)
	if err := authRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create auth indexes")
	}

	// --- Reconciliation queue ---
	redisClient, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		_ = redisClient.Close()
	}()
	provisions := redisdb.NewProvisionStore(redisClient)

	// --- Downstream collaborators ---
	billingClient := billing.New(cfg.Billing.BaseURL, cfg.Billing.Timeout, log)

	publisher, err := kafka.NewPublisher(ctx, kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("kafka connection failed")
	}
	defer publisher.Close()

	// --- Background reconciler ---
	reconciler := reconcile.New(provisions, billingClient, cfg.Reconcile.Interval, log)
	go reconciler.Run(ctx)

	// --- HTTP server ---
	e := api.NewRouter(api.Deps{
		Mongo:      db,
		Redis:      redisClient,
		Billing:    billingClient,
		Publisher:  publisher,
		Provisions: provisions,
		JWTSecret:  cfg.JWTSecret,
		Logger:     log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting patient-service")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
