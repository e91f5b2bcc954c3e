package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nekogravitycat/space-booking-backend/internal/app"
	"github.com/nekogravitycat/space-booking-backend/internal/auth"
	"github.com/nekogravitycat/space-booking-backend/internal/availability"
	"github.com/nekogravitycat/space-booking-backend/internal/config"
	"github.com/nekogravitycat/space-booking-backend/internal/db"
	"github.com/nekogravitycat/space-booking-backend/internal/events"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/logger"
	"github.com/nekogravitycat/space-booking-backend/internal/reservation"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.AppEnv)
	slog.SetDefault(log)

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	lockPool, err := db.NewLockPool(ctx, cfg.DBDSN, int32(cfg.DBLockPoolSize))
	if err != nil {
		log.Error("failed to connect lock pool", "error", err)
		os.Exit(1)
	}
	defer lockPool.Close()

	// Optional availability cache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = availability.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	// Optional event broker
	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewSyncProducer(cfg.KafkaBrokers, "space-booking-backend")
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		kafka := events.NewKafkaPublisher(producer, cfg.KafkaTopic)
		defer kafka.Close()
		publisher = kafka
	}

	container := app.NewContainer(app.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		DBPool:         pool,
		LockPool:       lockPool,
		JWT: auth.JWTConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   cfg.JWTLeeway,
		},
		Logger:         log,
		Redis:          redisClient,
		CacheTTL:       cfg.AvailabilityCacheTTL,
		Publisher:      publisher,
		MaxHorizonDays: cfg.AvailabilityMaxHorizonDays,
	})

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		log.Info("server running", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		runCompletionSweeper(ctx, log, container.ReservationService, cfg.CompletionSweepInterval)
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", "error", err)
	}
	<-sweepDone

	log.Info("server exited gracefully")
}

// runCompletionSweeper completes finished stays once at startup and then on every tick.
func runCompletionSweeper(ctx context.Context, log *slog.Logger, svc reservation.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		n, err := svc.CompleteFinished(ctx)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			log.Error("completion sweep failed", "error", err)
		case n > 0:
			log.Info("completion sweep", "completed", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
