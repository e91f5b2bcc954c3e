package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/space-booking-backend/internal/api"
	"github.com/nekogravitycat/space-booking-backend/internal/auth"
	"github.com/nekogravitycat/space-booking-backend/internal/availability"
	"github.com/nekogravitycat/space-booking-backend/internal/calendar"
	"github.com/nekogravitycat/space-booking-backend/internal/events"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/lock"
	"github.com/nekogravitycat/space-booking-backend/internal/reservation"
	"github.com/nekogravitycat/space-booking-backend/internal/space"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	// LockPool carries the per-space advisory locks. It must be distinct from DBPool.
	LockPool *pgxpool.Pool
	JWT      auth.JWTConfig
	Logger   *slog.Logger

	// Redis enables the availability cache when non-nil.
	Redis    *redis.Client
	CacheTTL time.Duration
	// Publisher receives lifecycle events (Kafka or log). Nil means log only.
	Publisher events.Publisher

	MaxHorizonDays int
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router             *gin.Engine
	ReservationService reservation.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWT)
	locker := lock.NewPgAdvisoryLocker(cfg.LockPool)

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NewLogPublisher(log)
	}

	readiness := map[string]api.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return cfg.DBPool.Ping(ctx) },
	}

	var availabilityOpts []availability.Option
	availabilityOpts = append(availabilityOpts, availability.WithMaxHorizon(cfg.MaxHorizonDays))
	if cfg.Redis != nil {
		cache := availability.NewRedisCache(cfg.Redis)
		availabilityOpts = append(availabilityOpts, availability.WithCache(cache, cfg.CacheTTL))
		// Every booking event drops the cached answers of its space.
		publisher = events.Fanout(publisher, cache)
		readiness["redis"] = func(ctx context.Context) error { return cfg.Redis.Ping(ctx).Err() }
	}

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo)

	// Space Module
	spaceRepo := space.NewPgxRepository(cfg.DBPool)
	spaceService := space.NewService(spaceRepo)

	// Calendar Module
	calendarRepo := calendar.NewPgxRepository(cfg.DBPool)
	calendarService := calendar.NewService(calendarRepo, spaceService, publisher, log)

	// Reservation Module
	reservationRepo := reservation.NewPgxRepository(cfg.DBPool)
	reservationService := reservation.NewService(
		reservationRepo, spaceService, userService, calendarService, locker, publisher, log,
	)

	// Availability Module
	availabilityService := availability.NewService(
		spaceService, reservationRepo, calendarService, log, availabilityOpts...,
	)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         cfg.ProdOrigins,
		Logger:              log,
		UserService:         userService,
		ReservationService:  reservationService,
		CalendarService:     calendarService,
		AvailabilityService: availabilityService,
		JWTManager:          jwtManager,
		Health:              api.HealthHandlers{Checks: readiness},
	})

	return &Container{
		Router:             router,
		ReservationService: reservationService,
	}
}
