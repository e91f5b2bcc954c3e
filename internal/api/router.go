package api

import (
	"log/slog"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/space-booking-backend/internal/auth"
	"github.com/nekogravitycat/space-booking-backend/internal/availability"
	availHttp "github.com/nekogravitycat/space-booking-backend/internal/availability/http"
	"github.com/nekogravitycat/space-booking-backend/internal/calendar"
	calHttp "github.com/nekogravitycat/space-booking-backend/internal/calendar/http"
	"github.com/nekogravitycat/space-booking-backend/internal/reservation"
	resHttp "github.com/nekogravitycat/space-booking-backend/internal/reservation/http"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

// Config carries the services the router exposes.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       *slog.Logger

	UserService         user.Service
	ReservationService  reservation.Service
	CalendarService     calendar.Service
	AvailabilityService availability.Service
	JWTManager          *auth.JWTManager
	Health              HealthHandlers
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, request ids, access log, auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	// Global Middleware:
	// - RequestID: correlates the access log, error logs and the response.
	// - AccessLog: one structured line per request.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestID(), AccessLog(log), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{
		"http://localhost:8081", // Swagger
	}
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		config.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", HeaderRequestID}
	config.ExposeHeaders = []string{HeaderRequestID}
	r.Use(cors.New(config))

	r.GET("/livez", cfg.Health.Livez)
	r.GET("/readyz", cfg.Health.Readyz)

	// authMiddleware: Validates the bearer JWT and resolves the caller.
	authMiddleware := auth.AuthRequired(cfg.JWTManager, cfg.UserService)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	reservationHandler := resHttp.NewHandler(cfg.ReservationService)
	calendarHandler := calHttp.NewHandler(cfg.CalendarService)
	availabilityHandler := availHttp.NewHandler(cfg.AvailabilityService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		resHttp.RegisterRoutes(v1, reservationHandler, authMiddleware)
		calHttp.RegisterRoutes(v1, calendarHandler, authMiddleware)
		availHttp.RegisterRoutes(v1, availabilityHandler)
	}

	return r
}
