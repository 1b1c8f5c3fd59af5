package server

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"openwfm/api/internal/config"
	"openwfm/api/internal/handler"
	"openwfm/api/internal/middleware"
	"openwfm/api/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server represents the HTTP server
type Server struct {
	router  *gin.Engine
	config  *config.Config
	db      *gorm.DB
	redis   *redis.Client
	nats    *nats.Conn
	limiter middleware.RateLimiter
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) *Server {
	return &Server{
		config: cfg,
		db:     db,
		redis:  redisClient,
		nats:   natsConn,
	}
}

// Setup initializes routes and handlers
func (s *Server) Setup() {
	// Services
	audit := service.NewAuditPublisher(s.nats)
	geozoneService := service.NewGeozoneService(s.db, s.redis)
	tracker := service.NewTracker(s.db, geozoneService, audit)
	ratePolicy := service.NewRatePolicy(s.db, audit)
	financialService := service.NewFinancialService(s.db, ratePolicy)
	allocationService := service.NewAllocationService(s.db, audit)

	// Handlers
	geoEventHandler := handler.NewGeoEventHandler(tracker)
	timesheetHandler := handler.NewTimesheetHandler(tracker)
	geozoneHandler := handler.NewGeozoneHandler(geozoneService)
	allocationHandler := handler.NewAllocationHandler(allocationService)
	financialHandler := handler.NewFinancialHandler(financialService)
	settingsHandler := handler.NewSettingsHandler(ratePolicy)

	if s.limiter == nil {
		if s.redis != nil {
			s.limiter = middleware.NewRedisRateLimiter(s.redis)
		} else {
			s.limiter = middleware.NewMemoryRateLimiter()
		}
	}
	geoEventQuota := middleware.RateLimitConfig{
		Limit:  s.config.GeoEventRateLimit,
		Window: s.config.GeoEventRateWindow,
	}

	// Setup Gin router
	s.router = gin.Default()

	// CORS middleware
	s.router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Swagger UI
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Protected routes
	api := s.router.Group("/api/v1")
	api.Use(middleware.JWTAuth(s.config.JWTSecret))
	{
		// Geo events (rate limited per worker)
		api.POST("/geoevents",
			middleware.RateLimitByWorker(s.limiter, geoEventQuota),
			geoEventHandler.Submit)

		// Timesheets
		api.POST("/timesheets/clock-in", timesheetHandler.ClockIn)
		api.POST("/timesheets/clock-out", timesheetHandler.ClockOut)
		api.GET("/timesheets/open", timesheetHandler.Open)
		api.GET("/timesheets", timesheetHandler.List)
		api.GET("/timesheets/:id", timesheetHandler.Get)
		api.PATCH("/timesheets/:id/status", middleware.RequireManager(), timesheetHandler.UpdateStatus)

		// Geozones
		api.GET("/geozones", geozoneHandler.List)
		api.POST("/geozones", middleware.RequireManager(), geozoneHandler.Create)
		api.GET("/geozones/:id", geozoneHandler.Get)
		api.PATCH("/geozones/:id/active", middleware.RequireManager(), geozoneHandler.SetActive)
		api.POST("/geozones/:id/check", geozoneHandler.Check)

		// Allocations
		api.GET("/allocations", middleware.RequireManager(), allocationHandler.List)
		api.POST("/allocations", middleware.RequireManager(), allocationHandler.Create)
		api.DELETE("/allocations/:id", middleware.RequireManager(), allocationHandler.Deactivate)

		// Financials
		api.GET("/financials/summary", middleware.RequireManager(), financialHandler.Summary)
		api.GET("/financials/trend", middleware.RequireManager(), financialHandler.Trend)
		api.GET("/reports/payroll", middleware.RequireManager(), financialHandler.PayrollExport)

		// Settings
		api.GET("/settings/overtime", middleware.RequireManager(), settingsHandler.GetOvertime)
		api.PATCH("/settings/overtime", middleware.RequireManager(), settingsHandler.UpdateOvertime)
	}
}

// SetRateLimiter overrides the limiter, used by tests.
func (s *Server) SetRateLimiter(limiter middleware.RateLimiter) {
	s.limiter = limiter
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	log.Printf("[Server] HTTP server listening on %s", addr)
	return s.router.Run(addr)
}

// GetRouter returns the gin router for testing
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
