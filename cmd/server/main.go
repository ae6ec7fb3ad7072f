package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripdesk/marketplace-backend/internal/config"
	"github.com/tripdesk/marketplace-backend/internal/database"
	"github.com/tripdesk/marketplace-backend/internal/events"
	"github.com/tripdesk/marketplace-backend/internal/handlers"
	"github.com/tripdesk/marketplace-backend/internal/middleware"
	"github.com/tripdesk/marketplace-backend/internal/models"
	"github.com/tripdesk/marketplace-backend/internal/services"
	"github.com/tripdesk/marketplace-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting TripDesk Marketplace Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Run schema migrations
	logger.Info("Running database migrations...")
	if err := database.RunMigrations(cfg.Database); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Optional catalog cache
	redisClient := config.NewRedisClient(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info("Redis catalog cache enabled")
	} else {
		logger.Info("Redis catalog cache disabled, reading catalog from database")
	}

	// Optional domain-event publisher
	var publisher *events.Publisher
	if cfg.AMQP.Enabled {
		publisher = events.NewPublisher(cfg.AMQP.URL, logger)
		logger.Info("Domain event publishing enabled")
	}

	// Initialize repositories
	hotelRepository := database.NewHotelRepository(db, redisClient, cfg.Redis.CacheTTL, logger)
	tripRepository := database.NewTripRepository(db)
	requestRepository := database.NewHotelRequestRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.TokenExpiry)

	seed := cfg.Recommendation.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	scoringEngine := services.NewScoringEngine()
	recommendationService := services.NewRecommendationService(
		hotelRepository,
		scoringEngine,
		rng,
		cfg.Recommendation.MaxResults,
		logger,
	)
	tripService := services.NewTripService(tripRepository, recommendationService, publisher, logger)
	rfqService := services.NewRFQService(
		requestRepository,
		tripRepository,
		hotelRepository,
		tripService,
		scoringEngine,
		publisher,
		cfg.RFQ.QuoteDeadline,
		logger,
	)
	expiryService := services.NewRFQExpiryService(requestRepository, rfqService, cfg.RFQ.SweepInterval, logger)
	expiryService.Start()

	// Initialize handlers
	tripHandler := handlers.NewTripHandler(tripService, logger)
	requestHandler := handlers.NewHotelRequestHandler(rfqService, logger)
	hotelHandler := handlers.NewHotelHandler(hotelRepository, recommendationService, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes, all authenticated
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(jwtService))
	{
		trips := v1.Group("/trips")
		{
			trips.POST("", middleware.RequireRole(models.RoleCustomer), tripHandler.CreateTrip)
			trips.GET("", tripHandler.ListTrips)
			trips.GET("/:id", tripHandler.GetTrip)
			trips.POST("/:id/accept", middleware.RequireRole(models.RoleCustomer), tripHandler.AcceptRecommendation)
			trips.POST("/:id/reject", middleware.RequireRole(models.RoleCustomer), tripHandler.RejectRecommendation)

			admin := middleware.RequireRole(models.RoleAdmin)
			trips.POST("/:id/approve", admin, tripHandler.ApproveHotel)
			trips.POST("/:id/resend", admin, tripHandler.ResendHotel)
			trips.POST("/:id/regenerate", admin, tripHandler.RegenerateRecommendations)
			trips.POST("/:id/requests", admin, requestHandler.CreateRequest)
			trips.GET("/:id/requests", admin, requestHandler.ListForTrip)
			trips.POST("/:id/select-quote", admin, requestHandler.SelectQuote)
		}

		v1.GET("/hotels", middleware.RequireRole(models.RoleAdmin), hotelHandler.ListHotels)
		v1.POST("/recommendations/scores", middleware.RequireRole(models.RoleAdmin), hotelHandler.DetailedScores)

		requests := v1.Group("/requests")
		{
			requests.GET("/:id", requestHandler.GetRequest)
			requests.POST("/:id/quote", middleware.RequireRole(models.RoleHotelPartner), requestHandler.SubmitQuote)
			requests.POST("/:id/decline", middleware.RequireRole(models.RoleHotelPartner), requestHandler.DeclineRequest)
			requests.POST("/:id/reopen", middleware.RequireRole(models.RoleAdmin), requestHandler.ReopenRequest)
		}

		v1.GET("/partner/requests", middleware.RequireRole(models.RoleHotelPartner), requestHandler.ListForPartner)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	expiryService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// healthCheckHandler reports process liveness and database reachability.
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		dbStatus := "connected"
		code := http.StatusOK

		if err := db.Ping(); err != nil {
			status = "degraded"
			dbStatus = "disconnected"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":    status,
			"database":  dbStatus,
			"version":   version,
			"timestamp": time.Now().UTC(),
		})
	}
}
