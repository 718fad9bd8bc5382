package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Allmight-456/event-management-go/internal/api/handlers"
	"github.com/Allmight-456/event-management-go/internal/api/middleware"
	"github.com/Allmight-456/event-management-go/internal/api/routes"
	"github.com/Allmight-456/event-management-go/internal/domain/collaboration"
	"github.com/Allmight-456/event-management-go/internal/domain/event"
	"github.com/Allmight-456/event-management-go/internal/domain/permission"
	"github.com/Allmight-456/event-management-go/internal/domain/user"
	"github.com/Allmight-456/event-management-go/internal/domain/version"
	"github.com/Allmight-456/event-management-go/internal/infrastructure/cache"
	"github.com/Allmight-456/event-management-go/internal/infrastructure/persistence/postgres/connection"
	"github.com/Allmight-456/event-management-go/internal/infrastructure/persistence/postgres/migrations"
	"github.com/Allmight-456/event-management-go/pkg/config"
	"github.com/Allmight-456/event-management-go/pkg/logger"
	"github.com/Allmight-456/event-management-go/pkg/security/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.NewLogger(cfg.Logging.Level)
	defer log.Sync()

	log.Info("Configuration loaded successfully")
	log.Info("Server mode: " + cfg.Server.Mode)

	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.NewMetricsMiddleware().CollectMetrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowedOrigins,
		AllowMethods: cfg.CORS.AllowedMethods,
		AllowHeaders: append(cfg.CORS.AllowedHeaders,
			"Accept-Encoding",
			"Content-Type",
			"Authorization",
		),
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
		},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Connect to database
	db, err := connection.NewDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if err := migrations.AutoMigrate(db, log.Logger); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	jwtService := auth.NewJWTService(cfg)

	// Initialize repositories
	userRepo := user.NewRepository(db.DB)
	eventRepo := event.NewRepository(db.DB)
	permissionRepo := permission.NewRepository(db.DB)
	versionRepo := version.NewRepository(db.DB)

	// Initialize core components
	permissionEngine := permission.NewEngine(permissionRepo)
	conflictDetector := event.NewDetector(eventRepo)

	// Initialize services
	userService := user.NewService(userRepo, jwtService, log)
	eventService := event.NewService(eventRepo, conflictDetector, permissionEngine, redisClient, log)
	versionStore := version.NewStore(versionRepo, eventRepo, permissionEngine, redisClient, log)
	collaborationService := collaboration.NewService(eventRepo, permissionRepo, userRepo, permissionEngine, log)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	eventHandler := handlers.NewEventHandler(eventService)
	versionHandler := handlers.NewVersionHandler(versionStore)
	collaborationHandler := handlers.NewCollaborationHandler(collaborationService)

	// Register routes
	routes.SetupHealthRoutes(router)

	authRoutes := routes.NewAuthRoutes(authHandler, jwtService)
	authRoutes.RegisterRoutes(router)
	log.Info("Registered auth routes at /api/auth")

	eventRoutes := routes.NewEventRoutes(eventHandler, versionHandler, collaborationHandler, jwtService)
	eventRoutes.RegisterRoutes(router)
	log.Info("Registered event routes at /api/events")

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info(fmt.Sprintf("Server starting on port %d", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info("Shutting down server...")
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited properly")
}
