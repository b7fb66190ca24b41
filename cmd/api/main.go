package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "rapidroad/api/swagger" // swagger docs
	"rapidroad/internal/config"
	"rapidroad/internal/credential"
	"rapidroad/internal/database"
	"rapidroad/internal/handler"
	"rapidroad/internal/metrics"
	"rapidroad/internal/middleware"
	"rapidroad/internal/mq"
	"rapidroad/internal/repository"
	"rapidroad/internal/service"
	"rapidroad/internal/token"
	"rapidroad/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Rapid Road API
// @version         1.0
// @description     Bookings, dispatch, trips and real-time notifications for the Rapid Road ride-hailing platform.
// @host            localhost:4000
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	envFile := pflag.String("env-file", "configs/.env", "dotenv file loaded before the environment")
	port := pflag.String("port", "", "listen port (overrides PORT)")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if cfg.Release() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Database handle unavailable: %v", err)
	}
	defer sqlDB.Close()

	checks := map[string]handler.HealthCheck{"database": sqlDB.PingContext}

	// Credential store: Redis unless SKIP_REDIS=true
	var store credential.Store
	if cfg.SkipRedis {
		log.Println("SKIP_REDIS=true, using in-memory credential store")
		store = credential.NewMemoryStore()
	} else {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		client, err := credential.Dial(dialCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		defer client.Close()
		log.Printf("Connected to Redis addr=%s", cfg.RedisAddr)
		store = credential.NewRedisStore(client)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	appMetrics := metrics.New()
	appMetrics.WatchSockets(map[string]func() int{
		string(websocket.GroupAdmins):    func() int { return wsHub.Count(websocket.GroupAdmins) },
		string(websocket.GroupDrivers):   func() int { return wsHub.Count(websocket.GroupDrivers) },
		string(websocket.GroupCustomers): func() int { return wsHub.Count(websocket.GroupCustomers) },
	})

	notifiers := service.Notifiers{wsHub, appMetrics}
	if cfg.RabbitMQURL != "" {
		publisher, err := mq.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("RabbitMQ connection failed: %v", err)
		}
		defer publisher.Close()
		log.Printf("Publishing trip events to exchange=%s", mq.Exchange)
		notifiers = append(notifiers, publisher)
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	tripRepo := repository.NewTripRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	locationRepo := repository.NewDriverLocationRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)

	authService := service.NewAuthService(userRepo, store, tokens, service.AuthConfig{
		MagicLinkTTL:   cfg.MagicLinkTTL,
		DomainRoot:     cfg.DomainRoot,
		ReturnMagicURL: cfg.MagicLinkReturnURL || !cfg.Release(),
	})
	userService := service.NewUserService(txManager, userRepo, auditRepo, cfg.BootstrapToken)
	bookingService := service.NewBookingService(txManager, bookingRepo, notifiers)
	dispatchService := service.NewDispatchService(txManager, bookingRepo, tripRepo, userRepo, auditRepo, notifiers,
		service.DispatchConfig{AllowInFlightReassign: cfg.AllowInFlightReassign})
	locationService := service.NewDriverLocationService(locationRepo, notifiers)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(statisticsRepo, userRepo)

	cookies := middleware.CookieOptions{Secure: cfg.Release(), AccessTTL: cfg.AccessTTL, RefreshTTL: cfg.RefreshTTL}

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService, tokens, cookies)
	bookingHandler := handler.NewBookingHandler(bookingService, dispatchService, tokens)
	tripHandler := handler.NewTripHandler(dispatchService, tokens)
	driverHandler := handler.NewDriverHandler(locationService, tokens)
	userHandler := handler.NewUserHandler(userService, tokens)
	auditHandler := handler.NewAuditHandler(auditService, tokens)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, tokens)
	healthHandler := handler.NewHealthHandler(checks)
	wsHandler := handler.NewWSHandler(wsHub, tokens, locationService)
	metricsHandler := handler.NewMetricsHandler(appMetrics.Handler())

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(), middleware.Metrics(appMetrics))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader, handler.BootstrapTokenHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	healthHandler.RegisterRoutes(router.Group(""))
	wsHandler.RegisterRoutes(router.Group(""))
	metricsHandler.RegisterRoutes(router.Group(""))

	// API Routing
	v1 := router.Group("/v1")
	limiter := middleware.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	authHandler.RegisterRoutes(v1.Group("/auth", limiter.Middleware()))
	bookingHandler.RegisterRoutes(v1)
	tripHandler.RegisterRoutes(v1)
	driverHandler.RegisterRoutes(v1)

	admin := v1.Group("/admin")
	userHandler.RegisterRoutes(admin)
	auditHandler.RegisterRoutes(admin)
	statisticsHandler.RegisterRoutes(admin)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	<-wsHub.Done()
	log.Println("Server stopped")
}
