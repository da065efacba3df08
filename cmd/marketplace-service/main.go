package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"shiftmarket/internal/api/handlers"
	"shiftmarket/internal/config"
	"shiftmarket/internal/infrastructure/leader"
	"shiftmarket/internal/infrastructure/mysql"
	"shiftmarket/internal/infrastructure/redis"
	"shiftmarket/internal/infrastructure/websocket"
	"shiftmarket/internal/services"
	"shiftmarket/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info("Starting Marketplace Service")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}(db)

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	// Test MySQL connection
	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")

	// Initialize repositories
	shiftRepo := mysql.NewMySQLShiftRepository(db)
	applicationRepo := mysql.NewMySQLApplicationRepository(db)
	paymentRepo := mysql.NewMySQLPaymentRepository(db)
	notificationRepo := mysql.NewMySQLNotificationRepository(db)
	schedulerRepo := mysql.NewMySQLSchedulerRepository(db)

	// Initialize Redis based components
	claimCache := redis.NewClaimCache(rdb)
	stateCache := redis.NewShiftStateCache(rdb)
	sessionStore := redis.NewSessionStore(rdb, cfg.Session.TTL)
	eventPublisher := redis.NewEventPublisher(rdb)
	eventSubscriber := redis.NewRedisEventSubscriber(rdb, log)

	// Initialize leader election
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)

	// Initialize services
	notificationService := services.NewNotificationService(notificationRepo, eventPublisher, log)
	paymentService := services.NewPaymentService(paymentRepo, eventPublisher, log)
	shiftService := services.NewShiftService(shiftRepo, stateCache, claimCache,
		paymentService, eventPublisher, log)
	applicationService := services.NewApplicationService(applicationRepo, shiftService,
		claimCache, stateCache, paymentService, notificationService, eventPublisher, log)
	authService := services.NewAuthService(sessionStore, cfg.Session.TTL, log)

	// Initialize scheduler
	scheduler := services.NewCronShiftScheduler(schedulerRepo, shiftService,
		paymentService, leaderElection, cfg.Instance.ID, log)
	shiftService.SetScheduler(scheduler)

	// Initialize websocket push plumbing
	connManager := websocket.NewConnectionManager(log)
	wsHandler := websocket.NewWebSocketHandler(sessionStore, connManager, log)
	notifier := websocket.NewWebSocketNotifier(connManager)
	forwarder := services.NewUpdateForwarder(eventSubscriber, notifier, log)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","user_agent":"${user_agent}","status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Initialize handlers
	shiftHandler := handlers.NewShiftHandler(shiftService, log)
	applicationHandler := handlers.NewApplicationHandler(applicationService, log)
	paymentHandler := handlers.NewPaymentHandler(paymentService, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService, log)
	authHandler := handlers.NewAuthHandler(authService, log)

	// API routes
	api := e.Group("/api/v1")
	api.POST("/login", authHandler.Login)
	api.POST("/logout", authHandler.Logout)
	api.POST("/shifts", shiftHandler.CreateShift)
	api.GET("/shifts", shiftHandler.ListOpenShifts)
	api.GET("/shifts/:id", shiftHandler.GetShift)
	api.POST("/shifts/:id/cancel", shiftHandler.CancelShift)
	api.GET("/companies/:companyID/shifts", shiftHandler.ListCompanyShifts)
	api.POST("/applications", applicationHandler.Apply)
	api.POST("/applications/:id/accept", applicationHandler.Accept)
	api.POST("/applications/:id/reject", applicationHandler.Reject)
	api.POST("/applications/:id/withdraw", applicationHandler.Withdraw)
	api.GET("/workers/:workerID/applications", applicationHandler.ListForWorker)
	api.GET("/workers/:workerID/payments", paymentHandler.ListForWorker)
	api.POST("/payments/:id/payout", paymentHandler.MarkPaidOut)
	api.GET("/users/:userID/notifications", notificationHandler.ListForUser)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)

	// Realtime push endpoint
	api.GET("/ws", echo.WrapHandler(http.HandlerFunc(wsHandler.HandleConnection)))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "marketplace",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
		})
	})

	// Start background services
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	go func() {
		if err := scheduler.Start(runCtx); err != nil {
			log.Error("Failed to start scheduler", "error", err)
		}
	}()

	go func() {
		if err := forwarder.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Update forwarder stopped", "error", err)
		}
	}()

	// Try to become leader
	go func() {
		for {
			became, err := leaderElection.BecomeLeader(runCtx, cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became scheduler leader", "instance_id", cfg.Instance.ID)
			}
			select {
			case <-runCtx.Done():
				return
			case <-time.After(10 * time.Second):
			}
		}
	}()

	// Start server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting marketplace server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down marketplace service...")
	runCancel()

	// Graceful shutdown
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scheduler.Stop(); err != nil {
		log.Error("Failed to stop scheduler", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(ctx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := connManager.CloseAll(1001, "server shutting down"); err != nil {
		log.Error("Failed to close push connections", "error", err)
	}

	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Marketplace service stopped")
}
