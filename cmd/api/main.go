package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"

	"github.com/sjperalta/advance-portal/internal/config"
	"github.com/sjperalta/advance-portal/internal/database"
	"github.com/sjperalta/advance-portal/internal/handlers"
	"github.com/sjperalta/advance-portal/internal/jobs"
	"github.com/sjperalta/advance-portal/internal/middleware"
	"github.com/sjperalta/advance-portal/internal/repository"
	"github.com/sjperalta/advance-portal/internal/services"
	"github.com/sjperalta/advance-portal/internal/session"
	"github.com/sjperalta/advance-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Advance Portal API
// @version 1.0
// @description Employee salary advance ledger: employees, borrowers and repayment vouchers
// @BasePath /
// @schemes http
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database", "driver", cfg.DatabaseDriver)

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Session store: Redis when configured, the sessions table otherwise
	var sessions session.Store
	if cfg.RedisURL != "" {
		client, err := session.OpenRedis(cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		sessions = session.NewRedisStore(client)
		logger.Info("Using Redis session store")
	} else {
		sessions = session.NewDBStore(repos.Session)
		logger.Info("Using database session store")
	}

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, sessions, worker, cfg, db)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := svcs.Auth.EnsureAdmin(seedCtx, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	seedCancel()
	if err != nil {
		logger.Error("Failed to seed administrator", "error", services.Cause(err))
	} else if created {
		logger.Info("Seeded administrator", "email", cfg.SeedAdminEmail)
	}

	// Schedule recurring jobs
	scheduleJobs(worker, svcs)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, cfg, worker)

	// Setup router
	router, err := setupRouter(h, svcs, cfg)
	if err != nil {
		logger.Error("Failed to set up router", "error", err)
		os.Exit(1)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Pending audit writes finish before the database closes
	worker.Shutdown()
	logger.Info("Background worker stopped")

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, svcs *services.Services, cfg *config.Config) (*gin.Engine, error) {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.FromContext(c.Request.Context()).Error("Panic recovered", "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, handlers.Envelope{Message: "Server error occurred"})
	}))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	loginLimit, err := middleware.RateLimit(cfg.LoginRateLimit)
	if err != nil {
		return nil, err
	}

	// Public
	router.GET("/health", h.Health.Index)
	router.POST("/login", loginLimit, h.Auth.Login)
	router.GET("/logout", h.Auth.Logout)

	// Session required
	protected := router.Group("")
	protected.Use(middleware.Auth(svcs.Auth, cfg.SessionCookie))
	{
		protected.Any("/api", h.API.Dispatch)
		protected.Any("/api.php", h.API.Dispatch)

		reports := protected.Group("/reports")
		{
			reports.GET("/export", h.Report.Export)
			reports.GET("/template", h.Report.Template)
			reports.GET("/outstanding.pdf", h.Report.OutstandingPDF)
		}
	}

	return router, nil
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services) {
	// Purge expired sessions every 15 minutes
	worker.ScheduleEvery("session-purge", 15*time.Minute, func(ctx context.Context) error {
		removed, err := svcs.Auth.PurgeExpiredSessions(ctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Info("[Job] Purged expired sessions", "count", removed)
		}
		return nil
	})

	logger.Info("Scheduled recurring jobs")
}
