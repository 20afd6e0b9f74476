package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/wacampaign/campaign-scheduler/environments"
	"github.com/wacampaign/campaign-scheduler/handlers"
	"github.com/wacampaign/campaign-scheduler/internal/cooldown"
	"github.com/wacampaign/campaign-scheduler/internal/delivery"
	"github.com/wacampaign/campaign-scheduler/internal/repository"
	"github.com/wacampaign/campaign-scheduler/internal/scheduler"
	"github.com/wacampaign/campaign-scheduler/internal/service"
	"github.com/wacampaign/campaign-scheduler/pkg/addrcache"
	"github.com/wacampaign/campaign-scheduler/pkg/database"
	"github.com/wacampaign/campaign-scheduler/pkg/logger"
	"github.com/wacampaign/campaign-scheduler/pkg/redis"
	"github.com/wacampaign/campaign-scheduler/pkg/validator"
	"github.com/wacampaign/campaign-scheduler/pkg/webhook"
	"github.com/wacampaign/campaign-scheduler/pkg/whatsapp"
	"github.com/wacampaign/campaign-scheduler/routes"

	_ "github.com/wacampaign/campaign-scheduler/docs" // swagger docs
)

// @title WhatsApp Campaign Scheduler API
// @version 1.0
// @description Operator API for the recurring WhatsApp campaign scheduler

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	// Load config
	cfg := environments.Load()

	logger.Init(cfg.Log.Level)

	// Hard-fail if required settings are missing
	if cfg.Provider.APIKey == "" {
		logger.Fatalf("WHATSAPP_API_KEY is required but not set")
	}
	if cfg.Auth.APIKey == "" {
		logger.Fatalf("API_KEY is required but not set")
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		logger.Fatalf("Invalid SCHEDULE_TIMEZONE %q: %v", cfg.Scheduler.Timezone, err)
	}

	logger.Infof("Starting campaign scheduler (timezone: %s)...", loc)

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed data
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db, loc); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Initialize repositories
	campaignRepo := repository.NewCampaignRepository(db)
	recipientRepo := repository.NewRecipientRepository(db)
	sendRepo := repository.NewSendRepository(db)

	// Cooldown store: valkey when reachable, send history otherwise
	var cooldownStore cooldown.Store
	redisClient, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Valkey not available, cooldowns served from send history: %v", err)
		redisClient = nil
		cooldownStore = repository.NewHistoryCooldownStore(sendRepo)
	} else {
		cooldownStore = redisClient
	}
	gate := cooldown.NewGate(cooldownStore, cfg.Delivery.CooldownWindow)

	addressCache, err := addrcache.New(cfg.Delivery.AddressCacheTTL)
	if err != nil {
		logger.Fatalf("Failed to create address cache: %v", err)
	}

	// Initialize provider and delivery
	provider := whatsapp.NewClient(cfg.Provider)
	logger.Infof("WhatsApp gateway configured: %s (instance %s)", cfg.Provider.BaseURL, cfg.Provider.Instance)

	executor := delivery.NewExecutor(provider, sendRepo, gate, addressCache, delivery.Config{
		CountryCode:          cfg.Delivery.CountryCode,
		ReconnectSettleDelay: cfg.Delivery.ReconnectSettleDelay,
	})

	// Initialize services
	runner := service.NewCampaignRunner(campaignRepo, recipientRepo, gate, executor, cfg.Delivery)
	campaignService := service.NewCampaignService(campaignRepo, sendRepo, provider, loc)

	alertClient := webhook.NewWebhookClient(cfg.Alert)
	if alertClient.Enabled() {
		logger.Infof("Operator alerts configured: %s", alertClient.GetURL())
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize scheduler
	sched := scheduler.NewScheduler(campaignRepo, runner, alertClient, cfg.Scheduler, loc)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient, sched)
	campaignHandler := handlers.NewCampaignHandler(campaignService, sched)
	schedulerHandler := handlers.NewSchedulerHandler(sched, ctx)

	channelHandler := handlers.NewChannelHandler(campaignService, nil, cfg.Delivery.CooldownWindow)
	if redisClient != nil {
		channelHandler = handlers.NewChannelHandler(campaignService, redisClient, cfg.Delivery.CooldownWindow)
	}

	// Auto-start scheduler
	if cfg.Scheduler.AutoStart {
		logger.Infof("Auto-starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start scheduler: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"x-api-key",
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, healthHandler, campaignHandler, schedulerHandler, channelHandler, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Stop scheduler first so the running campaign can finish and persist
	if sched.IsRunning() {
		logger.Infof("Stopping scheduler...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- sched.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping scheduler: %v", err)
			} else {
				logger.Infof("Scheduler stopped successfully")
			}
		case <-stopCtx.Done():
			logger.Warnf("Scheduler stop timeout, forcing shutdown")
		}
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close valkey connection
	if redisClient != nil {
		logger.Infof("Closing valkey connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing valkey: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
