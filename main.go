package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"clinic-app-server/internal/config"
	"clinic-app-server/internal/logger"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/reminder"
	"clinic-app-server/internal/routes"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		zapLogger.Fatal("Error connecting to database", zap.Error(err))
	}

	// Reminder subsystem: scheduler computes send times on appointment
	// writes, the sweeper delivers due items on a cron schedule.
	loc := reminder.LoadLocation(cfg.Timezone)
	clock := reminder.NewSystemClock(loc)
	store := reminder.NewGormStore(db, time.Duration(cfg.ClaimTTLMinutes)*time.Minute)
	scheduler := reminder.NewScheduler(store, clock, zapLogger)
	messenger := reminder.NewMessenger(cfg.Twilio)
	gateway := reminder.NewGateway(messenger, cfg.Twilio, loc, zapLogger)

	locker := reminder.NewNoopLocker()
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		locker = reminder.NewRedisLocker(redisClient)
	} else {
		zapLogger.Warn("Redis not configured, sweep runs without a leader lock")
	}

	sweeper := reminder.NewSweeper(store, store, gateway, locker, clock, cfg.SweepBatchSize, zapLogger)
	if err := sweeper.Start(cfg.SweepCronSpec); err != nil {
		zapLogger.Fatal("Error starting reminder sweeper", zap.Error(err))
	}

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, db, cfg, scheduler, store)

	// Stop the sweeper cleanly on SIGINT/SIGTERM so in-flight sends finish
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		zapLogger.Info("Shutting down, stopping reminder sweeper")
		sweeper.Stop()
		os.Exit(0)
	}()

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	zapLogger.Info("Server starting", zap.String("port", cfg.Port))
	if err := router.Run(serverAddr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
