package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"mediastream/streaming-app/internal/api"
	"mediastream/streaming-app/internal/cache"
	"mediastream/streaming-app/internal/config"
	"mediastream/streaming-app/internal/logging"
	"mediastream/streaming-app/internal/ratelimit"
	"mediastream/streaming-app/internal/repository/mongo"
	"mediastream/streaming-app/internal/service"
	"mediastream/streaming-app/internal/storage"
	"mediastream/streaming-app/internal/token"
)

func main() {
	log := logging.NewLoggerWithService("streaming-app")
	log.Info("Starting media streaming server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.WithError(err).Fatal("Could not load config")
	}
	log.Info("Configuration loaded")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to MongoDB")
	}
	defer func() {
		log.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.WithError(err).Error("Failed to disconnect MongoDB")
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Info("Database connection established")

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureMediaIndexes(ctx, appDB.Collection("media_assets"))
		mongo.EnsureViewLogIndexes(ctx, appDB.Collection("media_view_logs"))
		log.Info("Index creation process completed")
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize S3 storage")
	}

	// --- Initialize Redis (optional) ---
	// Without Redis the service still runs: the rate limiter degrades
	// to an in-process counter and analytics are always recomputed.
	var redisClient goredis.UniversalClient
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.WithError(err).Warn("Redis unavailable, running in degraded mode")
			_ = client.Close()
		} else {
			redisClient = client
			defer client.Close()
			log.WithField("addr", cfg.Redis.Addr).Info("Redis connection established")
		}
		pingCancel()
	} else {
		log.Warn("No Redis address configured, running in degraded mode")
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	mediaRepo := mongo.NewMongoMediaRepository(appDB)
	viewLogRepo := mongo.NewMongoViewLogRepository(appDB)

	// --- Initialize Services ---
	streamSecret := cfg.Stream.Secret
	if streamSecret == "" {
		streamSecret = cfg.JWT.Secret
	}
	codec := token.NewCodec(streamSecret)
	limiter := ratelimit.New(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window, log)
	analyticsCache := cache.New(redisClient, log)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	mediaService := service.NewMediaService(mediaRepo, viewLogRepo, fileStorage, codec, limiter, analyticsCache, cfg.Stream.BaseURL, cfg.Stream.DefaultTTL, log)

	// --- Initialize Gin Engine ---
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	api.SetupRoutes(router, cfg.JWT.Secret, authService, mediaService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.WithField("addr", cfg.Server.Address).Info("Server starting")

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("ListenAndServe error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exiting")
}
