package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/placedir/placedir-backend/config"
	"github.com/placedir/placedir-backend/internal/app/controller"
	"github.com/placedir/placedir-backend/internal/app/repository"
	"github.com/placedir/placedir-backend/internal/app/service"
	"github.com/placedir/placedir-backend/internal/cache"
	"github.com/placedir/placedir-backend/internal/db"
	"github.com/placedir/placedir-backend/internal/index"
	"github.com/placedir/placedir-backend/internal/metrics"
	"github.com/placedir/placedir-backend/internal/middleware"
	"github.com/placedir/placedir-backend/internal/router"
	"github.com/placedir/placedir-backend/internal/scheduler"
	"github.com/placedir/placedir-backend/pkg/logger"
	"github.com/placedir/placedir-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Server.LogFormat,
		EnableColor: cfg.Server.LogFormat == "console",
	})

	logger.Info("Starting place directory server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	database, err := db.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(database); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis는 선택 사항: 비활성화/연결 실패 시 캐시 없이 동작
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, aggregation cache disabled", map[string]interface{}{
			"error": err.Error(),
		})
		redisClient = nil
	}
	defer func() {
		if err := redis.Close(redisClient); err != nil {
			logger.Error("Failed to close redis connection", err)
		}
	}()
	aggCache := cache.NewAggregateCache(redisClient, cfg.Redis.CacheTTL)

	metrics.Register()

	// Initialize repositories
	placeRepo := repository.NewPlaceRepository(database)
	ratingRepo := repository.NewRatingRepository(database)
	userRepo := repository.NewUserRepository(database)
	favoriteRepo := repository.NewFavoriteRepository(database)

	// Initialize services
	placeService := service.NewPlaceService(
		placeRepo,
		ratingRepo,
		userRepo,
		index.NewGeoIndex(),
		index.NewTextIndex(),
		aggCache,
		cfg.Directory,
	)
	ratingService := service.NewRatingService(ratingRepo, placeRepo, aggCache)
	favoriteService := service.NewFavoriteService(favoriteRepo, placeRepo)
	aggregateService := service.NewAggregateService(placeRepo, aggCache, cfg.Directory)

	// 인덱스는 메모리에만 있으므로 시작 시 DB에서 다시 만든다
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Minute)
	if err := placeService.RebuildIndexes(startupCtx); err != nil {
		cancelStartup()
		logger.Fatal("Failed to build search indexes", err)
	}
	cancelStartup()

	// Initialize scheduler
	var directoryScheduler *scheduler.DirectoryScheduler
	if cfg.Scheduler.Enabled {
		directoryScheduler = scheduler.NewDirectoryScheduler(cfg.Scheduler, placeService, aggregateService)
		if err := directoryScheduler.Start(); err != nil {
			logger.Fatal("Failed to start scheduler", err)
		}
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go rateLimiter.RunCleanup(ctx)

	// Setup router
	r := router.NewRouter(
		controller.NewPlaceController(placeService),
		controller.NewRatingController(ratingService),
		controller.NewFavoriteController(favoriteService),
		controller.NewTagController(aggregateService, placeService),
		authMiddleware,
		rateLimiter,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	if directoryScheduler != nil {
		directoryScheduler.Stop()
	}

	logger.Info("Server stopped successfully")
}
