// Package main runs the live audio event server with WebSocket rooms and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/airwave-live/backend/config"
	"github.com/airwave-live/backend/internal/auth"
	"github.com/airwave-live/backend/internal/events"
	"github.com/airwave-live/backend/internal/live"
	"github.com/airwave-live/backend/internal/middleware"
	"github.com/airwave-live/backend/pkg/database"
	"github.com/airwave-live/backend/pkg/queue"
	"github.com/airwave-live/backend/pkg/redis"
	"github.com/airwave-live/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth and identity directory
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Durable event records
	eventRepo := events.NewRepository(pool)
	eventRecorder := events.NewRecorder(eventRepo)

	// Live room core
	store := live.NewRedisStore(rdb.Client,
		time.Duration(cfg.Live.StoreTimeoutMS)*time.Millisecond,
		cfg.Live.ChatLogLimit, logger)
	registry := live.NewRegistry()
	broadcaster := live.NewBroadcaster(store, registry, logger)
	rooms := live.NewRoomService(store, registry, broadcaster, eventRecorder, authRepo, cfg.Server.PublicWSURL, logger)
	dispatcher := live.NewDispatcher(store, registry, broadcaster, rooms, logger)
	relay := live.NewAudioRelay(store, registry, broadcaster,
		cfg.Live.MaxAudioFrameBytes, cfg.Live.SilenceThreshold, logger)
	gateway := live.NewGateway(registry, rooms, dispatcher, relay, jwtService, logger)
	liveHandler := live.NewHandler(store, registry, logger)

	// Participation records are written off the hot path via the job queue.
	jobQueue := queue.NewQueue(rdb.Client, logger)
	rooms.SetFirstJoinHandler(func(roomID, userID, username string, total int) {
		enqCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jobQueue.EnqueueParticipation(enqCtx, queue.ParticipationPayload{
			RoomID:      roomID,
			UserID:      userID,
			DisplayName: username,
			Count:       total,
		}); err != nil {
			logger.Warn("enqueue participation failed", zap.String("room_id", roomID), zap.Error(err))
		}
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/events/active", liveHandler.ListActive)
		api.GET("/events/:id/audience_count", liveHandler.AudienceCount)
	}

	// WebSocket (host token in query; participant joins are unauthenticated)
	router.GET("/ws/stream/*rest", gateway.ServeWs())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
