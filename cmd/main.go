package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tutor-genai-service/internal/ai"
	"tutor-genai-service/internal/config"
	"tutor-genai-service/internal/logger"
	"tutor-genai-service/internal/queue"
	"tutor-genai-service/internal/telemetry"
	"tutor-genai-service/middleware"
	"tutor-genai-service/routes"
	"tutor-genai-service/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	var tracerShutdown func()
	if cfg.TracingEnabled {
		tracerShutdown, err = telemetry.InitTracer("tutor-genai-service", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
			tracerShutdown = nil
		}
	}

	// Boot-time store check; per-session connections are dialed separately.
	bootClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		bootClient.Disconnect(ctx)
	}()

	// Redis is optional: without it the chunk cache, rate limiting and the
	// ingestion queue are off, the rest of the service still works.
	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, cache/rate-limit/queue disabled", "error", err)
		redisClient = nil
	}

	ctx := context.Background()
	embedder, err := ai.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingsModel)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	chatClient, err := ai.NewGeminiClient(ctx, cfg.GeminiChatAPIKey, cfg.ChatModel, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to initialize chat model:", err)
	}
	defer chatClient.Close()

	genClient, err := ai.NewGeminiClient(ctx, cfg.GeminiGenAPIKey, cfg.GenerationModel, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to initialize generation model:", err)
	}
	defer genClient.Close()

	files := services.NewFileStorage(cfg.DocumentsDir)
	cache := services.NewChunkCache(redisClient, time.Duration(cfg.CacheTTLMin)*time.Minute)
	sessionModels := services.SessionModels{Chat: chatClient, Generation: genClient}
	sessions := services.NewSessionManager(
		services.NewMongoSessionFactory(cfg, sessionModels, embedder, cache, files))

	janitor := services.NewUploadJanitor(cfg.DocumentsDir,
		time.Duration(cfg.JanitorIntervalMin)*time.Minute,
		time.Duration(cfg.JanitorMaxAgeMin)*time.Minute)
	if err := janitor.Start(); err != nil {
		logger.Warn("upload janitor not started", "error", err)
	}

	var enqueuer *asynq.Client
	if redisClient != nil {
		connOpt, err := queue.RedisConnOpt(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("task queue disabled", "error", err)
		} else {
			enqueuer = asynq.NewClient(connOpt)
			defer enqueuer.Close()
		}
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.RateLimitMiddleware(redisClient, cfg))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		healthCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := bootClient.Ping(healthCtx, readpref.Primary()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	routes.SetupTutorRoutes(router, routes.TutorDeps{
		Sessions: sessions,
		Files:    files,
		Enqueuer: enqueuer,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	janitor.Stop()
	sessions.CleanupAll(shutdownCtx)
	if tracerShutdown != nil {
		tracerShutdown()
	}
	logger.Info("server exited")
}
