package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"tutor-genai-service/internal/ai"
	"tutor-genai-service/internal/config"
	"tutor-genai-service/internal/logger"
	"tutor-genai-service/internal/queue"
	"tutor-genai-service/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

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

	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	cache := services.NewChunkCache(redisClient, time.Duration(cfg.CacheTTLMin)*time.Minute)

	files := services.NewFileStorage(cfg.DocumentsDir)
	sessionModels := services.SessionModels{Chat: chatClient, Generation: genClient}
	sessions := services.NewSessionManager(
		services.NewMongoSessionFactory(cfg, sessionModels, embedder, cache, files))
	defer sessions.CleanupAll(context.Background())

	connOpt, err := queue.RedisConnOpt(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("Failed to configure task queue:", err)
	}

	server := asynq.NewServer(
		connOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				queue.QueueIngest: 6,
				"default":         4,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewIngestProcessor(sessions)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskDocumentIngest, processor.ProcessDocumentIngest)

	logger.Info("ingestion worker starting", "concurrency", 10, "redis", cfg.RedisURL)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
