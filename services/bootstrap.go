package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tutor-genai-service/internal/ai"
	"tutor-genai-service/internal/config"
	"tutor-genai-service/utils"
)

// NewMongoSessionFactory builds the production SessionFactory: each session
// gets its own store connection, released when the session is cleaned up.
// The AI clients and cache are shared across sessions.
func NewMongoSessionFactory(cfg *config.Config, sessionModels SessionModels, embedder ai.Embedder, cache *ChunkCache, files *FileStorage) SessionFactory {
	return func(ctx context.Context, userID string) (*StudySession, error) {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrConnectionFailure, err)
		}
		if err := client.Ping(dialCtx, nil); err != nil {
			client.Disconnect(context.Background())
			return nil, fmt.Errorf("%w: %v", utils.ErrConnectionFailure, err)
		}

		store := NewIndexStore(client, cfg, embedder)
		session, err := NewStudySession(ctx, userID, cfg, sessionModels, store, cache, files)
		if err != nil {
			store.Close(context.Background())
			return nil, err
		}
		return session, nil
	}
}
