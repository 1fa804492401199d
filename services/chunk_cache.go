package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tutor-genai-service/internal/logger"
)

// ChunkCache keeps ordered generation chunk texts in Redis so repeated
// summary/flashcard/quiz requests for the same document skip the store
// round trip. A nil cache is valid and means caching is off.
type ChunkCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewChunkCache(client *redis.Client, ttl time.Duration) *ChunkCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ChunkCache{client: client, ttl: ttl}
}

func chunkCacheKey(userID, documentName string) string {
	return fmt.Sprintf("genchunks:%s:%s", userID, documentName)
}

// Get returns the cached chunk texts, or (nil, false) on miss. Cache
// failures degrade to a miss.
func (c *ChunkCache) Get(ctx context.Context, userID, documentName string) ([]string, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, chunkCacheKey(userID, documentName)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("chunk cache read failed", "error", err)
		}
		return nil, false
	}

	var texts []string
	if err := json.Unmarshal([]byte(raw), &texts); err != nil {
		logger.Warn("chunk cache entry corrupt, dropping", "error", err)
		c.Invalidate(ctx, userID, documentName)
		return nil, false
	}
	return texts, true
}

// Set stores the chunk texts best-effort.
func (c *ChunkCache) Set(ctx context.Context, userID, documentName string, texts []string) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(texts)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, chunkCacheKey(userID, documentName), raw, c.ttl).Err(); err != nil {
		logger.Warn("chunk cache write failed", "error", err)
	}
}

// Invalidate drops the cached entry, e.g. after re-ingesting a document.
func (c *ChunkCache) Invalidate(ctx context.Context, userID, documentName string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, chunkCacheKey(userID, documentName)).Err(); err != nil {
		logger.Warn("chunk cache invalidation failed", "error", err)
	}
}
