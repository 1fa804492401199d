package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tutor-genai-service/models"
)

// ConnectMongoDB dials the chunk store and ensures both chunk collections
// exist with their indexes. Unreachable storage is fatal to the caller; there
// is no retry loop here.
func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	if err := EnsureChunkCollections(ctx, client, cfg.DBName); err != nil {
		return nil, fmt.Errorf("failed to create chunk indexes: %v", err)
	}

	return client, nil
}

// EnsureChunkCollections creates the indexes backing the dual-collection
// design. CreateMany is idempotent, so concurrent process startups are safe
// and re-running against existing collections never errors.
func EnsureChunkCollections(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	retrievalIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "source", Value: 1}}},
	}
	if _, err := db.Collection(models.RetrievalCollection).Indexes().CreateMany(ctx, retrievalIndexes); err != nil {
		return err
	}

	generationIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "source", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "source", Value: 1}, {Key: "chunk_index", Value: 1}}},
	}
	if _, err := db.Collection(models.GenerationCollection).Indexes().CreateMany(ctx, generationIndexes); err != nil {
		return err
	}

	return nil
}
