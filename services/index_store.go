package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tutor-genai-service/internal/ai"
	"tutor-genai-service/internal/config"
	"tutor-genai-service/models"
)

// ChunkFilter scopes store reads to one user and optionally one document.
type ChunkFilter struct {
	UserID string
	Source string // empty matches every document of the user
}

// ChunkWriter is the store's write path. Writes are additive across
// documents and users; rows are distinguished solely by (user_id, source).
type ChunkWriter interface {
	AddRetrievalChunks(ctx context.Context, chunks []models.Chunk) error
	AddGenerationChunks(ctx context.Context, chunks []models.Chunk) error
}

// ChunkSearcher executes filtered similarity search over the retrieval
// collection. Results come back ordered by descending relevance.
type ChunkSearcher interface {
	SearchRetrievalChunks(ctx context.Context, query string, filter ChunkFilter, topK int) ([]models.Chunk, error)
}

// GenerationSource fetches generation chunks for a filter. The store makes
// no ordering promise; callers re-sort by chunk_index.
type GenerationSource interface {
	FetchGenerationChunks(ctx context.Context, filter ChunkFilter, limit int) ([]models.Chunk, error)
}

// ChunkStore is the full dual-collection store boundary bound to a session.
type ChunkStore interface {
	ChunkWriter
	ChunkSearcher
	GenerationSource
	EnsureCollections(ctx context.Context) error
	Close(ctx context.Context) error
}

// maxCosineCandidates bounds the candidate set scanned by the in-process
// similarity fallback when Atlas Vector Search is disabled.
const maxCosineCandidates = 2048

// IndexStore is the MongoDB-backed dual-collection store: embedded
// retrieval chunks in one collection, large plain-text generation chunks in
// the other. Safe for concurrent queries; Close releases the connection
// exactly once.
type IndexStore struct {
	client              *mongo.Client
	dbName              string
	retrieval           *mongo.Collection
	generation          *mongo.Collection
	embedder            ai.Embedder
	vectorSearchEnabled bool
	vectorIndexName     string
	closeOnce           sync.Once
}

func NewIndexStore(client *mongo.Client, cfg *config.Config, embedder ai.Embedder) *IndexStore {
	db := client.Database(cfg.DBName)
	return &IndexStore{
		client:              client,
		dbName:              cfg.DBName,
		retrieval:           db.Collection(models.RetrievalCollection),
		generation:          db.Collection(models.GenerationCollection),
		embedder:            embedder,
		vectorSearchEnabled: cfg.VectorSearchEnabled,
		vectorIndexName:     cfg.VectorIndexName,
	}
}

// EnsureCollections makes both collections and their indexes exist.
// Idempotent and safe to run from concurrently starting processes.
func (s *IndexStore) EnsureCollections(ctx context.Context) error {
	return config.EnsureChunkCollections(ctx, s.client, s.dbName)
}

// AddRetrievalChunks embeds each chunk and inserts the batch into the
// retrieval collection.
func (s *IndexStore) AddRetrievalChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d retrieval chunks: %w", len(chunks), err)
	}

	docs := make([]interface{}, len(chunks))
	for i := range chunks {
		chunk := chunks[i]
		chunk.Vector = vectors[i]
		docs[i] = chunk
	}
	if _, err := s.retrieval.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert retrieval chunks: %w", err)
	}
	return nil
}

// AddGenerationChunks inserts the batch into the generation collection
// without computing embeddings.
func (s *IndexStore) AddGenerationChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]interface{}, len(chunks))
	for i := range chunks {
		docs[i] = chunks[i]
	}
	if _, err := s.generation.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert generation chunks: %w", err)
	}
	return nil
}

// SearchRetrievalChunks embeds the query and runs filtered similarity
// search. With Atlas Vector Search enabled this is a $vectorSearch
// aggregation; otherwise the filtered candidate set is ranked in process.
func (s *IndexStore) SearchRetrievalChunks(ctx context.Context, query string, filter ChunkFilter, topK int) ([]models.Chunk, error) {
	if topK <= 0 {
		topK = 5
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if s.vectorSearchEnabled {
		return s.vectorSearch(ctx, queryVector, filter, topK)
	}
	return s.cosineSearch(ctx, queryVector, filter, topK)
}

func (s *IndexStore) vectorSearch(ctx context.Context, queryVector []float32, filter ChunkFilter, topK int) ([]models.Chunk, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.M{
			"index":         s.vectorIndexName,
			"path":          "vector",
			"queryVector":   queryVector,
			"numCandidates": topK * 10,
			"limit":         topK,
			"filter":        chunkFilterQuery(filter),
		}}},
	}

	cursor, err := s.retrieval.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Chunk
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode vector search results: %w", err)
	}
	return results, nil
}

func (s *IndexStore) cosineSearch(ctx context.Context, queryVector []float32, filter ChunkFilter, topK int) ([]models.Chunk, error) {
	cursor, err := s.retrieval.Find(ctx, chunkFilterQuery(filter),
		options.Find().SetLimit(maxCosineCandidates))
	if err != nil {
		return nil, fmt.Errorf("fetch retrieval candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []models.Chunk
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("decode retrieval candidates: %w", err)
	}

	return rankByCosine(candidates, queryVector, topK), nil
}

// FetchGenerationChunks returns up to limit chunks matching the filter, in
// whatever order the store yields them.
func (s *IndexStore) FetchGenerationChunks(ctx context.Context, filter ChunkFilter, limit int) ([]models.Chunk, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.generation.Find(ctx, chunkFilterQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("fetch generation chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var chunks []models.Chunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("decode generation chunks: %w", err)
	}
	return chunks, nil
}

// Close disconnects the store client. Safe to call repeatedly; only the
// first call releases the connection.
func (s *IndexStore) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		err = s.client.Disconnect(ctx)
	})
	return err
}

// chunkFilterQuery translates a ChunkFilter into a boolean Mongo filter:
// always user_id, plus source when a document is named.
func chunkFilterQuery(filter ChunkFilter) bson.M {
	query := bson.M{"user_id": filter.UserID}
	if filter.Source != "" {
		query["source"] = filter.Source
	}
	return query
}

// rankByCosine orders candidates by descending cosine similarity to the
// query vector and keeps the top k.
func rankByCosine(candidates []models.Chunk, queryVector []float32, topK int) []models.Chunk {
	type scored struct {
		chunk models.Chunk
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		ranked = append(ranked, scored{chunk: candidate, score: cosineSimilarity(queryVector, candidate.Vector)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if topK > len(ranked) {
		topK = len(ranked)
	}
	results := make([]models.Chunk, topK)
	for i := 0; i < topK; i++ {
		results[i] = ranked[i].chunk
	}
	return results
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return -1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return -1
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
