package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string
	Port     string
	GinMode  string

	CORSOrigins []string

	// Gemini provider settings. Chat and generation may use different models
	// (and in deployments with split quotas, different keys).
	GeminiAPIKey        string
	GeminiChatAPIKey    string
	GeminiGenAPIKey     string
	ChatModel           string
	GenerationModel     string
	EmbeddingsModel     string
	GeminiTier          string

	// Chunking policy. Retrieval chunks are embedded and searched; generation
	// chunks feed the map-reduce chains without a query.
	RetrievalChunkSize     int
	RetrievalChunkOverlap  int
	GenerationChunkSize    int
	GenerationChunkOverlap int
	GenerationChunkLimit   int
	TopK                   int
	MapConcurrency         int

	DocumentsDir string

	// Redis (generation chunk cache, rate limiting, task queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int
	CacheTTLMin   int

	RateLimitReqs   int
	RateLimitWindow int

	// Atlas Vector Search; when disabled the store falls back to in-process
	// cosine ranking over the filtered candidate set.
	VectorSearchEnabled bool
	VectorIndexName     string
	VectorDimensions    int

	TracingEnabled bool
	OTLPEndpoint   string

	JanitorIntervalMin int
	JanitorMaxAgeMin   int
}

func LoadConfig() (*Config, error) {
	// Load .env file if present
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/tutor_genai"),
		DBName:   getEnv("DB_NAME", "tutor_genai"),
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiChatAPIKey: getEnv("GEMINI_API_KEY_CHAT", ""),
		GeminiGenAPIKey:  getEnv("GEMINI_API_KEY_GEN", ""),
		ChatModel:        getEnv("CHAT_MODEL", "gemini-2.0-flash"),
		GenerationModel:  getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		EmbeddingsModel:  getEnv("EMBEDDINGS_MODEL", "text-embedding-004"),
		GeminiTier:       getEnv("GEMINI_TIER", "free"),

		RetrievalChunkSize:     getEnvInt("RETRIEVAL_CHUNK_SIZE", 1000),
		RetrievalChunkOverlap:  getEnvInt("RETRIEVAL_CHUNK_OVERLAP", 200),
		GenerationChunkSize:    getEnvInt("GENERATION_CHUNK_SIZE", 4000),
		GenerationChunkOverlap: getEnvInt("GENERATION_CHUNK_OVERLAP", 200),
		GenerationChunkLimit:   getEnvInt("GENERATION_CHUNK_LIMIT", 100),
		TopK:                   getEnvInt("TOP_K", 5),
		MapConcurrency:         getEnvInt("MAP_CONCURRENCY", 4),

		DocumentsDir: getEnv("DOCUMENTS_DIR", "./documents"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTLMin:   getEnvInt("CACHE_TTL_MINUTES", 60),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		VectorSearchEnabled: getEnvBool("MONGODB_VECTOR_ENABLED", false),
		VectorIndexName:     getEnv("MONGODB_VECTOR_INDEX", "retrieval_chunks_vector"),
		VectorDimensions:    getEnvInt("VECTOR_DIM", 768),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),

		JanitorIntervalMin: getEnvInt("JANITOR_INTERVAL_MINUTES", 15),
		JanitorMaxAgeMin:   getEnvInt("JANITOR_MAX_AGE_MINUTES", 60),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}
	if cfg.GeminiChatAPIKey == "" {
		cfg.GeminiChatAPIKey = cfg.GeminiAPIKey
	}
	if cfg.GeminiGenAPIKey == "" {
		cfg.GeminiGenAPIKey = cfg.GeminiAPIKey
	}
	if cfg.RetrievalChunkOverlap >= cfg.RetrievalChunkSize {
		return nil, fmt.Errorf("RETRIEVAL_CHUNK_OVERLAP must be smaller than RETRIEVAL_CHUNK_SIZE")
	}
	if cfg.GenerationChunkOverlap >= cfg.GenerationChunkSize {
		return nil, fmt.Errorf("GENERATION_CHUNK_OVERLAP must be smaller than GENERATION_CHUNK_SIZE")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
