package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"tutor-genai-service/internal/logger"
	"tutor-genai-service/services"
)

const (
	// TaskDocumentIngest runs the full ingestion pipeline for one uploaded
	// document in the background.
	TaskDocumentIngest = "document:ingest"

	QueueIngest = "ingest"
)

// RedisConnOpt translates the service's Redis settings into the form the
// task queue expects. Accepts either a full redis:// URL or host:port.
func RedisConnOpt(redisURL, password string, db int) (asynq.RedisConnOpt, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		return asynq.ParseRedisURI(redisURL)
	}
	return asynq.RedisClientOpt{Addr: redisURL, Password: password, DB: db}, nil
}

// DocumentIngestPayload identifies one saved upload awaiting ingestion.
type DocumentIngestPayload struct {
	UserID       string `json:"user_id"`
	DocumentName string `json:"document_name"`
	Path         string `json:"path"`
}

func NewDocumentIngestTask(payload DocumentIngestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDocumentIngest, data,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue(QueueIngest),
	), nil
}

// IngestProcessor executes queued ingestion tasks against per-user sessions.
type IngestProcessor struct {
	sessions *services.SessionManager
}

func NewIngestProcessor(sessions *services.SessionManager) *IngestProcessor {
	return &IngestProcessor{sessions: sessions}
}

func (p *IngestProcessor) ProcessDocumentIngest(ctx context.Context, task *asynq.Task) error {
	var payload DocumentIngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// A payload we cannot decode will never succeed.
		return fmt.Errorf("decode ingest payload: %v: %w", err, asynq.SkipRetry)
	}

	session, err := p.sessions.GetOrCreate(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("open session for user %q: %w", payload.UserID, err)
	}

	message, err := session.LoadDocument(ctx, payload.Path, payload.DocumentName)
	if err != nil {
		return fmt.Errorf("ingest %q for user %q: %w", payload.DocumentName, payload.UserID, err)
	}

	logger.Info("queued ingestion finished",
		"user_id", payload.UserID,
		"document", payload.DocumentName,
		"result", message)
	return nil
}
