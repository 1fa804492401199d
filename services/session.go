package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"tutor-genai-service/internal/ai"
	"tutor-genai-service/internal/config"
	"tutor-genai-service/internal/logger"
	"tutor-genai-service/models"
	"tutor-genai-service/utils"
)

const chatPromptTemplate = `You are an expert on the context provided below. Answer the student's question using only that context. If the question is unrelated to the context, politely refuse and say you can only answer questions about the loaded study material.

CONTEXT:
%s

QUESTION:
%s

ANSWER:`

// SessionModels are the two completion handles a session works with: a chat
// model for grounded Q&A and a generation model for the map-reduce chains.
type SessionModels struct {
	Chat       ai.Completer
	Generation ai.Completer
}

// StudySession binds one user's tutoring state together: the chunk store,
// retrieval, the generation chains and the transient file storage. All
// methods are safe for concurrent use; after Cleanup every operation fails
// with ErrSessionClosed.
type StudySession struct {
	userID    string
	cfg       *config.Config
	models    SessionModels
	store     ChunkStore
	retriever *Retriever
	fetcher   *GenerationChunkFetcher
	cache     *ChunkCache
	files     *FileStorage
	closed    atomic.Bool
}

func NewStudySession(ctx context.Context, userID string, cfg *config.Config, sessionModels SessionModels, store ChunkStore, cache *ChunkCache, files *FileStorage) (*StudySession, error) {
	if err := store.EnsureCollections(ctx); err != nil {
		return nil, fmt.Errorf("%w: prepare chunk collections: %v", utils.ErrConnectionFailure, err)
	}
	return &StudySession{
		userID:    userID,
		cfg:       cfg,
		models:    sessionModels,
		store:     store,
		retriever: NewRetriever(store, cfg.TopK),
		fetcher:   NewGenerationChunkFetcher(store, cfg.GenerationChunkLimit),
		cache:     cache,
		files:     files,
	}, nil
}

func (s *StudySession) UserID() string { return s.userID }

func (s *StudySession) guard() error {
	if s.closed.Load() {
		return fmt.Errorf("session for user %q: %w", s.userID, utils.ErrSessionClosed)
	}
	return nil
}

// LoadDocument runs the full ingestion pipeline for one file: extract text,
// delete the now-redundant source file, split it twice (small embedded
// retrieval chunks, large plain generation chunks) and index both sides.
func (s *StudySession) LoadDocument(ctx context.Context, path, documentName string) (string, error) {
	if err := s.guard(); err != nil {
		return "", err
	}

	docs, err := LoadDocument(path)
	if err != nil {
		return "", err
	}
	// The file has served its purpose; only the derived chunks persist.
	if err := s.files.DeleteDocument(path); err != nil {
		logger.Warn("failed to delete ingested document", "path", path, "error", err)
	}

	retrievalSplitter := NewSplitter(s.cfg.RetrievalChunkSize, s.cfg.RetrievalChunkOverlap)
	retrievalChunks := retrievalSplitter.SplitDocuments(docs, s.userID, documentName)

	// Generation chunks split the joined text so page boundaries do not
	// force undersized chunks.
	generationSplitter := NewSplitter(s.cfg.GenerationChunkSize, s.cfg.GenerationChunkOverlap)
	generationChunks := generationSplitter.SplitDocuments([]string{strings.Join(docs, "\n\n")}, s.userID, documentName)

	if err := s.store.AddRetrievalChunks(ctx, retrievalChunks); err != nil {
		return "", fmt.Errorf("index retrieval chunks: %w", err)
	}
	if err := s.store.AddGenerationChunks(ctx, generationChunks); err != nil {
		return "", fmt.Errorf("index generation chunks: %w", err)
	}
	s.cache.Invalidate(ctx, s.userID, documentName)

	logger.Info("document ingested",
		"user_id", s.userID,
		"source", documentName,
		"pages", len(docs),
		"retrieval_chunks", len(retrievalChunks),
		"generation_chunks", len(generationChunks))
	return fmt.Sprintf("Document %q loaded: %d retrieval chunks, %d generation chunks indexed.",
		documentName, len(retrievalChunks), len(generationChunks)), nil
}

// Prompt answers a question grounded in the user's indexed material. With a
// document name the search is scoped to that document, otherwise it spans
// everything the user has loaded.
func (s *StudySession) Prompt(ctx context.Context, question, documentName string) (string, error) {
	if err := s.guard(); err != nil {
		return "", err
	}

	contextBlock, err := s.retriever.Retrieve(ctx, question, s.userID, documentName)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}

	answer, err := s.models.Chat.Complete(ctx, fmt.Sprintf(chatPromptTemplate, contextBlock, question))
	if err != nil {
		return "", err
	}
	return answer, nil
}

// Summarize produces a Markdown summary of one whole document.
func (s *StudySession) Summarize(ctx context.Context, documentName string) (string, error) {
	if err := s.guard(); err != nil {
		return "", err
	}
	chunks, err := s.documentChunks(ctx, documentName)
	if err != nil {
		return "", err
	}
	return NewSummaryChain(s.models.Generation, s.cfg.MapConcurrency).Run(ctx, chunks)
}

// GenerateFlashcards produces a deduplicated flashcard set for one document.
func (s *StudySession) GenerateFlashcards(ctx context.Context, documentName string) (*models.FlashcardSet, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	chunks, err := s.documentChunks(ctx, documentName)
	if err != nil {
		return nil, err
	}
	return NewFlashcardChain(s.models.Generation, s.cfg.MapConcurrency).Run(ctx, chunks)
}

// GenerateQuiz produces a consolidated quiz for one document.
func (s *StudySession) GenerateQuiz(ctx context.Context, documentName string) (*models.Quiz, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	chunks, err := s.documentChunks(ctx, documentName)
	if err != nil {
		return nil, err
	}
	return NewQuizChain(s.models.Generation, s.cfg.MapConcurrency).Run(ctx, chunks)
}

// documentChunks returns the document's ordered generation chunk texts,
// serving from cache when possible.
func (s *StudySession) documentChunks(ctx context.Context, documentName string) ([]string, error) {
	if texts, ok := s.cache.Get(ctx, s.userID, documentName); ok {
		return texts, nil
	}

	texts, err := s.fetcher.Fetch(ctx, s.userID, documentName)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, s.userID, documentName, texts)
	return texts, nil
}

// Cleanup closes the session's store connection. Idempotent and best
// effort: release failures are logged, never propagated, so shutdown paths
// can call it unconditionally.
func (s *StudySession) Cleanup(ctx context.Context) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if err := s.store.Close(ctx); err != nil {
		logger.Warn("session store close failed", "user_id", s.userID, "error", err)
		return
	}
	logger.Info("session cleaned up", "user_id", s.userID)
}

// SessionFactory builds a fresh session, including its own store
// connection, for one user.
type SessionFactory func(ctx context.Context, userID string) (*StudySession, error)

// SessionManager hands out at most one live session per user.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*StudySession
	factory  SessionFactory
}

func NewSessionManager(factory SessionFactory) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*StudySession),
		factory:  factory,
	}
}

// GetOrCreate returns the user's live session, creating one on first use.
func (m *SessionManager) GetOrCreate(ctx context.Context, userID string) (*StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[userID]; ok {
		return session, nil
	}

	session, err := m.factory(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.sessions[userID] = session
	return session, nil
}

// CleanupAll closes every live session; used on shutdown.
func (m *SessionManager) CleanupAll(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*StudySession, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = make(map[string]*StudySession)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Cleanup(ctx)
	}
}
