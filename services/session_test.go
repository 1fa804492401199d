package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tutor-genai-service/internal/config"
	"tutor-genai-service/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		RetrievalChunkSize:     100,
		RetrievalChunkOverlap:  20,
		GenerationChunkSize:    400,
		GenerationChunkOverlap: 50,
		GenerationChunkLimit:   10,
		TopK:                   3,
		MapConcurrency:         2,
	}
}

func newTestSession(t *testing.T, store *memoryChunkStore, completer *fakeCompleter) (*StudySession, *FileStorage) {
	t.Helper()
	files := NewFileStorage(t.TempDir())
	session, err := NewStudySession(context.Background(), "user-1", testConfig(),
		SessionModels{Chat: completer, Generation: completer}, store, nil, files)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return session, files
}

// writeTestDocument writes directly into the session's storage dir so the
// load path and the delete-after-ingest path run against the same location.
func writeTestDocument(t *testing.T, files *FileStorage, name, body string) string {
	t.Helper()
	full := filepath.Join(files.dir, name)
	if err := os.WriteFile(full, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return full
}

func TestSessionLoadDocumentIndexesBothSides(t *testing.T) {
	store := &memoryChunkStore{}
	session, files := newTestSession(t, store, &fakeCompleter{})

	path := writeTestDocument(t, files, "notes.txt", strings.Repeat("study material sentence. ", 40))
	message, err := session.LoadDocument(context.Background(), path, "notes.txt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.Contains(message, "notes.txt") {
		t.Fatalf("confirmation message should name the document: %q", message)
	}

	if len(store.retrieval) == 0 || len(store.generation) == 0 {
		t.Fatalf("expected chunks on both sides, got retrieval=%d generation=%d",
			len(store.retrieval), len(store.generation))
	}
	for i, chunk := range store.generation {
		if chunk.ChunkIndex != i {
			t.Fatalf("generation chunk %d has index %d", i, chunk.ChunkIndex)
		}
		if chunk.UserID != "user-1" || chunk.Source != "notes.txt" {
			t.Fatalf("chunk missing provenance: %+v", chunk)
		}
	}

	// The source file is deleted once its text is extracted.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("ingested file should be deleted, stat err = %v", err)
	}
}

func TestSessionShortDocumentIsOneGenerationChunk(t *testing.T) {
	store := &memoryChunkStore{}
	session, files := newTestSession(t, store, &fakeCompleter{})

	path := writeTestDocument(t, files, "tiny.txt", "one short page")
	if _, err := session.LoadDocument(context.Background(), path, "tiny.txt"); err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(store.generation) != 1 {
		t.Fatalf("expected 1 generation chunk, got %d", len(store.generation))
	}
	if store.generation[0].ChunkIndex != 0 {
		t.Fatalf("single chunk must have index 0, got %d", store.generation[0].ChunkIndex)
	}
}

func TestSessionPromptGroundsOnRetrievedContext(t *testing.T) {
	store := &memoryChunkStore{}
	completer := &fakeCompleter{
		completeFn: func(prompt string) (string, error) { return "answer", nil },
	}
	session, files := newTestSession(t, store, completer)

	path := writeTestDocument(t, files, "notes.txt", "photosynthesis converts light into chemical energy")
	if _, err := session.LoadDocument(context.Background(), path, "notes.txt"); err != nil {
		t.Fatalf("load: %v", err)
	}

	answer, err := session.Prompt(context.Background(), "what is photosynthesis?", "notes.txt")
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if answer != "answer" {
		t.Fatalf("unexpected answer %q", answer)
	}

	prompts := completer.recordedPrompts()
	last := prompts[len(prompts)-1]
	if !strings.Contains(last, "photosynthesis converts light") {
		t.Fatal("chat prompt must embed the retrieved context")
	}
	if !strings.Contains(last, "what is photosynthesis?") {
		t.Fatal("chat prompt must embed the question")
	}
}

func TestSessionSummarizeUnknownDocument(t *testing.T) {
	session, _ := newTestSession(t, &memoryChunkStore{}, &fakeCompleter{})
	_, err := session.Summarize(context.Background(), "never-loaded.pdf")
	if !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionCleanupIsIdempotentAndFinal(t *testing.T) {
	store := &memoryChunkStore{}
	session, _ := newTestSession(t, store, &fakeCompleter{})

	session.Cleanup(context.Background())
	session.Cleanup(context.Background())
	if store.closeCalls != 1 {
		t.Fatalf("store closed %d times, want exactly once", store.closeCalls)
	}

	if _, err := session.Prompt(context.Background(), "q", ""); !errors.Is(err, utils.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed from Prompt, got %v", err)
	}
	if _, err := session.LoadDocument(context.Background(), "p", "d"); !errors.Is(err, utils.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed from LoadDocument, got %v", err)
	}
	if _, err := session.GenerateQuiz(context.Background(), "d"); !errors.Is(err, utils.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed from GenerateQuiz, got %v", err)
	}
}

func TestSessionManagerReusesLiveSession(t *testing.T) {
	created := 0
	manager := NewSessionManager(func(ctx context.Context, userID string) (*StudySession, error) {
		created++
		files := NewFileStorage(t.TempDir())
		return NewStudySession(ctx, userID, testConfig(),
			SessionModels{Chat: &fakeCompleter{}, Generation: &fakeCompleter{}},
			&memoryChunkStore{}, nil, files)
	})

	first, err := manager.GetOrCreate(context.Background(), "u")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := manager.GetOrCreate(context.Background(), "u")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first != second {
		t.Fatal("manager must reuse the live session for a user")
	}
	if created != 1 {
		t.Fatalf("factory ran %d times, want 1", created)
	}

	other, err := manager.GetOrCreate(context.Background(), "v")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if other == first {
		t.Fatal("users must not share sessions")
	}
}

func TestSessionManagerCleanupAll(t *testing.T) {
	stores := make(map[string]*memoryChunkStore)
	manager := NewSessionManager(func(ctx context.Context, userID string) (*StudySession, error) {
		store := &memoryChunkStore{}
		stores[userID] = store
		files := NewFileStorage(t.TempDir())
		return NewStudySession(ctx, userID, testConfig(),
			SessionModels{Chat: &fakeCompleter{}, Generation: &fakeCompleter{}},
			store, nil, files)
	})

	if _, err := manager.GetOrCreate(context.Background(), "u"); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.GetOrCreate(context.Background(), "v"); err != nil {
		t.Fatal(err)
	}

	manager.CleanupAll(context.Background())
	for userID, store := range stores {
		if store.closeCalls != 1 {
			t.Fatalf("store for %q closed %d times, want 1", userID, store.closeCalls)
		}
	}
}
