package services

import (
	"context"
	"fmt"
	"sync"

	genai "github.com/google/generative-ai-go/genai"

	"tutor-genai-service/models"
)

// fakeCompleter scripts completion behavior for chain and session tests and
// records every prompt it sees.
type fakeCompleter struct {
	mu             sync.Mutex
	prompts        []string
	completeFn     func(prompt string) (string, error)
	completeJSONFn func(prompt string, out any) error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.record(prompt)
	if f.completeFn == nil {
		return "ok", nil
	}
	return f.completeFn(prompt)
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, prompt string, schema *genai.Schema, out any) error {
	f.record(prompt)
	if f.completeJSONFn == nil {
		return fmt.Errorf("no completeJSONFn configured")
	}
	return f.completeJSONFn(prompt, out)
}

func (f *fakeCompleter) record(prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
}

func (f *fakeCompleter) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeCompleter) recordedPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// memoryChunkStore is an in-process ChunkStore for session tests. Search
// ignores similarity and returns the filtered set in insertion order, which
// is enough to exercise filtering and plumbing.
type memoryChunkStore struct {
	mu         sync.Mutex
	retrieval  []models.Chunk
	generation []models.Chunk
	closeCalls int
}

func (m *memoryChunkStore) EnsureCollections(ctx context.Context) error { return nil }

func (m *memoryChunkStore) AddRetrievalChunks(ctx context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieval = append(m.retrieval, chunks...)
	return nil
}

func (m *memoryChunkStore) AddGenerationChunks(ctx context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation = append(m.generation, chunks...)
	return nil
}

func (m *memoryChunkStore) SearchRetrievalChunks(ctx context.Context, query string, filter ChunkFilter, topK int) ([]models.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []models.Chunk
	for _, chunk := range m.retrieval {
		if matchesFilter(chunk, filter) {
			matches = append(matches, chunk)
		}
	}
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *memoryChunkStore) FetchGenerationChunks(ctx context.Context, filter ChunkFilter, limit int) ([]models.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []models.Chunk
	for _, chunk := range m.generation {
		if matchesFilter(chunk, filter) {
			matches = append(matches, chunk)
		}
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *memoryChunkStore) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return nil
}

func matchesFilter(chunk models.Chunk, filter ChunkFilter) bool {
	if chunk.UserID != filter.UserID {
		return false
	}
	return filter.Source == "" || chunk.Source == filter.Source
}
