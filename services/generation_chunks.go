package services

import (
	"context"
	"fmt"
	"sort"

	"tutor-genai-service/utils"
)

// GenerationChunkFetcher reads a document's generation chunks back in
// document order. The store returns them unordered; reading order is
// reconstructed here from chunk_index.
type GenerationChunkFetcher struct {
	source GenerationSource
	limit  int
}

func NewGenerationChunkFetcher(source GenerationSource, limit int) *GenerationChunkFetcher {
	if limit <= 0 {
		limit = 100
	}
	return &GenerationChunkFetcher{source: source, limit: limit}
}

// Fetch returns the chunk texts for one document of one user, sorted by
// chunk index. An unknown document is ErrNotFound; a document that exceeds
// the per-request chunk cap is ErrCapacityExceeded so the map fan-out has a
// hard upper bound.
func (f *GenerationChunkFetcher) Fetch(ctx context.Context, userID, documentName string) ([]string, error) {
	// Fetch one past the cap so overflow is distinguishable from an
	// exactly-full document.
	chunks, err := f.source.FetchGenerationChunks(ctx, ChunkFilter{UserID: userID, Source: documentName}, f.limit+1)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %q for user %q: %w", documentName, userID, utils.ErrNotFound)
	}
	if len(chunks) > f.limit {
		return nil, fmt.Errorf("document %q exceeds %d generation chunks: %w", documentName, f.limit, utils.ErrCapacityExceeded)
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	return texts, nil
}
