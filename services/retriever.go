package services

import (
	"context"
	"strings"

	"tutor-genai-service/internal/logger"
)

// Retriever turns a question into grounding context for the chat prompt.
type Retriever struct {
	searcher ChunkSearcher
	topK     int
}

func NewRetriever(searcher ChunkSearcher, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{searcher: searcher, topK: topK}
}

// Retrieve runs similarity search scoped to the user (and one document when
// documentName is set) and joins the matching chunk texts into a single
// context block. No matches is not an error: an empty string tells the
// caller there is nothing to ground on.
func (r *Retriever) Retrieve(ctx context.Context, query, userID, documentName string) (string, error) {
	chunks, err := r.searcher.SearchRetrievalChunks(ctx, query, ChunkFilter{UserID: userID, Source: documentName}, r.topK)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		logger.Debug("no retrieval matches", "user_id", userID, "source", documentName)
		return "", nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	return strings.Join(texts, "\n\n"), nil
}
