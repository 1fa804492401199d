package services

import (
	"strings"

	"tutor-genai-service/models"
)

// Splitter produces overlapping fixed-size windows of text. It splits
// greedily on a priority list of separators (paragraph, line, sentence,
// word, character) so chunks break on natural boundaries where possible.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   []string{"\n\n", "\n", ". ", " ", ""},
	}
}

// SplitDocuments splits each text unit in order and stamps the resulting
// chunks with provenance metadata plus a fresh zero-based chunk index.
// Output is deterministic for identical input; generation-side consumers
// rely on chunk_index to reconstruct reading order after a round trip
// through unordered storage.
func (s *Splitter) SplitDocuments(docs []string, userID, source string) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		for _, piece := range s.Split(doc) {
			chunks = append(chunks, models.Chunk{
				Text:       piece,
				UserID:     userID,
				Source:     source,
				ChunkIndex: len(chunks),
			})
		}
	}
	return chunks
}

// Split returns chunks of at most chunkSize characters with chunkOverlap
// characters of shared context between consecutive chunks.
func (s *Splitter) Split(text string) []string {
	return s.splitRecursive(text, s.separators)
}

func (s *Splitter) splitRecursive(text string, separators []string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{strings.TrimSpace(text)}
	}

	// Pick the highest-priority separator present in this span.
	separator := ""
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}
	if separator == "" {
		return s.windowSplit(text)
	}

	parts := strings.Split(text, separator)
	var chunks []string
	var pending []string
	for _, part := range parts {
		if len(part) <= s.chunkSize {
			pending = append(pending, part)
			continue
		}
		// Oversized part: flush what we have, then recurse with
		// lower-priority separators.
		chunks = append(chunks, s.mergeParts(pending, separator)...)
		pending = nil
		chunks = append(chunks, s.splitRecursive(part, remaining)...)
	}
	chunks = append(chunks, s.mergeParts(pending, separator)...)
	return chunks
}

// mergeParts greedily packs small parts into chunks of at most chunkSize,
// carrying a tail of parts forward so consecutive chunks share roughly
// chunkOverlap characters of context.
func (s *Splitter) mergeParts(parts []string, sep string) []string {
	var chunks []string
	var window []string
	total := 0
	sepLen := len(sep)

	for _, part := range parts {
		partLen := len(part)
		joinLen := 0
		if len(window) > 0 {
			joinLen = sepLen
		}
		if total+partLen+joinLen > s.chunkSize && len(window) > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, sep)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Drop parts from the front until the retained tail fits the
			// overlap budget and leaves room for the incoming part.
			for len(window) > 0 && (total > s.chunkOverlap || total+partLen+sepLen > s.chunkSize) {
				total -= len(window[0])
				if len(window) > 1 {
					total -= sepLen
				}
				window = window[1:]
			}
		}
		window = append(window, part)
		total += partLen
		if len(window) > 1 {
			total += sepLen
		}
	}

	if chunk := strings.TrimSpace(strings.Join(window, sep)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// windowSplit is the last resort for text with no usable separators: plain
// character windows stepped by chunkSize-chunkOverlap.
func (s *Splitter) windowSplit(text string) []string {
	step := s.chunkSize - s.chunkOverlap
	if step < 1 {
		step = 1
	}
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}
		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(text) {
			break
		}
	}
	return chunks
}
