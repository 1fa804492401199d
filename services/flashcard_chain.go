package services

import (
	"context"
	"encoding/json"
	"fmt"

	genai "github.com/google/generative-ai-go/genai"

	"tutor-genai-service/internal/ai"
	"tutor-genai-service/models"
	"tutor-genai-service/utils"
)

const flashcardMapPrompt = `You are a study assistant. From the following portion of a study document, create exactly 3 flashcards covering its most important concepts. Each flashcard has a question, a concise answer, and a difficulty of "easy", "medium" or "hard".

%s`

const flashcardReducePrompt = `The following JSON arrays hold flashcards generated from consecutive portions of one study document.

%s

Merge them into one final flashcard set for the whole document. Remove duplicates and near-duplicates, keep the clearest phrasing of each card, and keep a healthy mix of difficulties.`

// flashcardSchema constrains the model response to the FlashcardSet shape.
var flashcardSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"flashcards": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question":   {Type: genai.TypeString},
					"answer":     {Type: genai.TypeString},
					"difficulty": {Type: genai.TypeString, Enum: []string{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}},
				},
				Required: []string{"question", "answer", "difficulty"},
			},
		},
	},
	Required: []string{"flashcards"},
}

// FlashcardChain generates a deduplicated flashcard set for a whole document
// with a map-reduce pass over its generation chunks.
type FlashcardChain struct {
	completer   ai.Completer
	concurrency int
}

func NewFlashcardChain(completer ai.Completer, concurrency int) *FlashcardChain {
	return &FlashcardChain{completer: completer, concurrency: concurrency}
}

func (c *FlashcardChain) Run(ctx context.Context, chunks []string) (*models.FlashcardSet, error) {
	partials, err := mapChunks(ctx, chunks, c.concurrency, func(ctx context.Context, chunk string) (models.FlashcardSet, error) {
		var set models.FlashcardSet
		if err := c.completer.CompleteJSON(ctx, fmt.Sprintf(flashcardMapPrompt, chunk), flashcardSchema, &set); err != nil {
			return models.FlashcardSet{}, err
		}
		return set, nil
	})
	if err != nil {
		return nil, fmt.Errorf("flashcard map stage: %w", err)
	}

	merged, err := c.reduce(ctx, partials)
	if err != nil {
		return nil, fmt.Errorf("flashcard reduce stage: %w", err)
	}
	return merged, nil
}

func (c *FlashcardChain) reduce(ctx context.Context, partials []models.FlashcardSet) (*models.FlashcardSet, error) {
	encoded, err := json.Marshal(partials)
	if err != nil {
		return nil, err
	}

	var final models.FlashcardSet
	if err := c.completer.CompleteJSON(ctx, fmt.Sprintf(flashcardReducePrompt, string(encoded)), flashcardSchema, &final); err != nil {
		return nil, err
	}
	if err := final.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrSchemaViolation, err)
	}
	return &final, nil
}
