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

const quizMapPrompt = `You are a study assistant. From the following portion of a study document, write a mini quiz of 3 to 4 questions testing its key ideas. Mix "multiple_choice" questions (with 4 options, one of which is the correct answer) and "short_answer" questions (where the correct answer is a short reference answer). Assign each question a positive point value.

%s`

const quizReducePrompt = `The following JSON arrays hold quiz questions generated from consecutive portions of one study document.

%s

Consolidate them into one final quiz for the whole document. Drop duplicate or overlapping questions, keep both multiple choice and short answer questions, and keep point values consistent.`

// quizSchema constrains the model response to the Quiz envelope. The union
// is flattened for the provider: options is present only on multiple choice
// questions, the discriminator picks the variant on decode.
var quizSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"questions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question_type":  {Type: genai.TypeString, Enum: []string{models.QuestionTypeMultipleChoice, models.QuestionTypeShortAnswer}},
					"question":       {Type: genai.TypeString},
					"correct_answer": {Type: genai.TypeString},
					"points":         {Type: genai.TypeInteger},
					"options":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				},
				Required: []string{"question_type", "question", "correct_answer", "points"},
			},
		},
	},
	Required: []string{"questions"},
}

// QuizChain generates a consolidated quiz for a whole document with a
// map-reduce pass over its generation chunks.
type QuizChain struct {
	completer   ai.Completer
	concurrency int
}

func NewQuizChain(completer ai.Completer, concurrency int) *QuizChain {
	return &QuizChain{completer: completer, concurrency: concurrency}
}

func (c *QuizChain) Run(ctx context.Context, chunks []string) (*models.Quiz, error) {
	partials, err := mapChunks(ctx, chunks, c.concurrency, func(ctx context.Context, chunk string) (models.Quiz, error) {
		var quiz models.Quiz
		if err := c.completer.CompleteJSON(ctx, fmt.Sprintf(quizMapPrompt, chunk), quizSchema, &quiz); err != nil {
			return models.Quiz{}, err
		}
		return quiz, nil
	})
	if err != nil {
		return nil, fmt.Errorf("quiz map stage: %w", err)
	}

	final, err := c.reduce(ctx, partials)
	if err != nil {
		return nil, fmt.Errorf("quiz reduce stage: %w", err)
	}
	return final, nil
}

func (c *QuizChain) reduce(ctx context.Context, partials []models.Quiz) (*models.Quiz, error) {
	encoded, err := json.Marshal(partials)
	if err != nil {
		return nil, err
	}

	var final models.Quiz
	if err := c.completer.CompleteJSON(ctx, fmt.Sprintf(quizReducePrompt, string(encoded)), quizSchema, &final); err != nil {
		return nil, err
	}
	if err := final.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrSchemaViolation, err)
	}
	return &final, nil
}
