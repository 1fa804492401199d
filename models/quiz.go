package models

import (
	"encoding/json"
	"fmt"
)

// Quiz question discriminator values.
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeShortAnswer    = "short_answer"
)

// QuizQuestion is a tagged variant over the supported question shapes.
// Concrete types are MultipleChoiceQuestion and ShortAnswerQuestion; the
// "question_type" field is the discriminator on the wire.
type QuizQuestion interface {
	QuestionType() string
	Base() QuestionBase
	Validate() error
}

// QuestionBase holds the fields shared by every question variant.
type QuestionBase struct {
	Question      string `json:"question"`
	CorrectAnswer string `json:"correct_answer"`
	Points        int    `json:"points"`
}

func (b QuestionBase) Base() QuestionBase { return b }

func (b QuestionBase) validateBase() error {
	if b.Question == "" {
		return fmt.Errorf("question text missing")
	}
	if b.CorrectAnswer == "" {
		return fmt.Errorf("correct answer missing")
	}
	if b.Points <= 0 {
		return fmt.Errorf("points must be positive, got %d", b.Points)
	}
	return nil
}

// MultipleChoiceQuestion adds an ordered list of answer options.
type MultipleChoiceQuestion struct {
	QuestionBase
	Options []string `json:"options"`
}

func (q MultipleChoiceQuestion) QuestionType() string { return QuestionTypeMultipleChoice }

func (q MultipleChoiceQuestion) Validate() error {
	if err := q.validateBase(); err != nil {
		return err
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("multiple choice question needs at least 2 options, got %d", len(q.Options))
	}
	return nil
}

func (q MultipleChoiceQuestion) MarshalJSON() ([]byte, error) {
	type alias MultipleChoiceQuestion
	return json.Marshal(struct {
		Type string `json:"question_type"`
		alias
	}{Type: QuestionTypeMultipleChoice, alias: alias(q)})
}

// ShortAnswerQuestion is free-text; the correct answer is a reference answer.
type ShortAnswerQuestion struct {
	QuestionBase
}

func (q ShortAnswerQuestion) QuestionType() string { return QuestionTypeShortAnswer }

func (q ShortAnswerQuestion) Validate() error { return q.validateBase() }

func (q ShortAnswerQuestion) MarshalJSON() ([]byte, error) {
	type alias ShortAnswerQuestion
	return json.Marshal(struct {
		Type string `json:"question_type"`
		alias
	}{Type: QuestionTypeShortAnswer, alias: alias(q)})
}

// DecodeQuizQuestion decodes one question by its discriminator field.
func DecodeQuizQuestion(raw json.RawMessage) (QuizQuestion, error) {
	var tag struct {
		Type string `json:"question_type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("decode question tag: %w", err)
	}
	switch tag.Type {
	case QuestionTypeMultipleChoice:
		var q MultipleChoiceQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, err
		}
		return q, nil
	case QuestionTypeShortAnswer:
		var q ShortAnswerQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown question type %q", tag.Type)
	}
}

// Quiz is the structured payload exchanged with the generation model.
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

func (q *Quiz) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	questions := make([]QuizQuestion, 0, len(envelope.Questions))
	for i, raw := range envelope.Questions {
		question, err := DecodeQuizQuestion(raw)
		if err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
		questions = append(questions, question)
	}
	q.Questions = questions
	return nil
}

// Validate checks every question in the quiz.
func (q Quiz) Validate() error {
	for i, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}
