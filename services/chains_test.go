package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tutor-genai-service/models"
	"tutor-genai-service/utils"
)

func isSummaryReduce(prompt string) bool {
	return strings.Contains(prompt, "partial summaries of consecutive portions")
}

func isFlashcardReduce(prompt string) bool {
	return strings.Contains(prompt, "Merge them into one final flashcard set")
}

func isQuizReduce(prompt string) bool {
	return strings.Contains(prompt, "Consolidate them into one final quiz")
}

func TestSummaryChainMapReduce(t *testing.T) {
	completer := &fakeCompleter{
		completeFn: func(prompt string) (string, error) {
			if isSummaryReduce(prompt) {
				return "# Final Summary", nil
			}
			return "partial summary", nil
		},
	}

	chunks := []string{"chunk one", "chunk two", "chunk three"}
	summary, err := NewSummaryChain(completer, 2).Run(context.Background(), chunks)
	if err != nil {
		t.Fatalf("summary chain: %v", err)
	}
	if summary != "# Final Summary" {
		t.Fatalf("unexpected summary %q", summary)
	}

	// Exactly one completion per chunk plus one reduce call.
	if completer.promptCount() != len(chunks)+1 {
		t.Fatalf("expected %d completions, got %d", len(chunks)+1, completer.promptCount())
	}
	reduces := 0
	for _, prompt := range completer.recordedPrompts() {
		if isSummaryReduce(prompt) {
			reduces++
		}
	}
	if reduces != 1 {
		t.Fatalf("expected exactly 1 reduce call, got %d", reduces)
	}
}

func TestSummaryChainReduceSeesPartialsInOrder(t *testing.T) {
	completer := &fakeCompleter{
		completeFn: func(prompt string) (string, error) {
			if isSummaryReduce(prompt) {
				return "final", nil
			}
			// Echo the chunk so the reduce prompt reveals ordering.
			return "summary-of(" + prompt[strings.LastIndex(prompt, "chunk"):][:7] + ")", nil
		},
	}

	_, err := NewSummaryChain(completer, 4).Run(context.Background(), []string{"chunk-0", "chunk-1", "chunk-2"})
	if err != nil {
		t.Fatalf("summary chain: %v", err)
	}

	var reducePrompt string
	for _, prompt := range completer.recordedPrompts() {
		if isSummaryReduce(prompt) {
			reducePrompt = prompt
		}
	}
	i0 := strings.Index(reducePrompt, "summary-of(chunk-0)")
	i1 := strings.Index(reducePrompt, "summary-of(chunk-1)")
	i2 := strings.Index(reducePrompt, "summary-of(chunk-2)")
	if i0 < 0 || i1 < 0 || i2 < 0 || !(i0 < i1 && i1 < i2) {
		t.Fatalf("partials out of order in reduce prompt: %d %d %d", i0, i1, i2)
	}
}

func TestFlashcardChainMapReduce(t *testing.T) {
	card := models.Flashcard{Question: "Q", Answer: "A", Difficulty: models.DifficultyEasy}
	completer := &fakeCompleter{
		completeJSONFn: func(prompt string, out any) error {
			set := out.(*models.FlashcardSet)
			if isFlashcardReduce(prompt) {
				set.Flashcards = []models.Flashcard{card, card}
			} else {
				set.Flashcards = []models.Flashcard{card, card, card}
			}
			return nil
		},
	}

	chunks := []string{"one", "two"}
	set, err := NewFlashcardChain(completer, 2).Run(context.Background(), chunks)
	if err != nil {
		t.Fatalf("flashcard chain: %v", err)
	}
	if len(set.Flashcards) != 2 {
		t.Fatalf("expected reduced set, got %d cards", len(set.Flashcards))
	}
	if completer.promptCount() != len(chunks)+1 {
		t.Fatalf("expected %d completions, got %d", len(chunks)+1, completer.promptCount())
	}
}

func TestFlashcardChainMapFailureSkipsReduce(t *testing.T) {
	boom := errors.New("provider down")
	completer := &fakeCompleter{
		completeJSONFn: func(prompt string, out any) error {
			if isFlashcardReduce(prompt) {
				t.Error("reduce must not run after a map failure")
			}
			return boom
		},
	}

	_, err := NewFlashcardChain(completer, 2).Run(context.Background(), []string{"one", "two"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected map failure to propagate, got %v", err)
	}
}

func TestFlashcardChainInvalidReduceOutput(t *testing.T) {
	completer := &fakeCompleter{
		completeJSONFn: func(prompt string, out any) error {
			set := out.(*models.FlashcardSet)
			if isFlashcardReduce(prompt) {
				// Difficulty outside the schema enum.
				set.Flashcards = []models.Flashcard{{Question: "Q", Answer: "A", Difficulty: "impossible"}}
			} else {
				set.Flashcards = []models.Flashcard{{Question: "Q", Answer: "A", Difficulty: models.DifficultyHard}}
			}
			return nil
		},
	}

	_, err := NewFlashcardChain(completer, 1).Run(context.Background(), []string{"one"})
	if !errors.Is(err, utils.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestQuizChainKeepsBothQuestionTypes(t *testing.T) {
	mc := models.MultipleChoiceQuestion{
		QuestionBase: models.QuestionBase{Question: "pick one", CorrectAnswer: "a", Points: 2},
		Options:      []string{"a", "b", "c", "d"},
	}
	sa := models.ShortAnswerQuestion{
		QuestionBase: models.QuestionBase{Question: "explain", CorrectAnswer: "because", Points: 3},
	}
	completer := &fakeCompleter{
		completeJSONFn: func(prompt string, out any) error {
			quiz := out.(*models.Quiz)
			quiz.Questions = []models.QuizQuestion{mc, sa}
			return nil
		},
	}

	quiz, err := NewQuizChain(completer, 2).Run(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("quiz chain: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	if quiz.Questions[0].QuestionType() != models.QuestionTypeMultipleChoice {
		t.Fatalf("first question type = %q", quiz.Questions[0].QuestionType())
	}
	if quiz.Questions[1].QuestionType() != models.QuestionTypeShortAnswer {
		t.Fatalf("second question type = %q", quiz.Questions[1].QuestionType())
	}
}

func TestQuizChainInvalidQuestionRejected(t *testing.T) {
	completer := &fakeCompleter{
		completeJSONFn: func(prompt string, out any) error {
			quiz := out.(*models.Quiz)
			quiz.Questions = []models.QuizQuestion{
				models.MultipleChoiceQuestion{
					QuestionBase: models.QuestionBase{Question: "pick", CorrectAnswer: "a", Points: 1},
					Options:      []string{"a"}, // too few options
				},
			}
			return nil
		},
	}

	_, err := NewQuizChain(completer, 1).Run(context.Background(), []string{"one"})
	if !errors.Is(err, utils.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestQuizChainConsolidatesTwoPartials(t *testing.T) {
	sa := func(q string) models.ShortAnswerQuestion {
		return models.ShortAnswerQuestion{QuestionBase: models.QuestionBase{Question: q, CorrectAnswer: "x", Points: 1}}
	}
	mc := func(q string) models.MultipleChoiceQuestion {
		return models.MultipleChoiceQuestion{
			QuestionBase: models.QuestionBase{Question: q, CorrectAnswer: "a", Points: 2},
			Options:      []string{"a", "b", "c", "d"},
		}
	}

	mapCalls := 0
	completer := &fakeCompleter{
		completeJSONFn: func(prompt string, out any) error {
			quiz := out.(*models.Quiz)
			if isQuizReduce(prompt) {
				// Consolidation of 3+4 questions with one duplicate dropped.
				quiz.Questions = []models.QuizQuestion{
					mc("m1"), sa("s1"), mc("m2"), sa("s2"), mc("m3"), sa("s3"),
				}
				return nil
			}
			mapCalls++
			if mapCalls == 1 {
				quiz.Questions = []models.QuizQuestion{mc("m1"), sa("s1"), mc("m2")}
			} else {
				quiz.Questions = []models.QuizQuestion{sa("s2"), mc("m3"), sa("s3"), sa("s1")}
			}
			return nil
		},
	}

	// Sequential map stage keeps the scripted per-call outputs deterministic.
	quiz, err := NewQuizChain(completer, 1).Run(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("quiz chain: %v", err)
	}
	if mapCalls != 2 {
		t.Fatalf("expected 2 map calls, got %d", mapCalls)
	}

	seen := map[string]bool{}
	var mcCount, saCount int
	for _, q := range quiz.Questions {
		text := q.Base().Question
		if seen[text] {
			t.Fatalf("duplicate question text %q survived consolidation", text)
		}
		seen[text] = true
		switch q.QuestionType() {
		case models.QuestionTypeMultipleChoice:
			mcCount++
		case models.QuestionTypeShortAnswer:
			saCount++
		}
	}
	if mcCount == 0 || saCount == 0 {
		t.Fatalf("consolidated quiz must keep both types: mc=%d sa=%d", mcCount, saCount)
	}
}

func TestQuizChainReducePromptCarriesPartials(t *testing.T) {
	sa := models.ShortAnswerQuestion{
		QuestionBase: models.QuestionBase{Question: "unique-question-text", CorrectAnswer: "x", Points: 1},
	}
	var reducePrompt string
	completer := &fakeCompleter{
		completeJSONFn: func(prompt string, out any) error {
			if isQuizReduce(prompt) {
				reducePrompt = prompt
			}
			quiz := out.(*models.Quiz)
			quiz.Questions = []models.QuizQuestion{sa}
			return nil
		},
	}

	if _, err := NewQuizChain(completer, 1).Run(context.Background(), []string{"one"}); err != nil {
		t.Fatalf("quiz chain: %v", err)
	}
	if !strings.Contains(reducePrompt, "unique-question-text") {
		t.Fatal("reduce prompt must carry the serialized partial questions")
	}
	if !strings.Contains(reducePrompt, fmt.Sprintf("%q", models.QuestionTypeShortAnswer)) {
		t.Fatal("serialized partials must carry the question_type discriminator")
	}
}
