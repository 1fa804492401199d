package models

import "fmt"

// Flashcard difficulties accepted from the generation model.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Flashcard is a single question/answer study card.
type Flashcard struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty"`
}

// Validate checks that the card conforms to the requested output schema.
func (f Flashcard) Validate() error {
	if f.Question == "" {
		return fmt.Errorf("flashcard missing question")
	}
	if f.Answer == "" {
		return fmt.Errorf("flashcard missing answer")
	}
	switch f.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return nil
	default:
		return fmt.Errorf("flashcard has invalid difficulty %q", f.Difficulty)
	}
}

// FlashcardSet is the structured payload exchanged with the generation model.
type FlashcardSet struct {
	Flashcards []Flashcard `json:"flashcards"`
}

// Validate checks every card in the set.
func (s FlashcardSet) Validate() error {
	for i, f := range s.Flashcards {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("flashcard %d: %w", i, err)
		}
	}
	return nil
}
