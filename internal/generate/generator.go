package generate

import "context"

// QuizItem is one generated multiple-choice question. CorrectAnswer is an
// index into Options.
type QuizItem struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// CardItem is one generated flashcard.
type CardItem struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// ContentGenerator produces study material from extracted document text.
type ContentGenerator interface {
	Quiz(ctx context.Context, text string, numQuestions int) ([]QuizItem, error)
	Flashcards(ctx context.Context, text string, numCards int) ([]CardItem, error)
	Summary(ctx context.Context, text string, maxLength int) (string, error)
}
