package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edupdf/internal/generate"
	"edupdf/pkg/domain"

	"github.com/google/uuid"
)

// Generation defaults applied when the request leaves the knob unset.
const (
	defaultNumQuestions = 5
	defaultNumCards     = 5
	defaultMaxLength    = 500

	maxNumQuestions = 50
	maxNumCards     = 100
	maxSummaryLen   = 5000
)

// CreateQuiz generates a multiple-choice quiz from the document's text and
// persists it. numQuestions <= 0 applies the default.
func (a *App) CreateQuiz(ctx context.Context, owner domain.User, documentID string, numQuestions int) (domain.Quiz, error) {
	if numQuestions <= 0 {
		numQuestions = defaultNumQuestions
	}
	if numQuestions > maxNumQuestions {
		return domain.Quiz{}, fmt.Errorf("%w: at most %d questions", ErrInvalidInput, maxNumQuestions)
	}
	doc, err := a.GetDocument(owner, documentID)
	if err != nil {
		return domain.Quiz{}, err
	}
	text, err := a.documentText(ctx, doc)
	if err != nil {
		return domain.Quiz{}, err
	}
	items, err := a.generator.Quiz(ctx, text, numQuestions)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", ErrInvalidGenerated, err)
	}

	quiz := domain.Quiz{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		CreatedAt:  time.Now().UTC(),
	}
	for _, item := range items {
		q, err := questionFromItem(quiz.ID, item)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := a.store.SaveQuiz(quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	return quiz, nil
}

// ListQuizzes returns all quizzes generated for a document the caller owns.
func (a *App) ListQuizzes(owner domain.User, documentID string) ([]domain.Quiz, error) {
	doc, err := a.GetDocument(owner, documentID)
	if err != nil {
		return nil, err
	}
	return a.store.ListQuizzesByDocument(doc.ID)
}

// CreateFlashcards generates flashcards from the document's text and
// persists them. numCards <= 0 applies the default.
func (a *App) CreateFlashcards(ctx context.Context, owner domain.User, documentID string, numCards int) ([]domain.Flashcard, error) {
	if numCards <= 0 {
		numCards = defaultNumCards
	}
	if numCards > maxNumCards {
		return nil, fmt.Errorf("%w: at most %d cards", ErrInvalidInput, maxNumCards)
	}
	doc, err := a.GetDocument(owner, documentID)
	if err != nil {
		return nil, err
	}
	text, err := a.documentText(ctx, doc)
	if err != nil {
		return nil, err
	}
	items, err := a.generator.Flashcards(ctx, text, numCards)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGenerated, err)
	}

	now := time.Now().UTC()
	cards := make([]domain.Flashcard, 0, len(items))
	for _, item := range items {
		term := strings.TrimSpace(item.Front)
		definition := strings.TrimSpace(item.Back)
		if term == "" || definition == "" {
			return nil, fmt.Errorf("%w: flashcard with an empty side", ErrInvalidGenerated)
		}
		cards = append(cards, domain.Flashcard{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Term:       term,
			Definition: definition,
			CreatedAt:  now,
		})
	}
	if err := a.store.SaveFlashcards(cards); err != nil {
		return nil, fmt.Errorf("save flashcards: %w", err)
	}
	return cards, nil
}

// ListFlashcards returns all flashcards generated for a document the
// caller owns.
func (a *App) ListFlashcards(owner domain.User, documentID string) ([]domain.Flashcard, error) {
	doc, err := a.GetDocument(owner, documentID)
	if err != nil {
		return nil, err
	}
	return a.store.ListFlashcardsByDocument(doc.ID)
}

// CreateSummary generates a summary of the document's text and persists it.
// maxLength <= 0 applies the default.
func (a *App) CreateSummary(ctx context.Context, owner domain.User, documentID string, maxLength int) (domain.Summary, error) {
	if maxLength <= 0 {
		maxLength = defaultMaxLength
	}
	if maxLength > maxSummaryLen {
		return domain.Summary{}, fmt.Errorf("%w: summary length capped at %d", ErrInvalidInput, maxSummaryLen)
	}
	doc, err := a.GetDocument(owner, documentID)
	if err != nil {
		return domain.Summary{}, err
	}
	text, err := a.documentText(ctx, doc)
	if err != nil {
		return domain.Summary{}, err
	}
	content, err := a.generator.Summary(ctx, text, maxLength)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("%w: %v", ErrInvalidGenerated, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Summary{}, fmt.Errorf("%w: empty summary", ErrInvalidGenerated)
	}

	summary := domain.Summary{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.SaveSummary(summary); err != nil {
		return domain.Summary{}, fmt.Errorf("save summary: %w", err)
	}
	return summary, nil
}

// ListSummaries returns all summaries generated for a document the caller
// owns.
func (a *App) ListSummaries(owner domain.User, documentID string) ([]domain.Summary, error) {
	doc, err := a.GetDocument(owner, documentID)
	if err != nil {
		return nil, err
	}
	return a.store.ListSummariesByDocument(doc.ID)
}

// questionFromItem validates one generated question. Options must hold at
// least two distinct entries and the answer index must point inside them.
func questionFromItem(quizID string, item generate.QuizItem) (domain.QuizQuestion, error) {
	question := strings.TrimSpace(item.Question)
	if question == "" {
		return domain.QuizQuestion{}, fmt.Errorf("%w: empty question", ErrInvalidGenerated)
	}
	if len(item.Options) < 2 {
		return domain.QuizQuestion{}, fmt.Errorf("%w: question needs at least two options", ErrInvalidGenerated)
	}
	for _, o := range item.Options {
		if strings.TrimSpace(o) == "" {
			return domain.QuizQuestion{}, fmt.Errorf("%w: empty option", ErrInvalidGenerated)
		}
	}
	if item.CorrectAnswer < 0 || item.CorrectAnswer >= len(item.Options) {
		return domain.QuizQuestion{}, fmt.Errorf("%w: answer index %d out of range", ErrInvalidGenerated, item.CorrectAnswer)
	}
	return domain.QuizQuestion{
		ID:            uuid.NewString(),
		QuizID:        quizID,
		Question:      question,
		Options:       item.Options,
		CorrectAnswer: item.CorrectAnswer,
	}, nil
}
