package app

import (
	"fmt"
	"time"

	"edupdf/pkg/domain"
	"edupdf/pkg/store"

	"github.com/google/uuid"
)

// UpdateProgress records study progress for a document. Nil fields are left
// untouched on an existing record, so a quiz score and a flashcard count
// reported in separate requests merge into one row. LastAccessed always
// moves to now.
func (a *App) UpdateProgress(owner domain.User, documentID string, quizScore *float64, flashcardsCompleted *int) (domain.StudyProgress, error) {
	if quizScore != nil && (*quizScore < 0 || *quizScore > 1) {
		return domain.StudyProgress{}, fmt.Errorf("%w: quiz score must be between 0 and 1", ErrInvalidInput)
	}
	if flashcardsCompleted != nil && *flashcardsCompleted < 0 {
		return domain.StudyProgress{}, fmt.Errorf("%w: flashcard count cannot be negative", ErrInvalidInput)
	}
	doc, err := a.GetDocument(owner, documentID)
	if err != nil {
		return domain.StudyProgress{}, err
	}
	progress, err := a.store.UpsertProgress(store.ProgressUpdate{
		ID:                  uuid.NewString(),
		UserID:              owner.ID,
		DocumentID:          doc.ID,
		QuizScore:           quizScore,
		FlashcardsCompleted: flashcardsCompleted,
		LastAccessed:        time.Now().UTC(),
	})
	if err != nil {
		return domain.StudyProgress{}, fmt.Errorf("upsert progress: %w", err)
	}
	return progress, nil
}

// Progress returns the caller's recorded progress for a document.
func (a *App) Progress(owner domain.User, documentID string) (domain.StudyProgress, error) {
	doc, err := a.GetDocument(owner, documentID)
	if err != nil {
		return domain.StudyProgress{}, err
	}
	progress, found, err := a.store.GetProgress(owner.ID, doc.ID)
	if err != nil {
		return domain.StudyProgress{}, fmt.Errorf("lookup progress: %w", err)
	}
	if !found {
		return domain.StudyProgress{}, ErrProgressNotFound
	}
	return progress, nil
}
