package store

import (
	"time"

	"edupdf/pkg/domain"
)

// ProgressUpdate carries one upsert's worth of study progress. Nil fields are
// omitted from the update so previously stored values survive.
type ProgressUpdate struct {
	ID                  string
	UserID              string
	DocumentID          string
	QuizScore           *float64
	FlashcardsCompleted *int
	LastAccessed        time.Time
}

// Store defines persistence operations for users, documents, and the study
// artifacts derived from documents.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// documents
	SaveDocument(domain.Document) error
	ListDocumentsByOwner(ownerID string) ([]domain.Document, error)
	GetDocumentOwned(id, ownerID string) (domain.Document, bool, error)
	// DeleteDocumentCascade removes the document row together with every
	// child row (progress, summaries, flashcards, quiz questions, quizzes)
	// in a single transaction. The backing file is the caller's problem.
	DeleteDocumentCascade(id string) error

	// quizzes
	SaveQuiz(domain.Quiz) error
	ListQuizzesByDocument(documentID string) ([]domain.Quiz, error)

	// flashcards
	SaveFlashcards([]domain.Flashcard) error
	ListFlashcardsByDocument(documentID string) ([]domain.Flashcard, error)

	// summaries
	SaveSummary(domain.Summary) error
	ListSummariesByDocument(documentID string) ([]domain.Summary, error)

	// study progress
	UpsertProgress(ProgressUpdate) (domain.StudyProgress, error)
	GetProgress(userID, documentID string) (domain.StudyProgress, bool, error)
}

// SessionStore issues and validates bearer tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	UserIDFromToken(token string) (string, error)
}
