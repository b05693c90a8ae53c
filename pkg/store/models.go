package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence. Table names follow the persisted layout
// (users, documents, quizzes, quiz_questions, flashcards, summaries,
// study_progress) rather than GORM's default pluralization.

type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Username     string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type DocumentModel struct {
	ID         string    `gorm:"primaryKey"`
	OwnerID    string    `gorm:"not null;index"`
	Title      string    `gorm:"not null"`
	StorageKey string    `gorm:"not null"`
	PageCount  int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

func (DocumentModel) TableName() string { return "documents" }

type QuizModel struct {
	ID         string    `gorm:"primaryKey"`
	DocumentID string    `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (QuizModel) TableName() string { return "quizzes" }

// QuizQuestionModel stores the options sequence as JSON so option order is
// preserved and option text may contain any characters, commas included.
type QuizQuestionModel struct {
	ID            string         `gorm:"primaryKey"`
	QuizID        string         `gorm:"not null;index"`
	Position      int            `gorm:"not null"`
	Question      string         `gorm:"type:text;not null"`
	Options       datatypes.JSON `gorm:"not null"`
	CorrectAnswer int            `gorm:"not null"`
}

func (QuizQuestionModel) TableName() string { return "quiz_questions" }

type FlashcardModel struct {
	ID         string    `gorm:"primaryKey"`
	DocumentID string    `gorm:"not null;index"`
	Term       string    `gorm:"not null"`
	Definition string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (FlashcardModel) TableName() string { return "flashcards" }

type SummaryModel struct {
	ID         string    `gorm:"primaryKey"`
	DocumentID string    `gorm:"not null;index"`
	Content    string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (SummaryModel) TableName() string { return "summaries" }

type StudyProgressModel struct {
	ID                  string    `gorm:"primaryKey"`
	UserID              string    `gorm:"not null;uniqueIndex:idx_progress_user_document"`
	DocumentID          string    `gorm:"not null;uniqueIndex:idx_progress_user_document"`
	QuizScore           *float64  `gorm:""`
	FlashcardsCompleted *int      `gorm:""`
	LastAccessed        time.Time `gorm:"not null"`
}

func (StudyProgressModel) TableName() string { return "study_progress" }
