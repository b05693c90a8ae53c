package domain

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Document struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	Title      string    `json:"title"`
	StorageKey string    `json:"-"`
	PageCount  int       `json:"pageCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Quiz struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"documentId"`
	Questions  []QuizQuestion `json:"questions"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type QuizQuestion struct {
	ID            string   `json:"id"`
	QuizID        string   `json:"-"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

type Flashcard struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Term       string    `json:"term"`
	Definition string    `json:"definition"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Summary struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// StudyProgress is the single mutable record per (user, document) pair.
// A nil field has never been reported for that pair.
type StudyProgress struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"-"`
	DocumentID          string    `json:"documentId"`
	QuizScore           *float64  `json:"quizScore"`
	FlashcardsCompleted *int      `json:"flashcardsCompleted"`
	LastAccessed        time.Time `json:"lastAccessed"`
}
