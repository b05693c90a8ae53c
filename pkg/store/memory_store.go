package store

import (
	"sync"

	"edupdf/pkg/domain"
)

// MemoryStore keeps all rows in-process. It mirrors the relational layout
// closely enough for tests and local development.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User // user ID -> user
	emails     map[string]string      // email -> user ID
	documents  map[string]domain.Document
	docOrder   []string // insertion order of document IDs
	quizzes    map[string][]domain.Quiz      // document ID -> quizzes
	flashcards map[string][]domain.Flashcard // document ID -> cards
	summaries  map[string][]domain.Summary   // document ID -> summaries
	progress   map[string]domain.StudyProgress
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]domain.User),
		emails:     make(map[string]string),
		documents:  make(map[string]domain.Document),
		quizzes:    make(map[string][]domain.Quiz),
		flashcards: make(map[string][]domain.Flashcard),
		summaries:  make(map[string][]domain.Summary),
		progress:   make(map[string]domain.StudyProgress),
	}
}

func progressKey(userID, documentID string) string {
	return userID + "\x00" + documentID
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.emails[email]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return domain.User{}, false, nil
	}
	user, ok := m.users[id]
	return user, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	return user, ok, nil
}

func (m *MemoryStore) SaveDocument(d domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.documents[d.ID]; !exists {
		m.docOrder = append(m.docOrder, d.ID)
	}
	m.documents[d.ID] = d
	return nil
}

// ListDocumentsByOwner returns the owner's documents, newest upload first.
func (m *MemoryStore) ListDocumentsByOwner(ownerID string) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Document, 0)
	for i := len(m.docOrder) - 1; i >= 0; i-- {
		if d, ok := m.documents[m.docOrder[i]]; ok && d.OwnerID == ownerID {
			res = append(res, d)
		}
	}
	return res, nil
}

func (m *MemoryStore) GetDocumentOwned(id, ownerID string) (domain.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	if !ok || d.OwnerID != ownerID {
		return domain.Document{}, false, nil
	}
	return d, true, nil
}

func (m *MemoryStore) DeleteDocumentCascade(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, id)
	delete(m.quizzes, id)
	delete(m.flashcards, id)
	delete(m.summaries, id)
	for key, p := range m.progress {
		if p.DocumentID == id {
			delete(m.progress, key)
		}
	}
	return nil
}

func (m *MemoryStore) SaveQuiz(q domain.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.DocumentID] = append(m.quizzes[q.DocumentID], q)
	return nil
}

func (m *MemoryStore) ListQuizzesByDocument(documentID string) ([]domain.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Quiz{}, m.quizzes[documentID]...), nil
}

func (m *MemoryStore) SaveFlashcards(cards []domain.Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, card := range cards {
		m.flashcards[card.DocumentID] = append(m.flashcards[card.DocumentID], card)
	}
	return nil
}

func (m *MemoryStore) ListFlashcardsByDocument(documentID string) ([]domain.Flashcard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Flashcard{}, m.flashcards[documentID]...), nil
}

func (m *MemoryStore) SaveSummary(s domain.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[s.DocumentID] = append(m.summaries[s.DocumentID], s)
	return nil
}

func (m *MemoryStore) ListSummariesByDocument(documentID string) ([]domain.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Summary{}, m.summaries[documentID]...), nil
}

// UpsertProgress applies one update atomically under the store lock, merging
// supplied fields into any existing row.
func (m *MemoryStore) UpsertProgress(u ProgressUpdate) (domain.StudyProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := progressKey(u.UserID, u.DocumentID)
	row, exists := m.progress[key]
	if !exists {
		row = domain.StudyProgress{
			ID:         u.ID,
			UserID:     u.UserID,
			DocumentID: u.DocumentID,
		}
	}
	if u.QuizScore != nil {
		score := *u.QuizScore
		row.QuizScore = &score
	}
	if u.FlashcardsCompleted != nil {
		done := *u.FlashcardsCompleted
		row.FlashcardsCompleted = &done
	}
	row.LastAccessed = u.LastAccessed.UTC()
	m.progress[key] = row
	return row, nil
}

func (m *MemoryStore) GetProgress(userID, documentID string) (domain.StudyProgress, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.progress[progressKey(userID, documentID)]
	return row, ok, nil
}
