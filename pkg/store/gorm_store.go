package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"edupdf/pkg/domain"
)

const migrateLockID int64 = 52015201

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		return migrate(tx)
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// NewGormStoreWithDB wraps an already-open GORM handle and migrates the
// schema. Used by tests running against sqlite.
func NewGormStoreWithDB(db *gorm.DB) (*GormStore, error) {
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&UserModel{},
		&DocumentModel{},
		&QuizModel{},
		&QuizQuestionModel{},
		&FlashcardModel{},
		&SummaryModel{},
		&StudyProgressModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser inserts a user row.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveDocument inserts a document row.
func (s *GormStore) SaveDocument(d domain.Document) error {
	model := documentToModel(d)
	return s.db.Create(&model).Error
}

// ListDocumentsByOwner returns the owner's documents, newest first.
func (s *GormStore) ListDocumentsByOwner(ownerID string) ([]domain.Document, error) {
	var models []DocumentModel
	if err := s.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Document, 0, len(models))
	for _, m := range models {
		res = append(res, documentFromModel(m))
	}
	return res, nil
}

// GetDocumentOwned retrieves a document only when owned by ownerID. A row
// owned by someone else is reported exactly like an absent row.
func (s *GormStore) GetDocumentOwned(id, ownerID string) (domain.Document, bool, error) {
	var model DocumentModel
	if err := s.db.First(&model, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, err
	}
	return documentFromModel(model), true, nil
}

// DeleteDocumentCascade removes the document and all child rows atomically.
func (s *GormStore) DeleteDocumentCascade(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&StudyProgressModel{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&SummaryModel{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&FlashcardModel{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		var quizIDs []string
		if err := tx.Model(&QuizModel{}).Where("document_id = ?", id).Pluck("id", &quizIDs).Error; err != nil {
			return err
		}
		if len(quizIDs) > 0 {
			if err := tx.Delete(&QuizQuestionModel{}, "quiz_id IN ?", quizIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&QuizModel{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&DocumentModel{}, "id = ?", id).Error
	})
}

// SaveQuiz inserts the quiz and its questions in one transaction.
func (s *GormStore) SaveQuiz(q domain.Quiz) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		quiz := QuizModel{ID: q.ID, DocumentID: q.DocumentID, CreatedAt: q.CreatedAt}
		if err := tx.Create(&quiz).Error; err != nil {
			return err
		}
		if len(q.Questions) == 0 {
			return nil
		}
		models := make([]QuizQuestionModel, 0, len(q.Questions))
		for i, question := range q.Questions {
			model, err := questionToModel(question, q.ID, i)
			if err != nil {
				return err
			}
			models = append(models, model)
		}
		return tx.CreateInBatches(&models, 200).Error
	})
}

// ListQuizzesByDocument returns the document's quizzes with questions in
// generation order.
func (s *GormStore) ListQuizzesByDocument(documentID string) ([]domain.Quiz, error) {
	var quizModels []QuizModel
	if err := s.db.Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&quizModels).Error; err != nil {
		return nil, err
	}
	if len(quizModels) == 0 {
		return []domain.Quiz{}, nil
	}
	quizIDs := make([]string, 0, len(quizModels))
	for _, m := range quizModels {
		quizIDs = append(quizIDs, m.ID)
	}
	var questionModels []QuizQuestionModel
	if err := s.db.Where("quiz_id IN ?", quizIDs).
		Order("quiz_id ASC, position ASC").
		Find(&questionModels).Error; err != nil {
		return nil, err
	}
	questionsByQuiz := make(map[string][]domain.QuizQuestion, len(quizModels))
	for _, m := range questionModels {
		question, err := questionFromModel(m)
		if err != nil {
			return nil, err
		}
		questionsByQuiz[m.QuizID] = append(questionsByQuiz[m.QuizID], question)
	}
	res := make([]domain.Quiz, 0, len(quizModels))
	for _, m := range quizModels {
		res = append(res, domain.Quiz{
			ID:         m.ID,
			DocumentID: m.DocumentID,
			Questions:  questionsByQuiz[m.ID],
			CreatedAt:  m.CreatedAt,
		})
	}
	return res, nil
}

// SaveFlashcards inserts a batch of flashcards in one transaction.
func (s *GormStore) SaveFlashcards(cards []domain.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	models := make([]FlashcardModel, 0, len(cards))
	for _, card := range cards {
		models = append(models, flashcardToModel(card))
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&models, 200).Error
	})
}

// ListFlashcardsByDocument returns flashcards in generation order.
func (s *GormStore) ListFlashcardsByDocument(documentID string) ([]domain.Flashcard, error) {
	var models []FlashcardModel
	if err := s.db.Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Flashcard, 0, len(models))
	for _, m := range models {
		res = append(res, flashcardFromModel(m))
	}
	return res, nil
}

// SaveSummary inserts a summary row.
func (s *GormStore) SaveSummary(sum domain.Summary) error {
	model := summaryToModel(sum)
	return s.db.Create(&model).Error
}

// ListSummariesByDocument returns summaries in generation order.
func (s *GormStore) ListSummariesByDocument(documentID string) ([]domain.Summary, error) {
	var models []SummaryModel
	if err := s.db.Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Summary, 0, len(models))
	for _, m := range models {
		res = append(res, summaryFromModel(m))
	}
	return res, nil
}

// UpsertProgress inserts or partially updates the (user, document) progress
// row in one statement. Only supplied fields appear in the conflict
// assignment set, so concurrent upserts cannot interleave their fields and
// omitted fields keep their stored values.
func (s *GormStore) UpsertProgress(u ProgressUpdate) (domain.StudyProgress, error) {
	assignments := map[string]any{
		"last_accessed": u.LastAccessed.UTC(),
	}
	if u.QuizScore != nil {
		assignments["quiz_score"] = *u.QuizScore
	}
	if u.FlashcardsCompleted != nil {
		assignments["flashcards_completed"] = *u.FlashcardsCompleted
	}
	model := StudyProgressModel{
		ID:                  u.ID,
		UserID:              u.UserID,
		DocumentID:          u.DocumentID,
		QuizScore:           u.QuizScore,
		FlashcardsCompleted: u.FlashcardsCompleted,
		LastAccessed:        u.LastAccessed.UTC(),
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "document_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&model).Error; err != nil {
		return domain.StudyProgress{}, err
	}
	var out StudyProgressModel
	if err := s.db.First(&out, "user_id = ? AND document_id = ?", u.UserID, u.DocumentID).Error; err != nil {
		return domain.StudyProgress{}, err
	}
	return progressFromModel(out), nil
}

// GetProgress returns the progress row for the pair, if any.
func (s *GormStore) GetProgress(userID, documentID string) (domain.StudyProgress, bool, error) {
	var model StudyProgressModel
	if err := s.db.First(&model, "user_id = ? AND document_id = ?", userID, documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.StudyProgress{}, false, nil
		}
		return domain.StudyProgress{}, false, err
	}
	return progressFromModel(model), true, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func documentToModel(d domain.Document) DocumentModel {
	return DocumentModel{
		ID:         d.ID,
		OwnerID:    d.OwnerID,
		Title:      d.Title,
		StorageKey: d.StorageKey,
		PageCount:  d.PageCount,
		CreatedAt:  d.CreatedAt,
	}
}

func documentFromModel(m DocumentModel) domain.Document {
	return domain.Document{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		Title:      m.Title,
		StorageKey: m.StorageKey,
		PageCount:  m.PageCount,
		CreatedAt:  m.CreatedAt,
	}
}

func questionToModel(q domain.QuizQuestion, quizID string, position int) (QuizQuestionModel, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return QuizQuestionModel{}, fmt.Errorf("encode options: %w", err)
	}
	return QuizQuestionModel{
		ID:            q.ID,
		QuizID:        quizID,
		Position:      position,
		Question:      q.Question,
		Options:       options,
		CorrectAnswer: q.CorrectAnswer,
	}, nil
}

func questionFromModel(m QuizQuestionModel) (domain.QuizQuestion, error) {
	var options []string
	if err := json.Unmarshal(m.Options, &options); err != nil {
		return domain.QuizQuestion{}, fmt.Errorf("decode options: %w", err)
	}
	return domain.QuizQuestion{
		ID:            m.ID,
		QuizID:        m.QuizID,
		Question:      m.Question,
		Options:       options,
		CorrectAnswer: m.CorrectAnswer,
	}, nil
}

func flashcardToModel(c domain.Flashcard) FlashcardModel {
	return FlashcardModel{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		Term:       c.Term,
		Definition: c.Definition,
		CreatedAt:  c.CreatedAt,
	}
}

func flashcardFromModel(m FlashcardModel) domain.Flashcard {
	return domain.Flashcard{
		ID:         m.ID,
		DocumentID: m.DocumentID,
		Term:       m.Term,
		Definition: m.Definition,
		CreatedAt:  m.CreatedAt,
	}
}

func summaryToModel(s domain.Summary) SummaryModel {
	return SummaryModel{
		ID:         s.ID,
		DocumentID: s.DocumentID,
		Content:    s.Content,
		CreatedAt:  s.CreatedAt,
	}
}

func summaryFromModel(m SummaryModel) domain.Summary {
	return domain.Summary{
		ID:         m.ID,
		DocumentID: m.DocumentID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}

func progressFromModel(m StudyProgressModel) domain.StudyProgress {
	return domain.StudyProgress{
		ID:                  m.ID,
		UserID:              m.UserID,
		DocumentID:          m.DocumentID,
		QuizScore:           m.QuizScore,
		FlashcardsCompleted: m.FlashcardsCompleted,
		LastAccessed:        m.LastAccessed,
	}
}
