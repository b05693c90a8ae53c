package app

import (
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"edupdf/internal/extract"
	"edupdf/internal/generate"
	"edupdf/internal/storage"
	"edupdf/pkg/auth"
	"edupdf/pkg/domain"
	"edupdf/pkg/store"

	"github.com/google/uuid"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL    string
	StorageDir     string
	JWTSecret      string
	SessionTTL     time.Duration
	MaxUploadBytes int64

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Injectable collaborators, used by tests and by callers that wire
	// their own backends. Nil fields get production defaults.
	Store     store.Store
	Sessions  store.SessionStore
	Blobs     storage.BlobStore
	Extractor Extractor
	Generator generate.ContentGenerator
}

// Extractor reads structure and text out of an uploaded file.
type Extractor interface {
	PageCount(r io.ReaderAt, size int64) (int, error)
	Text(r io.ReaderAt, size int64) (string, error)
}

// App is the core application service wiring together storage, auth,
// extraction and content generation.
type App struct {
	store     store.Store
	sessions  store.SessionStore
	blobs     storage.BlobStore
	extractor Extractor
	generator generate.ContentGenerator
}

// New constructs the application. The JWT secret is mandatory and has no
// default; construction fails rather than signing tokens with a guessable key.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		var err error
		sessionStore, err = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
	}

	blobs := cfg.Blobs
	if blobs == nil {
		var err error
		if cfg.MinioEndpoint != "" {
			blobs, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		} else {
			if cfg.StorageDir == "" {
				return nil, fmt.Errorf("storage directory required")
			}
			blobs, err = storage.NewFileStore(cfg.StorageDir)
		}
		if err != nil {
			return nil, fmt.Errorf("init blob store: %w", err)
		}
	}

	extractor := cfg.Extractor
	if extractor == nil {
		extractor = extract.NewPDF()
	}
	generator := cfg.Generator
	if generator == nil {
		generator = generate.NewHeuristicGenerator()
	}

	return &App{
		store:     dataStore,
		sessions:  sessionStore,
		blobs:     blobs,
		extractor: extractor,
		generator: generator,
	}, nil
}

// Register creates an account with a bcrypt password digest. Plaintext
// passwords are never stored.
func (a *App) Register(email, username, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return domain.User{}, fmt.Errorf("%w: email, username and password required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, fmt.Errorf("%w: malformed email address", ErrInvalidInput)
	}
	taken, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return domain.User{}, ErrEmailTaken
	}
	digest, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: digest,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password produce the same error.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, found, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if !found || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a session token to its account.
func (a *App) UserFromToken(token string) (domain.User, error) {
	userID, err := a.sessions.UserIDFromToken(token)
	if err != nil {
		return domain.User{}, ErrInvalidToken
	}
	user, found, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !found {
		return domain.User{}, ErrInvalidToken
	}
	return user, nil
}
