package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"edupdf/internal/app"
	"edupdf/internal/ratelimit"
	"edupdf/internal/util"
	"edupdf/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	MaxUploadBytes int64

	RedisAddr                  string
	RedisPassword              string
	RegisterRateLimitPerMinute int
	LoginRateLimitPerMinute    int
}

// Server exposes the HTTP API.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	maxUploadBytes int64

	registerLimiter *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
}

const defaultMaxUploadBytes = 50 << 20

// New constructs the server with routes configured. Rate limiters are only
// active when a Redis address is configured; without one the auth endpoints
// are unthrottled.
func New(cfg Config) (*Server, error) {
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		maxUploadBytes: cfg.MaxUploadBytes,
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RedisAddr != "" {
		newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
			if limit <= 0 {
				return nil, nil
			}
			prefix := "edupdf:ratelimit:" + name
			return ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		}
		var err error
		if s.registerLimiter, err = newLimiter("register", cfg.RegisterRateLimitPerMinute); err != nil {
			return nil, err
		}
		if s.loginLimiter, err = newLimiter("login", cfg.LoginRateLimitPerMinute); err != nil {
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with shared middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))

	// documents and generated material
	s.mux.Handle("/api/documents", s.authenticated(s.handleDocuments))
	s.mux.Handle("/api/documents/", s.authenticated(s.handleDocumentSubtree))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.app.UserFromToken(token)
		if err != nil {
			s.audit(r, "auth.authorize", "fail")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.registerLimiter.Allow(util.ClientIP(r)) {
		s.audit(r, "auth.register", "rate_limited")
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	var req registerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.Register(req.Email, req.Username, req.Password)
	if err != nil {
		s.audit(r, "auth.register", "fail")
		writeAppError(w, err)
		return
	}
	s.audit(r, "auth.register", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.loginLimiter.Allow(util.ClientIP(r)) {
		s.audit(r, "auth.login", "rate_limited")
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "auth.login", "fail")
		writeAppError(w, err)
		return
	}
	s.audit(r, "auth.login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		docs, err := s.app.ListDocuments(user)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": docs, "count": len(docs)})
	case http.MethodPost:
		s.handleUpload(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, user domain.User) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = titleFromName(header.Filename)
	}
	doc, err := s.app.UploadDocument(user, title, header.Filename, file, header.Size)
	if err != nil {
		s.audit(r, "document.upload", "fail", "user_id", user.ID)
		writeAppError(w, err)
		return
	}
	s.audit(r, "document.upload", "success", "user_id", user.ID, "document_id", doc.ID)
	writeJSON(w, http.StatusCreated, doc)
}

// handleDocumentSubtree dispatches /api/documents/{id} and
// /api/documents/{id}/{quiz|flashcards|summary|progress}.
func (s *Server) handleDocumentSubtree(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}
	if len(parts) == 1 {
		s.handleDocumentByID(w, r, user, id)
		return
	}
	switch parts[1] {
	case "quiz":
		s.handleQuiz(w, r, user, id)
	case "flashcards":
		s.handleFlashcards(w, r, user, id)
	case "summary":
		s.handleSummary(w, r, user, id)
	case "progress":
		s.handleProgress(w, r, user, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleDocumentByID(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	switch r.Method {
	case http.MethodGet:
		doc, err := s.app.GetDocument(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := s.app.DeleteDocument(user, id); err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "document.delete", "success", "user_id", user.ID, "document_id", id)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	switch r.Method {
	case http.MethodPost:
		var req quizRequest
		if err := decodeOptionalBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		quiz, err := s.app.CreateQuiz(r.Context(), user, id, req.NumQuestions)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, quiz)
	case http.MethodGet:
		quizzes, err := s.app.ListQuizzes(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": quizzes, "count": len(quizzes)})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleFlashcards(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	switch r.Method {
	case http.MethodPost:
		var req flashcardsRequest
		if err := decodeOptionalBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		cards, err := s.app.CreateFlashcards(r.Context(), user, id, req.NumCards)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"items": cards, "count": len(cards)})
	case http.MethodGet:
		cards, err := s.app.ListFlashcards(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": cards, "count": len(cards)})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	switch r.Method {
	case http.MethodPost:
		var req summaryRequest
		if err := decodeOptionalBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		summary, err := s.app.CreateSummary(r.Context(), user, id, req.MaxLength)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, summary)
	case http.MethodGet:
		summaries, err := s.app.ListSummaries(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": summaries, "count": len(summaries)})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	switch r.Method {
	case http.MethodPost:
		var req progressRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		progress, err := s.app.UpdateProgress(user, id, req.QuizScore, req.FlashcardsCompleted)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, progress)
	case http.MethodGet:
		progress, err := s.app.Progress(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, progress)
	default:
		methodNotAllowed(w)
	}
}

// decodeOptionalBody decodes a JSON body when one is present. An empty body
// leaves the target at its zero value so defaults apply.
func decodeOptionalBody(r *http.Request, target any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(target)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

// writeAppError maps application errors onto HTTP statuses. Unknown errors
// become an opaque 500 so internals never leak to clients.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, app.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound), errors.Is(err, app.ErrProgressNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrExtraction), errors.Is(err, app.ErrInvalidGenerated):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func titleFromName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type quizRequest struct {
	NumQuestions int `json:"numQuestions"`
}

type flashcardsRequest struct {
	NumCards int `json:"numCards"`
}

type summaryRequest struct {
	MaxLength int `json:"maxLength"`
}

type progressRequest struct {
	QuizScore           *float64 `json:"quizScore"`
	FlashcardsCompleted *int     `json:"flashcardsCompleted"`
}
