package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"edupdf/internal/app"
	"edupdf/internal/storage"
	"edupdf/pkg/store"
)

type stubExtractor struct{}

func (stubExtractor) PageCount(r io.ReaderAt, size int64) (int, error) {
	if looksBad(r, size) {
		return 0, errors.New("malformed file")
	}
	return 2, nil
}

func (stubExtractor) Text(r io.ReaderAt, size int64) (string, error) {
	if looksBad(r, size) {
		return "", errors.New("malformed file")
	}
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return "", err
	}
	return string(buf), nil
}

func looksBad(r io.ReaderAt, size int64) bool {
	if size < 3 {
		return true
	}
	buf := make([]byte, 3)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return true
	}
	return string(buf) == "bad"
}

const uploadText = "Photosynthesis converts sunlight into chemical energy. " +
	"Chlorophyll absorbs light in the visible spectrum. " +
	"Mitochondria produce adenosine inside eukaryotic cells."

func newTestServer(t *testing.T, extra Config) *httptest.Server {
	t.Helper()
	blobs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	a, err := app.New(app.Config{
		JWTSecret: "test-secret",
		Store:     store.NewMemoryStore(),
		Blobs:     blobs,
		Extractor: stubExtractor{},
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	extra.App = a
	srv, err := New(extra)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func getWithToken(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func registerAndLogin(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/auth/register",
		fmt.Sprintf(`{"email":%q,"username":"student","password":"hunter2!"}`, email), "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}
	resp = postJSON(t, ts.URL+"/api/auth/login",
		fmt.Sprintf(`{"email":%q,"password":"hunter2!"}`, email), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
	var auth struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &auth)
	if auth.Token == "" {
		t.Fatalf("login returned no token")
	}
	return auth.Token
}

func uploadPDF(t *testing.T, ts *httptest.Server, token, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.WriteField("title", "Biology Notes"); err != nil {
		t.Fatalf("write title field: %v", err)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/documents", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do upload: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t, Config{})
	registerAndLogin(t, ts, "alice@example.com")

	resp := postJSON(t, ts.URL+"/api/auth/register",
		`{"email":"alice@example.com","username":"again","password":"other"}`, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	ts := newTestServer(t, Config{})
	registerAndLogin(t, ts, "alice@example.com")

	resp := postJSON(t, ts.URL+"/api/auth/login",
		`{"email":"alice@example.com","password":"wrong"}`, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestDocumentsRequireAuth(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, err := http.Get(ts.URL + "/api/documents")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	resp = getWithToken(t, ts.URL+"/api/documents", "not.a.token")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", resp.StatusCode)
	}
}

func TestUploadAndStudyFlow(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := registerAndLogin(t, ts, "alice@example.com")

	resp := uploadPDF(t, ts, token, "notes.pdf", uploadText)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var doc struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		PageCount int    `json:"pageCount"`
	}
	decodeBody(t, resp, &doc)
	if doc.Title != "Biology Notes" || doc.PageCount != 2 {
		t.Fatalf("unexpected document: %+v", doc)
	}

	resp = postJSON(t, ts.URL+"/api/documents/"+doc.ID+"/quiz", `{"numQuestions":2}`, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("quiz status = %d", resp.StatusCode)
	}
	var quiz struct {
		Questions []struct {
			Options       []string `json:"options"`
			CorrectAnswer int      `json:"correctAnswer"`
		} `json:"questions"`
	}
	decodeBody(t, resp, &quiz)
	if len(quiz.Questions) != 2 {
		t.Fatalf("got %d questions", len(quiz.Questions))
	}

	// Empty body applies generation defaults.
	resp = postJSON(t, ts.URL+"/api/documents/"+doc.ID+"/summary", "", token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("summary status = %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/api/documents/"+doc.ID+"/progress", `{"quizScore":0.9}`, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("progress update status = %d", resp.StatusCode)
	}
	resp = getWithToken(t, ts.URL+"/api/documents/"+doc.ID+"/progress", token)
	var progress struct {
		QuizScore *float64 `json:"quizScore"`
	}
	decodeBody(t, resp, &progress)
	if progress.QuizScore == nil || *progress.QuizScore != 0.9 {
		t.Fatalf("progress not recorded: %+v", progress)
	}

	// Delete cascades; every follow-up read is a 404.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/documents/"+doc.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	for _, path := range []string{"", "/quiz", "/progress"} {
		resp = getWithToken(t, ts.URL+"/api/documents/"+doc.ID+path, token)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("GET %s after delete = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestUploadRejectsBadFile(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := registerAndLogin(t, ts, "alice@example.com")

	resp := uploadPDF(t, ts, token, "broken.pdf", "bad bytes here")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	resp = uploadPDF(t, ts, token, "notes.txt", uploadText)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-pdf status = %d, want 400", resp.StatusCode)
	}
}

func TestForeignDocumentLooksMissing(t *testing.T) {
	ts := newTestServer(t, Config{})
	aliceToken := registerAndLogin(t, ts, "alice@example.com")
	bobToken := registerAndLogin(t, ts, "bob@example.com")

	resp := uploadPDF(t, ts, aliceToken, "notes.pdf", uploadText)
	var doc struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &doc)

	resp = getWithToken(t, ts.URL+"/api/documents/"+doc.ID, bobToken)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign document status = %d, want 404", resp.StatusCode)
	}
}

func TestProgressBeforeAnyUpdateIs404(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := registerAndLogin(t, ts, "alice@example.com")
	resp := uploadPDF(t, ts, token, "notes.pdf", uploadText)
	var doc struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &doc)

	resp = getWithToken(t, ts.URL+"/api/documents/"+doc.ID+"/progress", token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestLoginRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	ts := newTestServer(t, Config{
		RedisAddr:               redis.Addr(),
		LoginRateLimitPerMinute: 1,
	})
	registerAndLogin(t, ts, "alice@example.com")

	// registerAndLogin spent the single login slot for this window.
	resp := postJSON(t, ts.URL+"/api/auth/login",
		`{"email":"alice@example.com","password":"hunter2!"}`, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, err := http.Get(ts.URL + "/api/auth/register")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
