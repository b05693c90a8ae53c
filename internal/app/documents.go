package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"edupdf/internal/storage"
	"edupdf/pkg/domain"

	"github.com/google/uuid"
)

// UploadDocument stores the file, verifies it parses as a PDF and records
// the metadata row. The blob is removed again if any later step fails so a
// rejected upload leaves nothing behind.
func (a *App) UploadDocument(owner domain.User, title, filename string, r io.Reader, size int64) (domain.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Document{}, fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if filename == "" || size <= 0 {
		return domain.Document{}, fmt.Errorf("%w: file required", ErrInvalidInput)
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return domain.Document{}, fmt.Errorf("%w: only .pdf files are accepted", ErrInvalidInput)
	}

	id := uuid.NewString()
	storageKey := buildStorageKey(id, filename)
	contentType := mime.TypeByExtension(".pdf")
	if contentType == "" {
		contentType = "application/pdf"
	}

	ctx := context.Background()
	if err := a.blobs.Put(ctx, storageKey, r, size, contentType); err != nil {
		return domain.Document{}, fmt.Errorf("save file: %w", err)
	}

	pages, err := a.countPages(ctx, storageKey)
	if err != nil {
		_ = a.blobs.Delete(ctx, storageKey)
		return domain.Document{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	doc := domain.Document{
		ID:         id,
		OwnerID:    owner.ID,
		Title:      title,
		StorageKey: storageKey,
		PageCount:  pages,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.SaveDocument(doc); err != nil {
		_ = a.blobs.Delete(ctx, storageKey)
		return domain.Document{}, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the caller's documents, newest first.
func (a *App) ListDocuments(owner domain.User) ([]domain.Document, error) {
	return a.store.ListDocumentsByOwner(owner.ID)
}

// GetDocument returns a document the caller owns. A document owned by
// someone else looks exactly like a missing one.
func (a *App) GetDocument(owner domain.User, id string) (domain.Document, error) {
	doc, found, err := a.store.GetDocumentOwned(id, owner.ID)
	if err != nil {
		return domain.Document{}, fmt.Errorf("lookup document: %w", err)
	}
	if !found {
		return domain.Document{}, ErrDocumentNotFound
	}
	return doc, nil
}

// DeleteDocument removes a document with all its generated material and
// progress in one transaction, then deletes the stored file. A failing blob
// delete is logged and not reported; the metadata is already gone and the
// orphan blob is harmless.
func (a *App) DeleteDocument(owner domain.User, id string) error {
	doc, err := a.GetDocument(owner, id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteDocumentCascade(doc.ID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := a.blobs.Delete(context.Background(), doc.StorageKey); err != nil {
		slog.Warn("orphan blob left behind after document delete",
			"document_id", doc.ID, "storage_key", doc.StorageKey, "error", err)
	}
	return nil
}

// documentText opens the stored file and extracts its text for generation.
func (a *App) documentText(ctx context.Context, doc domain.Document) (string, error) {
	blob, err := a.blobs.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return "", fmt.Errorf("%w: stored file missing", ErrExtraction)
		}
		return "", fmt.Errorf("open file: %w", err)
	}
	defer blob.Close()
	text, err := a.extractor.Text(blob, blob.Size())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return text, nil
}

func (a *App) countPages(ctx context.Context, storageKey string) (int, error) {
	blob, err := a.blobs.Open(ctx, storageKey)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer blob.Close()
	return a.extractor.PageCount(blob, blob.Size())
}

func buildStorageKey(id, filename string) string {
	base := filepath.Base(filename)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	return "documents/" + id + "/" + base
}
