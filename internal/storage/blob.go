package storage

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned by Open when no object exists under the key.
var ErrBlobNotFound = errors.New("blob not found")

// Blob is an open stored object. ReaderAt access is what the PDF reader
// needs, so both backends expose it.
type Blob interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// BlobStore persists uploaded document files. Keys are slash-separated
// relative paths minted by the caller, e.g. "documents/<id>/<filename>".
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (Blob, error)
	Delete(ctx context.Context, key string) error
}
