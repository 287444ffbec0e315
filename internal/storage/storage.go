package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Download when the blob is absent.
var ErrObjectNotFound = errors.New("object not found in storage")

// Object is an opened blob ready for streaming to a client.
// Callers own Body and must close it.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// Upload stores an object under objectKey.
	Upload(ctx context.Context, objectKey string, contentType string, size int64, body io.Reader) error

	// Exists reports whether an object is present under objectKey.
	// Used to distinguish a missing blob from a missing asset row.
	Exists(ctx context.Context, objectKey string) (bool, error)

	// Download opens an object for reading. Returns ErrObjectNotFound
	// when the blob is absent.
	Download(ctx context.Context, objectKey string) (*Object, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}
