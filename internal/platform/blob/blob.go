// Package blob stores uploaded document files by key.
package blob

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("blob not found")

// Store is the file storage used for uploaded documents. Keys are
// slash-separated relative paths such as "<collection token>/<filename>".
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

const (
	DriverLocal = "local"
	DriverGCS   = "gcs"
)
