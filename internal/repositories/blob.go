package repositories

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrBlobNotFound is returned when a key does not exist in the blob store.
var ErrBlobNotFound = errors.New("blob not found")

// BlobInfo describes a stored object.
type BlobInfo struct {
	Key  string
	Size int64
}

// BlobStore is the opaque byte store behind drive files. Keys are
// generated by the drive core and never derived from user input.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error
	Stat(ctx context.Context, key string) (BlobInfo, error)
	Delete(ctx context.Context, key string) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	PresignPut(ctx context.Context, key string, expires time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}
