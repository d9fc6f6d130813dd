package ports

import (
	"context"
	"io"
)

// BlobStore abstracts raw byte storage addressed by an opaque key.
// Put has write-or-fail semantics: on error no readable object exists at key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}
