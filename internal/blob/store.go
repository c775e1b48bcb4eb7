package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// PutOptions carries the metadata stored alongside a blob.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// Store is the artifact store shared by intake, the build worker, and the
// edge gateway. Keys are forward-slash separated paths; both the source tree
// (source/{id}/...) and build output (dist/{id}/...) live in one bucket.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
}
