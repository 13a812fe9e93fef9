// Package blobstore keeps the per-slot config blobs handed out with leases.
// Blobs are opaque bytes addressed by models.BlobKey. Three backends exist:
// a local directory, an S3-compatible bucket and Redis.
package blobstore

import (
	"context"
	"fmt"
	"path"
)

// Store reads and replaces config blobs. Get reports a missing blob with
// common.ErrorBlobNotFound.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// checkKey rejects keys that could escape the backend's namespace.
func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || path.Base(key) != key {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}
