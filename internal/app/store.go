package app

import (
	"context"
	"fmt"

	"github.com/guttosm/idxpulse/config"
	"github.com/guttosm/idxpulse/internal/storage"
)

// InitBlobStore initializes the S3-compatible blob store client and
// verifies the bucket is reachable.
//
// Parameters:
//   - ctx (context.Context): used for the connectivity check.
//   - cfg (config.Config): the application configuration with store settings.
//
// Returns:
//   - storage.BlobStore: a ready client (safe for concurrent use).
//   - error: if client construction or the reachability check fails.
func InitBlobStore(ctx context.Context, cfg config.Config) (storage.BlobStore, error) {
	store, err := storeOpener(ctx, cfg.Store, cfg.Batch.RetryAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach bucket: %w", err)
	}
	return store, nil
}

// storeOpener is an indirection for unit testing; defaults to NewS3Store.
var storeOpener = storage.NewS3Store
