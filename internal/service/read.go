package service

import (
	"context"
	"fmt"

	"github.com/guttosm/idxpulse/internal/cache"
	"github.com/guttosm/idxpulse/internal/domain/models"
	"github.com/guttosm/idxpulse/internal/storage"
)

// ReadService exposes produced aggregates to the HTTP surface. Reads go
// through the shared content cache, so a dashboard polling the same
// partition does not hammer the object store.
type ReadService interface {
	// GetBrokerRows returns the per-stock rows for a partition, or nil when
	// the output does not exist (not an error).
	GetBrokerRows(ctx context.Context, key models.PartitionKey, stock string) ([]models.BrokerRow, error)
	// GetIndexRows returns the IDX rollup rows for a partition, or nil when
	// the rollup has not been produced yet.
	GetIndexRows(ctx context.Context, key models.PartitionKey) ([]models.BrokerRow, error)
	// CacheStats reports the shared cache counters.
	CacheStats() cache.Stats
}

type readService struct {
	store storage.BlobStore
	cache *cache.ContentCache
}

// NewReadService wires a ReadService over the blob store and content cache.
func NewReadService(store storage.BlobStore, c *cache.ContentCache) ReadService {
	return &readService{store: store, cache: c}
}

func (s *readService) GetBrokerRows(ctx context.Context, key models.PartitionKey, stock string) ([]models.BrokerRow, error) {
	return s.readRows(ctx, key.StockPath(stock))
}

func (s *readService) GetIndexRows(ctx context.Context, key models.PartitionKey) ([]models.BrokerRow, error) {
	return s.readRows(ctx, key.IndexPath())
}

func (s *readService) readRows(ctx context.Context, path string) ([]models.BrokerRow, error) {
	exists, err := s.store.Exists(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", path, err)
	}
	if !exists {
		return nil, nil
	}

	text, err := s.cache.Get(ctx, path, func(ctx context.Context) (string, error) {
		return s.store.DownloadText(ctx, path)
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}

	rows, err := DecodeRows(text)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rows, nil
}

func (s *readService) CacheStats() cache.Stats {
	return s.cache.Stats()
}
